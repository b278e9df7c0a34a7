// Package server wires the session/transaction registries, the execute
// pipeline, and the five RPC service handlers into a running gRPC server,
// using an option-struct builder, signal-driven graceful shutdown, and
// log/slog JSON logging.
package server

import (
	"context"
	"crypto/tls"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/grafeodb/gwp/backend"
	"github.com/grafeodb/gwp/internal/audit"
	"github.com/grafeodb/gwp/internal/auth"
	"github.com/grafeodb/gwp/internal/execute"
	"github.com/grafeodb/gwp/internal/rpc"
	"github.com/grafeodb/gwp/internal/session"
	"github.com/grafeodb/gwp/internal/txn"
	"github.com/grafeodb/gwp/wire"
)

// Builder configures a Server before it starts serving. The zero value
// accepts unlimited, unauthenticated, never-idle-reaped sessions.
type Builder struct {
	backend       backend.Backend
	authValidator auth.Validator
	idleTimeout   time.Duration
	maxSessions   int
	tlsConfig     *tls.Config
	logger        *slog.Logger
	auditLog      *audit.Logger
	httpAddr      string
}

// NewBuilder starts building a server around b.
func NewBuilder(b backend.Backend) *Builder {
	return &Builder{backend: b}
}

// WithAuth requires every handshake to carry credentials validator accepts.
// Unset, every handshake is accepted unauthenticated.
func (b *Builder) WithAuth(validator auth.Validator) *Builder {
	b.authValidator = validator
	return b
}

// WithIdleTimeout enables the reaper: sessions with no activity for longer
// than d are closed and their transaction rolled back automatically. Unset
// (zero), sessions live until explicitly closed.
func (b *Builder) WithIdleTimeout(d time.Duration) *Builder {
	b.idleTimeout = d
	return b
}

// WithMaxSessions caps concurrent sessions; handshake past the limit fails
// RESOURCE_EXHAUSTED. Zero means unlimited.
func (b *Builder) WithMaxSessions(n int) *Builder {
	b.maxSessions = n
	return b
}

// WithTLS serves with the given server-side TLS configuration. Unset, the
// server listens in plaintext.
func (b *Builder) WithTLS(cfg *tls.Config) *Builder {
	b.tlsConfig = cfg
	return b
}

// WithLogger sets the logger passed to every RPC handler and the reaper.
// Unset, a JSON-to-stderr logger at info level is used, matching cmd/
// gwp-server/main.go's newLogger default.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithAuditLog attaches a hash-chained audit trail (internal/audit): every
// handshake, close, begin/commit/rollback is appended as a tamper-evident
// lifecycle event. Unset, no audit trail is recorded.
func (b *Builder) WithAuditLog(l *audit.Logger) *Builder {
	b.auditLog = l
	return b
}

// WithHTTPAddr starts an ambient HTTP surface (GET /healthz, GET /metrics)
// on addr alongside the gRPC listener. Unset, no HTTP surface is served.
func (b *Builder) WithHTTPAddr(addr string) *Builder {
	b.httpAddr = addr
	return b
}

// Build wires the registries, pipeline, and RPC services and returns a
// not-yet-serving Server.
func (b *Builder) Build() *Server {
	logger := b.logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(os.Stderr, nil))
	}

	sessions := session.New(b.maxSessions)
	transactions := txn.New()
	pipeline := execute.New(b.backend, sessions, transactions, logger)

	sessionSvc := rpc.NewSessionService(b.backend, sessions, transactions, b.authValidator, logger)
	sessionSvc.WithLimits(wire.Limits{
		MaxSessions:   int32(b.maxSessions),
		IdleTimeoutMs: b.idleTimeout.Milliseconds(),
	})
	gqlSvc := rpc.NewGqlService(pipeline)
	if b.auditLog != nil {
		sessionSvc.WithAuditLog(b.auditLog)
		gqlSvc.WithAuditLog(b.auditLog)
	}
	databaseSvc := rpc.NewDatabaseService(b.backend)
	adminSvc := rpc.NewAdminService(b.backend)
	searchSvc := rpc.NewSearchService(b.backend)

	var opts []grpc.ServerOption
	if b.tlsConfig != nil {
		opts = append(opts, grpc.Creds(credentials.NewTLS(b.tlsConfig)))
	}
	grpcServer := grpc.NewServer(opts...)

	wire.RegisterSessionServer(grpcServer, sessionSvc)
	wire.RegisterGqlServer(grpcServer, gqlSvc)
	wire.RegisterDatabaseServer(grpcServer, databaseSvc)
	wire.RegisterAdminServer(grpcServer, adminSvc)
	wire.RegisterSearchServer(grpcServer, searchSvc)

	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)

	var httpServer *http.Server
	if b.httpAddr != "" {
		httpServer = &http.Server{
			Addr:    b.httpAddr,
			Handler: newOpsRouter(sessions, transactions),
		}
	}

	return &Server{
		grpcServer:   grpcServer,
		health:       healthSrv,
		backend:      b.backend,
		sessions:     sessions,
		transactions: transactions,
		idleTimeout:  b.idleTimeout,
		logger:       logger,
		auditLog:     b.auditLog,
		httpServer:   httpServer,
	}
}

// Server is a built, servable GQL wire protocol endpoint.
type Server struct {
	grpcServer   *grpc.Server
	health       *health.Server
	backend      backend.Backend
	sessions     *session.Registry
	transactions *txn.Registry
	idleTimeout  time.Duration
	logger       *slog.Logger
	auditLog     *audit.Logger
	httpServer   *http.Server

	reaperDone chan struct{}
}

// GRPCServer exposes the underlying *grpc.Server, for tests that want to
// dial an in-process listener (bufconn) or register additional services.
func (s *Server) GRPCServer() *grpc.Server {
	return s.grpcServer
}

// Serve starts the reaper (if an idle timeout was configured) and blocks
// accepting connections on lis until ctx is cancelled or Serve fails. On
// cancellation it performs a graceful stop: in-flight RPCs are allowed to
// finish, then the reaper is stopped.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	if s.idleTimeout > 0 {
		s.reaperDone = make(chan struct{})
		go s.runReaper(ctx, s.reaperDone)
	}

	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.grpcServer.Serve(lis)
	}()

	if s.httpServer != nil {
		go func() {
			s.logger.Info("server: HTTP ops surface listening", slog.String("addr", s.httpServer.Addr))
			if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				s.logger.Warn("server: HTTP ops surface error", slog.Any("error", err))
			}
		}()
	}

	select {
	case <-ctx.Done():
		s.logger.Info("server: shutting down")
		s.health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
		s.grpcServer.GracefulStop()
		if s.reaperDone != nil {
			<-s.reaperDone
		}
		if s.httpServer != nil {
			if err := s.httpServer.Shutdown(context.Background()); err != nil {
				s.logger.Warn("server: HTTP ops surface shutdown error", slog.Any("error", err))
			}
		}
		if s.auditLog != nil {
			if err := s.auditLog.Close(); err != nil {
				s.logger.Warn("server: audit log close failed", slog.Any("error", err))
			}
		}
		return <-errCh
	case err := <-errCh:
		return err
	}
}

// ListenAndServe resolves addr with net.Listen("tcp", addr) and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, lis)
}

// Stop forces an immediate stop without waiting for in-flight RPCs. Serve's
// own shutdown path does not call it; Serve always stops gracefully.
func (s *Server) Stop() {
	s.grpcServer.Stop()
}
