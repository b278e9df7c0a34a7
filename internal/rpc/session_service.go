// Package rpc implements the five gRPC service handlers (SessionService,
// GqlService, DatabaseService, AdminService, SearchService) as
// wire.SessionServer/wire.GqlServer/... implementations, wiring the
// registries and execute pipeline to the transport. Handlers use narrow
// constructor injection, per-RPC validation, structured logging, and
// explicit status mapping.
package rpc

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/grafeodb/gwp/backend"
	"github.com/grafeodb/gwp/gqlerr"
	"github.com/grafeodb/gwp/gqltypes"
	"github.com/grafeodb/gwp/internal/audit"
	"github.com/grafeodb/gwp/internal/auth"
	"github.com/grafeodb/gwp/internal/session"
	"github.com/grafeodb/gwp/internal/txn"
	"github.com/grafeodb/gwp/wire"
)

// serverName and serverVersion are reported in HandshakeResponse.ServerInfo.
const (
	serverName    = "gql-wire-protocol"
	serverVersion = "0.1.0"
)

// SessionService implements wire.SessionServer.
type SessionService struct {
	backend      backend.Backend
	sessions     *session.Registry
	transactions *txn.Registry
	auth         auth.Validator // nil means unauthenticated access is allowed
	logger       *slog.Logger
	audit        *audit.Logger // nil disables the audit trail
	limits       wire.Limits   // reported back in every HandshakeResponse
}

// NewSessionService creates a SessionService. auth may be nil to accept every
// handshake unauthenticated.
func NewSessionService(b backend.Backend, sessions *session.Registry, transactions *txn.Registry, authValidator auth.Validator, logger *slog.Logger) *SessionService {
	return &SessionService{backend: b, sessions: sessions, transactions: transactions, auth: authValidator, logger: logger}
}

// WithAuditLog attaches a hash-chained audit trail: every Handshake and
// Close is appended as an internal/audit.LifecycleEvent. Returns s for
// chaining.
func (s *SessionService) WithAuditLog(l *audit.Logger) *SessionService {
	s.audit = l
	return s
}

// WithLimits sets the server limits reported in HandshakeResponse. Returns s
// for chaining.
func (s *SessionService) WithLimits(l wire.Limits) *SessionService {
	s.limits = l
	return s
}

func (s *SessionService) logEvent(ev audit.LifecycleEvent) {
	if s.audit == nil {
		return
	}
	if _, err := s.audit.Append(ev); err != nil {
		s.logger.Warn("audit: failed to record lifecycle event", slog.String("kind", string(ev.Kind)), slog.Any("error", err))
	}
}

var _ wire.SessionServer = (*SessionService)(nil)

func (s *SessionService) Handshake(ctx context.Context, req *wire.HandshakeRequest) (*wire.HandshakeResponse, error) {
	if s.auth != nil {
		if req.Credentials == nil {
			return nil, status.Error(codes.Unauthenticated, "credentials required")
		}
		if err := s.auth.Validate(ctx, req.Credentials); err != nil {
			return nil, status.Error(codes.Unauthenticated, "invalid credentials")
		}
	}

	config := backend.SessionConfig{ProtocolVersion: req.ProtocolVersion, ClientInfo: req.ClientInfo}
	handle, err := s.backend.CreateSession(ctx, config)
	if err != nil {
		return nil, gqlerr.ToGRPCStatus(err).Err()
	}

	if err := s.sessions.Register(string(handle)); err != nil {
		_ = s.backend.CloseSession(ctx, handle)
		return nil, status.Error(codes.ResourceExhausted, err.Error())
	}

	s.logEvent(audit.LifecycleEvent{Kind: audit.EventHandshake, SessionID: string(handle)})

	return &wire.HandshakeResponse{
		ProtocolVersion: 1,
		SessionID:       string(handle),
		ServerInfo: wire.ServerInfo{
			Name:    serverName,
			Version: serverVersion,
		},
		Limits: s.limits,
	}, nil
}

func (s *SessionService) Configure(ctx context.Context, req *wire.ConfigureRequest) (*wire.ConfigureResponse, error) {
	if req.Kind == wire.ConfigureUnspecified {
		return nil, status.Error(codes.InvalidArgument, "configure request carries no property")
	}
	if !s.sessions.Exists(req.SessionID) {
		return nil, status.Errorf(codes.NotFound, "session %q not found", req.SessionID)
	}
	s.sessions.Touch(req.SessionID)

	backendProp, sessionProp := toProperty(req)

	if err := s.backend.ConfigureSession(ctx, backend.SessionHandle(req.SessionID), backendProp); err != nil {
		return nil, gqlerr.ToGRPCStatus(err).Err()
	}
	if err := s.sessions.Configure(req.SessionID, sessionProp); err != nil {
		// Session was reaped/closed between the existence check and the
		// backend call returning. The backend already applied the change;
		// there's no registry entry left to diverge from the client's view.
		s.logger.Debug("configure: session vanished after backend call", "session_id", req.SessionID)
	}
	return &wire.ConfigureResponse{}, nil
}

func toProperty(req *wire.ConfigureRequest) (backend.Property, session.Property) {
	switch req.Kind {
	case wire.ConfigureSchema:
		return backend.Property{Kind: backend.PropertySchema, Schema: req.Schema},
			session.Property{Kind: session.PropertySchema, Schema: req.Schema}
	case wire.ConfigureGraph:
		return backend.Property{Kind: backend.PropertyGraph, Graph: req.Graph},
			session.Property{Kind: session.PropertyGraph, Graph: req.Graph}
	case wire.ConfigureTimeZone:
		return backend.Property{Kind: backend.PropertyTimeZone, TimeZoneMins: req.TZOffset},
			session.Property{Kind: session.PropertyTimeZone, TimeZoneMins: req.TZOffset}
	default: // wire.ConfigureParameter
		val := gqltypes.Null
		if req.ParamVal != nil {
			val = wire.FromWire(req.ParamVal)
		}
		return backend.Property{Kind: backend.PropertyParameter, ParamName: req.ParamName, ParamValue: val},
			session.Property{Kind: session.PropertyParameter, ParamName: req.ParamName, ParamValue: val}
	}
}

func (s *SessionService) Reset(ctx context.Context, req *wire.ResetRequest) (*wire.ResetResponse, error) {
	if !s.sessions.Exists(req.SessionID) {
		return nil, status.Errorf(codes.NotFound, "session %q not found", req.SessionID)
	}
	s.sessions.Touch(req.SessionID)

	backendTarget, sessionTarget := toResetTarget(req.Target)

	if err := s.backend.ResetSession(ctx, backend.SessionHandle(req.SessionID), backendTarget); err != nil {
		return nil, gqlerr.ToGRPCStatus(err).Err()
	}
	if err := s.sessions.Reset(req.SessionID, sessionTarget); err != nil {
		s.logger.Debug("reset: session vanished after backend call", "session_id", req.SessionID)
	}
	return &wire.ResetResponse{}, nil
}

func toResetTarget(t wire.ResetTargetMsg) (backend.ResetTarget, session.ResetTarget) {
	switch t {
	case wire.ResetSchema:
		return backend.ResetSchema, session.ResetSchema
	case wire.ResetGraph:
		return backend.ResetGraph, session.ResetGraph
	case wire.ResetTimeZone:
		return backend.ResetTimeZone, session.ResetTimeZone
	case wire.ResetParameters:
		return backend.ResetParameters, session.ResetParameters
	default:
		return backend.ResetAll, session.ResetAll
	}
}

func (s *SessionService) Ping(ctx context.Context, req *wire.PingRequest) (*wire.PingResponse, error) {
	if !s.sessions.Exists(req.SessionID) {
		return nil, status.Errorf(codes.NotFound, "session %q not found", req.SessionID)
	}
	s.sessions.Touch(req.SessionID)
	return &wire.PingResponse{TimestampMillis: time.Now().UnixMilli()}, nil
}

func (s *SessionService) Close(ctx context.Context, req *wire.CloseRequest) (*wire.CloseResponse, error) {
	if !s.sessions.Exists(req.SessionID) {
		return nil, status.Errorf(codes.NotFound, "session %q not found", req.SessionID)
	}

	for _, txID := range s.transactions.RemoveForSession(req.SessionID) {
		if err := s.backend.Rollback(ctx, backend.SessionHandle(req.SessionID), backend.TransactionHandle(txID)); err != nil {
			s.logger.Warn("rollback on session close failed", slog.String("transaction_id", txID), slog.Any("error", err))
		}
	}

	if err := s.backend.CloseSession(ctx, backend.SessionHandle(req.SessionID)); err != nil {
		return nil, gqlerr.ToGRPCStatus(err).Err()
	}
	s.sessions.Remove(req.SessionID)
	s.logEvent(audit.LifecycleEvent{Kind: audit.EventClose, SessionID: req.SessionID})
	return &wire.CloseResponse{}, nil
}
