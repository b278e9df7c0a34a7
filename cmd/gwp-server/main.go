// Command gwp-server is the production GQL wire protocol server binary. It
// loads a YAML configuration file (flag-overridable listen address and log
// level), constructs the configured backend, wires optional JWT
// authentication and hash-chained audit logging, and serves until
// SIGINT/SIGTERM triggers a graceful shutdown.
package main

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/grafeodb/gwp/backend"
	"github.com/grafeodb/gwp/backend/mockbackend"
	"github.com/grafeodb/gwp/backend/pgbackend"
	"github.com/grafeodb/gwp/backend/sqlitebackend"
	"github.com/grafeodb/gwp/internal/audit"
	"github.com/grafeodb/gwp/internal/auth"
	"github.com/grafeodb/gwp/internal/config"
	"github.com/grafeodb/gwp/server"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to YAML configuration file (required)")
		grpcAddr   = flag.String("grpc-addr", "", "override config grpc_addr")
		logLevel   = flag.String("log-level", "", "override config log_level: debug | info | warn | error")
	)
	flag.Parse()

	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "gwp-server: -config is required")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "gwp-server: %v\n", err)
		os.Exit(1)
	}
	if *grpcAddr != "" {
		cfg.GRPCAddr = *grpcAddr
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	logger := newLogger(cfg.LogLevel)
	slog.SetDefault(logger)
	logger.Info("gwp-server starting", slog.String("grpc_addr", cfg.GRPCAddr), slog.String("backend", cfg.Backend.Kind))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	b, err := newBackend(ctx, cfg.Backend)
	if err != nil {
		logger.Error("failed to construct backend", slog.Any("error", err))
		os.Exit(1)
	}

	builder := server.NewBuilder(b).WithLogger(logger).WithHTTPAddr(cfg.HTTPAddr)

	if cfg.IdleTimeout > 0 {
		builder = builder.WithIdleTimeout(time.Duration(cfg.IdleTimeout))
	}
	if cfg.MaxSessions > 0 {
		builder = builder.WithMaxSessions(cfg.MaxSessions)
	}

	if cfg.JWTPublicKeyPath != "" {
		pem, err := os.ReadFile(cfg.JWTPublicKeyPath)
		if err != nil {
			logger.Error("failed to read JWT public key", slog.Any("error", err))
			os.Exit(1)
		}
		pubKey, err := jwt.ParseRSAPublicKeyFromPEM(pem)
		if err != nil {
			logger.Error("failed to parse JWT public key", slog.Any("error", err))
			os.Exit(1)
		}
		builder = builder.WithAuth(auth.NewJWTValidator(pubKey))
		logger.Info("JWT handshake authentication enabled")
	} else {
		logger.Warn("jwt_public_key_path not configured; handshake authentication disabled (dev mode)")
	}

	if cfg.AuditLogPath != "" {
		logFile, err := audit.Open(cfg.AuditLogPath)
		if err != nil {
			logger.Error("failed to open audit log", slog.Any("error", err))
			os.Exit(1)
		}
		builder = builder.WithAuditLog(logFile)
		logger.Info("audit trail enabled", slog.String("path", cfg.AuditLogPath))
	}

	if cfg.TLS != nil {
		tlsConfig, err := loadTLSConfig(cfg.TLS)
		if err != nil {
			logger.Error("failed to load TLS material", slog.Any("error", err))
			os.Exit(1)
		}
		builder = builder.WithTLS(tlsConfig)
		logger.Info("TLS enabled", slog.Bool("mtls", cfg.TLS.CAPath != ""))
	}

	srv := builder.Build()

	if err := srv.ListenAndServe(ctx, cfg.GRPCAddr); err != nil {
		logger.Error("server exited with error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("gwp-server exited cleanly")
}

// newBackend constructs the backend.Backend selected by cfg.Kind.
func newBackend(ctx context.Context, cfg config.BackendConfig) (backend.Backend, error) {
	switch cfg.Kind {
	case "sqlite":
		return sqlitebackend.New(cfg.DSN)
	case "postgres":
		return pgbackend.New(ctx, cfg.DSN)
	default:
		return mockbackend.New(), nil
	}
}

// loadTLSConfig builds a server-side *tls.Config from the configured
// certificate/key pair, optionally requiring and verifying client
// certificates against a CA bundle (mTLS) when CAPath is set.
func loadTLSConfig(cfg *config.TLSConfig) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(cfg.CertPath, cfg.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("load server keypair: %w", err)
	}

	tlsConfig := &tls.Config{Certificates: []tls.Certificate{cert}}

	if cfg.CAPath != "" {
		caPEM, err := os.ReadFile(cfg.CAPath)
		if err != nil {
			return nil, fmt.Errorf("read CA bundle: %w", err)
		}
		caPool := x509.NewCertPool()
		if !caPool.AppendCertsFromPEM(caPEM) {
			return nil, fmt.Errorf("parse CA bundle %q: no certificates found", cfg.CAPath)
		}
		tlsConfig.ClientCAs = caPool
		tlsConfig.ClientAuth = tls.RequireAndVerifyClientCert
	}

	return tlsConfig, nil
}

// newLogger constructs a *slog.Logger that writes JSON-structured log
// records to stderr at the requested minimum level.
func newLogger(level string) *slog.Logger {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: l}))
}
