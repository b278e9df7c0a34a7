// Package config provides YAML configuration loading and validation for the
// gwp-server binary: listen addresses, backend selection/DSN, idle reaping,
// TLS material, and the JWT public key path consumed by internal/auth.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration structure for gwp-server.
type Config struct {
	// GRPCAddr is the gRPC listen address (e.g. ":50051"). Required.
	GRPCAddr string `yaml:"grpc_addr"`

	// HTTPAddr is the listen address for the ambient /healthz + /metrics
	// HTTP surface (e.g. "127.0.0.1:9000"). Defaults to "127.0.0.1:9000"
	// when omitted.
	HTTPAddr string `yaml:"http_addr"`

	// TLS holds optional server-side TLS material. Unset, the gRPC server
	// listens in plaintext (dev mode).
	TLS *TLSConfig `yaml:"tls,omitempty"`

	// Backend selects and configures the storage engine: "mock", "sqlite",
	// or "postgres". Defaults to "mock" when omitted.
	Backend BackendConfig `yaml:"backend"`

	// IdleTimeout enables the idle-session reaper when positive, expressed
	// as a Go duration string (e.g. "5m"). Zero (or omitted) disables
	// reaping.
	IdleTimeout Duration `yaml:"idle_timeout"`

	// MaxSessions caps concurrent sessions; zero means unlimited.
	MaxSessions int `yaml:"max_sessions"`

	// JWTPublicKeyPath, when set, enables RS256 JWT validation of handshake
	// credentials via internal/auth.JWTValidator. Empty disables
	// authentication (dev mode).
	JWTPublicKeyPath string `yaml:"jwt_public_key_path,omitempty"`

	// AuditLogPath, when set, appends a hash-chained record of every
	// session/transaction lifecycle transition via internal/audit. Empty
	// disables the audit trail.
	AuditLogPath string `yaml:"audit_log_path,omitempty"`

	// LogLevel sets the minimum log severity: "debug", "info", "warn", or
	// "error". Defaults to "info" when omitted.
	LogLevel string `yaml:"log_level"`
}

// Duration wraps time.Duration so YAML values use Go duration strings
// ("5m", "90s") rather than raw nanosecond integers.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler via time.ParseDuration.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string like \"5m\": %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// TLSConfig holds certificate and key paths for the gRPC server's transport
// security.
type TLSConfig struct {
	// CertPath is the path to the server's PEM-encoded certificate. Required
	// when TLS is set.
	CertPath string `yaml:"cert_path"`

	// KeyPath is the path to the server's PEM-encoded private key. Required
	// when TLS is set.
	KeyPath string `yaml:"key_path"`

	// CAPath, when set, is a PEM-encoded CA bundle used to require and
	// verify client certificates (mTLS). Empty accepts any client.
	CAPath string `yaml:"ca_path,omitempty"`
}

// BackendConfig selects and configures the storage engine.
type BackendConfig struct {
	// Kind is one of "mock", "sqlite", "postgres". Defaults to "mock" when
	// omitted.
	Kind string `yaml:"kind"`

	// DSN is the connection string for "postgres" or the file path for
	// "sqlite" (":memory:" is accepted). Ignored for "mock".
	DSN string `yaml:"dsn,omitempty"`
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validBackendKinds = map[string]bool{
	"mock":     true,
	"sqlite":   true,
	"postgres": true,
}

// Load reads the YAML file at path, unmarshals it into Config, applies
// defaults, and validates all required fields. A validation error joins
// every failure found (errors.Join), not only the first.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: cannot read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: cannot parse %q: %w", path, err)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config: validation failed for %q: %w", path, err)
	}

	return &cfg, nil
}

// applyDefaults fills in zero-value optional fields with sensible defaults.
func applyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = "127.0.0.1:9000"
	}
	if cfg.Backend.Kind == "" {
		cfg.Backend.Kind = "mock"
	}
}

// validate checks that all required fields are populated and that
// enumerated fields contain only valid values.
func validate(cfg *Config) error {
	var errs []error

	if cfg.GRPCAddr == "" {
		errs = append(errs, errors.New("grpc_addr is required"))
	}
	if !validLogLevels[cfg.LogLevel] {
		errs = append(errs, fmt.Errorf("log_level %q must be one of: debug, info, warn, error", cfg.LogLevel))
	}
	if !validBackendKinds[cfg.Backend.Kind] {
		errs = append(errs, fmt.Errorf("backend.kind %q must be one of: mock, sqlite, postgres", cfg.Backend.Kind))
	}
	if cfg.Backend.Kind == "postgres" && cfg.Backend.DSN == "" {
		errs = append(errs, errors.New("backend.dsn is required when backend.kind is \"postgres\""))
	}
	if cfg.Backend.Kind == "sqlite" && cfg.Backend.DSN == "" {
		errs = append(errs, errors.New("backend.dsn is required when backend.kind is \"sqlite\""))
	}
	if cfg.IdleTimeout < 0 {
		errs = append(errs, errors.New("idle_timeout must not be negative"))
	}
	if cfg.MaxSessions < 0 {
		errs = append(errs, errors.New("max_sessions must not be negative"))
	}
	if cfg.TLS != nil {
		if cfg.TLS.CertPath == "" {
			errs = append(errs, errors.New("tls.cert_path is required when tls is set"))
		}
		if cfg.TLS.KeyPath == "" {
			errs = append(errs, errors.New("tls.key_path is required when tls is set"))
		}
	}

	return errors.Join(errs...)
}
