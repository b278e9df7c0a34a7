package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/grafeodb/gwp/internal/config"
)

// writeTemp writes content to a temp file and returns its path.
func writeTemp(t *testing.T, content string) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "config-*.yaml")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	f.Close()
	return f.Name()
}

const validYAML = `
grpc_addr: "0.0.0.0:50051"
http_addr: "127.0.0.1:9001"
tls:
  cert_path: "/etc/gwp/server.crt"
  key_path:  "/etc/gwp/server.key"
backend:
  kind: sqlite
  dsn: "/var/lib/gwp/gwp.db"
idle_timeout: 5m
max_sessions: 1000
log_level: debug
`

func TestLoad_Valid(t *testing.T) {
	path := writeTemp(t, validYAML)
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.GRPCAddr != "0.0.0.0:50051" {
		t.Errorf("GRPCAddr = %q", cfg.GRPCAddr)
	}
	if cfg.HTTPAddr != "127.0.0.1:9001" {
		t.Errorf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.TLS == nil || cfg.TLS.CertPath != "/etc/gwp/server.crt" {
		t.Errorf("TLS.CertPath = %+v", cfg.TLS)
	}
	if cfg.Backend.Kind != "sqlite" || cfg.Backend.DSN != "/var/lib/gwp/gwp.db" {
		t.Errorf("Backend = %+v", cfg.Backend)
	}
	if time.Duration(cfg.IdleTimeout) != 5*time.Minute {
		t.Errorf("IdleTimeout = %v", cfg.IdleTimeout)
	}
	if cfg.MaxSessions != 1000 {
		t.Errorf("MaxSessions = %d", cfg.MaxSessions)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
}

func TestLoad_Defaults(t *testing.T) {
	yaml := `
grpc_addr: "0.0.0.0:50051"
`
	path := writeTemp(t, yaml)
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("default LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
	if cfg.HTTPAddr != "127.0.0.1:9000" {
		t.Errorf("default HTTPAddr = %q, want %q", cfg.HTTPAddr, "127.0.0.1:9000")
	}
	if cfg.Backend.Kind != "mock" {
		t.Errorf("default Backend.Kind = %q, want %q", cfg.Backend.Kind, "mock")
	}
}

func TestLoad_MissingGRPCAddr(t *testing.T) {
	path := writeTemp(t, "backend:\n  kind: mock\n")
	_, err := config.Load(path)
	if err == nil {
		t.Fatal("expected error for missing grpc_addr, got nil")
	}
	if !strings.Contains(err.Error(), "grpc_addr") {
		t.Errorf("error %q does not mention grpc_addr", err.Error())
	}
}

func TestLoad_PostgresRequiresDSN(t *testing.T) {
	yaml := `
grpc_addr: "0.0.0.0:50051"
backend:
  kind: postgres
`
	path := writeTemp(t, yaml)
	_, err := config.Load(path)
	if err == nil {
		t.Fatal("expected error for missing backend.dsn, got nil")
	}
	if !strings.Contains(err.Error(), "backend.dsn") {
		t.Errorf("error %q does not mention backend.dsn", err.Error())
	}
}

func TestLoad_InvalidBackendKind(t *testing.T) {
	yaml := `
grpc_addr: "0.0.0.0:50051"
backend:
  kind: mongodb
`
	path := writeTemp(t, yaml)
	_, err := config.Load(path)
	if err == nil {
		t.Fatal("expected error for invalid backend.kind, got nil")
	}
	if !strings.Contains(err.Error(), "mongodb") {
		t.Errorf("error %q does not mention invalid kind %q", err.Error(), "mongodb")
	}
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	yaml := `
grpc_addr: "0.0.0.0:50051"
log_level: "verbose"
`
	path := writeTemp(t, yaml)
	_, err := config.Load(path)
	if err == nil {
		t.Fatal("expected error for invalid log_level, got nil")
	}
	if !strings.Contains(err.Error(), "log_level") {
		t.Errorf("error %q does not mention log_level", err.Error())
	}
}

func TestLoad_TLSRequiresCertAndKey(t *testing.T) {
	yaml := `
grpc_addr: "0.0.0.0:50051"
tls:
  ca_path: "/etc/gwp/ca.crt"
`
	path := writeTemp(t, yaml)
	_, err := config.Load(path)
	if err == nil {
		t.Fatal("expected error for missing tls.cert_path/key_path, got nil")
	}
	if !strings.Contains(err.Error(), "cert_path") || !strings.Contains(err.Error(), "key_path") {
		t.Errorf("error %q does not mention both cert_path and key_path", err.Error())
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	missingPath := filepath.Join(t.TempDir(), "nonexistent.yaml")
	_, err := config.Load(missingPath)
	if err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeTemp(t, ":::invalid yaml:::")
	_, err := config.Load(path)
	if err == nil {
		t.Fatal("expected error for invalid YAML, got nil")
	}
}

func TestLoad_InvalidIdleTimeout(t *testing.T) {
	yaml := `
grpc_addr: "0.0.0.0:50051"
idle_timeout: fast
`
	path := writeTemp(t, yaml)
	_, err := config.Load(path)
	if err == nil {
		t.Fatal("expected error for unparseable idle_timeout, got nil")
	}
	if !strings.Contains(err.Error(), "duration") {
		t.Errorf("error %q does not mention duration", err.Error())
	}
}

func TestLoad_NegativeMaxSessions(t *testing.T) {
	yaml := `
grpc_addr: "0.0.0.0:50051"
max_sessions: -1
`
	path := writeTemp(t, yaml)
	_, err := config.Load(path)
	if err == nil {
		t.Fatal("expected error for negative max_sessions, got nil")
	}
	if !strings.Contains(err.Error(), "max_sessions") {
		t.Errorf("error %q does not mention max_sessions", err.Error())
	}
}
