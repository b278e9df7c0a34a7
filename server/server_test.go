package server_test

import (
	"context"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/grafeodb/gwp/backend/mockbackend"
	"github.com/grafeodb/gwp/internal/audit"
	"github.com/grafeodb/gwp/server"
	"github.com/grafeodb/gwp/wire"
)

func dialer(lis *bufconn.Listener) func(context.Context, string) (net.Conn, error) {
	return func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}
}

func TestServerHandshakeAndClose(t *testing.T) {
	lis := bufconn.Listen(1024 * 1024)
	srv := server.NewBuilder(mockbackend.New()).Build()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serveErrCh := make(chan error, 1)
	go func() { serveErrCh <- srv.Serve(ctx, lis) }()

	cc, err := wire.NewClientConn(context.Background(), "bufnet",
		grpc.WithContextDialer(dialer(lis)),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer cc.Close()

	req := &wire.HandshakeRequest{ProtocolVersion: 1}
	resp := &wire.HandshakeResponse{}
	if err := wire.Invoke(context.Background(), cc, "/gwp.SessionService/Handshake", req, resp); err != nil {
		t.Fatalf("handshake: %v", err)
	}
	if resp.SessionID == "" {
		t.Fatal("expected non-empty session id")
	}

	closeReq := &wire.CloseRequest{SessionID: resp.SessionID}
	closeResp := &wire.CloseResponse{}
	if err := wire.Invoke(context.Background(), cc, "/gwp.SessionService/Close", closeReq, closeResp); err != nil {
		t.Fatalf("close: %v", err)
	}

	cancel()
	select {
	case err := <-serveErrCh:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down in time")
	}
}

func TestBuilderDefaultsUnauthenticated(t *testing.T) {
	srv := server.NewBuilder(mockbackend.New()).Build()
	if srv.GRPCServer() == nil {
		t.Fatal("expected a non-nil grpc.Server")
	}
}

func TestServerRecordsAuditTrail(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "audit.log")
	logger, err := audit.Open(logPath)
	if err != nil {
		t.Fatalf("audit.Open: %v", err)
	}

	lis := bufconn.Listen(1024 * 1024)
	srv := server.NewBuilder(mockbackend.New()).WithAuditLog(logger).Build()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serveErrCh := make(chan error, 1)
	go func() { serveErrCh <- srv.Serve(ctx, lis) }()

	cc, err := wire.NewClientConn(context.Background(), "bufnet",
		grpc.WithContextDialer(dialer(lis)),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer cc.Close()

	resp := &wire.HandshakeResponse{}
	if err := wire.Invoke(context.Background(), cc, "/gwp.SessionService/Handshake", &wire.HandshakeRequest{ProtocolVersion: 1}, resp); err != nil {
		t.Fatalf("handshake: %v", err)
	}
	closeResp := &wire.CloseResponse{}
	if err := wire.Invoke(context.Background(), cc, "/gwp.SessionService/Close", &wire.CloseRequest{SessionID: resp.SessionID}, closeResp); err != nil {
		t.Fatalf("close: %v", err)
	}

	cancel()
	select {
	case err := <-serveErrCh:
		if err != nil {
			t.Fatalf("serve: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down in time")
	}

	entries, err := audit.Verify(logPath)
	if err != nil {
		t.Fatalf("audit.Verify: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len(entries) = %d, want 2 (handshake + close)", len(entries))
	}

	if ev := entries[0].Event; ev.Kind != audit.EventHandshake || ev.SessionID != resp.SessionID {
		t.Errorf("entries[0].Event = %+v, want handshake for session %q", ev, resp.SessionID)
	}
	if ev := entries[1].Event; ev.Kind != audit.EventClose || ev.SessionID != resp.SessionID {
		t.Errorf("entries[1].Event = %+v, want close for session %q", ev, resp.SessionID)
	}
}

func TestServerHTTPOpsSurface(t *testing.T) {
	httpLis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("reserve http port: %v", err)
	}
	httpAddr := httpLis.Addr().String()
	httpLis.Close() // release it; Server.Serve rebinds the same address

	lis := bufconn.Listen(1024 * 1024)
	srv := server.NewBuilder(mockbackend.New()).WithHTTPAddr(httpAddr).Build()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	serveErrCh := make(chan error, 1)
	go func() { serveErrCh <- srv.Serve(ctx, lis) }()
	t.Cleanup(func() {
		cancel()
		<-serveErrCh
	})

	waitForHTTP(t, httpAddr)

	resp, err := http.Get("http://" + httpAddr + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "ok") {
		t.Errorf("/healthz = %d %q, want 200 containing \"ok\"", resp.StatusCode, body)
	}

	resp, err = http.Get("http://" + httpAddr + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), "gwp_active_sessions") {
		t.Errorf("/metrics body = %q, want it to mention gwp_active_sessions", body)
	}
}

// waitForHTTP polls addr until it accepts connections or the test times out.
func waitForHTTP(t *testing.T, addr string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, 100*time.Millisecond)
		if err == nil {
			conn.Close()
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("server did not start listening on %s in time", addr)
}
