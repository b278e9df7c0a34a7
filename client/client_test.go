package client_test

import (
	"context"
	"net"
	"testing"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"github.com/grafeodb/gwp/backend/mockbackend"
	"github.com/grafeodb/gwp/client"
	"github.com/grafeodb/gwp/gqltypes"
	"github.com/grafeodb/gwp/server"
	"github.com/grafeodb/gwp/wire"
)

func startTestServer(t *testing.T) *client.Connection {
	t.Helper()
	lis := bufconn.Listen(1024 * 1024)
	srv := server.NewBuilder(mockbackend.New()).Build()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	go func() { _ = srv.Serve(ctx, lis) }()

	dialer := func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }
	cc, err := grpc.DialContext(context.Background(), "bufnet",
		grpc.WithContextDialer(dialer),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(wire.CodecName)),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = cc.Close() })

	return client.FromClientConn(cc)
}

func TestSessionExecuteAndClose(t *testing.T) {
	conn := startTestServer(t)

	session, err := conn.CreateSession(context.Background())
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	if session.ID() == "" {
		t.Fatal("expected non-empty session id")
	}

	cursor, err := session.Execute(context.Background(), "MATCH (n) RETURN n", nil)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	names, err := cursor.ColumnNames()
	if err != nil {
		t.Fatalf("column names: %v", err)
	}
	if len(names) != 2 {
		t.Fatalf("expected 2 columns, got %d", len(names))
	}

	rows, err := cursor.CollectRows()
	if err != nil {
		t.Fatalf("collect rows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}

	ok, err := cursor.IsSuccess()
	if err != nil {
		t.Fatalf("is success: %v", err)
	}
	if !ok {
		t.Fatal("expected success")
	}

	if err := session.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestTransactionCommitThenCloseIsNoOp(t *testing.T) {
	conn := startTestServer(t)
	session, err := conn.CreateSession(context.Background())
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	defer session.Close(context.Background())

	txn, err := session.BeginTransaction(context.Background())
	if err != nil {
		t.Fatalf("begin transaction: %v", err)
	}
	if txn.ID() == "" {
		t.Fatal("expected non-empty transaction id")
	}

	cursor, err := txn.Execute(context.Background(), "INSERT (n:Person)", map[string]gqltypes.Value{})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if _, err := cursor.CollectRows(); err != nil {
		t.Fatalf("collect rows: %v", err)
	}

	if err := txn.Commit(context.Background()); err != nil {
		t.Fatalf("commit: %v", err)
	}

	// Close after Commit must be a no-op, not a second rollback.
	txn.Close()
}

func TestDatabaseClientList(t *testing.T) {
	conn := startTestServer(t)
	dbs, err := conn.Databases().List(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(dbs) != 2 {
		t.Fatalf("expected 2 databases, got %d", len(dbs))
	}
}
