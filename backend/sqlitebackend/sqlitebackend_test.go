package sqlitebackend_test

import (
	"context"
	"testing"

	"github.com/grafeodb/gwp/backend"
	"github.com/grafeodb/gwp/backend/sqlitebackend"
	"github.com/grafeodb/gwp/gqltypes"
)

func newBackend(t *testing.T) *sqlitebackend.Backend {
	t.Helper()
	b, err := sqlitebackend.New(":memory:")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func drain(t *testing.T, ctx context.Context, stream backend.ResultStream) (rows int, summary *backend.ResultSummary) {
	t.Helper()
	for {
		frame, err := stream.Next(ctx)
		if err != nil {
			t.Fatalf("stream.Next: %v", err)
		}
		if frame == nil {
			return rows, summary
		}
		switch frame.Kind {
		case backend.FrameBatch:
			rows += len(frame.Batch.Rows)
		case backend.FrameSummary:
			summary = frame.Summary
		}
	}
}

func TestInsertAndMatchRoundTrip(t *testing.T) {
	b := newBackend(t)
	ctx := context.Background()

	session, err := b.CreateSession(ctx, backend.SessionConfig{})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	defer b.CloseSession(ctx, session)

	stream, err := b.Execute(ctx, session, "CREATE (n:Person)", map[string]gqltypes.Value{
		"name": gqltypes.Str("Ada"),
		"age":  gqltypes.Int(37),
	}, nil)
	if err != nil {
		t.Fatalf("Execute insert: %v", err)
	}
	if _, summary := drain(t, ctx, stream); summary == nil || summary.RowsAffected != 1 {
		t.Fatalf("expected 1 row affected, got %+v", summary)
	}

	stream, err = b.Execute(ctx, session, "MATCH (n) RETURN n", nil, nil)
	if err != nil {
		t.Fatalf("Execute match: %v", err)
	}
	rows, summary := drain(t, ctx, stream)
	if rows != 1 {
		t.Fatalf("expected 1 row, got %d", rows)
	}
	if summary == nil || summary.RowsAffected != 1 {
		t.Fatalf("expected summary rows affected 1, got %+v", summary)
	}
}

func TestTransactionRollbackDiscardsWrites(t *testing.T) {
	b := newBackend(t)
	ctx := context.Background()

	session, err := b.CreateSession(ctx, backend.SessionConfig{})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	defer b.CloseSession(ctx, session)

	tx, err := b.BeginTransaction(ctx, session, backend.ReadWrite)
	if err != nil {
		t.Fatalf("BeginTransaction: %v", err)
	}

	stream, err := b.Execute(ctx, session, "INSERT (n:Temp)", nil, &tx)
	if err != nil {
		t.Fatalf("Execute insert in tx: %v", err)
	}
	drain(t, ctx, stream)

	if err := b.Rollback(ctx, session, tx); err != nil {
		t.Fatalf("Rollback: %v", err)
	}

	stream, err = b.Execute(ctx, session, "MATCH (n) RETURN n", nil, nil)
	if err != nil {
		t.Fatalf("Execute match after rollback: %v", err)
	}
	rows, _ := drain(t, ctx, stream)
	if rows != 0 {
		t.Fatalf("expected 0 rows after rollback, got %d", rows)
	}
}

func TestTransactionCommitPersistsWrites(t *testing.T) {
	b := newBackend(t)
	ctx := context.Background()

	session, err := b.CreateSession(ctx, backend.SessionConfig{})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	defer b.CloseSession(ctx, session)

	tx, err := b.BeginTransaction(ctx, session, backend.ReadWrite)
	if err != nil {
		t.Fatalf("BeginTransaction: %v", err)
	}

	stream, err := b.Execute(ctx, session, "INSERT (n:Durable)", nil, &tx)
	if err != nil {
		t.Fatalf("Execute insert in tx: %v", err)
	}
	drain(t, ctx, stream)

	if err := b.Commit(ctx, session, tx); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	stream, err = b.Execute(ctx, session, "MATCH (n) RETURN n", nil, nil)
	if err != nil {
		t.Fatalf("Execute match after commit: %v", err)
	}
	rows, _ := drain(t, ctx, stream)
	if rows != 1 {
		t.Fatalf("expected 1 row after commit, got %d", rows)
	}
}

func TestDatabaseLifecycle(t *testing.T) {
	b := newBackend(t)
	ctx := context.Background()

	info, err := b.CreateDatabase(ctx, backend.CreateDatabaseConfig{
		Name:         "analytics",
		DatabaseType: "Lpg",
		StorageMode:  "Persistent",
	})
	if err != nil {
		t.Fatalf("CreateDatabase: %v", err)
	}
	if info.Name != "analytics" {
		t.Fatalf("want name analytics, got %q", info.Name)
	}

	if _, err := b.CreateDatabase(ctx, backend.CreateDatabaseConfig{Name: "analytics"}); err == nil {
		t.Fatal("expected error creating duplicate database")
	}

	dbs, err := b.ListDatabases(ctx)
	if err != nil {
		t.Fatalf("ListDatabases: %v", err)
	}
	found := false
	for _, d := range dbs {
		if d.Name == "analytics" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected analytics database in ListDatabases result")
	}

	if _, err := b.DeleteDatabase(ctx, "analytics"); err != nil {
		t.Fatalf("DeleteDatabase: %v", err)
	}
	if _, err := b.GetDatabaseInfo(ctx, "analytics"); err == nil {
		t.Fatal("expected error fetching deleted database")
	}
}

func TestAdminCapabilityStatsAndValidate(t *testing.T) {
	b := newBackend(t)
	ctx := context.Background()

	stats, err := b.GetDatabaseStats(ctx, "default")
	if err != nil {
		t.Fatalf("GetDatabaseStats: %v", err)
	}
	if stats.NodeCount != 0 {
		t.Fatalf("expected 0 nodes in fresh database, got %d", stats.NodeCount)
	}

	result, err := b.Validate(ctx, "default")
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !result.Valid {
		t.Fatalf("expected valid database, got issues: %v", result.Issues)
	}

	name, err := b.CreateIndex(ctx, "default", backend.IndexDefinition{
		Kind: backend.IndexProperty, Label: "Person", Property: "name",
	})
	if err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}
	if ok, err := b.DropIndex(ctx, "default", backend.IndexDefinition{Kind: backend.IndexProperty, Label: "Person", Property: "name"}); err != nil || !ok {
		t.Fatalf("DropIndex(%s): ok=%v err=%v", name, ok, err)
	}
}
