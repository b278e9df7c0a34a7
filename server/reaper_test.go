package server

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/grafeodb/gwp/backend"
	"github.com/grafeodb/gwp/backend/mockbackend"
	"github.com/grafeodb/gwp/internal/txn"
)

// recordingBackend wraps a backend.Backend and records which sessions were
// closed and which transactions rolled back.
type recordingBackend struct {
	backend.Backend

	mu         sync.Mutex
	closed     []backend.SessionHandle
	rolledBack []backend.TransactionHandle
}

func (r *recordingBackend) CloseSession(ctx context.Context, session backend.SessionHandle) error {
	r.mu.Lock()
	r.closed = append(r.closed, session)
	r.mu.Unlock()
	return r.Backend.CloseSession(ctx, session)
}

func (r *recordingBackend) Rollback(ctx context.Context, session backend.SessionHandle, transaction backend.TransactionHandle) error {
	r.mu.Lock()
	r.rolledBack = append(r.rolledBack, transaction)
	r.mu.Unlock()
	return r.Backend.Rollback(ctx, session, transaction)
}

func TestReapOnceCascadesToBackendAndTransactionRegistry(t *testing.T) {
	rb := &recordingBackend{Backend: mockbackend.New()}
	srv := NewBuilder(rb).WithIdleTimeout(time.Nanosecond).Build()

	if err := srv.sessions.Register("s1"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := srv.transactions.Register("t1", "s1", txn.ReadWrite); err != nil {
		t.Fatalf("Register transaction: %v", err)
	}

	time.Sleep(time.Millisecond) // let s1 age past the 1ns idle window
	srv.reapOnce()

	if srv.sessions.Exists("s1") {
		t.Error("expected s1 reaped")
	}
	if srv.transactions.Exists("t1") {
		t.Error("expected t1 purged from the transaction registry")
	}

	rb.mu.Lock()
	defer rb.mu.Unlock()
	if len(rb.closed) != 1 || rb.closed[0] != "s1" {
		t.Errorf("closed sessions = %v, want [s1]", rb.closed)
	}
	if len(rb.rolledBack) != 1 || rb.rolledBack[0] != "t1" {
		t.Errorf("rolled-back transactions = %v, want [t1]", rb.rolledBack)
	}
}

func TestReapOnceSparesActiveSessions(t *testing.T) {
	rb := &recordingBackend{Backend: mockbackend.New()}
	srv := NewBuilder(rb).WithIdleTimeout(time.Hour).Build()

	if err := srv.sessions.Register("s1"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	srv.reapOnce()

	if !srv.sessions.Exists("s1") {
		t.Error("expected s1 to survive the sweep inside the idle window")
	}
	rb.mu.Lock()
	defer rb.mu.Unlock()
	if len(rb.closed) != 0 {
		t.Errorf("closed sessions = %v, want none", rb.closed)
	}
}
