package rpc

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/grafeodb/gwp/backend"
	"github.com/grafeodb/gwp/backend/mockbackend"
	"github.com/grafeodb/gwp/internal/execute"
	"github.com/grafeodb/gwp/internal/session"
	"github.com/grafeodb/gwp/internal/txn"
	"github.com/grafeodb/gwp/wire"
)

type fakeExecuteStream struct {
	ctx       context.Context
	responses []*wire.ExecuteResponse
}

func (f *fakeExecuteStream) Send(resp *wire.ExecuteResponse) error {
	f.responses = append(f.responses, resp)
	return nil
}

func (f *fakeExecuteStream) Context() context.Context { return f.ctx }

func newTestGqlService(t *testing.T) (*GqlService, *execute.Pipeline, string) {
	t.Helper()
	b := mockbackend.New()
	sessions := session.New(0)
	transactions := txn.New()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := execute.New(b, sessions, transactions, logger)

	sid, err := b.CreateSession(context.Background(), backend.SessionConfig{})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if err := sessions.Register(string(sid)); err != nil {
		t.Fatalf("Register: %v", err)
	}
	return NewGqlService(p), p, string(sid)
}

func TestExecuteStreamsFrames(t *testing.T) {
	svc, _, sid := newTestGqlService(t)
	stream := &fakeExecuteStream{ctx: context.Background()}

	err := svc.Execute(&wire.ExecuteRequest{SessionID: sid, Statement: "MATCH (n) RETURN n"}, stream)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(stream.responses) != 3 {
		t.Fatalf("got %d responses, want 3", len(stream.responses))
	}
}

func TestExecuteUnknownSessionReturnsGRPCError(t *testing.T) {
	svc, _, _ := newTestGqlService(t)
	stream := &fakeExecuteStream{ctx: context.Background()}

	err := svc.Execute(&wire.ExecuteRequest{SessionID: "missing", Statement: "MATCH (n) RETURN n"}, stream)
	if status.Code(err) != codes.NotFound {
		t.Fatalf("err = %v, want NotFound", err)
	}
}

func TestBeginCommitViaGqlService(t *testing.T) {
	svc, _, sid := newTestGqlService(t)

	begin, err := svc.BeginTransaction(context.Background(), &wire.BeginTransactionRequest{SessionID: sid, Mode: wire.ReadWrite})
	if err != nil {
		t.Fatalf("BeginTransaction: %v", err)
	}
	if begin.TransactionID == "" {
		t.Fatal("expected a transaction id")
	}

	commit, err := svc.Commit(context.Background(), &wire.CommitRequest{SessionID: sid, TransactionID: begin.TransactionID})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if commit.Status.Code != "00000" {
		t.Errorf("commit status = %+v", commit.Status)
	}
}
