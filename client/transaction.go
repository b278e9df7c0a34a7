package client

import (
	"context"
	"sync"
	"time"

	"google.golang.org/grpc"

	"github.com/grafeodb/gwp/gqlerr"
	"github.com/grafeodb/gwp/gqltypes"
	"github.com/grafeodb/gwp/status"
	"github.com/grafeodb/gwp/wire"
)

// Transaction is an active explicit transaction within a Session. Close
// rolls the transaction back on a best-effort basis if it is called
// without a prior Commit or Rollback; callers are expected to
// `defer txn.Close()` immediately after BeginTransaction succeeds. Close is
// safe to call after an explicit Commit or Rollback: it is then a no-op.
type Transaction struct {
	sessionID string
	id        string
	conn      *grpc.ClientConn
	session   *Session

	mu       sync.Mutex
	resolved bool // true once Commit or Rollback has completed, successfully or not
}

// ID returns the server-assigned transaction id.
func (t *Transaction) ID() string {
	return t.id
}

// Execute runs statement within this transaction.
func (t *Transaction) Execute(ctx context.Context, statement string, parameters map[string]gqltypes.Value) (*Cursor, error) {
	return t.session.execute(ctx, statement, parameters, t.id)
}

// Commit commits the transaction.
func (t *Transaction) Commit(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.resolved {
		return nil
	}
	req := &wire.CommitRequest{SessionID: t.sessionID, TransactionID: t.id}
	resp := &wire.CommitResponse{}
	if err := wire.Invoke(ctx, t.conn, "/gwp.GqlService/Commit", req, resp); err != nil {
		return gqlerr.Transport(err)
	}
	t.resolved = true
	if resp.Status != nil {
		st := wire.FromStatusMsg(resp.Status)
		if status.IsException(st.Code) {
			return gqlerr.Status(st)
		}
	}
	return nil
}

// Rollback rolls back the transaction. A second call (including one fired
// by Close after an explicit Rollback) is a no-op.
func (t *Transaction) Rollback(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rollbackLocked(ctx)
}

func (t *Transaction) rollbackLocked(ctx context.Context) error {
	if t.resolved {
		return nil
	}
	req := &wire.RollbackRequest{SessionID: t.sessionID, TransactionID: t.id}
	resp := &wire.RollbackResponse{}
	if err := wire.Invoke(ctx, t.conn, "/gwp.GqlService/Rollback", req, resp); err != nil {
		return gqlerr.Transport(err)
	}
	t.resolved = true
	if resp.Status != nil {
		st := wire.FromStatusMsg(resp.Status)
		if status.IsException(st.Code) {
			return gqlerr.Status(st)
		}
	}
	return nil
}

// Close provides scoped cleanup in place of a destructor. If the
// transaction was already committed or rolled back, Close is a no-op.
// Otherwise it fires a best-effort rollback on a detached goroutine, since
// Close itself takes no context and must not block the caller.
func (t *Transaction) Close() {
	t.mu.Lock()
	resolved := t.resolved
	t.mu.Unlock()
	if resolved {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = t.Rollback(ctx)
	}()
}
