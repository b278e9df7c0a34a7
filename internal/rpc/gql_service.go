package rpc

import (
	"context"

	"github.com/grafeodb/gwp/backend"
	"github.com/grafeodb/gwp/gqlerr"
	"github.com/grafeodb/gwp/gqltypes"
	"github.com/grafeodb/gwp/internal/audit"
	"github.com/grafeodb/gwp/internal/execute"
	"github.com/grafeodb/gwp/wire"
)

// GqlService implements wire.GqlServer, delegating to an execute.Pipeline.
type GqlService struct {
	pipeline *execute.Pipeline
	audit    *audit.Logger // nil disables the audit trail
}

// NewGqlService creates a GqlService.
func NewGqlService(pipeline *execute.Pipeline) *GqlService {
	return &GqlService{pipeline: pipeline}
}

// WithAuditLog attaches a hash-chained audit trail: every BeginTransaction,
// Commit, and Rollback is appended as an internal/audit.LifecycleEvent.
// Returns g for chaining.
func (g *GqlService) WithAuditLog(l *audit.Logger) *GqlService {
	g.audit = l
	return g
}

func (g *GqlService) logEvent(ev audit.LifecycleEvent) {
	if g.audit == nil {
		return
	}
	// Best-effort: a failed audit append must never fail the RPC.
	_, _ = g.audit.Append(ev)
}

var _ wire.GqlServer = (*GqlService)(nil)

// Execute streams the statement's result frames. Session/transaction
// validation failures become a gRPC error per gqlerr.ToGRPCStatus; GQL
// execution failures are already folded into a Summary frame by the
// pipeline, so Execute itself returns nil in that case.
func (g *GqlService) Execute(req *wire.ExecuteRequest, stream wire.ExecuteStream) error {
	params := wireParamsToValues(req.Parameters)

	err := g.pipeline.Execute(stream.Context(), req.SessionID, req.Statement, params, req.TransactionID, func(resp *wire.ExecuteResponse) error {
		return stream.Send(resp)
	})
	if err != nil {
		return gqlerr.ToGRPCStatus(err).Err()
	}
	return nil
}

func wireParamsToValues(params map[string]*wire.Value) map[string]gqltypes.Value {
	if len(params) == 0 {
		return nil
	}
	out := make(map[string]gqltypes.Value, len(params))
	for k, v := range params {
		out[k] = wire.FromWire(v)
	}
	return out
}

func (g *GqlService) BeginTransaction(ctx context.Context, req *wire.BeginTransactionRequest) (*wire.BeginTransactionResponse, error) {
	mode := backend.ReadWrite
	if req.Mode == wire.ReadOnly {
		mode = backend.ReadOnly
	}
	resp, err := g.pipeline.BeginTransaction(ctx, req.SessionID, mode)
	if err != nil {
		return nil, gqlerr.ToGRPCStatus(err).Err()
	}
	g.logEvent(audit.LifecycleEvent{Kind: audit.EventBegin, SessionID: req.SessionID, TransactionID: resp.TransactionID, Detail: statusCode(resp.Status)})
	return resp, nil
}

func (g *GqlService) Commit(ctx context.Context, req *wire.CommitRequest) (*wire.CommitResponse, error) {
	resp, err := g.pipeline.Commit(ctx, req.SessionID, req.TransactionID)
	if err != nil {
		return nil, gqlerr.ToGRPCStatus(err).Err()
	}
	g.logEvent(audit.LifecycleEvent{Kind: audit.EventCommit, SessionID: req.SessionID, TransactionID: req.TransactionID, Detail: statusCode(resp.Status)})
	return resp, nil
}

func (g *GqlService) Rollback(ctx context.Context, req *wire.RollbackRequest) (*wire.RollbackResponse, error) {
	resp, err := g.pipeline.Rollback(ctx, req.SessionID, req.TransactionID)
	if err != nil {
		return nil, gqlerr.ToGRPCStatus(err).Err()
	}
	g.logEvent(audit.LifecycleEvent{Kind: audit.EventRollback, SessionID: req.SessionID, TransactionID: req.TransactionID, Detail: statusCode(resp.Status)})
	return resp, nil
}

func statusCode(s *wire.StatusMsg) string {
	if s == nil {
		return ""
	}
	return s.Code
}
