// Package execute implements the statement-execution and transaction-control
// pipeline: session/transaction validation, parameter translation, backend
// dispatch, and response assembly, independent of the gRPC transport that
// carries it. Session-level failures surface as Go errors the RPC layer
// translates to gRPC status; GQL-level failures are carried in the response
// payload as GQLSTATUS.
package execute

import (
	"context"
	"log/slog"

	"github.com/grafeodb/gwp/backend"
	"github.com/grafeodb/gwp/gqlerr"
	"github.com/grafeodb/gwp/gqltypes"
	"github.com/grafeodb/gwp/internal/session"
	"github.com/grafeodb/gwp/internal/txn"
	"github.com/grafeodb/gwp/status"
	"github.com/grafeodb/gwp/wire"
)

// Sink receives one ExecuteResponse frame at a time, in Header, Batch*,
// Summary order.
type Sink func(*wire.ExecuteResponse) error

// Pipeline ties a Backend to the session and transaction registries and
// exposes the operations GqlService needs.
type Pipeline struct {
	Backend      backend.Backend
	Sessions     *session.Registry
	Transactions *txn.Registry
	Logger       *slog.Logger
}

// New creates a Pipeline.
func New(b backend.Backend, sessions *session.Registry, transactions *txn.Registry, logger *slog.Logger) *Pipeline {
	return &Pipeline{Backend: b, Sessions: sessions, Transactions: transactions, Logger: logger}
}

// ValidateSession returns a Session-kind error (translated by the RPC layer
// to a gRPC NotFound) if sessionID is not registered.
func (p *Pipeline) ValidateSession(sessionID string) error {
	if !p.Sessions.Exists(sessionID) {
		return gqlerr.SessionNotFound(sessionID)
	}
	return nil
}

// Execute runs statement against sessionID, optionally scoped to an active
// transaction, emitting each ResultFrame translated to wire form via sink. A
// session/transaction validation failure is returned as a Go error (gRPC
// level); a backend execute failure is instead delivered as a single Summary
// frame carrying the GQL status, since GQL errors never surface as gRPC
// status.
func (p *Pipeline) Execute(ctx context.Context, sessionID, statement string, parameters map[string]gqltypes.Value, transactionID string, sink Sink) error {
	if err := p.ValidateSession(sessionID); err != nil {
		return err
	}
	p.Sessions.Touch(sessionID)

	var txHandle *backend.TransactionHandle
	if transactionID != "" {
		if err := p.Transactions.Validate(transactionID, sessionID); err != nil {
			return err
		}
		h := backend.TransactionHandle(transactionID)
		txHandle = &h
	}

	stream, err := p.Backend.Execute(ctx, backend.SessionHandle(sessionID), statement, parameters, txHandle)
	if err != nil {
		s := gqlerr.ToOptionalGqlStatus(err, status.DataException)
		return sink(&wire.ExecuteResponse{
			Frame: wire.FrameSummary,
			Summary: &wire.ResultSummary{
				Status: wire.ToStatusMsg(s),
			},
		})
	}

	for {
		frame, err := stream.Next(ctx)
		if err != nil {
			s := gqlerr.ToOptionalGqlStatus(err, status.DataException)
			return sink(&wire.ExecuteResponse{
				Frame: wire.FrameSummary,
				Summary: &wire.ResultSummary{
					Status: wire.ToStatusMsg(s),
				},
			})
		}
		if frame == nil {
			return nil
		}
		if err := sink(toExecuteResponse(frame)); err != nil {
			return err
		}
	}
}

func toExecuteResponse(f *backend.ResultFrame) *wire.ExecuteResponse {
	switch f.Kind {
	case backend.FrameHeader:
		cols := make([]wire.ColumnDescriptor, len(f.Header.Columns))
		for i, c := range f.Header.Columns {
			cols[i] = wire.ColumnDescriptor{Name: c.Name, Type: c.Type}
		}
		rt := wire.ResultBindingTable
		if f.Header.ResultType == backend.ResultOmitted {
			rt = wire.ResultOmitted
		}
		return &wire.ExecuteResponse{
			Frame:  wire.FrameHeader,
			Header: &wire.ResultHeader{ResultType: rt, Columns: cols},
		}
	case backend.FrameBatch:
		rows := make([]wire.Row, len(f.Batch.Rows))
		for i, row := range f.Batch.Rows {
			values := make([]*wire.Value, len(row))
			for j, v := range row {
				values[j] = wire.ToWire(v)
			}
			rows[i] = wire.Row{Values: values}
		}
		return &wire.ExecuteResponse{
			Frame:    wire.FrameRowBatch,
			RowBatch: &wire.RowBatch{Rows: rows},
		}
	default: // backend.FrameSummary
		warnings := make([]*wire.StatusMsg, len(f.Summary.Warnings))
		for i, w := range f.Summary.Warnings {
			warnings[i] = wire.ToStatusMsg(w)
		}
		return &wire.ExecuteResponse{
			Frame: wire.FrameSummary,
			Summary: &wire.ResultSummary{
				Status:       wire.ToStatusMsg(f.Summary.Status),
				Warnings:     warnings,
				RowsAffected: f.Summary.RowsAffected,
				Counters:     f.Summary.Counters,
			},
		}
	}
}

// BeginTransaction starts a transaction. Session-not-found is a Go error
// (gRPC NotFound); registry-register failure (the single-active-transaction
// invariant) is instead reported as a GQLSTATUS in the response.
func (p *Pipeline) BeginTransaction(ctx context.Context, sessionID string, mode backend.TransactionMode) (*wire.BeginTransactionResponse, error) {
	if err := p.ValidateSession(sessionID); err != nil {
		return nil, err
	}
	p.Sessions.Touch(sessionID)

	handle, err := p.Backend.BeginTransaction(ctx, backend.SessionHandle(sessionID), mode)
	if err != nil {
		s := gqlerr.ToOptionalGqlStatus(err, status.ActiveTransaction)
		return &wire.BeginTransactionResponse{Status: wire.ToStatusMsg(s)}, nil
	}

	txMode := txn.ReadWrite
	if mode == backend.ReadOnly {
		txMode = txn.ReadOnly
	}
	if err := p.Transactions.Register(string(handle), sessionID, txMode); err != nil {
		_ = p.Backend.Rollback(ctx, backend.SessionHandle(sessionID), handle)
		s := gqlerr.ToOptionalGqlStatus(err, status.ActiveTransaction)
		return &wire.BeginTransactionResponse{Status: wire.ToStatusMsg(s)}, nil
	}

	p.Sessions.SetActiveTransaction(sessionID, string(handle))

	return &wire.BeginTransactionResponse{
		TransactionID: string(handle),
		Status:        wire.ToStatusMsg(status.OK()),
	}, nil
}

// Commit commits transactionID. The transaction registry entry and the
// session's active-transaction pointer are cleared on both the success and
// failure path.
func (p *Pipeline) Commit(ctx context.Context, sessionID, transactionID string) (*wire.CommitResponse, error) {
	if err := p.ValidateSession(sessionID); err != nil {
		return nil, err
	}
	p.Sessions.Touch(sessionID)
	if err := p.Transactions.Validate(transactionID, sessionID); err != nil {
		s := gqlerr.ToOptionalGqlStatus(err, status.InvalidTransaction)
		return &wire.CommitResponse{Status: wire.ToStatusMsg(s)}, nil
	}

	err := p.Backend.Commit(ctx, backend.SessionHandle(sessionID), backend.TransactionHandle(transactionID))
	p.clearTransaction(sessionID, transactionID)

	if err != nil {
		s := gqlerr.ToOptionalGqlStatus(err, status.TransactionRollback)
		return &wire.CommitResponse{Status: wire.ToStatusMsg(s)}, nil
	}
	return &wire.CommitResponse{Status: wire.ToStatusMsg(status.OK())}, nil
}

// Rollback rolls back transactionID, with the same registry-cleanup
// semantics as Commit.
func (p *Pipeline) Rollback(ctx context.Context, sessionID, transactionID string) (*wire.RollbackResponse, error) {
	if err := p.ValidateSession(sessionID); err != nil {
		return nil, err
	}
	p.Sessions.Touch(sessionID)
	if err := p.Transactions.Validate(transactionID, sessionID); err != nil {
		s := gqlerr.ToOptionalGqlStatus(err, status.InvalidTransaction)
		return &wire.RollbackResponse{Status: wire.ToStatusMsg(s)}, nil
	}

	err := p.Backend.Rollback(ctx, backend.SessionHandle(sessionID), backend.TransactionHandle(transactionID))
	p.clearTransaction(sessionID, transactionID)

	if err != nil {
		s := gqlerr.ToOptionalGqlStatus(err, status.TransactionRollback)
		return &wire.RollbackResponse{Status: wire.ToStatusMsg(s)}, nil
	}
	return &wire.RollbackResponse{Status: wire.ToStatusMsg(status.OK())}, nil
}

func (p *Pipeline) clearTransaction(sessionID, transactionID string) {
	if _, err := p.Transactions.Remove(transactionID); err != nil {
		p.Logger.Debug("transaction already removed", slog.String("transaction_id", transactionID))
	}
	p.Sessions.SetActiveTransaction(sessionID, "")
}
