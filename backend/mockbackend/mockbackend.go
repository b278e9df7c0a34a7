// Package mockbackend is a minimal in-memory backend.Backend implementation
// for exercising and testing the wire protocol server. execute returns
// canned frames keyed on the statement's leading keyword.
package mockbackend

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/grafeodb/gwp/backend"
	"github.com/grafeodb/gwp/gqlerr"
	"github.com/grafeodb/gwp/gqltypes"
	"github.com/grafeodb/gwp/status"
)

// MockBackend tracks nothing beyond session/transaction id counters; it
// accepts any session or transaction handle it issued.
type MockBackend struct {
	sessionCounter     atomic.Uint64
	transactionCounter atomic.Uint64
}

// New creates a MockBackend.
func New() *MockBackend {
	return &MockBackend{}
}

func (m *MockBackend) CreateSession(ctx context.Context, config backend.SessionConfig) (backend.SessionHandle, error) {
	id := m.sessionCounter.Add(1)
	return backend.SessionHandle(fmt.Sprintf("mock-session-%d", id)), nil
}

func (m *MockBackend) CloseSession(ctx context.Context, session backend.SessionHandle) error {
	return nil
}

func (m *MockBackend) ConfigureSession(ctx context.Context, session backend.SessionHandle, property backend.Property) error {
	return nil
}

func (m *MockBackend) ResetSession(ctx context.Context, session backend.SessionHandle, target backend.ResetTarget) error {
	return nil
}

func (m *MockBackend) Execute(ctx context.Context, session backend.SessionHandle, statement string, parameters map[string]gqltypes.Value, transaction *backend.TransactionHandle) (backend.ResultStream, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(statement))

	switch {
	case strings.HasPrefix(trimmed, "MATCH"), strings.HasPrefix(trimmed, "RETURN"):
		return backend.NewSliceResultStream(bindingTableFrames()), nil
	case strings.HasPrefix(trimmed, "INSERT"), strings.HasPrefix(trimmed, "DELETE"), strings.HasPrefix(trimmed, "SET"):
		return backend.NewSliceResultStream(dmlFrames(3)), nil
	case strings.HasPrefix(trimmed, "CREATE"), strings.HasPrefix(trimmed, "DROP"):
		return backend.NewSliceResultStream(ddlFrames()), nil
	case strings.HasPrefix(trimmed, "ERROR"):
		return nil, gqlerr.Status(status.New(status.InvalidSyntax, "mock syntax error"))
	default:
		return backend.NewSliceResultStream(ddlFrames()), nil
	}
}

func (m *MockBackend) BeginTransaction(ctx context.Context, session backend.SessionHandle, mode backend.TransactionMode) (backend.TransactionHandle, error) {
	id := m.transactionCounter.Add(1)
	return backend.TransactionHandle(fmt.Sprintf("mock-tx-%d", id)), nil
}

func (m *MockBackend) Commit(ctx context.Context, session backend.SessionHandle, transaction backend.TransactionHandle) error {
	return nil
}

func (m *MockBackend) Rollback(ctx context.Context, session backend.SessionHandle, transaction backend.TransactionHandle) error {
	return nil
}

// --- optional DatabaseCapability ---

var _ backend.DatabaseCapability = (*MockBackend)(nil)

func (m *MockBackend) ListDatabases(ctx context.Context) ([]backend.DatabaseInfo, error) {
	return []backend.DatabaseInfo{
		{Name: "default", NodeCount: 100, EdgeCount: 50, DatabaseType: "Lpg", StorageMode: "InMemory"},
		{Name: "test", NodeCount: 10, EdgeCount: 5, DatabaseType: "Lpg", StorageMode: "InMemory"},
	}, nil
}

func (m *MockBackend) CreateDatabase(ctx context.Context, config backend.CreateDatabaseConfig) (backend.DatabaseInfo, error) {
	if config.Name == "default" {
		return backend.DatabaseInfo{}, gqlerr.SessionAlreadyExists("default")
	}
	return backend.DatabaseInfo{
		Name:             config.Name,
		Persistent:       config.StorageMode == "Persistent",
		DatabaseType:     config.DatabaseType,
		StorageMode:      config.StorageMode,
		MemoryLimitBytes: config.MemoryLimitBytes,
		BackwardEdges:    config.BackwardEdges,
		Threads:          config.Threads,
	}, nil
}

func (m *MockBackend) DeleteDatabase(ctx context.Context, name string) (string, error) {
	if name == "default" {
		return "", &gqlerr.Error{Kind: gqlerr.KindSession, Message: "cannot delete the default database"}
	}
	return name, nil
}

func (m *MockBackend) GetDatabaseInfo(ctx context.Context, name string) (backend.DatabaseInfo, error) {
	switch name {
	case "default":
		return backend.DatabaseInfo{Name: "default", NodeCount: 100, EdgeCount: 50, DatabaseType: "Lpg", StorageMode: "InMemory"}, nil
	case "test":
		return backend.DatabaseInfo{Name: "test", NodeCount: 10, EdgeCount: 5, DatabaseType: "Lpg", StorageMode: "InMemory"}, nil
	default:
		return backend.DatabaseInfo{}, gqlerr.SessionNotFound(name)
	}
}

// --- frame builders ---

func bindingTableFrames() []backend.ResultFrame {
	header := backend.ResultFrame{
		Kind: backend.FrameHeader,
		Header: &backend.ResultHeader{
			ResultType: backend.ResultBindingTable,
			Columns: []backend.Column{
				{Name: "name", Type: "String"},
				{Name: "age", Type: "Int64"},
			},
		},
	}
	batch := backend.ResultFrame{
		Kind: backend.FrameBatch,
		Batch: &backend.ResultBatch{
			Rows: [][]gqltypes.Value{
				{gqltypes.Str("Alice"), gqltypes.Int(30)},
				{gqltypes.Str("Bob"), gqltypes.Int(25)},
			},
		},
	}
	summary := backend.ResultFrame{
		Kind: backend.FrameSummary,
		Summary: &backend.ResultSummary{
			Status:       status.OK(),
			RowsAffected: 2,
		},
	}
	return []backend.ResultFrame{header, batch, summary}
}

func dmlFrames(rowsAffected int64) []backend.ResultFrame {
	header := backend.ResultFrame{
		Kind:   backend.FrameHeader,
		Header: &backend.ResultHeader{ResultType: backend.ResultOmitted},
	}
	summary := backend.ResultFrame{
		Kind: backend.FrameSummary,
		Summary: &backend.ResultSummary{
			Status:       status.OK(),
			RowsAffected: rowsAffected,
		},
	}
	return []backend.ResultFrame{header, summary}
}

func ddlFrames() []backend.ResultFrame {
	header := backend.ResultFrame{
		Kind:   backend.FrameHeader,
		Header: &backend.ResultHeader{ResultType: backend.ResultOmitted},
	}
	summary := backend.ResultFrame{
		Kind: backend.FrameSummary,
		Summary: &backend.ResultSummary{
			Status: status.New(status.Omitted, "omitted"),
		},
	}
	return []backend.ResultFrame{header, summary}
}
