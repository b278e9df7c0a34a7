// Package backend declares the pluggable capability interface a storage
// engine must satisfy to plug into the wire protocol runtime, plus the
// auxiliary types its methods exchange. The runtime never assumes anything
// about how a graph is stored, how GQL is parsed, or how indexes work; it
// only calls through this interface.
package backend

import (
	"context"

	"github.com/grafeodb/gwp/gqltypes"
	"github.com/grafeodb/gwp/status"
)

// SessionHandle is an opaque session identifier issued by a Backend at
// CreateSession and consumed by every subsequent call concerning that
// session.
type SessionHandle string

// TransactionHandle is an opaque transaction identifier issued by a Backend
// at BeginTransaction.
type TransactionHandle string

// SessionConfig carries the handshake's negotiated session parameters.
type SessionConfig struct {
	ProtocolVersion uint32
	ClientInfo      map[string]string
}

// PropertyKind selects which field of Property is meaningful.
type PropertyKind int

const (
	PropertySchema PropertyKind = iota
	PropertyGraph
	PropertyTimeZone
	PropertyParameter
)

// Property is the tagged variant passed to ConfigureSession.
type Property struct {
	Kind         PropertyKind
	Schema       string
	Graph        string
	TimeZoneMins int32
	ParamName    string
	ParamValue   gqltypes.Value
}

// ResetTarget selects what ResetSession clears.
type ResetTarget int

const (
	ResetAll ResetTarget = iota
	ResetSchema
	ResetGraph
	ResetTimeZone
	ResetParameters
)

// FrameKind discriminates ResultFrame.
type FrameKind int

const (
	FrameHeader FrameKind = iota
	FrameBatch
	FrameSummary
)

// ResultType classifies what an execute produced.
type ResultType int

const (
	ResultBindingTable ResultType = iota
	ResultOmitted
)

// Column describes one result column.
type Column struct {
	Name string
	Type string
}

// ResultHeader is always the first frame of a result stream.
type ResultHeader struct {
	ResultType ResultType
	Columns    []Column
}

// ResultBatch carries a batch of result rows.
type ResultBatch struct {
	Rows [][]gqltypes.Value
}

// ResultSummary is always the last frame of a result stream.
type ResultSummary struct {
	Status       status.GqlStatus
	Warnings     []status.GqlStatus
	RowsAffected int64
	Counters     map[string]int64
}

// ResultFrame is a single item yielded by a ResultStream; exactly one of
// Header, Batch, Summary is populated, selected by Kind.
type ResultFrame struct {
	Kind    FrameKind
	Header  *ResultHeader
	Batch   *ResultBatch
	Summary *ResultSummary
}

// ResultStream is a cold, single-consumer source of ResultFrame values
// yielded in strict order: exactly one Header first, zero or more Batches,
// exactly one Summary last. Next returns (nil, nil) at clean end-of-stream;
// no further calls are made after an error or after end-of-stream.
type ResultStream interface {
	Next(ctx context.Context) (*ResultFrame, error)
}

// CreateDatabaseConfig configures a new database (DatabaseService).
type CreateDatabaseConfig struct {
	Name             string
	DatabaseType     string
	StorageMode      string
	MemoryLimitBytes uint64
	BackwardEdges    bool
	Threads          uint32
	WalEnabled       bool
	WalDurability    string
}

// DatabaseInfo summarizes a database (DatabaseService).
type DatabaseInfo struct {
	Name             string
	NodeCount        uint64
	EdgeCount        uint64
	Persistent       bool
	DatabaseType     string
	StorageMode      string
	MemoryLimitBytes uint64
	BackwardEdges    bool
	Threads          uint32
}

// DatabaseStats reports engine-level statistics (AdminService).
type DatabaseStats struct {
	NodeCount  uint64
	EdgeCount  uint64
	IndexCount uint64
	DiskBytes  uint64
}

// WalStatus reports write-ahead-log state (AdminService).
type WalStatus struct {
	Enabled    bool
	Durability string
	PendingLSN uint64
	FlushedLSN uint64
}

// ValidateResult reports the outcome of a consistency check (AdminService).
type ValidateResult struct {
	Valid  bool
	Issues []string
}

// IndexDefinitionKind selects which IndexDefinition variant applies.
type IndexDefinitionKind int

const (
	IndexProperty IndexDefinitionKind = iota
	IndexVector
	IndexText
)

// IndexDefinition is a tagged variant: Property | Vector | Text.
type IndexDefinition struct {
	Kind           IndexDefinitionKind
	Label          string
	Property       string
	Dimensions     uint32
	Metric         string
	M              uint32
	EfConstruction uint32
}

// SearchHit is one result of a vector/text/hybrid search (SearchService).
type SearchHit struct {
	NodeID     []byte
	Score      float32
	Properties map[string]gqltypes.Value
}

// Backend is the pluggable storage-engine capability. The required methods
// cover session lifecycle, statement execution, and transaction management.
// Database/admin/search management lives in the separate optional
// DatabaseCapability, AdminCapability and SearchCapability interfaces below;
// the runtime responds UNIMPLEMENTED to the RPCs of any capability a backend
// does not implement, so a minimal Backend need only implement this set.
type Backend interface {
	CreateSession(ctx context.Context, config SessionConfig) (SessionHandle, error)
	CloseSession(ctx context.Context, session SessionHandle) error
	ConfigureSession(ctx context.Context, session SessionHandle, property Property) error
	ResetSession(ctx context.Context, session SessionHandle, target ResetTarget) error
	Execute(ctx context.Context, session SessionHandle, statement string, parameters map[string]gqltypes.Value, transaction *TransactionHandle) (ResultStream, error)
	BeginTransaction(ctx context.Context, session SessionHandle, mode TransactionMode) (TransactionHandle, error)
	Commit(ctx context.Context, session SessionHandle, transaction TransactionHandle) error
	Rollback(ctx context.Context, session SessionHandle, transaction TransactionHandle) error
}

// TransactionMode is the access mode requested at BeginTransaction.
type TransactionMode int

const (
	ReadWrite TransactionMode = iota
	ReadOnly
)

// DatabaseCapability is implemented by backends that support database
// management (DatabaseService). Backends that do not implement it cause the
// runtime to respond UNIMPLEMENTED to every DatabaseService RPC.
type DatabaseCapability interface {
	ListDatabases(ctx context.Context) ([]DatabaseInfo, error)
	CreateDatabase(ctx context.Context, config CreateDatabaseConfig) (DatabaseInfo, error)
	DeleteDatabase(ctx context.Context, name string) (string, error)
	GetDatabaseInfo(ctx context.Context, name string) (DatabaseInfo, error)
}

// AdminCapability is implemented by backends that support administrative
// operations (AdminService).
type AdminCapability interface {
	GetDatabaseStats(ctx context.Context, database string) (DatabaseStats, error)
	WalStatus(ctx context.Context, database string) (WalStatus, error)
	WalCheckpoint(ctx context.Context, database string) (uint64, error)
	Validate(ctx context.Context, database string) (ValidateResult, error)
	CreateIndex(ctx context.Context, database string, index IndexDefinition) (string, error)
	DropIndex(ctx context.Context, database string, index IndexDefinition) (bool, error)
}

// SearchCapability is implemented by backends that support vector/text/
// hybrid search (SearchService).
type SearchCapability interface {
	VectorSearch(ctx context.Context, database, label, property string, queryVector []float32, k uint32, ef uint32, filters map[string]gqltypes.Value) ([]SearchHit, error)
	TextSearch(ctx context.Context, database, label, property, query string, k uint32) ([]SearchHit, error)
	HybridSearch(ctx context.Context, database, label, textProperty, vectorProperty, queryText string, queryVector []float32, k uint32) ([]SearchHit, error)
}
