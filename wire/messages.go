// Package wire defines the messages and service descriptors that travel over
// gRPC between client and server. It plays the role ordinarily filled by
// protoc-generated `*.pb.go` / `*_grpc.pb.go` files: plain Go structs for
// every message named in the RPC surface, a gRPC codec that serializes them,
// and hand-built grpc.ServiceDesc values that dispatch to the service
// interfaces implemented by package internal/rpc.
//
// IDL sketch (for readers used to reading .proto files):
//
//	service SessionService {
//	  rpc Handshake(HandshakeRequest) returns (HandshakeResponse);
//	  rpc Configure(ConfigureRequest) returns (ConfigureResponse);
//	  rpc Reset(ResetRequest) returns (ResetResponse);
//	  rpc Ping(PingRequest) returns (PingResponse);
//	  rpc Close(CloseRequest) returns (CloseResponse);
//	}
//	service GqlService {
//	  rpc Execute(ExecuteRequest) returns (stream ExecuteResponse);
//	  rpc BeginTransaction(BeginTransactionRequest) returns (BeginTransactionResponse);
//	  rpc Commit(CommitRequest) returns (CommitResponse);
//	  rpc Rollback(RollbackRequest) returns (RollbackResponse);
//	}
//	service DatabaseService { ... }
//	service AdminService { ... }
//	service SearchService { ... }
package wire

import "github.com/grafeodb/gwp/status"

// --- common ---

// StatusMsg is the wire form of status.GqlStatus.
type StatusMsg struct {
	Code       string
	Message    string
	Diagnostic *DiagnosticMsg
	Cause      *StatusMsg
}

// DiagnosticMsg is the wire form of status.Diagnostic.
type DiagnosticMsg struct {
	Operation     string
	OperationCode string
	CurrentSchema string
}

// ToStatusMsg converts a status.GqlStatus to its wire form.
func ToStatusMsg(s status.GqlStatus) *StatusMsg {
	m := &StatusMsg{Code: string(s.Code), Message: s.Message}
	if s.Diagnostic != nil {
		m.Diagnostic = &DiagnosticMsg{
			Operation:     s.Diagnostic.Operation,
			OperationCode: s.Diagnostic.OperationCode,
			CurrentSchema: s.Diagnostic.CurrentSchema,
		}
	}
	if s.Cause != nil {
		m.Cause = ToStatusMsg(*s.Cause)
	}
	return m
}

// FromStatusMsg converts a wire StatusMsg back to status.GqlStatus.
func FromStatusMsg(m *StatusMsg) status.GqlStatus {
	if m == nil {
		return status.GqlStatus{}
	}
	s := status.GqlStatus{Code: status.Code(m.Code), Message: m.Message}
	if m.Diagnostic != nil {
		s.Diagnostic = &status.Diagnostic{
			Operation:     m.Diagnostic.Operation,
			OperationCode: m.Diagnostic.OperationCode,
			CurrentSchema: m.Diagnostic.CurrentSchema,
		}
	}
	if m.Cause != nil {
		cause := FromStatusMsg(m.Cause)
		s.Cause = &cause
	}
	return s
}

// --- SessionService ---

type HandshakeRequest struct {
	ProtocolVersion uint32
	Credentials     *AuthCredentials
	ClientInfo      map[string]string
}

// AuthCredentials is opaque to the runtime; it is handed unexamined to the
// configured auth.Validator.
type AuthCredentials struct {
	Scheme string
	Token  string
}

type ServerInfo struct {
	Name     string
	Version  string
	Features []string
}

type Limits struct {
	MaxSessions   int32
	IdleTimeoutMs int64
}

type HandshakeResponse struct {
	ProtocolVersion uint32
	SessionID       string
	ServerInfo      ServerInfo
	Limits          Limits
}

// ConfigureRequest carries exactly one oneof arm, selected by Kind.
type ConfigureRequest struct {
	SessionID string
	Kind      ConfigureKind
	Schema    string
	Graph     string
	TZOffset  int32
	ParamName string
	ParamVal  *Value
}

// ConfigureKind selects the ConfigureRequest oneof arm. The zero value is
// deliberately "unspecified" so a request that never set the oneof is
// detectable and rejected as INVALID_ARGUMENT.
type ConfigureKind int

const (
	ConfigureUnspecified ConfigureKind = iota
	ConfigureSchema
	ConfigureGraph
	ConfigureTimeZone
	ConfigureParameter
)

type ConfigureResponse struct{}

type ResetTargetMsg int

const (
	ResetAll ResetTargetMsg = iota
	ResetSchema
	ResetGraph
	ResetTimeZone
	ResetParameters
)

type ResetRequest struct {
	SessionID string
	Target    ResetTargetMsg
}

type ResetResponse struct{}

type PingRequest struct {
	SessionID string
}

type PingResponse struct {
	TimestampMillis int64
}

type CloseRequest struct {
	SessionID string
}

type CloseResponse struct{}

// --- GqlService ---

type ExecuteRequest struct {
	SessionID     string
	Statement     string
	Parameters    map[string]*Value
	TransactionID string // empty if none
}

// ExecuteResponse wraps exactly one of Header/RowBatch/Summary, selected by
// Frame. Exactly one arm is non-nil in well-formed traffic.
type ExecuteResponse struct {
	Frame    FrameKind
	Header   *ResultHeader
	RowBatch *RowBatch
	Summary  *ResultSummary
}

type FrameKind int

const (
	FrameHeader FrameKind = iota
	FrameRowBatch
	FrameSummary
)

type ResultType int

const (
	ResultBindingTable ResultType = iota
	ResultOmitted
)

type ColumnDescriptor struct {
	Name string
	Type string
}

type ResultHeader struct {
	ResultType ResultType
	Columns    []ColumnDescriptor
}

type Row struct {
	Values []*Value
}

type RowBatch struct {
	Rows []Row
}

type ResultSummary struct {
	Status       *StatusMsg
	Warnings     []*StatusMsg
	RowsAffected int64
	Counters     map[string]int64
}

type TransactionMode int

const (
	ReadWrite TransactionMode = iota
	ReadOnly
)

type BeginTransactionRequest struct {
	SessionID string
	Mode      TransactionMode
}

type BeginTransactionResponse struct {
	TransactionID string
	Status        *StatusMsg
}

type CommitRequest struct {
	SessionID     string
	TransactionID string
}

type CommitResponse struct {
	Status *StatusMsg
}

type RollbackRequest struct {
	SessionID     string
	TransactionID string
}

type RollbackResponse struct {
	Status *StatusMsg
}

// --- DatabaseService ---

type DatabaseSummary struct {
	Name         string
	NodeCount    uint64
	EdgeCount    uint64
	Persistent   bool
	DatabaseType string
	StorageMode  string
}

type ListDatabasesRequest struct{}

type ListDatabasesResponse struct {
	Databases []DatabaseSummary
}

type CreateDatabaseRequest struct {
	Name             string
	DatabaseType     string
	StorageMode      string
	MemoryLimitBytes uint64
	BackwardEdges    bool
	Threads          uint32
	WalEnabled       bool
	WalDurability    string
}

type CreateDatabaseResponse struct {
	Database DatabaseSummary
}

type DeleteDatabaseRequest struct {
	Name string
}

type DeleteDatabaseResponse struct {
	Deleted string
}

type GetDatabaseInfoRequest struct {
	Name string
}

type GetDatabaseInfoResponse struct {
	Database DatabaseSummary
}

// --- AdminService ---

type GetDatabaseStatsRequest struct{ Database string }
type GetDatabaseStatsResponse struct {
	NodeCount  uint64
	EdgeCount  uint64
	IndexCount uint64
	DiskBytes  uint64
}

type WalStatusRequest struct{ Database string }
type WalStatusResponse struct {
	Enabled    bool
	Durability string
	PendingLSN uint64
	FlushedLSN uint64
}

type WalCheckpointRequest struct{ Database string }
type WalCheckpointResponse struct{ CheckpointedLSN uint64 }

type ValidateRequest struct{ Database string }
type ValidateResponse struct {
	Valid  bool
	Issues []string
}

// IndexDefinition is a tagged variant: Property | Vector | Text.
type IndexDefinitionKind int

const (
	IndexProperty IndexDefinitionKind = iota
	IndexVector
	IndexText
)

type IndexDefinition struct {
	Kind           IndexDefinitionKind
	Label          string
	Property       string
	Dimensions     uint32
	Metric         string
	M              uint32
	EfConstruction uint32
}

type CreateIndexRequest struct {
	Database string
	Index    IndexDefinition
}

type CreateIndexResponse struct{ Name string }

type DropIndexRequest struct {
	Database string
	Index    IndexDefinition
}

type DropIndexResponse struct{ Dropped bool }

// --- SearchService ---

type VectorSearchRequest struct {
	Database    string
	Label       string
	Property    string
	QueryVector []float32
	K           uint32
	Ef          uint32
	Filters     map[string]*Value
}

type SearchHit struct {
	NodeID     []byte
	Score      float32
	Properties map[string]*Value
}

type VectorSearchResponse struct{ Hits []SearchHit }

type TextSearchRequest struct {
	Database string
	Label    string
	Property string
	Query    string
	K        uint32
}

type TextSearchResponse struct{ Hits []SearchHit }

type HybridSearchRequest struct {
	Database       string
	Label          string
	TextProperty   string
	VectorProperty string
	QueryText      string
	QueryVector    []float32
	K              uint32
}

type HybridSearchResponse struct{ Hits []SearchHit }
