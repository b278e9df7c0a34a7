// Package sqlitebackend is an embedded backend.Backend implementation on top
// of modernc.org/sqlite, using a WAL-mode single-writer database/sql pool:
// the connection pool is capped at one open connection so concurrent
// Execute calls serialize through SQLite's single-writer model instead of
// surfacing "database is locked" errors.
//
// It otherwise mirrors backend/pgbackend's statement dispatch and schema
// shape, substituting database/sql + modernc.org/sqlite for pgx.
package sqlitebackend

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // registers the "sqlite" database/sql driver

	"github.com/grafeodb/gwp/backend"
	"github.com/grafeodb/gwp/gqlerr"
	"github.com/grafeodb/gwp/gqltypes"
	"github.com/grafeodb/gwp/status"
)

const ddl = `
CREATE TABLE IF NOT EXISTS gwp_databases (
	name               TEXT PRIMARY KEY,
	database_type      TEXT NOT NULL DEFAULT 'Lpg',
	storage_mode       TEXT NOT NULL DEFAULT 'Persistent',
	memory_limit_bytes INTEGER NOT NULL DEFAULT 0,
	backward_edges     INTEGER NOT NULL DEFAULT 0,
	threads            INTEGER NOT NULL DEFAULT 1,
	wal_enabled        INTEGER NOT NULL DEFAULT 1,
	wal_durability     TEXT NOT NULL DEFAULT 'Fsync'
);
CREATE TABLE IF NOT EXISTS gwp_nodes (
	db_name    TEXT NOT NULL,
	node_id    TEXT NOT NULL,
	labels     TEXT NOT NULL DEFAULT '[]',
	properties TEXT NOT NULL DEFAULT '{}',
	PRIMARY KEY (db_name, node_id)
);
CREATE TABLE IF NOT EXISTS gwp_edges (
	db_name    TEXT NOT NULL,
	edge_id    TEXT NOT NULL,
	labels     TEXT NOT NULL DEFAULT '[]',
	source     TEXT NOT NULL,
	target     TEXT NOT NULL,
	directed   INTEGER NOT NULL DEFAULT 1,
	properties TEXT NOT NULL DEFAULT '{}',
	PRIMARY KEY (db_name, edge_id)
);
INSERT OR IGNORE INTO gwp_databases (name, storage_mode) VALUES ('default', 'InMemory');
`

type sessionState struct {
	mu         sync.Mutex
	graph      string
	schema     string
	tzOffset   int32
	parameters map[string]gqltypes.Value
}

// Backend is a modernc.org/sqlite-backed backend.Backend.
type Backend struct {
	db *sql.DB

	sessions       sync.Map // backend.SessionHandle -> *sessionState
	sessionCounter atomic.Uint64

	txMu      sync.Mutex
	txs       map[backend.TransactionHandle]*sql.Tx
	txCounter atomic.Uint64
}

var (
	_ backend.Backend            = (*Backend)(nil)
	_ backend.DatabaseCapability = (*Backend)(nil)
	_ backend.AdminCapability    = (*Backend)(nil)
)

// New opens (or creates) the SQLite database at path, enables WAL journal
// mode, and applies the schema. If path is ":memory:", an in-memory database
// is used, suitable for tests but losing all data when closed.
func New(path string) (*Backend, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlitebackend: open %q: %w", path, err)
	}

	// SQLite allows only one writer at a time; a single-connection pool
	// serializes Execute calls through it instead of racing on the file lock.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA journal_mode = WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlitebackend: set WAL mode: %w", err)
	}
	if _, err := db.Exec(`PRAGMA synchronous = NORMAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlitebackend: set synchronous = NORMAL: %w", err)
	}
	if _, err := db.Exec(ddl); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlitebackend: apply schema: %w", err)
	}

	return &Backend{db: db, txs: make(map[backend.TransactionHandle]*sql.Tx)}, nil
}

// Close closes the underlying database connection.
func (b *Backend) Close() error {
	return b.db.Close()
}

func (b *Backend) CreateSession(ctx context.Context, config backend.SessionConfig) (backend.SessionHandle, error) {
	id := b.sessionCounter.Add(1)
	handle := backend.SessionHandle(fmt.Sprintf("sqlite-session-%d", id))
	b.sessions.Store(handle, &sessionState{graph: "default", parameters: map[string]gqltypes.Value{}})
	return handle, nil
}

func (b *Backend) state(session backend.SessionHandle) (*sessionState, error) {
	v, ok := b.sessions.Load(session)
	if !ok {
		return nil, gqlerr.SessionNotFound(string(session))
	}
	return v.(*sessionState), nil
}

func (b *Backend) CloseSession(ctx context.Context, session backend.SessionHandle) error {
	b.sessions.Delete(session)
	return nil
}

func (b *Backend) ConfigureSession(ctx context.Context, session backend.SessionHandle, property backend.Property) error {
	st, err := b.state(session)
	if err != nil {
		return err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	switch property.Kind {
	case backend.PropertyGraph:
		st.graph = property.Graph
	case backend.PropertySchema:
		st.schema = property.Schema
	case backend.PropertyTimeZone:
		st.tzOffset = property.TimeZoneMins
	case backend.PropertyParameter:
		st.parameters[property.ParamName] = property.ParamValue
	}
	return nil
}

func (b *Backend) ResetSession(ctx context.Context, session backend.SessionHandle, target backend.ResetTarget) error {
	st, err := b.state(session)
	if err != nil {
		return err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	switch target {
	case backend.ResetAll:
		st.graph, st.schema, st.tzOffset = "default", "", 0
		st.parameters = map[string]gqltypes.Value{}
	case backend.ResetSchema:
		st.schema = ""
	case backend.ResetGraph:
		st.graph = "default"
	case backend.ResetTimeZone:
		st.tzOffset = 0
	case backend.ResetParameters:
		st.parameters = map[string]gqltypes.Value{}
	}
	return nil
}

// sqlExecutor is satisfied by both *sql.DB and *sql.Tx.
type sqlExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (b *Backend) executor(transaction *backend.TransactionHandle) sqlExecutor {
	if transaction != nil {
		b.txMu.Lock()
		tx, ok := b.txs[*transaction]
		b.txMu.Unlock()
		if ok {
			return tx
		}
	}
	return b.db
}

var labelRe = regexp.MustCompile(`:([A-Za-z_][A-Za-z0-9_]*)`)

func extractLabels(statement string) []string {
	matches := labelRe.FindAllStringSubmatch(statement, -1)
	labels := make([]string, 0, len(matches))
	for _, m := range matches {
		labels = append(labels, m[1])
	}
	return labels
}

func (b *Backend) Execute(ctx context.Context, session backend.SessionHandle, statement string, parameters map[string]gqltypes.Value, transaction *backend.TransactionHandle) (backend.ResultStream, error) {
	st, err := b.state(session)
	if err != nil {
		return nil, err
	}
	st.mu.Lock()
	graph := st.graph
	st.mu.Unlock()

	exec := b.executor(transaction)
	trimmed := strings.ToUpper(strings.TrimSpace(statement))

	switch {
	case strings.HasPrefix(trimmed, "MATCH"), strings.HasPrefix(trimmed, "RETURN"):
		return b.matchFrames(ctx, exec, graph)
	case strings.HasPrefix(trimmed, "INSERT"), strings.HasPrefix(trimmed, "CREATE"):
		return b.insertFrames(ctx, exec, graph, statement, parameters)
	case strings.HasPrefix(trimmed, "DELETE"), strings.HasPrefix(trimmed, "DROP"):
		return b.deleteFrames(ctx, exec, graph)
	case strings.HasPrefix(trimmed, "SET"):
		return b.setFrames(ctx, exec, graph, parameters)
	case strings.HasPrefix(trimmed, "ERROR"):
		return nil, gqlerr.Status(status.New(status.InvalidSyntax, "syntax error"))
	default:
		return backend.NewSliceResultStream(omittedFrames()), nil
	}
}

func (b *Backend) matchFrames(ctx context.Context, exec sqlExecutor, graph string) (backend.ResultStream, error) {
	rows, err := exec.QueryContext(ctx, `SELECT node_id, labels, properties FROM gwp_nodes WHERE db_name = ? ORDER BY node_id LIMIT 100`, graph)
	if err != nil {
		return nil, gqlerr.Backend(err)
	}
	defer rows.Close()

	var nodeRows [][]gqltypes.Value
	for rows.Next() {
		var id, labelsJSON, propsJSON string
		if err := rows.Scan(&id, &labelsJSON, &propsJSON); err != nil {
			return nil, gqlerr.Backend(err)
		}
		var labels []string
		if err := json.Unmarshal([]byte(labelsJSON), &labels); err != nil {
			return nil, gqlerr.Backend(err)
		}
		props, err := propsFromJSON([]byte(propsJSON))
		if err != nil {
			return nil, gqlerr.Backend(err)
		}
		node := gqltypes.Node{ID: []byte(id), Labels: labels, Properties: props}
		nodeRows = append(nodeRows, []gqltypes.Value{gqltypes.NodeOf(node)})
	}
	if err := rows.Err(); err != nil {
		return nil, gqlerr.Backend(err)
	}

	frames := []backend.ResultFrame{{
		Kind: backend.FrameHeader,
		Header: &backend.ResultHeader{
			ResultType: backend.ResultBindingTable,
			Columns:    []backend.Column{{Name: "n", Type: "Node"}},
		},
	}}
	if len(nodeRows) > 0 {
		frames = append(frames, backend.ResultFrame{Kind: backend.FrameBatch, Batch: &backend.ResultBatch{Rows: nodeRows}})
	}
	frames = append(frames, backend.ResultFrame{
		Kind:    backend.FrameSummary,
		Summary: &backend.ResultSummary{Status: status.OK(), RowsAffected: int64(len(nodeRows))},
	})
	return backend.NewSliceResultStream(frames), nil
}

func (b *Backend) insertFrames(ctx context.Context, exec sqlExecutor, graph, statement string, parameters map[string]gqltypes.Value) (backend.ResultStream, error) {
	propsJSON, err := propsToJSON(parameters)
	if err != nil {
		return nil, gqlerr.Backend(err)
	}
	labels := extractLabels(statement)
	labelsJSON, err := json.Marshal(labels)
	if err != nil {
		return nil, gqlerr.Backend(err)
	}
	id := uuid.NewString()
	result, err := exec.ExecContext(ctx,
		`INSERT INTO gwp_nodes (db_name, node_id, labels, properties) VALUES (?, ?, ?, ?)`,
		graph, id, string(labelsJSON), string(propsJSON))
	if err != nil {
		return nil, gqlerr.Backend(err)
	}
	n, _ := result.RowsAffected()
	return backend.NewSliceResultStream(dmlFrames(n)), nil
}

func (b *Backend) deleteFrames(ctx context.Context, exec sqlExecutor, graph string) (backend.ResultStream, error) {
	result, err := exec.ExecContext(ctx,
		`DELETE FROM gwp_nodes WHERE db_name = ? AND node_id = (SELECT node_id FROM gwp_nodes WHERE db_name = ? LIMIT 1)`,
		graph, graph)
	if err != nil {
		return nil, gqlerr.Backend(err)
	}
	n, _ := result.RowsAffected()
	return backend.NewSliceResultStream(dmlFrames(n)), nil
}

func (b *Backend) setFrames(ctx context.Context, exec sqlExecutor, graph string, parameters map[string]gqltypes.Value) (backend.ResultStream, error) {
	row := exec.QueryRowContext(ctx, `SELECT node_id, properties FROM gwp_nodes WHERE db_name = ? LIMIT 1`, graph)
	var nodeID, propsJSON string
	if err := row.Scan(&nodeID, &propsJSON); err != nil {
		if err == sql.ErrNoRows {
			return backend.NewSliceResultStream(dmlFrames(0)), nil
		}
		return nil, gqlerr.Backend(err)
	}
	existing, err := propsFromJSON([]byte(propsJSON))
	if err != nil {
		return nil, gqlerr.Backend(err)
	}
	for k, v := range parameters {
		existing[k] = v
	}
	merged, err := propsToJSON(existing)
	if err != nil {
		return nil, gqlerr.Backend(err)
	}
	result, err := exec.ExecContext(ctx, `UPDATE gwp_nodes SET properties = ? WHERE db_name = ? AND node_id = ?`, string(merged), graph, nodeID)
	if err != nil {
		return nil, gqlerr.Backend(err)
	}
	n, _ := result.RowsAffected()
	return backend.NewSliceResultStream(dmlFrames(n)), nil
}

func dmlFrames(rowsAffected int64) []backend.ResultFrame {
	return []backend.ResultFrame{
		{Kind: backend.FrameHeader, Header: &backend.ResultHeader{ResultType: backend.ResultOmitted}},
		{Kind: backend.FrameSummary, Summary: &backend.ResultSummary{Status: status.OK(), RowsAffected: rowsAffected}},
	}
}

func omittedFrames() []backend.ResultFrame {
	return []backend.ResultFrame{
		{Kind: backend.FrameHeader, Header: &backend.ResultHeader{ResultType: backend.ResultOmitted}},
		{Kind: backend.FrameSummary, Summary: &backend.ResultSummary{Status: status.New(status.Omitted, "omitted")}},
	}
}

func (b *Backend) BeginTransaction(ctx context.Context, session backend.SessionHandle, mode backend.TransactionMode) (backend.TransactionHandle, error) {
	if _, err := b.state(session); err != nil {
		return "", err
	}
	opts := &sql.TxOptions{ReadOnly: mode == backend.ReadOnly}
	tx, err := b.db.BeginTx(ctx, opts)
	if err != nil {
		return "", gqlerr.Backend(err)
	}
	id := b.txCounter.Add(1)
	handle := backend.TransactionHandle(fmt.Sprintf("sqlite-tx-%d", id))
	b.txMu.Lock()
	b.txs[handle] = tx
	b.txMu.Unlock()
	return handle, nil
}

func (b *Backend) popTx(handle backend.TransactionHandle) (*sql.Tx, error) {
	b.txMu.Lock()
	defer b.txMu.Unlock()
	tx, ok := b.txs[handle]
	if !ok {
		return nil, gqlerr.TransactionNotFound(string(handle))
	}
	delete(b.txs, handle)
	return tx, nil
}

func (b *Backend) Commit(ctx context.Context, session backend.SessionHandle, transaction backend.TransactionHandle) error {
	tx, err := b.popTx(transaction)
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return gqlerr.Backend(err)
	}
	return nil
}

func (b *Backend) Rollback(ctx context.Context, session backend.SessionHandle, transaction backend.TransactionHandle) error {
	tx, err := b.popTx(transaction)
	if err != nil {
		return err
	}
	if err := tx.Rollback(); err != nil {
		return gqlerr.Backend(err)
	}
	return nil
}

// --- optional DatabaseCapability ---

func (b *Backend) ListDatabases(ctx context.Context) ([]backend.DatabaseInfo, error) {
	rows, err := b.db.QueryContext(ctx, `SELECT name, database_type, storage_mode, memory_limit_bytes, backward_edges, threads FROM gwp_databases ORDER BY name`)
	if err != nil {
		return nil, gqlerr.Backend(err)
	}
	defer rows.Close()

	var out []backend.DatabaseInfo
	for rows.Next() {
		var info backend.DatabaseInfo
		var backwardEdges int
		if err := rows.Scan(&info.Name, &info.DatabaseType, &info.StorageMode, &info.MemoryLimitBytes, &backwardEdges, &info.Threads); err != nil {
			return nil, gqlerr.Backend(err)
		}
		info.BackwardEdges = backwardEdges != 0
		info.Persistent = info.StorageMode == "Persistent"
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, gqlerr.Backend(err)
	}
	rows.Close()
	for i := range out {
		out[i].NodeCount, out[i].EdgeCount = b.countRows(ctx, out[i].Name)
	}
	return out, nil
}

func (b *Backend) countRows(ctx context.Context, database string) (nodes, edges uint64) {
	_ = b.db.QueryRowContext(ctx, `SELECT count(*) FROM gwp_nodes WHERE db_name = ?`, database).Scan(&nodes)
	_ = b.db.QueryRowContext(ctx, `SELECT count(*) FROM gwp_edges WHERE db_name = ?`, database).Scan(&edges)
	return nodes, edges
}

func (b *Backend) CreateDatabase(ctx context.Context, config backend.CreateDatabaseConfig) (backend.DatabaseInfo, error) {
	backwardEdges := 0
	if config.BackwardEdges {
		backwardEdges = 1
	}
	walEnabled := 0
	if config.WalEnabled {
		walEnabled = 1
	}
	_, err := b.db.ExecContext(ctx, `INSERT INTO gwp_databases
		(name, database_type, storage_mode, memory_limit_bytes, backward_edges, threads, wal_enabled, wal_durability)
		VALUES (?,?,?,?,?,?,?,?)`,
		config.Name, config.DatabaseType, config.StorageMode, config.MemoryLimitBytes,
		backwardEdges, config.Threads, walEnabled, config.WalDurability)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return backend.DatabaseInfo{}, gqlerr.SessionAlreadyExists(config.Name)
		}
		return backend.DatabaseInfo{}, gqlerr.Backend(err)
	}
	return backend.DatabaseInfo{
		Name:             config.Name,
		DatabaseType:     config.DatabaseType,
		StorageMode:      config.StorageMode,
		MemoryLimitBytes: config.MemoryLimitBytes,
		BackwardEdges:    config.BackwardEdges,
		Threads:          config.Threads,
		Persistent:       config.StorageMode == "Persistent",
	}, nil
}

func (b *Backend) DeleteDatabase(ctx context.Context, name string) (string, error) {
	if name == "default" {
		return "", &gqlerr.Error{Kind: gqlerr.KindSession, Message: "cannot delete the default database"}
	}
	result, err := b.db.ExecContext(ctx, `DELETE FROM gwp_databases WHERE name = ?`, name)
	if err != nil {
		return "", gqlerr.Backend(err)
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return "", gqlerr.SessionNotFound(name)
	}
	_, _ = b.db.ExecContext(ctx, `DELETE FROM gwp_nodes WHERE db_name = ?`, name)
	_, _ = b.db.ExecContext(ctx, `DELETE FROM gwp_edges WHERE db_name = ?`, name)
	return name, nil
}

func (b *Backend) GetDatabaseInfo(ctx context.Context, name string) (backend.DatabaseInfo, error) {
	var info backend.DatabaseInfo
	var backwardEdges int
	err := b.db.QueryRowContext(ctx, `SELECT name, database_type, storage_mode, memory_limit_bytes, backward_edges, threads FROM gwp_databases WHERE name = ?`, name).
		Scan(&info.Name, &info.DatabaseType, &info.StorageMode, &info.MemoryLimitBytes, &backwardEdges, &info.Threads)
	if err != nil {
		if err == sql.ErrNoRows {
			return backend.DatabaseInfo{}, gqlerr.SessionNotFound(name)
		}
		return backend.DatabaseInfo{}, gqlerr.Backend(err)
	}
	info.BackwardEdges = backwardEdges != 0
	info.Persistent = info.StorageMode == "Persistent"
	info.NodeCount, info.EdgeCount = b.countRows(ctx, name)
	return info, nil
}

// --- optional AdminCapability ---

func (b *Backend) GetDatabaseStats(ctx context.Context, database string) (backend.DatabaseStats, error) {
	var stats backend.DatabaseStats
	stats.NodeCount, stats.EdgeCount = b.countRows(ctx, database)
	return stats, nil
}

func (b *Backend) WalStatus(ctx context.Context, database string) (backend.WalStatus, error) {
	return backend.WalStatus{Enabled: true, Durability: "Wal"}, nil
}

func (b *Backend) WalCheckpoint(ctx context.Context, database string) (uint64, error) {
	if _, err := b.db.ExecContext(ctx, `PRAGMA wal_checkpoint(TRUNCATE)`); err != nil {
		return 0, gqlerr.Backend(err)
	}
	return 0, nil
}

func (b *Backend) Validate(ctx context.Context, database string) (backend.ValidateResult, error) {
	var result string
	if err := b.db.QueryRowContext(ctx, `PRAGMA integrity_check`).Scan(&result); err != nil {
		return backend.ValidateResult{}, gqlerr.Backend(err)
	}
	if result != "ok" {
		return backend.ValidateResult{Valid: false, Issues: []string{result}}, nil
	}
	return backend.ValidateResult{Valid: true}, nil
}

func (b *Backend) CreateIndex(ctx context.Context, database string, index backend.IndexDefinition) (string, error) {
	if index.Kind != backend.IndexProperty {
		return "", gqlerr.Unsupported("vector/text index")
	}
	indexName := fmt.Sprintf("idx_%s_%s_%s", database, index.Label, index.Property)
	stmt := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON gwp_nodes (json_extract(properties, '$.%s'))`,
		quoteIdent(indexName), index.Property)
	if _, err := b.db.ExecContext(ctx, stmt); err != nil {
		return "", gqlerr.Backend(err)
	}
	return indexName, nil
}

func (b *Backend) DropIndex(ctx context.Context, database string, index backend.IndexDefinition) (bool, error) {
	indexName := fmt.Sprintf("idx_%s_%s_%s", database, index.Label, index.Property)
	if _, err := b.db.ExecContext(ctx, fmt.Sprintf(`DROP INDEX IF EXISTS %s`, quoteIdent(indexName))); err != nil {
		return false, gqlerr.Backend(err)
	}
	return true, nil
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// --- property <-> JSON conversion ---

func propsToJSON(props map[string]gqltypes.Value) ([]byte, error) {
	plain := make(map[string]any, len(props))
	for k, v := range props {
		plain[k] = valueToJSONAny(v)
	}
	return json.Marshal(plain)
}

func valueToJSONAny(v gqltypes.Value) any {
	switch v.Kind {
	case gqltypes.KindString:
		return v.String
	case gqltypes.KindBoolean:
		return v.Boolean
	case gqltypes.KindInteger:
		return v.Integer
	case gqltypes.KindUnsignedInteger:
		return v.UnsignedInteger
	case gqltypes.KindFloat:
		return v.Float
	case gqltypes.KindNull:
		return nil
	default:
		return v.Display()
	}
}

func propsFromJSON(data []byte) (map[string]gqltypes.Value, error) {
	if len(data) == 0 {
		return map[string]gqltypes.Value{}, nil
	}
	var plain map[string]any
	if err := json.Unmarshal(data, &plain); err != nil {
		return nil, err
	}
	out := make(map[string]gqltypes.Value, len(plain))
	for k, v := range plain {
		out[k] = jsonAnyToValue(v)
	}
	return out, nil
}

func jsonAnyToValue(v any) gqltypes.Value {
	switch t := v.(type) {
	case string:
		return gqltypes.Str(t)
	case bool:
		return gqltypes.Bool(t)
	case float64:
		if t == float64(int64(t)) {
			return gqltypes.Int(int64(t))
		}
		return gqltypes.Float64(t)
	case nil:
		return gqltypes.Null
	default:
		return gqltypes.Str(fmt.Sprintf("%v", t))
	}
}
