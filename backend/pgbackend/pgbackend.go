// Package pgbackend is a PostgreSQL-backed backend.Backend built on pgxpool,
// dispatching statement keywords the way backend/mockbackend does but
// reading and writing real rows instead of canned frames.
//
// Graph state (nodes, edges, databases) is persisted in three tables;
// session and transaction bookkeeping stays in memory, since that state is
// connection-scoped rather than graph data. A property map round-trips
// through a jsonb column using a reduced JSON type set (string, bool,
// number): this backend does not attempt to preserve the full gqltypes.Value
// union (temporal types, decimals, nested nodes) across a restart, which is
// an acceptable limitation for a reference storage engine rather than a
// production one.
package pgbackend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

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
	memory_limit_bytes BIGINT NOT NULL DEFAULT 0,
	backward_edges     BOOLEAN NOT NULL DEFAULT FALSE,
	threads            INT NOT NULL DEFAULT 1,
	wal_enabled        BOOLEAN NOT NULL DEFAULT TRUE,
	wal_durability     TEXT NOT NULL DEFAULT 'Fsync'
);
CREATE TABLE IF NOT EXISTS gwp_nodes (
	db_name    TEXT NOT NULL,
	node_id    TEXT NOT NULL,
	labels     TEXT[] NOT NULL DEFAULT '{}',
	properties JSONB NOT NULL DEFAULT '{}',
	PRIMARY KEY (db_name, node_id)
);
CREATE TABLE IF NOT EXISTS gwp_edges (
	db_name    TEXT NOT NULL,
	edge_id    TEXT NOT NULL,
	labels     TEXT[] NOT NULL DEFAULT '{}',
	source     TEXT NOT NULL,
	target     TEXT NOT NULL,
	directed   BOOLEAN NOT NULL DEFAULT TRUE,
	properties JSONB NOT NULL DEFAULT '{}',
	PRIMARY KEY (db_name, edge_id)
);
INSERT INTO gwp_databases (name) VALUES ('default') ON CONFLICT DO NOTHING;
`

// sessionState is the connection-scoped state ConfigureSession mutates.
type sessionState struct {
	mu         sync.Mutex
	graph      string
	schema     string
	tzOffset   int32
	parameters map[string]gqltypes.Value
}

// Backend is a PostgreSQL-backed backend.Backend.
type Backend struct {
	pool *pgxpool.Pool

	sessions       sync.Map // backend.SessionHandle -> *sessionState
	sessionCounter atomic.Uint64

	txMu      sync.Mutex
	txs       map[backend.TransactionHandle]pgx.Tx
	txCounter atomic.Uint64
}

var (
	_ backend.Backend            = (*Backend)(nil)
	_ backend.DatabaseCapability = (*Backend)(nil)
	_ backend.AdminCapability    = (*Backend)(nil)
)

// New opens a pgxpool connection to connStr, pings the database, and applies
// the schema DDL (idempotent: CREATE TABLE IF NOT EXISTS).
func New(ctx context.Context, connStr string) (*Backend, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("pgbackend: pgxpool.New: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgbackend: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, ddl); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pgbackend: apply schema: %w", err)
	}
	return &Backend{pool: pool, txs: make(map[backend.TransactionHandle]pgx.Tx)}, nil
}

// Close closes the underlying connection pool.
func (b *Backend) Close() {
	b.pool.Close()
}

func (b *Backend) CreateSession(ctx context.Context, config backend.SessionConfig) (backend.SessionHandle, error) {
	id := b.sessionCounter.Add(1)
	handle := backend.SessionHandle(fmt.Sprintf("pg-session-%d", id))
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

// pgExecutor is satisfied by both *pgxpool.Pool and pgx.Tx, letting Execute
// run against the ambient pool or against an open transaction uniformly.
type pgExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (b *Backend) executor(transaction *backend.TransactionHandle) pgExecutor {
	if transaction != nil {
		b.txMu.Lock()
		tx, ok := b.txs[*transaction]
		b.txMu.Unlock()
		if ok {
			return tx
		}
	}
	return b.pool
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

// Execute dispatches statement by its leading keyword, the same way
// mockbackend does, but against the gwp_nodes/gwp_edges tables of the
// session's current graph instead of returning canned frames.
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

func (b *Backend) matchFrames(ctx context.Context, exec pgExecutor, graph string) (backend.ResultStream, error) {
	rows, err := exec.Query(ctx, `SELECT node_id, labels, properties FROM gwp_nodes WHERE db_name = $1 ORDER BY node_id LIMIT 100`, graph)
	if err != nil {
		return nil, gqlerr.Backend(err)
	}
	defer rows.Close()

	var nodeRows [][]gqltypes.Value
	for rows.Next() {
		var id string
		var labels []string
		var propsJSON []byte
		if err := rows.Scan(&id, &labels, &propsJSON); err != nil {
			return nil, gqlerr.Backend(err)
		}
		props, err := propsFromJSON(propsJSON)
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

func (b *Backend) insertFrames(ctx context.Context, exec pgExecutor, graph, statement string, parameters map[string]gqltypes.Value) (backend.ResultStream, error) {
	propsJSON, err := propsToJSON(parameters)
	if err != nil {
		return nil, gqlerr.Backend(err)
	}
	id := uuid.NewString()
	labels := extractLabels(statement)
	tag, err := exec.Exec(ctx,
		`INSERT INTO gwp_nodes (db_name, node_id, labels, properties) VALUES ($1, $2, $3, $4)`,
		graph, id, labels, propsJSON)
	if err != nil {
		return nil, gqlerr.Backend(err)
	}
	return backend.NewSliceResultStream(dmlFrames(tag.RowsAffected())), nil
}

func (b *Backend) deleteFrames(ctx context.Context, exec pgExecutor, graph string) (backend.ResultStream, error) {
	tag, err := exec.Exec(ctx,
		`DELETE FROM gwp_nodes WHERE db_name = $1 AND node_id = (SELECT node_id FROM gwp_nodes WHERE db_name = $1 LIMIT 1)`,
		graph)
	if err != nil {
		return nil, gqlerr.Backend(err)
	}
	return backend.NewSliceResultStream(dmlFrames(tag.RowsAffected())), nil
}

func (b *Backend) setFrames(ctx context.Context, exec pgExecutor, graph string, parameters map[string]gqltypes.Value) (backend.ResultStream, error) {
	propsJSON, err := propsToJSON(parameters)
	if err != nil {
		return nil, gqlerr.Backend(err)
	}
	tag, err := exec.Exec(ctx,
		`UPDATE gwp_nodes SET properties = properties || $2::jsonb
		 WHERE db_name = $1 AND node_id = (SELECT node_id FROM gwp_nodes WHERE db_name = $1 LIMIT 1)`,
		graph, propsJSON)
	if err != nil {
		return nil, gqlerr.Backend(err)
	}
	return backend.NewSliceResultStream(dmlFrames(tag.RowsAffected())), nil
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
	txOpts := pgx.TxOptions{}
	if mode == backend.ReadOnly {
		txOpts.AccessMode = pgx.ReadOnly
	}
	tx, err := b.pool.BeginTx(ctx, txOpts)
	if err != nil {
		return "", gqlerr.Backend(err)
	}
	id := b.txCounter.Add(1)
	handle := backend.TransactionHandle(fmt.Sprintf("pg-tx-%d", id))
	b.txMu.Lock()
	b.txs[handle] = tx
	b.txMu.Unlock()
	return handle, nil
}

func (b *Backend) popTx(handle backend.TransactionHandle) (pgx.Tx, error) {
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
	if err := tx.Commit(ctx); err != nil {
		return gqlerr.Backend(err)
	}
	return nil
}

func (b *Backend) Rollback(ctx context.Context, session backend.SessionHandle, transaction backend.TransactionHandle) error {
	tx, err := b.popTx(transaction)
	if err != nil {
		return err
	}
	if err := tx.Rollback(ctx); err != nil {
		return gqlerr.Backend(err)
	}
	return nil
}

// --- optional DatabaseCapability ---

func (b *Backend) ListDatabases(ctx context.Context) ([]backend.DatabaseInfo, error) {
	rows, err := b.pool.Query(ctx, `SELECT d.name, d.database_type, d.storage_mode, d.memory_limit_bytes, d.backward_edges, d.threads,
		(SELECT count(*) FROM gwp_nodes n WHERE n.db_name = d.name),
		(SELECT count(*) FROM gwp_edges e WHERE e.db_name = d.name)
		FROM gwp_databases d ORDER BY d.name`)
	if err != nil {
		return nil, gqlerr.Backend(err)
	}
	defer rows.Close()

	var out []backend.DatabaseInfo
	for rows.Next() {
		var info backend.DatabaseInfo
		if err := rows.Scan(&info.Name, &info.DatabaseType, &info.StorageMode, &info.MemoryLimitBytes,
			&info.BackwardEdges, &info.Threads, &info.NodeCount, &info.EdgeCount); err != nil {
			return nil, gqlerr.Backend(err)
		}
		info.Persistent = info.StorageMode == "Persistent"
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, gqlerr.Backend(err)
	}
	return out, nil
}

func (b *Backend) CreateDatabase(ctx context.Context, config backend.CreateDatabaseConfig) (backend.DatabaseInfo, error) {
	_, err := b.pool.Exec(ctx, `INSERT INTO gwp_databases
		(name, database_type, storage_mode, memory_limit_bytes, backward_edges, threads, wal_enabled, wal_durability)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		config.Name, config.DatabaseType, config.StorageMode, config.MemoryLimitBytes,
		config.BackwardEdges, config.Threads, config.WalEnabled, config.WalDurability)
	if err != nil {
		if isUniqueViolation(err) {
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
	tag, err := b.pool.Exec(ctx, `DELETE FROM gwp_databases WHERE name = $1`, name)
	if err != nil {
		return "", gqlerr.Backend(err)
	}
	if tag.RowsAffected() == 0 {
		return "", gqlerr.SessionNotFound(name)
	}
	_, _ = b.pool.Exec(ctx, `DELETE FROM gwp_nodes WHERE db_name = $1`, name)
	_, _ = b.pool.Exec(ctx, `DELETE FROM gwp_edges WHERE db_name = $1`, name)
	return name, nil
}

func (b *Backend) GetDatabaseInfo(ctx context.Context, name string) (backend.DatabaseInfo, error) {
	var info backend.DatabaseInfo
	err := b.pool.QueryRow(ctx, `SELECT d.name, d.database_type, d.storage_mode, d.memory_limit_bytes, d.backward_edges, d.threads,
		(SELECT count(*) FROM gwp_nodes n WHERE n.db_name = d.name),
		(SELECT count(*) FROM gwp_edges e WHERE e.db_name = d.name)
		FROM gwp_databases d WHERE d.name = $1`, name).Scan(
		&info.Name, &info.DatabaseType, &info.StorageMode, &info.MemoryLimitBytes,
		&info.BackwardEdges, &info.Threads, &info.NodeCount, &info.EdgeCount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return backend.DatabaseInfo{}, gqlerr.SessionNotFound(name)
		}
		return backend.DatabaseInfo{}, gqlerr.Backend(err)
	}
	info.Persistent = info.StorageMode == "Persistent"
	return info, nil
}

// --- optional AdminCapability ---

func (b *Backend) GetDatabaseStats(ctx context.Context, database string) (backend.DatabaseStats, error) {
	var stats backend.DatabaseStats
	err := b.pool.QueryRow(ctx, `SELECT
		(SELECT count(*) FROM gwp_nodes WHERE db_name = $1),
		(SELECT count(*) FROM gwp_edges WHERE db_name = $1)`, database).
		Scan(&stats.NodeCount, &stats.EdgeCount)
	if err != nil {
		return backend.DatabaseStats{}, gqlerr.Backend(err)
	}
	return stats, nil
}

// WalStatus reports static values: real WAL introspection would read
// pg_stat_wal, which is out of scope for this reference backend.
func (b *Backend) WalStatus(ctx context.Context, database string) (backend.WalStatus, error) {
	return backend.WalStatus{Enabled: true, Durability: "Fsync"}, nil
}

func (b *Backend) WalCheckpoint(ctx context.Context, database string) (uint64, error) {
	if _, err := b.pool.Exec(ctx, `CHECKPOINT`); err != nil {
		return 0, gqlerr.Backend(err)
	}
	return 0, nil
}

func (b *Backend) Validate(ctx context.Context, database string) (backend.ValidateResult, error) {
	var count int64
	if err := b.pool.QueryRow(ctx, `SELECT count(*) FROM gwp_databases WHERE name = $1`, database).Scan(&count); err != nil {
		return backend.ValidateResult{}, gqlerr.Backend(err)
	}
	if count == 0 {
		return backend.ValidateResult{Valid: false, Issues: []string{"database not found"}}, nil
	}
	return backend.ValidateResult{Valid: true}, nil
}

func (b *Backend) CreateIndex(ctx context.Context, database string, index backend.IndexDefinition) (string, error) {
	if index.Kind != backend.IndexProperty {
		return "", gqlerr.Unsupported("vector/text index")
	}
	indexName := fmt.Sprintf("idx_%s_%s_%s", database, index.Label, index.Property)
	stmt := fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s ON gwp_nodes ((properties->>%s))`,
		pgx.Identifier{indexName}.Sanitize(), quoteLiteral(index.Property))
	if _, err := b.pool.Exec(ctx, stmt); err != nil {
		return "", gqlerr.Backend(err)
	}
	return indexName, nil
}

func (b *Backend) DropIndex(ctx context.Context, database string, index backend.IndexDefinition) (bool, error) {
	indexName := fmt.Sprintf("idx_%s_%s_%s", database, index.Label, index.Property)
	stmt := fmt.Sprintf(`DROP INDEX IF EXISTS %s`, pgx.Identifier{indexName}.Sanitize())
	if _, err := b.pool.Exec(ctx, stmt); err != nil {
		return false, gqlerr.Backend(err)
	}
	return true, nil
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// --- property <-> jsonb conversion ---

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
