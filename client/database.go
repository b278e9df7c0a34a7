package client

import (
	"context"

	"google.golang.org/grpc"

	"github.com/grafeodb/gwp/gqlerr"
	"github.com/grafeodb/gwp/wire"
)

// DatabaseInfo mirrors wire.DatabaseSummary/wire.GetDatabaseInfoResponse's
// Database field with ergonomic Go types.
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

// CreateDatabaseConfig configures DatabaseClient.Create.
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

// DatabaseClient wraps DatabaseService with domain types in place of wire
// messages.
type DatabaseClient struct {
	conn *grpc.ClientConn
}

func newDatabaseClient(conn *grpc.ClientConn) *DatabaseClient {
	return &DatabaseClient{conn: conn}
}

func fromSummary(s wire.DatabaseSummary) DatabaseInfo {
	return DatabaseInfo{
		Name:         s.Name,
		NodeCount:    s.NodeCount,
		EdgeCount:    s.EdgeCount,
		Persistent:   s.Persistent,
		DatabaseType: s.DatabaseType,
		StorageMode:  s.StorageMode,
	}
}

// List returns every database known to the server.
func (d *DatabaseClient) List(ctx context.Context) ([]DatabaseInfo, error) {
	req := &wire.ListDatabasesRequest{}
	resp := &wire.ListDatabasesResponse{}
	if err := wire.Invoke(ctx, d.conn, "/gwp.DatabaseService/ListDatabases", req, resp); err != nil {
		return nil, gqlerr.Transport(err)
	}
	out := make([]DatabaseInfo, len(resp.Databases))
	for i, s := range resp.Databases {
		out[i] = fromSummary(s)
	}
	return out, nil
}

// Create creates a new database.
func (d *DatabaseClient) Create(ctx context.Context, cfg CreateDatabaseConfig) (DatabaseInfo, error) {
	req := &wire.CreateDatabaseRequest{
		Name:             cfg.Name,
		DatabaseType:     cfg.DatabaseType,
		StorageMode:      cfg.StorageMode,
		MemoryLimitBytes: cfg.MemoryLimitBytes,
		BackwardEdges:    cfg.BackwardEdges,
		Threads:          cfg.Threads,
		WalEnabled:       cfg.WalEnabled,
		WalDurability:    cfg.WalDurability,
	}
	resp := &wire.CreateDatabaseResponse{}
	if err := wire.Invoke(ctx, d.conn, "/gwp.DatabaseService/CreateDatabase", req, resp); err != nil {
		return DatabaseInfo{}, gqlerr.Transport(err)
	}
	return fromSummary(resp.Database), nil
}

// Delete deletes the named database, returning its name.
func (d *DatabaseClient) Delete(ctx context.Context, name string) (string, error) {
	req := &wire.DeleteDatabaseRequest{Name: name}
	resp := &wire.DeleteDatabaseResponse{}
	if err := wire.Invoke(ctx, d.conn, "/gwp.DatabaseService/DeleteDatabase", req, resp); err != nil {
		return "", gqlerr.Transport(err)
	}
	return resp.Deleted, nil
}

// GetInfo returns detailed information about name.
func (d *DatabaseClient) GetInfo(ctx context.Context, name string) (DatabaseInfo, error) {
	req := &wire.GetDatabaseInfoRequest{Name: name}
	resp := &wire.GetDatabaseInfoResponse{}
	if err := wire.Invoke(ctx, d.conn, "/gwp.DatabaseService/GetDatabaseInfo", req, resp); err != nil {
		return DatabaseInfo{}, gqlerr.Transport(err)
	}
	return fromSummary(resp.Database), nil
}
