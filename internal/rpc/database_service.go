package rpc

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/grafeodb/gwp/backend"
	"github.com/grafeodb/gwp/wire"
)

// DatabaseService implements wire.DatabaseServer over a backend that opts
// into backend.DatabaseCapability. A backend that does not implement the
// capability causes every RPC to respond Unimplemented.
type DatabaseService struct {
	capability backend.DatabaseCapability // nil if the backend doesn't support it
}

// NewDatabaseService creates a DatabaseService. b need not implement
// backend.DatabaseCapability; if it doesn't, every RPC responds Unimplemented.
func NewDatabaseService(b backend.Backend) *DatabaseService {
	cap, _ := b.(backend.DatabaseCapability)
	return &DatabaseService{capability: cap}
}

var _ wire.DatabaseServer = (*DatabaseService)(nil)

func toDatabaseSummary(info backend.DatabaseInfo) wire.DatabaseSummary {
	return wire.DatabaseSummary{
		Name:         info.Name,
		NodeCount:    info.NodeCount,
		EdgeCount:    info.EdgeCount,
		Persistent:   info.Persistent,
		DatabaseType: info.DatabaseType,
		StorageMode:  info.StorageMode,
	}
}

func mapDatabaseError(err error) error {
	return toGRPCErrorWithDatabaseClassification(err)
}

func (d *DatabaseService) ListDatabases(ctx context.Context, req *wire.ListDatabasesRequest) (*wire.ListDatabasesResponse, error) {
	if d.capability == nil {
		return nil, status.Error(codes.Unimplemented, "database management not supported")
	}
	dbs, err := d.capability.ListDatabases(ctx)
	if err != nil {
		return nil, mapDatabaseError(err)
	}
	summaries := make([]wire.DatabaseSummary, len(dbs))
	for i, info := range dbs {
		summaries[i] = toDatabaseSummary(info)
	}
	return &wire.ListDatabasesResponse{Databases: summaries}, nil
}

func (d *DatabaseService) CreateDatabase(ctx context.Context, req *wire.CreateDatabaseRequest) (*wire.CreateDatabaseResponse, error) {
	if d.capability == nil {
		return nil, status.Error(codes.Unimplemented, "database management not supported")
	}
	if req.Name == "" {
		return nil, status.Error(codes.InvalidArgument, "database name is required")
	}
	info, err := d.capability.CreateDatabase(ctx, backend.CreateDatabaseConfig{
		Name:             req.Name,
		DatabaseType:     req.DatabaseType,
		StorageMode:      req.StorageMode,
		MemoryLimitBytes: req.MemoryLimitBytes,
		BackwardEdges:    req.BackwardEdges,
		Threads:          req.Threads,
		WalEnabled:       req.WalEnabled,
		WalDurability:    req.WalDurability,
	})
	if err != nil {
		return nil, mapDatabaseError(err)
	}
	return &wire.CreateDatabaseResponse{Database: toDatabaseSummary(info)}, nil
}

func (d *DatabaseService) DeleteDatabase(ctx context.Context, req *wire.DeleteDatabaseRequest) (*wire.DeleteDatabaseResponse, error) {
	if d.capability == nil {
		return nil, status.Error(codes.Unimplemented, "database management not supported")
	}
	if req.Name == "" {
		return nil, status.Error(codes.InvalidArgument, "database name is required")
	}
	deleted, err := d.capability.DeleteDatabase(ctx, req.Name)
	if err != nil {
		return nil, mapDatabaseError(err)
	}
	return &wire.DeleteDatabaseResponse{Deleted: deleted}, nil
}

func (d *DatabaseService) GetDatabaseInfo(ctx context.Context, req *wire.GetDatabaseInfoRequest) (*wire.GetDatabaseInfoResponse, error) {
	if d.capability == nil {
		return nil, status.Error(codes.Unimplemented, "database management not supported")
	}
	if req.Name == "" {
		return nil, status.Error(codes.InvalidArgument, "database name is required")
	}
	info, err := d.capability.GetDatabaseInfo(ctx, req.Name)
	if err != nil {
		return nil, mapDatabaseError(err)
	}
	return &wire.GetDatabaseInfoResponse{Database: toDatabaseSummary(info)}, nil
}
