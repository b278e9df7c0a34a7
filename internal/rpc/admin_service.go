package rpc

import (
	"context"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/grafeodb/gwp/backend"
	"github.com/grafeodb/gwp/wire"
)

// AdminService implements wire.AdminServer over a backend that opts into
// backend.AdminCapability.
type AdminService struct {
	capability backend.AdminCapability
}

// NewAdminService creates an AdminService. Every RPC responds Unimplemented
// if b does not implement backend.AdminCapability.
func NewAdminService(b backend.Backend) *AdminService {
	cap, _ := b.(backend.AdminCapability)
	return &AdminService{capability: cap}
}

var _ wire.AdminServer = (*AdminService)(nil)

func (a *AdminService) requireCapability() error {
	if a.capability == nil {
		return status.Error(codes.Unimplemented, "administrative operations not supported")
	}
	return nil
}

func requireDatabaseName(name string) error {
	if name == "" {
		return status.Error(codes.InvalidArgument, "database name is required")
	}
	return nil
}

func (a *AdminService) GetDatabaseStats(ctx context.Context, req *wire.GetDatabaseStatsRequest) (*wire.GetDatabaseStatsResponse, error) {
	if err := a.requireCapability(); err != nil {
		return nil, err
	}
	if err := requireDatabaseName(req.Database); err != nil {
		return nil, err
	}
	stats, err := a.capability.GetDatabaseStats(ctx, req.Database)
	if err != nil {
		return nil, toGRPCErrorWithDatabaseClassification(err)
	}
	return &wire.GetDatabaseStatsResponse{
		NodeCount:  stats.NodeCount,
		EdgeCount:  stats.EdgeCount,
		IndexCount: stats.IndexCount,
		DiskBytes:  stats.DiskBytes,
	}, nil
}

func (a *AdminService) WalStatus(ctx context.Context, req *wire.WalStatusRequest) (*wire.WalStatusResponse, error) {
	if err := a.requireCapability(); err != nil {
		return nil, err
	}
	if err := requireDatabaseName(req.Database); err != nil {
		return nil, err
	}
	ws, err := a.capability.WalStatus(ctx, req.Database)
	if err != nil {
		return nil, toGRPCErrorWithDatabaseClassification(err)
	}
	return &wire.WalStatusResponse{
		Enabled:    ws.Enabled,
		Durability: ws.Durability,
		PendingLSN: ws.PendingLSN,
		FlushedLSN: ws.FlushedLSN,
	}, nil
}

func (a *AdminService) WalCheckpoint(ctx context.Context, req *wire.WalCheckpointRequest) (*wire.WalCheckpointResponse, error) {
	if err := a.requireCapability(); err != nil {
		return nil, err
	}
	if err := requireDatabaseName(req.Database); err != nil {
		return nil, err
	}
	lsn, err := a.capability.WalCheckpoint(ctx, req.Database)
	if err != nil {
		return nil, toGRPCErrorWithDatabaseClassification(err)
	}
	return &wire.WalCheckpointResponse{CheckpointedLSN: lsn}, nil
}

func (a *AdminService) Validate(ctx context.Context, req *wire.ValidateRequest) (*wire.ValidateResponse, error) {
	if err := a.requireCapability(); err != nil {
		return nil, err
	}
	if err := requireDatabaseName(req.Database); err != nil {
		return nil, err
	}
	result, err := a.capability.Validate(ctx, req.Database)
	if err != nil {
		return nil, toGRPCErrorWithDatabaseClassification(err)
	}
	return &wire.ValidateResponse{Valid: result.Valid, Issues: result.Issues}, nil
}

func toIndexDefinition(idx wire.IndexDefinition) backend.IndexDefinition {
	kind := backend.IndexProperty
	switch idx.Kind {
	case wire.IndexVector:
		kind = backend.IndexVector
	case wire.IndexText:
		kind = backend.IndexText
	}
	return backend.IndexDefinition{
		Kind:           kind,
		Label:          idx.Label,
		Property:       idx.Property,
		Dimensions:     idx.Dimensions,
		Metric:         idx.Metric,
		M:              idx.M,
		EfConstruction: idx.EfConstruction,
	}
}

func (a *AdminService) CreateIndex(ctx context.Context, req *wire.CreateIndexRequest) (*wire.CreateIndexResponse, error) {
	if err := a.requireCapability(); err != nil {
		return nil, err
	}
	if err := requireDatabaseName(req.Database); err != nil {
		return nil, err
	}
	name, err := a.capability.CreateIndex(ctx, req.Database, toIndexDefinition(req.Index))
	if err != nil {
		return nil, toGRPCErrorWithDatabaseClassification(err)
	}
	return &wire.CreateIndexResponse{Name: name}, nil
}

func (a *AdminService) DropIndex(ctx context.Context, req *wire.DropIndexRequest) (*wire.DropIndexResponse, error) {
	if err := a.requireCapability(); err != nil {
		return nil, err
	}
	if err := requireDatabaseName(req.Database); err != nil {
		return nil, err
	}
	dropped, err := a.capability.DropIndex(ctx, req.Database, toIndexDefinition(req.Index))
	if err != nil {
		return nil, toGRPCErrorWithDatabaseClassification(err)
	}
	return &wire.DropIndexResponse{Dropped: dropped}, nil
}
