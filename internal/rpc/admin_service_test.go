package rpc

import (
	"context"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/grafeodb/gwp/backend"
	"github.com/grafeodb/gwp/wire"
)

// fakeAdminBackend implements backend.Backend plus backend.AdminCapability
// with canned data, to exercise the success paths.
type fakeAdminBackend struct {
	bareBackend
}

func (fakeAdminBackend) GetDatabaseStats(ctx context.Context, database string) (backend.DatabaseStats, error) {
	return backend.DatabaseStats{NodeCount: 10, EdgeCount: 20, IndexCount: 1, DiskBytes: 4096}, nil
}

func (fakeAdminBackend) WalStatus(ctx context.Context, database string) (backend.WalStatus, error) {
	return backend.WalStatus{Enabled: true, Durability: "fsync", PendingLSN: 5, FlushedLSN: 3}, nil
}

func (fakeAdminBackend) WalCheckpoint(ctx context.Context, database string) (uint64, error) {
	return 5, nil
}

func (fakeAdminBackend) Validate(ctx context.Context, database string) (backend.ValidateResult, error) {
	return backend.ValidateResult{Valid: true}, nil
}

func (fakeAdminBackend) CreateIndex(ctx context.Context, database string, index backend.IndexDefinition) (string, error) {
	return "idx_" + index.Label + "_" + index.Property, nil
}

func (fakeAdminBackend) DropIndex(ctx context.Context, database string, index backend.IndexDefinition) (bool, error) {
	return true, nil
}

var _ backend.AdminCapability = fakeAdminBackend{}

func TestAdminServiceUnimplementedWithoutCapability(t *testing.T) {
	svc := NewAdminService(bareBackend{})
	_, err := svc.GetDatabaseStats(context.Background(), &wire.GetDatabaseStatsRequest{Database: "default"})
	if status.Code(err) != codes.Unimplemented {
		t.Fatalf("err = %v, want Unimplemented", err)
	}
}

func TestAdminServiceRequiresDatabaseName(t *testing.T) {
	svc := NewAdminService(fakeAdminBackend{})
	_, err := svc.GetDatabaseStats(context.Background(), &wire.GetDatabaseStatsRequest{})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("err = %v, want InvalidArgument", err)
	}
}

func TestGetDatabaseStats(t *testing.T) {
	svc := NewAdminService(fakeAdminBackend{})
	resp, err := svc.GetDatabaseStats(context.Background(), &wire.GetDatabaseStatsRequest{Database: "default"})
	if err != nil {
		t.Fatalf("GetDatabaseStats: %v", err)
	}
	if resp.NodeCount != 10 || resp.EdgeCount != 20 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestWalStatusAndCheckpoint(t *testing.T) {
	svc := NewAdminService(fakeAdminBackend{})
	ws, err := svc.WalStatus(context.Background(), &wire.WalStatusRequest{Database: "default"})
	if err != nil {
		t.Fatalf("WalStatus: %v", err)
	}
	if !ws.Enabled || ws.PendingLSN != 5 {
		t.Errorf("ws = %+v", ws)
	}

	cp, err := svc.WalCheckpoint(context.Background(), &wire.WalCheckpointRequest{Database: "default"})
	if err != nil {
		t.Fatalf("WalCheckpoint: %v", err)
	}
	if cp.CheckpointedLSN != 5 {
		t.Errorf("cp = %+v", cp)
	}
}

func TestValidate(t *testing.T) {
	svc := NewAdminService(fakeAdminBackend{})
	resp, err := svc.Validate(context.Background(), &wire.ValidateRequest{Database: "default"})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if !resp.Valid {
		t.Errorf("resp = %+v", resp)
	}
}

func TestCreateAndDropIndex(t *testing.T) {
	svc := NewAdminService(fakeAdminBackend{})
	idx := wire.IndexDefinition{Kind: wire.IndexVector, Label: "Person", Property: "embedding", Dimensions: 384}

	created, err := svc.CreateIndex(context.Background(), &wire.CreateIndexRequest{Database: "default", Index: idx})
	if err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}
	if created.Name == "" {
		t.Error("expected an index name")
	}

	dropped, err := svc.DropIndex(context.Background(), &wire.DropIndexRequest{Database: "default", Index: idx})
	if err != nil {
		t.Fatalf("DropIndex: %v", err)
	}
	if !dropped.Dropped {
		t.Error("expected index dropped")
	}
}
