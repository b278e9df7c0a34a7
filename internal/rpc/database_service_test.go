package rpc

import (
	"context"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/grafeodb/gwp/backend"
	"github.com/grafeodb/gwp/backend/mockbackend"
	"github.com/grafeodb/gwp/gqltypes"
	"github.com/grafeodb/gwp/wire"
)

// bareBackend implements only backend.Backend's required methods, with no
// optional capability, to exercise the Unimplemented path.
type bareBackend struct{}

func (bareBackend) CreateSession(ctx context.Context, config backend.SessionConfig) (backend.SessionHandle, error) {
	return "s", nil
}
func (bareBackend) CloseSession(ctx context.Context, session backend.SessionHandle) error { return nil }
func (bareBackend) ConfigureSession(ctx context.Context, session backend.SessionHandle, property backend.Property) error {
	return nil
}
func (bareBackend) ResetSession(ctx context.Context, session backend.SessionHandle, target backend.ResetTarget) error {
	return nil
}
func (bareBackend) Execute(ctx context.Context, session backend.SessionHandle, statement string, parameters map[string]gqltypes.Value, transaction *backend.TransactionHandle) (backend.ResultStream, error) {
	return backend.NewSliceResultStream(nil), nil
}
func (bareBackend) BeginTransaction(ctx context.Context, session backend.SessionHandle, mode backend.TransactionMode) (backend.TransactionHandle, error) {
	return "t", nil
}
func (bareBackend) Commit(ctx context.Context, session backend.SessionHandle, transaction backend.TransactionHandle) error {
	return nil
}
func (bareBackend) Rollback(ctx context.Context, session backend.SessionHandle, transaction backend.TransactionHandle) error {
	return nil
}

func TestListDatabases(t *testing.T) {
	svc := NewDatabaseService(mockbackend.New())
	resp, err := svc.ListDatabases(context.Background(), &wire.ListDatabasesRequest{})
	if err != nil {
		t.Fatalf("ListDatabases: %v", err)
	}
	if len(resp.Databases) != 2 {
		t.Fatalf("got %d databases, want 2", len(resp.Databases))
	}
}

func TestCreateDatabaseRequiresName(t *testing.T) {
	svc := NewDatabaseService(mockbackend.New())
	_, err := svc.CreateDatabase(context.Background(), &wire.CreateDatabaseRequest{})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("err = %v, want InvalidArgument", err)
	}
}

func TestCreateDefaultDatabaseAlreadyExists(t *testing.T) {
	svc := NewDatabaseService(mockbackend.New())
	_, err := svc.CreateDatabase(context.Background(), &wire.CreateDatabaseRequest{Name: "default"})
	if status.Code(err) != codes.AlreadyExists {
		t.Fatalf("err = %v, want AlreadyExists", err)
	}
}

func TestDeleteDefaultDatabaseRejected(t *testing.T) {
	svc := NewDatabaseService(mockbackend.New())
	_, err := svc.DeleteDatabase(context.Background(), &wire.DeleteDatabaseRequest{Name: "default"})
	if err == nil {
		t.Fatal("expected error deleting default database")
	}
}

func TestGetDatabaseInfoNotFound(t *testing.T) {
	svc := NewDatabaseService(mockbackend.New())
	_, err := svc.GetDatabaseInfo(context.Background(), &wire.GetDatabaseInfoRequest{Name: "nope"})
	if status.Code(err) != codes.NotFound {
		t.Fatalf("err = %v, want NotFound", err)
	}
}

func TestDatabaseServiceUnimplementedWithoutCapability(t *testing.T) {
	svc := NewDatabaseService(bareBackend{})
	_, err := svc.ListDatabases(context.Background(), &wire.ListDatabasesRequest{})
	if status.Code(err) != codes.Unimplemented {
		t.Fatalf("err = %v, want Unimplemented", err)
	}
}
