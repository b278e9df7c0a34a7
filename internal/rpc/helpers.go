package rpc

import (
	"errors"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/grafeodb/gwp/gqlerr"
)

// toGRPCErrorWithDatabaseClassification maps a backend error for
// DatabaseService RPCs. It differs from the generic gqlerr.ToGRPCStatus table
// in two places: a Session error that is neither "already exists" nor "not
// found" maps to InvalidArgument instead of FailedPrecondition, and every
// Protocol error maps to Unimplemented.
func toGRPCErrorWithDatabaseClassification(err error) error {
	if err == nil {
		return nil
	}
	var e *gqlerr.Error
	if !errors.As(err, &e) {
		return status.Error(codes.Unknown, err.Error())
	}
	switch e.Kind {
	case gqlerr.KindSession:
		switch {
		case strings.Contains(e.Message, "already exists"):
			return status.Error(codes.AlreadyExists, e.Message)
		case strings.Contains(e.Message, "not found"):
			return status.Error(codes.NotFound, e.Message)
		default:
			return status.Error(codes.InvalidArgument, e.Message)
		}
	case gqlerr.KindProtocol:
		return status.Error(codes.Unimplemented, e.Message)
	default:
		return gqlerr.ToGRPCStatus(err).Err()
	}
}
