// Package gqlerr defines the closed error taxonomy shared by every layer of
// the runtime and the translation to gRPC transport status and to
// in-payload GQLSTATUS.
package gqlerr

import (
	"errors"
	"fmt"
	"strings"

	"github.com/grafeodb/gwp/status"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
)

// Kind is the closed set of error categories the runtime can produce.
type Kind int

const (
	KindProtocol Kind = iota
	KindSession
	KindTransaction
	KindBackend
	KindStatus
	KindTransport
	KindGrpc
)

func (k Kind) String() string {
	switch k {
	case KindProtocol:
		return "protocol"
	case KindSession:
		return "session"
	case KindTransaction:
		return "transaction"
	case KindBackend:
		return "backend"
	case KindStatus:
		return "status"
	case KindTransport:
		return "transport"
	case KindGrpc:
		return "grpc"
	default:
		return "unknown"
	}
}

// Error is the runtime's closed tagged-union error type.
type Error struct {
	Kind    Kind
	Message string
	Status  *status.GqlStatus // non-nil only for KindStatus
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Protocol builds a Protocol-kind error.
func Protocol(format string, args ...any) *Error {
	return &Error{Kind: KindProtocol, Message: fmt.Sprintf(format, args...)}
}

// SessionNotFound builds a Session error whose message contains "not found",
// the substring the transport translation table keys on.
func SessionNotFound(id string) *Error {
	return &Error{Kind: KindSession, Message: fmt.Sprintf("session %q not found", id)}
}

// SessionAlreadyExists builds a Session error for database-management ops.
func SessionAlreadyExists(name string) *Error {
	return &Error{Kind: KindSession, Message: fmt.Sprintf("%q already exists", name)}
}

// SessionCapacity builds a Session error for the max_sessions limit.
func SessionCapacity() *Error {
	return &Error{Kind: KindSession, Message: "session limit reached"}
}

// TransactionActive builds a Transaction error for the single-active invariant.
func TransactionActive(sessionID string) *Error {
	return &Error{Kind: KindTransaction, Message: fmt.Sprintf("session %q already has an active transaction", sessionID)}
}

// TransactionNotFound builds a Transaction error for an unknown tx id.
func TransactionNotFound(id string) *Error {
	return &Error{Kind: KindTransaction, Message: fmt.Sprintf("transaction %q not found", id)}
}

// TransactionWrongSession builds a Transaction error for a session mismatch.
func TransactionWrongSession(txID, sessionID string) *Error {
	return &Error{Kind: KindTransaction, Message: fmt.Sprintf("transaction %q does not belong to session %q", txID, sessionID)}
}

// Backend wraps an opaque backend-originated cause.
func Backend(cause error) *Error {
	return &Error{Kind: KindBackend, Message: "backend error", Cause: cause}
}

// Unsupported builds the Protocol error the runtime maps to UNIMPLEMENTED
// for optional backend capabilities that a given Backend does not support.
func Unsupported(op string) *Error {
	return &Error{Kind: KindProtocol, Message: fmt.Sprintf("%s: not supported", op)}
}

// Status wraps a GqlStatus as an error, used where a backend or pipeline
// step needs to carry a specific in-payload status upward.
func Status(s status.GqlStatus) *Error {
	return &Error{Kind: KindStatus, Message: s.String(), Status: &s}
}

// Transport builds a Transport-kind error (channel / connection failure).
func Transport(cause error) *Error {
	return &Error{Kind: KindTransport, Message: "transport failure", Cause: cause}
}

// GqlStatusOf extracts the carried GqlStatus, if any. Returns ok=false for
// any Kind other than KindStatus.
func GqlStatusOf(err error) (s status.GqlStatus, ok bool) {
	var e *Error
	if errors.As(err, &e) && e.Kind == KindStatus && e.Status != nil {
		return *e.Status, true
	}
	return status.GqlStatus{}, false
}

// ToGRPCStatus translates err to a gRPC status per the control-plane mapping
// table. Session errors are classified by substring match on the message
// text; the constructors above are the canonical producers of those strings.
func ToGRPCStatus(err error) *grpcstatus.Status {
	if err == nil {
		return grpcstatus.New(codes.OK, "")
	}
	var e *Error
	if !errors.As(err, &e) {
		return grpcstatus.New(codes.Unknown, err.Error())
	}
	switch e.Kind {
	case KindSession:
		msg := e.Message
		switch {
		case strings.Contains(msg, "not found"):
			return grpcstatus.New(codes.NotFound, msg)
		case strings.Contains(msg, "already exists"):
			return grpcstatus.New(codes.AlreadyExists, msg)
		case strings.Contains(msg, "limit reached") || strings.Contains(msg, "capacity"):
			return grpcstatus.New(codes.ResourceExhausted, msg)
		default:
			return grpcstatus.New(codes.FailedPrecondition, msg)
		}
	case KindTransaction:
		return grpcstatus.New(codes.FailedPrecondition, e.Message)
	case KindProtocol:
		if strings.Contains(e.Message, "not supported") {
			return grpcstatus.New(codes.Unimplemented, e.Message)
		}
		return grpcstatus.New(codes.InvalidArgument, e.Message)
	case KindBackend:
		return grpcstatus.New(codes.Internal, e.Error())
	case KindTransport:
		return grpcstatus.New(codes.Unavailable, e.Error())
	case KindStatus:
		// The data plane handles these in-payload; if one reaches here it is a
		// fallback path, so report it rather than silently succeeding.
		return grpcstatus.New(codes.Internal, e.Message)
	case KindGrpc:
		return grpcstatus.New(codes.Internal, e.Error())
	default:
		return grpcstatus.New(codes.Unknown, e.Error())
	}
}

// ToOptionalGqlStatus translates err into a GqlStatus suitable for an
// in-payload response, for the data-plane operations that must always
// succeed at the transport layer. Falls back to the given code when err
// carries no structured status.
func ToOptionalGqlStatus(err error, fallback status.Code) status.GqlStatus {
	if err == nil {
		return status.OK()
	}
	if s, ok := GqlStatusOf(err); ok {
		return s
	}
	return status.New(fallback, err.Error())
}
