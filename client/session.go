package client

import (
	"context"

	"google.golang.org/grpc"

	"github.com/grafeodb/gwp/gqlerr"
	"github.com/grafeodb/gwp/gqltypes"
	"github.com/grafeodb/gwp/status"
	"github.com/grafeodb/gwp/wire"
)

// Session is an active session with a GQL server.
type Session struct {
	id   string
	conn *grpc.ClientConn
}

func newSession(ctx context.Context, conn *grpc.ClientConn, creds *wire.AuthCredentials) (*Session, error) {
	req := &wire.HandshakeRequest{
		ProtocolVersion: 1,
		Credentials:     creds,
		ClientInfo:      map[string]string{},
	}
	resp := &wire.HandshakeResponse{}
	if err := wire.Invoke(ctx, conn, "/gwp.SessionService/Handshake", req, resp); err != nil {
		return nil, gqlerr.Transport(err)
	}
	return &Session{id: resp.SessionID, conn: conn}, nil
}

// ID returns the server-assigned session id.
func (s *Session) ID() string {
	return s.id
}

// Execute runs statement outside any explicit transaction and returns a
// Cursor over the streamed results.
func (s *Session) Execute(ctx context.Context, statement string, parameters map[string]gqltypes.Value) (*Cursor, error) {
	return s.execute(ctx, statement, parameters, "")
}

func (s *Session) execute(ctx context.Context, statement string, parameters map[string]gqltypes.Value, transactionID string) (*Cursor, error) {
	req := &wire.ExecuteRequest{
		SessionID:     s.id,
		Statement:     statement,
		Parameters:    toWireParams(parameters),
		TransactionID: transactionID,
	}
	stream, err := wire.NewExecuteClientStream(ctx, s.conn, req)
	if err != nil {
		return nil, gqlerr.Transport(err)
	}
	return newCursor(stream), nil
}

func toWireParams(parameters map[string]gqltypes.Value) map[string]*wire.Value {
	if len(parameters) == 0 {
		return nil
	}
	out := make(map[string]*wire.Value, len(parameters))
	for k, v := range parameters {
		out[k] = wire.ToWire(v)
	}
	return out
}

// BeginTransaction starts a read-write explicit transaction.
func (s *Session) BeginTransaction(ctx context.Context) (*Transaction, error) {
	return s.beginTransaction(ctx, wire.ReadWrite)
}

// BeginReadOnlyTransaction starts a read-only explicit transaction.
func (s *Session) BeginReadOnlyTransaction(ctx context.Context) (*Transaction, error) {
	return s.beginTransaction(ctx, wire.ReadOnly)
}

func (s *Session) beginTransaction(ctx context.Context, mode wire.TransactionMode) (*Transaction, error) {
	req := &wire.BeginTransactionRequest{SessionID: s.id, Mode: mode}
	resp := &wire.BeginTransactionResponse{}
	if err := wire.Invoke(ctx, s.conn, "/gwp.GqlService/BeginTransaction", req, resp); err != nil {
		return nil, gqlerr.Transport(err)
	}
	if resp.Status != nil {
		st := wire.FromStatusMsg(resp.Status)
		if status.IsException(st.Code) {
			return nil, gqlerr.Status(st)
		}
	}
	if resp.TransactionID == "" {
		return nil, gqlerr.Protocol("server returned empty transaction id")
	}
	return &Transaction{sessionID: s.id, id: resp.TransactionID, conn: s.conn, session: s}, nil
}

// SetGraph configures the session's current graph.
func (s *Session) SetGraph(ctx context.Context, graph string) error {
	return s.configure(ctx, &wire.ConfigureRequest{SessionID: s.id, Kind: wire.ConfigureGraph, Graph: graph})
}

// SetSchema configures the session's current schema.
func (s *Session) SetSchema(ctx context.Context, schema string) error {
	return s.configure(ctx, &wire.ConfigureRequest{SessionID: s.id, Kind: wire.ConfigureSchema, Schema: schema})
}

// SetTimeZone configures the session's timezone offset in minutes.
func (s *Session) SetTimeZone(ctx context.Context, offsetMinutes int32) error {
	return s.configure(ctx, &wire.ConfigureRequest{SessionID: s.id, Kind: wire.ConfigureTimeZone, TZOffset: offsetMinutes})
}

// SetParameter binds a session-scoped query parameter.
func (s *Session) SetParameter(ctx context.Context, name string, value gqltypes.Value) error {
	return s.configure(ctx, &wire.ConfigureRequest{
		SessionID: s.id,
		Kind:      wire.ConfigureParameter,
		ParamName: name,
		ParamVal:  wire.ToWire(value),
	})
}

func (s *Session) configure(ctx context.Context, req *wire.ConfigureRequest) error {
	resp := &wire.ConfigureResponse{}
	if err := wire.Invoke(ctx, s.conn, "/gwp.SessionService/Configure", req, resp); err != nil {
		return gqlerr.Transport(err)
	}
	return nil
}

// Reset clears all session state to defaults.
func (s *Session) Reset(ctx context.Context) error {
	req := &wire.ResetRequest{SessionID: s.id, Target: wire.ResetAll}
	resp := &wire.ResetResponse{}
	if err := wire.Invoke(ctx, s.conn, "/gwp.SessionService/Reset", req, resp); err != nil {
		return gqlerr.Transport(err)
	}
	return nil
}

// Ping checks connectivity and returns the server's timestamp in Unix
// milliseconds.
func (s *Session) Ping(ctx context.Context) (int64, error) {
	req := &wire.PingRequest{SessionID: s.id}
	resp := &wire.PingResponse{}
	if err := wire.Invoke(ctx, s.conn, "/gwp.SessionService/Ping", req, resp); err != nil {
		return 0, gqlerr.Transport(err)
	}
	return resp.TimestampMillis, nil
}

// Close ends the session on the server.
func (s *Session) Close(ctx context.Context) error {
	req := &wire.CloseRequest{SessionID: s.id}
	resp := &wire.CloseResponse{}
	if err := wire.Invoke(ctx, s.conn, "/gwp.SessionService/Close", req, resp); err != nil {
		return gqlerr.Transport(err)
	}
	return nil
}
