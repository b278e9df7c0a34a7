package wire

import (
	"context"

	"google.golang.org/grpc"
)

// SessionServer is implemented by the session-service handler (package
// internal/rpc) and dispatched to by SessionServiceDesc.
type SessionServer interface {
	Handshake(context.Context, *HandshakeRequest) (*HandshakeResponse, error)
	Configure(context.Context, *ConfigureRequest) (*ConfigureResponse, error)
	Reset(context.Context, *ResetRequest) (*ResetResponse, error)
	Ping(context.Context, *PingRequest) (*PingResponse, error)
	Close(context.Context, *CloseRequest) (*CloseResponse, error)
}

// GqlServer is implemented by the data-plane handler.
type GqlServer interface {
	Execute(*ExecuteRequest, ExecuteStream) error
	BeginTransaction(context.Context, *BeginTransactionRequest) (*BeginTransactionResponse, error)
	Commit(context.Context, *CommitRequest) (*CommitResponse, error)
	Rollback(context.Context, *RollbackRequest) (*RollbackResponse, error)
}

// ExecuteStream is the server-streaming sender for Execute, satisfied by
// grpc.ServerStream under the hood.
type ExecuteStream interface {
	Send(*ExecuteResponse) error
	Context() context.Context
}

type executeStream struct {
	grpc.ServerStream
}

func (s *executeStream) Send(resp *ExecuteResponse) error {
	return s.ServerStream.SendMsg(resp)
}

// DatabaseServer is implemented by the optional database-management handler.
type DatabaseServer interface {
	ListDatabases(context.Context, *ListDatabasesRequest) (*ListDatabasesResponse, error)
	CreateDatabase(context.Context, *CreateDatabaseRequest) (*CreateDatabaseResponse, error)
	DeleteDatabase(context.Context, *DeleteDatabaseRequest) (*DeleteDatabaseResponse, error)
	GetDatabaseInfo(context.Context, *GetDatabaseInfoRequest) (*GetDatabaseInfoResponse, error)
}

// AdminServer is implemented by the optional admin handler.
type AdminServer interface {
	GetDatabaseStats(context.Context, *GetDatabaseStatsRequest) (*GetDatabaseStatsResponse, error)
	WalStatus(context.Context, *WalStatusRequest) (*WalStatusResponse, error)
	WalCheckpoint(context.Context, *WalCheckpointRequest) (*WalCheckpointResponse, error)
	Validate(context.Context, *ValidateRequest) (*ValidateResponse, error)
	CreateIndex(context.Context, *CreateIndexRequest) (*CreateIndexResponse, error)
	DropIndex(context.Context, *DropIndexRequest) (*DropIndexResponse, error)
}

// SearchServer is implemented by the optional search handler.
type SearchServer interface {
	VectorSearch(context.Context, *VectorSearchRequest) (*VectorSearchResponse, error)
	TextSearch(context.Context, *TextSearchRequest) (*TextSearchResponse, error)
	HybridSearch(context.Context, *HybridSearchRequest) (*HybridSearchResponse, error)
}

// --- SessionService ---

func RegisterSessionServer(s *grpc.Server, srv SessionServer) {
	s.RegisterService(&sessionServiceDesc, srv)
}

var sessionServiceDesc = grpc.ServiceDesc{
	ServiceName: "gwp.SessionService",
	HandlerType: (*SessionServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Handshake", Handler: sessionHandshakeHandler},
		{MethodName: "Configure", Handler: sessionConfigureHandler},
		{MethodName: "Reset", Handler: sessionResetHandler},
		{MethodName: "Ping", Handler: sessionPingHandler},
		{MethodName: "Close", Handler: sessionCloseHandler},
	},
}

func sessionHandshakeHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(HandshakeRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SessionServer).Handshake(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/gwp.SessionService/Handshake"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SessionServer).Handshake(ctx, req.(*HandshakeRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func sessionConfigureHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ConfigureRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SessionServer).Configure(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/gwp.SessionService/Configure"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SessionServer).Configure(ctx, req.(*ConfigureRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func sessionResetHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ResetRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SessionServer).Reset(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/gwp.SessionService/Reset"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SessionServer).Reset(ctx, req.(*ResetRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func sessionPingHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(PingRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SessionServer).Ping(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/gwp.SessionService/Ping"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SessionServer).Ping(ctx, req.(*PingRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func sessionCloseHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(CloseRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SessionServer).Close(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/gwp.SessionService/Close"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SessionServer).Close(ctx, req.(*CloseRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// --- GqlService ---

func RegisterGqlServer(s *grpc.Server, srv GqlServer) {
	s.RegisterService(&gqlServiceDesc, srv)
}

var gqlServiceDesc = grpc.ServiceDesc{
	ServiceName: "gwp.GqlService",
	HandlerType: (*GqlServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "BeginTransaction", Handler: gqlBeginHandler},
		{MethodName: "Commit", Handler: gqlCommitHandler},
		{MethodName: "Rollback", Handler: gqlRollbackHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Execute", Handler: gqlExecuteHandler, ServerStreams: true},
	},
}

func gqlExecuteHandler(srv any, stream grpc.ServerStream) error {
	in := new(ExecuteRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(GqlServer).Execute(in, &executeStream{stream})
}

func gqlBeginHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(BeginTransactionRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(GqlServer).BeginTransaction(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/gwp.GqlService/BeginTransaction"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(GqlServer).BeginTransaction(ctx, req.(*BeginTransactionRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func gqlCommitHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(CommitRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(GqlServer).Commit(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/gwp.GqlService/Commit"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(GqlServer).Commit(ctx, req.(*CommitRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func gqlRollbackHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(RollbackRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(GqlServer).Rollback(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/gwp.GqlService/Rollback"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(GqlServer).Rollback(ctx, req.(*RollbackRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// --- DatabaseService ---

func RegisterDatabaseServer(s *grpc.Server, srv DatabaseServer) {
	s.RegisterService(&databaseServiceDesc, srv)
}

var databaseServiceDesc = grpc.ServiceDesc{
	ServiceName: "gwp.DatabaseService",
	HandlerType: (*DatabaseServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ListDatabases", Handler: dbListHandler},
		{MethodName: "CreateDatabase", Handler: dbCreateHandler},
		{MethodName: "DeleteDatabase", Handler: dbDeleteHandler},
		{MethodName: "GetDatabaseInfo", Handler: dbInfoHandler},
	},
}

func dbListHandler(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	in := new(ListDatabasesRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	return srv.(DatabaseServer).ListDatabases(ctx, in)
}

func dbCreateHandler(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	in := new(CreateDatabaseRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	return srv.(DatabaseServer).CreateDatabase(ctx, in)
}

func dbDeleteHandler(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	in := new(DeleteDatabaseRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	return srv.(DatabaseServer).DeleteDatabase(ctx, in)
}

func dbInfoHandler(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetDatabaseInfoRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	return srv.(DatabaseServer).GetDatabaseInfo(ctx, in)
}

// --- AdminService ---

func RegisterAdminServer(s *grpc.Server, srv AdminServer) {
	s.RegisterService(&adminServiceDesc, srv)
}

var adminServiceDesc = grpc.ServiceDesc{
	ServiceName: "gwp.AdminService",
	HandlerType: (*AdminServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetDatabaseStats", Handler: adminStatsHandler},
		{MethodName: "WalStatus", Handler: adminWalStatusHandler},
		{MethodName: "WalCheckpoint", Handler: adminWalCheckpointHandler},
		{MethodName: "Validate", Handler: adminValidateHandler},
		{MethodName: "CreateIndex", Handler: adminCreateIndexHandler},
		{MethodName: "DropIndex", Handler: adminDropIndexHandler},
	},
}

func adminStatsHandler(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	in := new(GetDatabaseStatsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	return srv.(AdminServer).GetDatabaseStats(ctx, in)
}

func adminWalStatusHandler(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	in := new(WalStatusRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	return srv.(AdminServer).WalStatus(ctx, in)
}

func adminWalCheckpointHandler(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	in := new(WalCheckpointRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	return srv.(AdminServer).WalCheckpoint(ctx, in)
}

func adminValidateHandler(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	in := new(ValidateRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	return srv.(AdminServer).Validate(ctx, in)
}

func adminCreateIndexHandler(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	in := new(CreateIndexRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	return srv.(AdminServer).CreateIndex(ctx, in)
}

func adminDropIndexHandler(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	in := new(DropIndexRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	return srv.(AdminServer).DropIndex(ctx, in)
}

// --- SearchService ---

func RegisterSearchServer(s *grpc.Server, srv SearchServer) {
	s.RegisterService(&searchServiceDesc, srv)
}

var searchServiceDesc = grpc.ServiceDesc{
	ServiceName: "gwp.SearchService",
	HandlerType: (*SearchServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "VectorSearch", Handler: searchVectorHandler},
		{MethodName: "TextSearch", Handler: searchTextHandler},
		{MethodName: "HybridSearch", Handler: searchHybridHandler},
	},
}

func searchVectorHandler(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	in := new(VectorSearchRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	return srv.(SearchServer).VectorSearch(ctx, in)
}

func searchTextHandler(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	in := new(TextSearchRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	return srv.(SearchServer).TextSearch(ctx, in)
}

func searchHybridHandler(srv any, ctx context.Context, dec func(any) error, _ grpc.UnaryServerInterceptor) (any, error) {
	in := new(HybridSearchRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	return srv.(SearchServer).HybridSearch(ctx, in)
}

// --- client-side dial helpers ---

// NewClientConn wraps grpc.DialContext, forcing the gob codec as the default
// call content-subtype so client stubs built on this package interoperate
// with the hand-built ServiceDesc values above without protoc-generated
// stubs on either side.
func NewClientConn(ctx context.Context, target string, opts ...grpc.DialOption) (*grpc.ClientConn, error) {
	opts = append(opts, grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)))
	return grpc.DialContext(ctx, target, opts...)
}

// Invoke issues a unary RPC using method and the gob codec.
func Invoke(ctx context.Context, cc *grpc.ClientConn, method string, in, out any) error {
	return cc.Invoke(ctx, method, in, out)
}

// NewExecuteClientStream opens the server-streaming Execute RPC.
func NewExecuteClientStream(ctx context.Context, cc *grpc.ClientConn, req *ExecuteRequest) (grpc.ClientStream, error) {
	desc := &grpc.StreamDesc{StreamName: "Execute", ServerStreams: true}
	stream, err := cc.NewStream(ctx, desc, "/gwp.GqlService/Execute")
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(req); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return stream, nil
}
