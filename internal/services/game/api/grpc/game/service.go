package game

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/structpb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "storydeck.game.v1.GameService"

// Full method names.
const (
	CreateSessionMethod = "/" + ServiceName + "/CreateSession"
	JoinSessionMethod   = "/" + ServiceName + "/JoinSession"
	GetSessionMethod    = "/" + ServiceName + "/GetSession"
	ApplyActionMethod   = "/" + ServiceName + "/ApplyAction"
	ListTurnsMethod     = "/" + ServiceName + "/ListTurns"
)

// IsReadMethod reports whether fullMethod never mutates a session.
func IsReadMethod(fullMethod string) bool {
	switch fullMethod {
	case GetSessionMethod, ListTurnsMethod:
		return true
	default:
		return false
	}
}

// GameServiceServer is the server API for GameService.
type GameServiceServer interface {
	CreateSession(context.Context, *structpb.Struct) (*structpb.Struct, error)
	JoinSession(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetSession(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ApplyAction(context.Context, *structpb.Struct) (*structpb.Struct, error)
	ListTurns(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type unaryCall func(GameServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call unaryCall) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(GameServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(GameServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ServiceDesc is the grpc.ServiceDesc for GameService.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*GameServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "CreateSession", Handler: unaryHandler(CreateSessionMethod, GameServiceServer.CreateSession)},
		{MethodName: "JoinSession", Handler: unaryHandler(JoinSessionMethod, GameServiceServer.JoinSession)},
		{MethodName: "GetSession", Handler: unaryHandler(GetSessionMethod, GameServiceServer.GetSession)},
		{MethodName: "ApplyAction", Handler: unaryHandler(ApplyActionMethod, GameServiceServer.ApplyAction)},
		{MethodName: "ListTurns", Handler: unaryHandler(ListTurnsMethod, GameServiceServer.ListTurns)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "storydeck/game/v1/game.proto",
}

// RegisterGameServiceServer registers srv on s.
func RegisterGameServiceServer(s grpc.ServiceRegistrar, srv GameServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}
