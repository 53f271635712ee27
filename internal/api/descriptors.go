package api

import (
	"context"

	"google.golang.org/grpc"
)

// Fully-qualified service names.
const (
	SessionServiceName  = "candle.v1.SessionService"
	DebtServiceName     = "candle.v1.DebtService"
	PresenceServiceName = "candle.v1.PresenceService"
)

// SessionServer is the server API for candle.v1.SessionService.
type SessionServer interface {
	GetStatus(context.Context, *GetStatusRequest) (*StatusResponse, error)
	SignIn(context.Context, *SignInRequest) (*SignInResponse, error)
	SignOut(context.Context, *SignOutRequest) (*SignOutResponse, error)
	Pair(*PairRequest, grpc.ServerStreamingServer[PairEvent]) error
}

// DebtServer is the server API for candle.v1.DebtService.
type DebtServer interface {
	ComputeDebts(context.Context, *ComputeDebtsRequest) (*ComputeDebtsResponse, error)
	RecordTransaction(context.Context, *RecordTransactionRequest) (*RecordTransactionResponse, error)
	MarkPaid(context.Context, *MarkPaidRequest) (*MarkPaidResponse, error)
}

// PresenceServer is the server API for candle.v1.PresenceService.
type PresenceServer interface {
	SendTyping(context.Context, *SendTypingRequest) (*SendTypingResponse, error)
	IsTyping(context.Context, *IsTypingRequest) (*IsTypingResponse, error)
	WatchTyping(*WatchTypingRequest, grpc.ServerStreamingServer[TypingEvent]) error
}

// unary builds a method handler that decodes Req and calls fn on the
// service implementation S.
func unary[S any, Req any, Resp any](service, method string, fn func(S, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return fn(srv.(S), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + service + "/" + method}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return fn(srv.(S), ctx, req.(*Req))
			})
		},
	}
}

// serverStream builds a server-streaming handler.
func serverStream[S any, Req any, Resp any](method string, fn func(S, *Req, grpc.ServerStreamingServer[Resp]) error) grpc.StreamDesc {
	return grpc.StreamDesc{
		StreamName: method,
		Handler: func(srv any, stream grpc.ServerStream) error {
			in := new(Req)
			if err := stream.RecvMsg(in); err != nil {
				return err
			}
			return fn(srv.(S), in, &grpc.GenericServerStream[Req, Resp]{ServerStream: stream})
		},
		ServerStreams: true,
	}
}

var SessionServiceDesc = grpc.ServiceDesc{
	ServiceName: SessionServiceName,
	HandlerType: (*SessionServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(SessionServiceName, "GetStatus", SessionServer.GetStatus),
		unary(SessionServiceName, "SignIn", SessionServer.SignIn),
		unary(SessionServiceName, "SignOut", SessionServer.SignOut),
	},
	Streams: []grpc.StreamDesc{
		serverStream("Pair", SessionServer.Pair),
	},
	Metadata: "candle/v1/session.proto",
}

var DebtServiceDesc = grpc.ServiceDesc{
	ServiceName: DebtServiceName,
	HandlerType: (*DebtServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(DebtServiceName, "ComputeDebts", DebtServer.ComputeDebts),
		unary(DebtServiceName, "RecordTransaction", DebtServer.RecordTransaction),
		unary(DebtServiceName, "MarkPaid", DebtServer.MarkPaid),
	},
	Metadata: "candle/v1/debt.proto",
}

var PresenceServiceDesc = grpc.ServiceDesc{
	ServiceName: PresenceServiceName,
	HandlerType: (*PresenceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(PresenceServiceName, "SendTyping", PresenceServer.SendTyping),
		unary(PresenceServiceName, "IsTyping", PresenceServer.IsTyping),
	},
	Streams: []grpc.StreamDesc{
		serverStream("WatchTyping", PresenceServer.WatchTyping),
	},
	Metadata: "candle/v1/presence.proto",
}

// Register adds the candle.v1 services to s.
func Register(s grpc.ServiceRegistrar, session SessionServer, debts DebtServer, presence PresenceServer) {
	s.RegisterService(&SessionServiceDesc, session)
	s.RegisterService(&DebtServiceDesc, debts)
	s.RegisterService(&PresenceServiceDesc, presence)
}
