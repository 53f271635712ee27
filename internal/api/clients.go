package api

import (
	"context"

	"google.golang.org/grpc"
)

func invoke[Req any, Resp any](ctx context.Context, cc grpc.ClientConnInterface, service, method string, in *Req, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	if err := cc.Invoke(ctx, "/"+service+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func openStream[Req any, Resp any](ctx context.Context, cc grpc.ClientConnInterface, desc *grpc.ServiceDesc, index int, in *Req, opts []grpc.CallOption) (grpc.ServerStreamingClient[Resp], error) {
	sd := &desc.Streams[index]
	stream, err := cc.NewStream(ctx, sd, "/"+desc.ServiceName+"/"+sd.StreamName, opts...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[Req, Resp]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

// SessionClient is the client API for candle.v1.SessionService.
type SessionClient struct {
	cc grpc.ClientConnInterface
}

func NewSessionClient(cc grpc.ClientConnInterface) *SessionClient { return &SessionClient{cc} }

func (c *SessionClient) GetStatus(ctx context.Context, in *GetStatusRequest, opts ...grpc.CallOption) (*StatusResponse, error) {
	return invoke[GetStatusRequest, StatusResponse](ctx, c.cc, SessionServiceName, "GetStatus", in, opts)
}

func (c *SessionClient) SignIn(ctx context.Context, in *SignInRequest, opts ...grpc.CallOption) (*SignInResponse, error) {
	return invoke[SignInRequest, SignInResponse](ctx, c.cc, SessionServiceName, "SignIn", in, opts)
}

func (c *SessionClient) SignOut(ctx context.Context, in *SignOutRequest, opts ...grpc.CallOption) (*SignOutResponse, error) {
	return invoke[SignOutRequest, SignOutResponse](ctx, c.cc, SessionServiceName, "SignOut", in, opts)
}

func (c *SessionClient) Pair(ctx context.Context, in *PairRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[PairEvent], error) {
	return openStream[PairRequest, PairEvent](ctx, c.cc, &SessionServiceDesc, 0, in, opts)
}

// DebtClient is the client API for candle.v1.DebtService.
type DebtClient struct {
	cc grpc.ClientConnInterface
}

func NewDebtClient(cc grpc.ClientConnInterface) *DebtClient { return &DebtClient{cc} }

func (c *DebtClient) ComputeDebts(ctx context.Context, in *ComputeDebtsRequest, opts ...grpc.CallOption) (*ComputeDebtsResponse, error) {
	return invoke[ComputeDebtsRequest, ComputeDebtsResponse](ctx, c.cc, DebtServiceName, "ComputeDebts", in, opts)
}

func (c *DebtClient) RecordTransaction(ctx context.Context, in *RecordTransactionRequest, opts ...grpc.CallOption) (*RecordTransactionResponse, error) {
	return invoke[RecordTransactionRequest, RecordTransactionResponse](ctx, c.cc, DebtServiceName, "RecordTransaction", in, opts)
}

func (c *DebtClient) MarkPaid(ctx context.Context, in *MarkPaidRequest, opts ...grpc.CallOption) (*MarkPaidResponse, error) {
	return invoke[MarkPaidRequest, MarkPaidResponse](ctx, c.cc, DebtServiceName, "MarkPaid", in, opts)
}

// PresenceClient is the client API for candle.v1.PresenceService.
type PresenceClient struct {
	cc grpc.ClientConnInterface
}

func NewPresenceClient(cc grpc.ClientConnInterface) *PresenceClient { return &PresenceClient{cc} }

func (c *PresenceClient) SendTyping(ctx context.Context, in *SendTypingRequest, opts ...grpc.CallOption) (*SendTypingResponse, error) {
	return invoke[SendTypingRequest, SendTypingResponse](ctx, c.cc, PresenceServiceName, "SendTyping", in, opts)
}

func (c *PresenceClient) IsTyping(ctx context.Context, in *IsTypingRequest, opts ...grpc.CallOption) (*IsTypingResponse, error) {
	return invoke[IsTypingRequest, IsTypingResponse](ctx, c.cc, PresenceServiceName, "IsTyping", in, opts)
}

func (c *PresenceClient) WatchTyping(ctx context.Context, in *WatchTypingRequest, opts ...grpc.CallOption) (grpc.ServerStreamingClient[TypingEvent], error) {
	return openStream[WatchTypingRequest, TypingEvent](ctx, c.cc, &PresenceServiceDesc, 0, in, opts)
}
