package rpc

import (
	"context"

	"google.golang.org/grpc"
)

// InputServer is the push service of spec §6, `NMEAInputServer`.
type InputServer interface {
	PushNMEA(context.Context, *NmeaMsg) (*Ack, error)
	PushNMEA2K(context.Context, *Nmea2000) (*Ack, error)
	PushDecodedNMEA2K(context.Context, *Nmea2000Decoded) (*Ack, error)
	Status(context.Context, *Cmd) (*Resp, error)
}

// InputServiceDesc registers InputServer on a *grpc.Server. The server
// must be constructed with grpc.ForceServerCodec(gobCodec{}) for the
// wire format to match InputClient.
var InputServiceDesc = grpc.ServiceDesc{
	ServiceName: "nmea.NMEAInputServer",
	HandlerType: (*InputServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "pushNMEA", Handler: pushNMEAHandler},
		{MethodName: "pushNMEA2K", Handler: pushNMEA2KHandler},
		{MethodName: "pushDecodedNMEA2K", Handler: pushDecodedNMEA2KHandler},
		{MethodName: "status", Handler: inputStatusHandler},
	},
	Streams: []grpc.StreamDesc{},
}

func pushNMEAHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(NmeaMsg)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(InputServer).PushNMEA(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "nmea.NMEAInputServer/pushNMEA"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(InputServer).PushNMEA(ctx, req.(*NmeaMsg))
	}
	return interceptor(ctx, in, info, handler)
}

func pushNMEA2KHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(Nmea2000)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(InputServer).PushNMEA2K(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "nmea.NMEAInputServer/pushNMEA2K"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(InputServer).PushNMEA2K(ctx, req.(*Nmea2000))
	}
	return interceptor(ctx, in, info, handler)
}

func pushDecodedNMEA2KHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(Nmea2000Decoded)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(InputServer).PushDecodedNMEA2K(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "nmea.NMEAInputServer/pushDecodedNMEA2K"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(InputServer).PushDecodedNMEA2K(ctx, req.(*Nmea2000Decoded))
	}
	return interceptor(ctx, in, info, handler)
}

func inputStatusHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(Cmd)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(InputServer).Status(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "nmea.NMEAInputServer/status"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(InputServer).Status(ctx, req.(*Cmd))
	}
	return interceptor(ctx, in, info, handler)
}

// InputClient is the client stub for InputServer.
type InputClient struct {
	cc *grpc.ClientConn
}

// NewInputClient wraps cc, which must have been dialed with
// grpc.WithDefaultCallOptions(grpc.ForceCodec(gobCodec{})).
func NewInputClient(cc *grpc.ClientConn) *InputClient { return &InputClient{cc: cc} }

func (c *InputClient) PushNMEA(ctx context.Context, in *NmeaMsg) (*Ack, error) {
	out := new(Ack)
	if err := c.cc.Invoke(ctx, "/"+InputServiceDesc.ServiceName+"/pushNMEA", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *InputClient) PushNMEA2K(ctx context.Context, in *Nmea2000) (*Ack, error) {
	out := new(Ack)
	if err := c.cc.Invoke(ctx, "/"+InputServiceDesc.ServiceName+"/pushNMEA2K", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *InputClient) PushDecodedNMEA2K(ctx context.Context, in *Nmea2000Decoded) (*Ack, error) {
	out := new(Ack)
	if err := c.cc.Invoke(ctx, "/"+InputServiceDesc.ServiceName+"/pushDecodedNMEA2K", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *InputClient) Status(ctx context.Context, in *Cmd) (*Resp, error) {
	out := new(Resp)
	if err := c.cc.Invoke(ctx, "/"+InputServiceDesc.ServiceName+"/status", in, out); err != nil {
		return nil, err
	}
	return out, nil
}
