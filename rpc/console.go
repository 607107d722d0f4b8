package rpc

import (
	"context"

	"google.golang.org/grpc"
)

// ConsoleServer is the Console service of spec §6: overall status and
// a named command surface (`stop`, `start_coupler`).
type ConsoleServer interface {
	ServerStatus(context.Context, *Cmd) (*ServerStatusResp, error)
	ServerCmd(context.Context, *Cmd) (*Resp, error)
}

// ConsoleServiceDesc registers ConsoleServer on a *grpc.Server.
var ConsoleServiceDesc = grpc.ServiceDesc{
	ServiceName: "nmea.Console",
	HandlerType: (*ConsoleServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "ServerStatus", Handler: consoleServerStatusHandler},
		{MethodName: "ServerCmd", Handler: consoleServerCmdHandler},
	},
	Streams: []grpc.StreamDesc{},
}

func consoleServerStatusHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(Cmd)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ConsoleServer).ServerStatus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "nmea.Console/ServerStatus"}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(ConsoleServer).ServerStatus(ctx, req.(*Cmd))
	})
}

func consoleServerCmdHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(Cmd)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ConsoleServer).ServerCmd(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "nmea.Console/ServerCmd"}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(ConsoleServer).ServerCmd(ctx, req.(*Cmd))
	})
}

// ConsoleClient is the client stub for ConsoleServer.
type ConsoleClient struct {
	cc *grpc.ClientConn
}

// NewConsoleClient wraps cc; see InputClient for codec requirements.
func NewConsoleClient(cc *grpc.ClientConn) *ConsoleClient { return &ConsoleClient{cc: cc} }

func (c *ConsoleClient) ServerStatus(ctx context.Context, in *Cmd) (*ServerStatusResp, error) {
	out := new(ServerStatusResp)
	if err := c.cc.Invoke(ctx, "/"+ConsoleServiceDesc.ServiceName+"/ServerStatus", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ConsoleClient) ServerCmd(ctx context.Context, in *Cmd) (*Resp, error) {
	out := new(Resp)
	if err := c.cc.Invoke(ctx, "/"+ConsoleServiceDesc.ServiceName+"/ServerCmd", in, out); err != nil {
		return nil, err
	}
	return out, nil
}
