package rpc

import (
	"context"

	"google.golang.org/grpc"
)

// PullServer is the pull service of spec §6, `NMEAServer`.
type PullServer interface {
	GetNMEA(*Cmd, PullServer_GetNMEAServer) error
}

// PullServer_GetNMEAServer is the server-side stream for GetNMEA.
type PullServer_GetNMEAServer interface {
	Send(*NmeaMsg) error
	grpc.ServerStream
}

type pullServerGetNMEAServer struct {
	grpc.ServerStream
}

func (s *pullServerGetNMEAServer) Send(m *NmeaMsg) error { return s.ServerStream.SendMsg(m) }

// PullServiceDesc registers PullServer on a *grpc.Server.
var PullServiceDesc = grpc.ServiceDesc{
	ServiceName: "nmea.NMEAServer",
	HandlerType: (*PullServer)(nil),
	Methods:     []grpc.MethodDesc{},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "getNMEA",
			Handler:       pullGetNMEAHandler,
			ServerStreams: true,
		},
	},
}

func pullGetNMEAHandler(srv any, stream grpc.ServerStream) error {
	cmd := new(Cmd)
	if err := stream.RecvMsg(cmd); err != nil {
		return err
	}
	return srv.(PullServer).GetNMEA(cmd, &pullServerGetNMEAServer{stream})
}

// PullClient is the client stub for PullServer.
type PullClient struct {
	cc *grpc.ClientConn
}

// NewPullClient wraps cc; see InputClient for codec requirements.
func NewPullClient(cc *grpc.ClientConn) *PullClient { return &PullClient{cc: cc} }

// PullClient_GetNMEAClient is the client-side stream for GetNMEA.
type PullClient_GetNMEAClient interface {
	Recv() (*NmeaMsg, error)
	grpc.ClientStream
}

type pullClientGetNMEAClient struct {
	grpc.ClientStream
}

func (c *pullClientGetNMEAClient) Recv() (*NmeaMsg, error) {
	m := new(NmeaMsg)
	if err := c.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *PullClient) GetNMEA(ctx context.Context, in *Cmd) (PullClient_GetNMEAClient, error) {
	stream, err := c.cc.NewStream(ctx, &PullServiceDesc.Streams[0], "/"+PullServiceDesc.ServiceName+"/getNMEA")
	if err != nil {
		return nil, err
	}
	cs := &pullClientGetNMEAClient{stream}
	if err := cs.SendMsg(in); err != nil {
		return nil, err
	}
	if err := cs.CloseSend(); err != nil {
		return nil, err
	}
	return cs, nil
}
