package rpc

import (
	"context"

	"google.golang.org/grpc"
)

// CANControllerServer is the CAN-controller service of spec §6:
// status, trace control, a filtered server-streaming read, and a
// client-streaming send.
type CANControllerServer interface {
	GetStatus(context.Context, *Cmd) (*Resp, error)
	StartTrace(context.Context, *Cmd) (*Resp, error)
	StopTrace(context.Context, *Cmd) (*Resp, error)
	ReadNmea2000Msg(*ReadReq, CANController_ReadNmea2000MsgServer) error
	SendNmea2000Msg(CANController_SendNmea2000MsgServer) error
}

// CANController_ReadNmea2000MsgServer is the server-side stream for
// ReadNmea2000Msg.
type CANController_ReadNmea2000MsgServer interface {
	Send(*Nmea2000) error
	grpc.ServerStream
}

type canControllerReadServer struct{ grpc.ServerStream }

func (s *canControllerReadServer) Send(m *Nmea2000) error { return s.ServerStream.SendMsg(m) }

// CANController_SendNmea2000MsgServer is the server-side stream for
// SendNmea2000Msg.
type CANController_SendNmea2000MsgServer interface {
	Recv() (*Nmea2000, error)
	SendAndClose(*Ack) error
	grpc.ServerStream
}

type canControllerSendServer struct{ grpc.ServerStream }

func (s *canControllerSendServer) Recv() (*Nmea2000, error) {
	m := new(Nmea2000)
	if err := s.ServerStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *canControllerSendServer) SendAndClose(ack *Ack) error { return s.ServerStream.SendMsg(ack) }

// CANControllerServiceDesc registers CANControllerServer on a
// *grpc.Server.
var CANControllerServiceDesc = grpc.ServiceDesc{
	ServiceName: "nmea.CANController",
	HandlerType: (*CANControllerServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "GetStatus", Handler: canGetStatusHandler},
		{MethodName: "StartTrace", Handler: canStartTraceHandler},
		{MethodName: "StopTrace", Handler: canStopTraceHandler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "ReadNmea2000Msg", Handler: canReadHandler, ServerStreams: true},
		{StreamName: "SendNmea2000Msg", Handler: canSendHandler, ClientStreams: true},
	},
}

func canGetStatusHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(Cmd)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CANControllerServer).GetStatus(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "nmea.CANController/GetStatus"}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(CANControllerServer).GetStatus(ctx, req.(*Cmd))
	})
}

func canStartTraceHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(Cmd)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CANControllerServer).StartTrace(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "nmea.CANController/StartTrace"}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(CANControllerServer).StartTrace(ctx, req.(*Cmd))
	})
}

func canStopTraceHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(Cmd)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(CANControllerServer).StopTrace(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "nmea.CANController/StopTrace"}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(CANControllerServer).StopTrace(ctx, req.(*Cmd))
	})
}

func canReadHandler(srv any, stream grpc.ServerStream) error {
	req := new(ReadReq)
	if err := stream.RecvMsg(req); err != nil {
		return err
	}
	return srv.(CANControllerServer).ReadNmea2000Msg(req, &canControllerReadServer{stream})
}

func canSendHandler(srv any, stream grpc.ServerStream) error {
	return srv.(CANControllerServer).SendNmea2000Msg(&canControllerSendServer{stream})
}

// CANControllerClient is the client stub for CANControllerServer.
type CANControllerClient struct {
	cc *grpc.ClientConn
}

// NewCANControllerClient wraps cc; see InputClient for codec
// requirements.
func NewCANControllerClient(cc *grpc.ClientConn) *CANControllerClient { return &CANControllerClient{cc: cc} }

func (c *CANControllerClient) GetStatus(ctx context.Context, in *Cmd) (*Resp, error) {
	out := new(Resp)
	if err := c.cc.Invoke(ctx, "/"+CANControllerServiceDesc.ServiceName+"/GetStatus", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *CANControllerClient) StartTrace(ctx context.Context, in *Cmd) (*Resp, error) {
	out := new(Resp)
	if err := c.cc.Invoke(ctx, "/"+CANControllerServiceDesc.ServiceName+"/StartTrace", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *CANControllerClient) StopTrace(ctx context.Context, in *Cmd) (*Resp, error) {
	out := new(Resp)
	if err := c.cc.Invoke(ctx, "/"+CANControllerServiceDesc.ServiceName+"/StopTrace", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

// CANController_ReadNmea2000MsgClient is the client-side stream for
// ReadNmea2000Msg.
type CANController_ReadNmea2000MsgClient interface {
	Recv() (*Nmea2000, error)
	grpc.ClientStream
}

type canControllerReadClient struct{ grpc.ClientStream }

func (c *canControllerReadClient) Recv() (*Nmea2000, error) {
	m := new(Nmea2000)
	if err := c.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (c *CANControllerClient) ReadNmea2000Msg(ctx context.Context, in *ReadReq) (CANController_ReadNmea2000MsgClient, error) {
	stream, err := c.cc.NewStream(ctx, &CANControllerServiceDesc.Streams[0], "/"+CANControllerServiceDesc.ServiceName+"/ReadNmea2000Msg")
	if err != nil {
		return nil, err
	}
	cs := &canControllerReadClient{stream}
	if err := cs.SendMsg(in); err != nil {
		return nil, err
	}
	if err := cs.CloseSend(); err != nil {
		return nil, err
	}
	return cs, nil
}

// CANController_SendNmea2000MsgClient is the client-side stream for
// SendNmea2000Msg.
type CANController_SendNmea2000MsgClient interface {
	Send(*Nmea2000) error
	CloseAndRecv() (*Ack, error)
	grpc.ClientStream
}

type canControllerSendClient struct{ grpc.ClientStream }

func (c *canControllerSendClient) Send(m *Nmea2000) error { return c.ClientStream.SendMsg(m) }

func (c *canControllerSendClient) CloseAndRecv() (*Ack, error) {
	if err := c.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	ack := new(Ack)
	if err := c.ClientStream.RecvMsg(ack); err != nil {
		return nil, err
	}
	return ack, nil
}

func (c *CANControllerClient) SendNmea2000Msg(ctx context.Context) (CANController_SendNmea2000MsgClient, error) {
	stream, err := c.cc.NewStream(ctx, &CANControllerServiceDesc.Streams[1], "/"+CANControllerServiceDesc.ServiceName+"/SendNmea2000Msg")
	if err != nil {
		return nil, err
	}
	return &canControllerSendClient{stream}, nil
}
