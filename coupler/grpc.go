package coupler

import (
	"context"
	"net"
	"time"

	"google.golang.org/grpc"

	"github.com/sterwen-tech/shipdataserver/envelope"
	"github.com/sterwen-tech/shipdataserver/internal/message"
	"github.com/sterwen-tech/shipdataserver/router"
	"github.com/sterwen-tech/shipdataserver/rpc"
)

// GRPCServer is a read-only coupler that receives envelopes pushed over
// spec §6's NMEAInputServer RPC instead of reading a device. Grounded on
// original_source/navigation_server/couplers/grpc_nmea_coupler.py's
// GrpcNmeaCoupler, which wraps a GrpcDataService the same way.
type GRPCServer struct {
	Base

	addr     string
	listener net.Listener
	server   *grpc.Server
}

// NewGRPCServer creates a GRPCServer bound to addr once Open is called.
func NewGRPCServer(name, addr string) *GRPCServer {
	return &GRPCServer{
		Base: NewBase(name, router.DirectionReadOnly, 64, 0),
		addr: addr,
	}
}

// Open binds the listener and starts serving the InputServer RPC.
func (g *GRPCServer) Open(ctx context.Context) error {
	ln, err := net.Listen("tcp", g.addr)
	if err != nil {
		return err
	}
	g.listener = ln
	g.server = rpc.NewServer()
	g.server.RegisterService(&rpc.InputServiceDesc, g)
	go g.server.Serve(ln)
	return nil
}

// Run blocks until ctx is done, then stops the RPC server.
func (g *GRPCServer) Run(ctx context.Context) error {
	<-ctx.Done()
	g.server.GracefulStop()
	return nil
}

// Send is a no-op: GRPCServer only accepts inbound pushes.
func (g *GRPCServer) Send(ctx context.Context, msg message.Message) error { return nil }

// Close stops the RPC server and releases the listener.
func (g *GRPCServer) Close() error {
	if g.server != nil {
		g.server.Stop()
	}
	return nil
}

// PushNMEA implements rpc.InputServer.
func (g *GRPCServer) PushNMEA(ctx context.Context, in *rpc.NmeaMsg) (*rpc.Ack, error) {
	now := time.Now()
	switch {
	case in.N2K != nil:
		g.emitRaw2000(in.N2K, now)
	case in.N0183 != nil:
		g.emitSentence0183(in.N0183, now)
	}
	return &rpc.Ack{Accepted: true}, nil
}

// PushNMEA2K implements rpc.InputServer.
func (g *GRPCServer) PushNMEA2K(ctx context.Context, in *rpc.Nmea2000) (*rpc.Ack, error) {
	g.emitRaw2000(in, time.Now())
	return &rpc.Ack{Accepted: true}, nil
}

// PushDecodedNMEA2K implements rpc.InputServer.
func (g *GRPCServer) PushDecodedNMEA2K(ctx context.Context, in *rpc.Nmea2000Decoded) (*rpc.Ack, error) {
	msg := &envelope.Decoded2000{
		PGN:         in.PGN,
		Priority:    in.Priority,
		Source:      in.SA,
		Destination: in.DA,
		Fields:      in.Fields,
		CouplerName: g.Name(),
	}
	msg.SetTimestamp(in.Timestamp)
	g.emit(msg, time.Now())
	return &rpc.Ack{Accepted: true}, nil
}

// Status implements rpc.InputServer.
func (g *GRPCServer) Status(ctx context.Context, in *rpc.Cmd) (*rpc.Resp, error) {
	return &rpc.Resp{OK: true, Message: g.Name()}, nil
}

func (g *GRPCServer) emitRaw2000(in *rpc.Nmea2000, at time.Time) {
	msg := &envelope.Raw2000{
		PGN:         in.PGN,
		Priority:    in.Priority,
		Source:      in.SA,
		Destination: in.DA,
		Data:        in.Payload,
		CouplerName: g.Name(),
	}
	msg.SetTimestamp(in.Timestamp)
	g.emit(msg, at)
}

func (g *GRPCServer) emitSentence0183(in *rpc.Nmea0183, at time.Time) {
	msg := &envelope.Sentence0183{
		Address:     in.Talker + in.Formatter,
		Fields:      in.Values,
		Raw:         string(in.Raw),
		CouplerName: g.Name(),
	}
	msg.SetTimestamp(in.Timestamp)
	g.emit(msg, at)
}

var _ rpc.InputServer = (*GRPCServer)(nil)
