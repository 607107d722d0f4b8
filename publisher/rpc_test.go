package publisher

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sterwen-tech/shipdataserver/envelope"
	"github.com/sterwen-tech/shipdataserver/rpc"
)

type fakeInputServer struct {
	received []*rpc.Nmea2000
}

func (f *fakeInputServer) PushNMEA(ctx context.Context, in *rpc.NmeaMsg) (*rpc.Ack, error) {
	return &rpc.Ack{Accepted: true}, nil
}

func (f *fakeInputServer) PushNMEA2K(ctx context.Context, in *rpc.Nmea2000) (*rpc.Ack, error) {
	f.received = append(f.received, in)
	return &rpc.Ack{Accepted: true}, nil
}

func (f *fakeInputServer) PushDecodedNMEA2K(ctx context.Context, in *rpc.Nmea2000Decoded) (*rpc.Ack, error) {
	return &rpc.Ack{Accepted: true}, nil
}

func (f *fakeInputServer) Status(ctx context.Context, in *rpc.Cmd) (*rpc.Resp, error) {
	return &rpc.Resp{OK: true}, nil
}

func TestRPCPublisherPushesRaw2000(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	srv := rpc.NewServer()
	fake := &fakeInputServer{}
	srv.RegisterService(&rpc.InputServiceDesc, fake)
	go srv.Serve(ln)
	defer srv.Stop()

	pub := NewRPC("rpc0", []string{"can0"}, ln.Addr().String(), ConvertPassThru, time.Minute)
	defer pub.Close()

	require.Eventually(t, func() bool {
		return pub.Publish(&envelope.Raw2000{PGN: 127250, Source: 1, Data: []byte{1, 2}}) == nil && len(fake.received) == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.Equal(t, uint32(127250), fake.received[0].PGN)
}

func TestRPCPublisherDropsWhenNotReady(t *testing.T) {
	pub := &RPC{name: "rpc0", ready: false}
	err := pub.Publish(&envelope.Raw2000{PGN: 127250})
	require.NoError(t, err)
}

func TestRPCPublisherNameSources(t *testing.T) {
	pub := &RPC{name: "rpc0", sources: []string{"can0"}}
	require.Equal(t, "rpc0", pub.Name())
	require.Equal(t, []string{"can0"}, pub.Sources())
}
