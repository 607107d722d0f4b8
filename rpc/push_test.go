package rpc

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeInputServer struct {
	received []*Nmea2000
}

func (f *fakeInputServer) PushNMEA(ctx context.Context, in *NmeaMsg) (*Ack, error) {
	return &Ack{Accepted: true}, nil
}

func (f *fakeInputServer) PushNMEA2K(ctx context.Context, in *Nmea2000) (*Ack, error) {
	f.received = append(f.received, in)
	return &Ack{Accepted: true}, nil
}

func (f *fakeInputServer) PushDecodedNMEA2K(ctx context.Context, in *Nmea2000Decoded) (*Ack, error) {
	return &Ack{Accepted: true}, nil
}

func (f *fakeInputServer) Status(ctx context.Context, in *Cmd) (*Resp, error) {
	return &Resp{OK: true, Message: "running"}, nil
}

func TestInputServicePushNMEA2KEndToEnd(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	srv := NewServer()
	fake := &fakeInputServer{}
	srv.RegisterService(&InputServiceDesc, fake)
	go srv.Serve(ln)
	defer srv.Stop()

	conn, err := Dial(ln.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	client := NewInputClient(conn)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ack, err := client.PushNMEA2K(ctx, &Nmea2000{PGN: 130306, Priority: 2, SA: 1, DA: 255, Payload: []byte{9, 9}})
	require.NoError(t, err)
	require.True(t, ack.Accepted)
	require.Len(t, fake.received, 1)
	require.Equal(t, uint32(130306), fake.received[0].PGN)
}
