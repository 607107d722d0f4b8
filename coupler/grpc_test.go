package coupler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sterwen-tech/shipdataserver/envelope"
	"github.com/sterwen-tech/shipdataserver/rpc"
)

func TestGRPCServerDeliversPushedNmea2000(t *testing.T) {
	g := NewGRPCServer("grpc0", "127.0.0.1:0")
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, g.Open(ctx))
	defer g.Close()
	go g.Run(ctx)

	ack, err := g.PushNMEA2K(ctx, &rpc.Nmea2000{PGN: 127250, SA: 3, Payload: []byte{1, 2}})
	require.NoError(t, err)
	require.True(t, ack.Accepted)

	select {
	case msg := <-g.Messages():
		raw, ok := msg.(*envelope.Raw2000)
		require.True(t, ok)
		require.Equal(t, uint32(127250), raw.PGN)
		require.Equal(t, uint8(3), raw.Source)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
}

func TestGRPCServerStatus(t *testing.T) {
	g := NewGRPCServer("grpc0", "127.0.0.1:0")
	resp, err := g.Status(context.Background(), &rpc.Cmd{Name: "status"})
	require.NoError(t, err)
	require.True(t, resp.OK)
	require.Equal(t, "grpc0", resp.Message)
}

func TestGRPCServerSendIsNoOp(t *testing.T) {
	g := NewGRPCServer("grpc0", "127.0.0.1:0")
	require.NoError(t, g.Send(context.Background(), &envelope.Passthrough{}))
}
