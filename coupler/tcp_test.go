package coupler

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/sterwen-tech/shipdataserver/envelope"
	"github.com/stretchr/testify/require"
)

func TestTCPOpenAndRunDeliversSentence(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		_, _ = conn.Write([]byte("$GPGGA,1,2,3*4B\r\n"))
		time.Sleep(50 * time.Millisecond)
	}()

	c := NewTCP("tcp0", ln.Addr().String(), FramingNMEA0183, time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, c.Open(ctx))
	go c.Run(ctx)

	select {
	case msg := <-c.Messages():
		sent, ok := msg.(*envelope.Sentence0183)
		require.True(t, ok)
		require.Equal(t, "GPGGA", sent.Address)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for sentence")
	}
}

func TestTCPOpenFailsOnBadAddress(t *testing.T) {
	c := NewTCP("tcp0", "127.0.0.1:1", FramingNMEA0183, 50*time.Millisecond)
	err := c.Open(context.Background())
	require.Error(t, err)
}
