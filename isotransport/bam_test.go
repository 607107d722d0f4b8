package isotransport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBAMRoundTripVaryingSizes(t *testing.T) {
	for _, size := range []int{9, 100, 223, 500, 1785} {
		data := make([]byte, size)
		for i := range data {
			data[i] = byte(i % 251)
		}

		cm, packets := SplitBAM(130824, 6, 5, data)

		h := NewBAMHandler()
		now := time.Now()
		require.NoError(t, h.OpenBAM(5, 6, cm, now))

		var got BAMMessage
		var done bool
		for _, p := range packets {
			var err error
			got, done, err = h.Packet(5, p, now)
			require.NoError(t, err)
		}
		require.True(t, done)
		require.Equal(t, data, got.Data[:size])
		require.Equal(t, uint32(130824), got.PGN)
	}
}

func TestBAMUnknownSession(t *testing.T) {
	h := NewBAMHandler()
	_, _, err := h.Packet(9, []byte{1, 0, 0, 0, 0, 0, 0, 0}, time.Now())
	require.ErrorIs(t, err, ErrUnknownSession)
}

func TestBAMExpire(t *testing.T) {
	h := NewBAMHandler()
	now := time.Now()
	cm, _ := SplitBAM(130824, 6, 5, make([]byte, 50))
	require.NoError(t, h.OpenBAM(5, 6, cm, now))

	dropped := h.Expire(now.Add(10 * time.Second))
	require.Equal(t, 1, dropped)
}
