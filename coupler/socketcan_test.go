package coupler

import (
	"testing"
	"time"

	"github.com/sterwen-tech/shipdataserver/envelope"
	"github.com/sterwen-tech/shipdataserver/frame"
	"github.com/sterwen-tech/shipdataserver/isotransport"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeCANFrameRoundTrip(t *testing.T) {
	h := frame.Header{PGN: 0x1F513, Priority: 6, Source: 23, Destination: 255}
	data := []byte{1, 2, 3, 4, 5, 6, 7, 8}

	buf := encodeCANFrame(h, data)
	require.Len(t, buf, 16)

	got, gotData, err := decodeCANFrame(buf)
	require.NoError(t, err)
	require.Equal(t, h, got)
	require.Equal(t, data, gotData)
}

func TestDecodeCANFrameRejectsRTR(t *testing.T) {
	buf := make([]byte, 16)
	buf[3] = 0x40 // bit 30 of little-endian uint32, RTR flag
	_, _, err := decodeCANFrame(buf)
	require.Error(t, err)
}

func TestDecodeCANFrameRejectsErrorFrame(t *testing.T) {
	buf := make([]byte, 16)
	buf[3] = 0x20 // bit 29, ERR flag
	_, _, err := decodeCANFrame(buf)
	require.Error(t, err)
}

func TestDecodeCANFrameShortPayload(t *testing.T) {
	h := frame.Header{PGN: 0x1F801, Priority: 3, Source: 1, Destination: 255}
	buf := encodeCANFrame(h, []byte{9, 9})
	_, data, err := decodeCANFrame(buf)
	require.NoError(t, err)
	require.Equal(t, []byte{9, 9}, data)
}

func TestFeedBAMReassemblesAndEmits(t *testing.T) {
	sc := NewSocketCAN("can0", "can0", nil, nil, 0)
	now := time.Now()

	data := make([]byte, 12)
	for i := range data {
		data[i] = byte(i + 1)
	}
	cm, packets := isotransport.SplitBAM(130816, 6, 23, data)

	sc.feedBAM(frame.Header{PGN: isotransport.PGNTPCM, Priority: 6, Source: 23, Destination: frame.AddressGlobal}, cm, now)
	for _, p := range packets {
		sc.feedBAM(frame.Header{PGN: isotransport.PGNTPDT, Priority: 6, Source: 23, Destination: frame.AddressGlobal}, p, now)
	}

	select {
	case msg := <-sc.Messages():
		raw := msg.(*envelope.Raw2000)
		require.Equal(t, uint32(130816), raw.PGN)
		require.Equal(t, data, raw.Data)
	default:
		t.Fatal("expected a reassembled envelope")
	}
}
