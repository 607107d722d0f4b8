package frame

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePDU1(t *testing.T) {
	// PGN 126208 (0x1EC00, PF=0xEC < 240) carries an explicit destination.
	h := Parse(0x19EC2105)
	require.Equal(t, uint32(0x01EC00), h.PGN)
	require.Equal(t, uint8(0x21), h.Destination)
	require.Equal(t, uint8(0x05), h.Source)
	require.Equal(t, uint8(6), h.Priority)
}

func TestParsePDU2(t *testing.T) {
	// PGN 129025 (0x1F801, PF=0xF8 >= 240) is always broadcast.
	h := Parse(0x09F80105)
	require.Equal(t, uint32(0x1F801), h.PGN)
	require.Equal(t, AddressGlobal, h.Destination)
	require.Equal(t, uint8(0x05), h.Source)
}

func TestRoundTrip(t *testing.T) {
	for _, h := range []Header{
		{PGN: 0x01EC00, Priority: 6, Source: 5, Destination: 0x21},
		{PGN: 0x1F801, Priority: 3, Source: 5, Destination: AddressGlobal},
	} {
		got := Parse(h.Uint32())
		require.Equal(t, h.PGN, got.PGN)
		require.Equal(t, h.Priority, got.Priority)
		require.Equal(t, h.Source, got.Source)
		require.Equal(t, h.Destination, got.Destination)
	}
}

func TestIsPDU2(t *testing.T) {
	require.False(t, IsPDU2(0x01EC00))
	require.True(t, IsPDU2(0x1F801))
}
