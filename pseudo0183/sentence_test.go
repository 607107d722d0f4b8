package pseudo0183

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPDGYRoundTrip(t *testing.T) {
	msg := Raw2000{PGN: 129029, Priority: 3, Source: 5, Destination: 255, TimestampMs: 1000, Data: []byte{1, 2, 3, 4}}
	sentence := EncodePDGY(msg)

	got, err := DecodePDGY(sentence)
	require.NoError(t, err)
	require.Equal(t, msg, got)
}

func TestPGNSTRoundTrip(t *testing.T) {
	msg := Raw2000{PGN: 127488, Priority: 2, Source: 9, Destination: 10, TimestampMs: 500, Data: []byte{0xAB, 0xCD}}
	sentence := EncodePGNST(msg)

	got, err := DecodePGNST(sentence)
	require.NoError(t, err)
	require.Equal(t, msg, got)
}

func TestMXPGNRoundTrip(t *testing.T) {
	msg := Raw2000{PGN: 0x1F201, Priority: 6, Source: 23, Destination: 255, Data: []byte{1, 2, 3, 4, 5, 6}}
	sentence := EncodeMXPGN(msg, false)

	got, err := DecodeMXPGN(sentence)
	require.NoError(t, err)
	require.Equal(t, msg.PGN, got.PGN)
	require.Equal(t, msg.Priority, got.Priority)
	require.Equal(t, msg.Source, got.Source)
	require.Equal(t, msg.Data, got.Data)
}

func TestChecksumMismatchDropped(t *testing.T) {
	msg := Raw2000{PGN: 129029, Priority: 3, Source: 5, Destination: 255, Data: []byte{1, 2}}
	sentence := EncodePDGY(msg)
	corrupted := sentence[:len(sentence)-4] + "00\r\n"

	_, err := DecodePDGY(corrupted)
	require.ErrorIs(t, err, ErrChecksum)
}

func TestMalformedSentenceMissingDelimiter(t *testing.T) {
	_, err := DecodePDGY("PDGY,1,2,3,4,5,AA==*00\r\n")
	require.ErrorIs(t, err, ErrMalformed)
}
