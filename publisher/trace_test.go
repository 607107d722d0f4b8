package publisher

import (
	"bufio"
	"bytes"
	"strings"
	"testing"

	"github.com/sterwen-tech/shipdataserver/envelope"
	"github.com/stretchr/testify/require"
)

func TestTracePublishWritesRAndMLinesForRaw2000(t *testing.T) {
	var buf bytes.Buffer
	tr := NewTraceWriter("trace0", nil, &buf)

	require.NoError(t, tr.Publish(&envelope.Raw2000{PGN: 127250, Priority: 2, Source: 1, Destination: 255, Data: []byte{0x01, 0x02}}))

	scanner := bufio.NewScanner(&buf)
	require.True(t, scanner.Scan())
	rLine := scanner.Text()
	require.True(t, scanner.Scan())
	mLine := scanner.Text()

	require.True(t, strings.HasPrefix(rLine, "R#0#"))
	require.Contains(t, rLine, "0102")
	require.True(t, strings.HasPrefix(mLine, "M#1#"))
	require.Contains(t, mLine, "pgn=127250")
}

func TestTracePublishWritesSentenceRawVerbatim(t *testing.T) {
	var buf bytes.Buffer
	tr := NewTraceWriter("trace0", nil, &buf)

	require.NoError(t, tr.Publish(&envelope.Sentence0183{Raw: "$GPGGA,1*4B"}))

	scanner := bufio.NewScanner(&buf)
	require.True(t, scanner.Scan())
	rLine := scanner.Text()

	require.True(t, strings.HasPrefix(rLine, "R#0#"))
	require.Contains(t, rLine, "$GPGGA,1*4B")
}

func TestTracePublishDecoded2000HasNoRLine(t *testing.T) {
	var buf bytes.Buffer
	tr := NewTraceWriter("trace0", nil, &buf)

	require.NoError(t, tr.Publish(&envelope.Decoded2000{PGN: 127250, Source: 1, Fields: map[string]any{"instance": uint64(1)}}))

	scanner := bufio.NewScanner(&buf)
	require.True(t, scanner.Scan())
	line := scanner.Text()
	require.True(t, strings.HasPrefix(line, "M#0#"))
	require.False(t, scanner.Scan())
}
