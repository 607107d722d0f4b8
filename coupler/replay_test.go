package coupler

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sterwen-tech/shipdataserver/envelope"
	"github.com/stretchr/testify/require"
)

func TestParseReplayLine(t *testing.T) {
	rec, err := parseReplayLine("R#0#2024-01-01 12:00:00.000000>$GPGGA,1,2,3*4B")
	require.NoError(t, err)
	require.Equal(t, byte('R'), rec.kind)
	require.Equal(t, "$GPGGA,1,2,3*4B", rec.raw)
	require.Equal(t, 2024, rec.at.Year())
}

func TestParseReplayLineRejectsMissingPrefix(t *testing.T) {
	_, err := parseReplayLine("X#0#bad")
	require.Error(t, err)
}

func TestParseReplayLineAcceptsMKind(t *testing.T) {
	rec, err := parseReplayLine("M#1#2024-01-01 12:00:00.000000>N2K pgn=127250")
	require.NoError(t, err)
	require.Equal(t, byte('M'), rec.kind)
}

func TestReplayRunSkipsMRecords(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trace.log")
	content := "H|ShipModulInterface\n" +
		"R#0#2024-01-01 12:00:00.000000>$GPGGA,1*4B\n" +
		"M#1#2024-01-01 12:00:00.000000>N2K pgn=127250\n" +
		"R#2#2024-01-01 12:00:00.500000>$GPRMC,2*4B\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	r := NewReplay("replay0", path, FramingNMEA0183, 0)
	require.NoError(t, r.Open(context.Background()))
	defer r.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	first := <-r.Messages()
	second := <-r.Messages()
	require.Equal(t, "$GPGGA,1*4B", first.(*envelope.Sentence0183).Raw)
	require.Equal(t, "$GPRMC,2*4B", second.(*envelope.Sentence0183).Raw)
	require.NoError(t, <-done)
}
