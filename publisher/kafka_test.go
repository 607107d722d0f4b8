package publisher

import (
	"testing"
	"time"

	"github.com/sterwen-tech/shipdataserver/envelope"
	"github.com/stretchr/testify/require"
)

func TestDefaultKafkaConfig(t *testing.T) {
	cfg := DefaultKafkaConfig([]string{"broker:9092"}, "nmea")
	require.Equal(t, "nmea", cfg.Topic)
	require.Equal(t, 10, cfg.MaxAttempts)
	require.True(t, cfg.Async)
}

func TestToKafkaRecordRaw2000(t *testing.T) {
	rec := toKafkaRecord(&envelope.Raw2000{PGN: 130306, Source: 1, CouplerName: "can0"})
	require.Equal(t, "n2k_raw", rec.Kind)
	require.Equal(t, uint32(130306), rec.PGN)
	require.Equal(t, "can0", rec.Coupler)
}

func TestToKafkaRecordSentence0183(t *testing.T) {
	rec := toKafkaRecord(&envelope.Sentence0183{Raw: "$GPGGA,1*4B", CouplerName: "serial0"})
	require.Equal(t, "n0183", rec.Kind)
	require.Equal(t, "$GPGGA,1*4B", rec.Raw)
}

func TestKafkaNameSourcesClose(t *testing.T) {
	k := NewKafka("kafka0", []string{"can0"}, DefaultKafkaConfig([]string{"127.0.0.1:9092"}, "nmea"))
	require.Equal(t, "kafka0", k.Name())
	require.Equal(t, []string{"can0"}, k.Sources())
	require.NoError(t, k.Close())
}

func TestKafkaWriteTimeoutDefault(t *testing.T) {
	cfg := DefaultKafkaConfig(nil, "t")
	require.Equal(t, 10*time.Second, cfg.WriteTimeout)
}
