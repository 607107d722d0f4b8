package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/sterwen-tech/shipdataserver/envelope"
	"github.com/sterwen-tech/shipdataserver/internal"
	"github.com/sterwen-tech/shipdataserver/internal/message"
)

// KafkaConfig configures a Kafka publisher's writer, mirroring the
// teacher's egress.KafkaConfig field-for-field (egress/kafka.go).
type KafkaConfig struct {
	Brokers []string
	Topic   string

	Balancer     kafka.Balancer
	MaxAttempts  int
	BatchSize    int
	BatchBytes   int64
	BatchTimeout time.Duration
	WriteTimeout time.Duration
	RequiredAcks kafka.RequiredAcks
	Async        bool
	Compression  kafka.Compression
}

// DefaultKafkaConfig mirrors egress.DefaultKafkaConfig's defaults.
func DefaultKafkaConfig(brokers []string, topic string) *KafkaConfig {
	return &KafkaConfig{
		Brokers:      brokers,
		Topic:        topic,
		Balancer:     &kafka.RoundRobin{},
		MaxAttempts:  10,
		BatchSize:    100,
		BatchBytes:   1048576,
		BatchTimeout: time.Second,
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireNone,
		Async:        true,
		Compression:  kafka.Snappy,
	}
}

// kafkaRecord is the JSON payload written as a kafka.Message's value.
// No protobuf schema is named for this sink by spec §4.10, so the
// envelope is flattened into a plain JSON document.
type kafkaRecord struct {
	Coupler   string         `json:"coupler"`
	Kind      string         `json:"kind"`
	Timestamp time.Time      `json:"timestamp"`
	PGN       uint32         `json:"pgn,omitempty"`
	Source    uint8          `json:"source,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
	Raw       string         `json:"raw,omitempty"`
}

// Kafka publishes every message it receives as a JSON record on a
// topic, using a *kafka.Writer configured the way
// squadracorsepolito-acmetel's egress.KafkaStage configures one.
type Kafka struct {
	name    string
	sources []string
	writer  *kafka.Writer

	telemetry *internal.Telemetry
}

// NewKafka creates a Kafka publisher writing to cfg.Topic.
func NewKafka(name string, sources []string, cfg *KafkaConfig) *Kafka {
	return &Kafka{
		name:    name,
		sources: sources,
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     cfg.Balancer,
			MaxAttempts:  cfg.MaxAttempts,
			BatchSize:    cfg.BatchSize,
			BatchBytes:   cfg.BatchBytes,
			BatchTimeout: cfg.BatchTimeout,
			WriteTimeout: cfg.WriteTimeout,
			RequiredAcks: cfg.RequiredAcks,
			Async:        cfg.Async,
			Compression:  cfg.Compression,
		},
		telemetry: internal.NewTelemetry("publisher", name),
	}
}

// Name implements router.Publisher.
func (k *Kafka) Name() string { return k.name }

// Sources implements router.Publisher.
func (k *Kafka) Sources() []string { return k.sources }

// Close implements router.Publisher.
func (k *Kafka) Close() error { return k.writer.Close() }

// Publish writes msg as one kafka.Message keyed by coupler name. The
// writer's Balancer picks the partition; the default RoundRobin ignores
// the key, so one coupler's records may spread over several partitions.
func (k *Kafka) Publish(msg message.Message) error {
	rec := toKafkaRecord(msg)

	value, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("kafka publisher: marshal record: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), k.writer.WriteTimeout)
	defer cancel()

	if err := k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(rec.Coupler),
		Value: value,
	}); err != nil {
		k.telemetry.LogWarn("kafka publish failed", "err", err)
		return err
	}
	return nil
}

func toKafkaRecord(msg message.Message) kafkaRecord {
	switch m := msg.(type) {
	case *envelope.Raw2000:
		return kafkaRecord{Coupler: m.CouplerName, Kind: "n2k_raw", Timestamp: m.GetTimestamp(),
			PGN: m.PGN, Source: m.Source}
	case *envelope.Decoded2000:
		return kafkaRecord{Coupler: m.CouplerName, Kind: "n2k_decoded", Timestamp: m.GetTimestamp(),
			PGN: m.PGN, Source: m.Source, Fields: m.Fields}
	case *envelope.Sentence0183:
		return kafkaRecord{Coupler: m.CouplerName, Kind: "n0183", Timestamp: m.GetTimestamp(), Raw: m.Raw}
	case *envelope.Passthrough:
		return kafkaRecord{Coupler: m.CouplerName, Kind: "raw", Timestamp: m.GetTimestamp(),
			Raw: fmt.Sprintf("%x", m.Data)}
	default:
		return kafkaRecord{Kind: "unknown", Timestamp: msg.GetTimestamp()}
	}
}
