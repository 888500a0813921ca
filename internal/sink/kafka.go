package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	obix "github.com/cstbox/ext-obix"
	"github.com/cstbox/ext-obix/config"
)

const kafkaWriteTimeout = 10 * time.Second

// KafkaSink publishes events to a Kafka topic, keyed by canonical variable
// name so events for one variable stay ordered within a partition.
type KafkaSink struct {
	writer *kafka.Writer
	logger *slog.Logger
}

// NewKafkaSink creates a [KafkaSink] from the sink configuration.
//
// Writes are synchronous so Publish can report delivery errors to the
// connector; the connector publishes one event at a time, so batching would
// buy nothing here.
func NewKafkaSink(cfg config.Sink, logger *slog.Logger) *KafkaSink {
	return &KafkaSink{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchSize:    1,
			BatchTimeout: 5 * time.Millisecond,
		},
		logger: logger,
	}
}

// Publish implements [obix.EventSink].
func (s *KafkaSink) Publish(varType, varName string, data obix.Payload) error {
	value, err := json.Marshal(newEvent(varType, varName, data))
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), kafkaWriteTimeout)
	defer cancel()

	err = s.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(varName),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("kafka write failed: %w", err)
	}
	return nil
}

// Close implements [Sink].
func (s *KafkaSink) Close() error {
	return s.writer.Close()
}
