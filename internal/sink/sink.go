// Package sink provides the concrete event sink implementations selectable
// from configuration: a Kafka producer, an MQTT publisher, and a log sink
// for dry runs.
package sink

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	obix "github.com/cstbox/ext-obix"
	"github.com/cstbox/ext-obix/config"
)

// Sink is an [obix.EventSink] with a Close for releasing broker resources.
type Sink interface {
	obix.EventSink
	Close() error
}

// Event is the wire shape published to Kafka and MQTT.
type Event struct {
	ID        string    `json:"id"`
	VarType   string    `json:"var_type"`
	VarName   string    `json:"var_name"`
	Value     any       `json:"value"`
	Units     string    `json:"units,omitempty"`
	EmittedAt time.Time `json:"emitted_at"`
}

// newEvent stamps a payload with identity and emission time.
func newEvent(varType, varName string, data obix.Payload) Event {
	return Event{
		ID:        uuid.NewString(),
		VarType:   varType,
		VarName:   varName,
		Value:     data.Value,
		Units:     data.Units,
		EmittedAt: time.Now().UTC(),
	}
}

// New builds the sink selected by cfg. The zero/empty type means the log
// sink.
func New(cfg config.Sink, logger *slog.Logger) (Sink, error) {
	switch cfg.Type {
	case "", "log":
		return NewLogSink(logger), nil
	case "kafka":
		return NewKafkaSink(cfg, logger), nil
	case "mqtt":
		return NewMQTTSink(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown sink type %q", cfg.Type)
	}
}
