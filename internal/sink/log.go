package sink

import (
	"log/slog"

	obix "github.com/cstbox/ext-obix"
)

// LogSink writes events to the log instead of a broker. It is the default
// sink and is handy for dry runs against a live gateway.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a [LogSink].
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Publish implements [obix.EventSink].
func (s *LogSink) Publish(varType, varName string, data obix.Payload) error {
	s.logger.Info("event",
		"var_type", varType, "var_name", varName,
		"value", data.Value, "units", data.Units)
	return nil
}

// Close implements [Sink]. It is a no-op.
func (s *LogSink) Close() error { return nil }
