package transport

import "log/slog"

// FailureLevel enumerates the monitor states for consecutive cycles whose
// retry budget was exhausted.
type FailureLevel int

const (
	// Healthy means the last exchange with the gateway completed.
	Healthy FailureLevel = iota

	// FirstFailure is entered on the first cycle with an exhausted retry
	// budget, logged as an error.
	FirstFailure

	// RepeatedFailure is entered on the second consecutive failed cycle.
	// Further consecutive failures are not logged at all.
	RepeatedFailure
)

// Monitor tracks consecutive polling cycles that failed at the transport
// level, so that a gateway that stays unreachable produces two log lines in
// total instead of one per cycle. The first successful exchange after any
// failure logs a recovery message and resets the level.
//
// Monitor is owned by the polling worker and is not safe for concurrent use.
type Monitor struct {
	level  FailureLevel
	logger *slog.Logger
}

// NewMonitor creates a [Monitor] in the Healthy state.
func NewMonitor(logger *slog.Logger) *Monitor {
	return &Monitor{logger: logger}
}

// Level returns the current failure level.
func (m *Monitor) Level() FailureLevel { return m.level }

// Failure records a cycle whose retry budget was exhausted.
func (m *Monitor) Failure() {
	switch m.level {
	case Healthy:
		m.logger.Error("retry count exhausted, abandoning polling for this cycle")
		m.level = FirstFailure
	case FirstFailure:
		m.logger.Error("repeated gateway communication error (will not be reported anymore)")
		m.level = RepeatedFailure
	case RepeatedFailure:
		// stay silent
	}
}

// Success records a completed exchange. A non-2xx HTTP status still counts:
// the transport itself recovered.
func (m *Monitor) Success() {
	if m.level != Healthy {
		m.logger.Info("recovered from gateway communication error")
		m.level = Healthy
	}
}
