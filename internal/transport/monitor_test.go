package transport

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
)

// captureHandler is a slog.Handler recording emitted messages, so tests can
// assert on how often the monitor speaks.
type captureHandler struct {
	mu       sync.Mutex
	messages []string
}

func (h *captureHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *captureHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, r.Message)
	return nil
}

func (h *captureHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *captureHandler) WithGroup(string) slog.Handler      { return h }

func (h *captureHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.messages)
}

// testLogger returns a logger that discards all output for clean test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestMonitor_FailureLevels verifies the Healthy -> FirstFailure ->
// RepeatedFailure progression: the first two consecutive failed cycles are
// each logged once, further ones are silent.
func TestMonitor_FailureLevels(t *testing.T) {
	h := &captureHandler{}
	m := NewMonitor(slog.New(h))

	if m.Level() != Healthy {
		t.Fatalf("initial level = %v, want Healthy", m.Level())
	}

	m.Failure()
	if m.Level() != FirstFailure {
		t.Errorf("after 1 failure, level = %v, want FirstFailure", m.Level())
	}
	if h.count() != 1 {
		t.Errorf("after 1 failure, %d log entries, want 1", h.count())
	}

	m.Failure()
	if m.Level() != RepeatedFailure {
		t.Errorf("after 2 failures, level = %v, want RepeatedFailure", m.Level())
	}
	if h.count() != 2 {
		t.Errorf("after 2 failures, %d log entries, want 2", h.count())
	}

	// further consecutive failures must stay silent
	m.Failure()
	m.Failure()
	if h.count() != 2 {
		t.Errorf("after 4 failures, %d log entries, want 2", h.count())
	}
}

// TestMonitor_Recovery verifies that the first success after any non-zero
// level logs a recovery message and resets the state, and that success in
// the Healthy state is silent.
func TestMonitor_Recovery(t *testing.T) {
	h := &captureHandler{}
	m := NewMonitor(slog.New(h))

	m.Success()
	if h.count() != 0 {
		t.Errorf("success while healthy logged %d entries, want 0", h.count())
	}

	m.Failure()
	m.Failure()
	m.Failure()
	before := h.count()

	m.Success()
	if m.Level() != Healthy {
		t.Errorf("after recovery, level = %v, want Healthy", m.Level())
	}
	if h.count() != before+1 {
		t.Errorf("recovery logged %d entries, want 1", h.count()-before)
	}

	// a fresh failure sequence reports again from level one
	m.Failure()
	if m.Level() != FirstFailure {
		t.Errorf("after recovery and failure, level = %v, want FirstFailure", m.Level())
	}
}
