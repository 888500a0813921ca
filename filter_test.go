package obix

import (
	"log/slog"
	"testing"

	"github.com/cstbox/ext-obix/config"
	"github.com/cstbox/ext-obix/internal/gateway"
	"github.com/cstbox/ext-obix/internal/transport"
)

const filteredConfigYAML = `
gateway:
  host: gw.local
  node_id: N001C42
  device_id: DEV201

mapping:
  AV101: [var_101, concentration]
  AV102: [var_102, counter]
  AV103: [var_103, counter]
  AV104: [var_104, luminosity]

filters:
  AV101: [0, 2000]
  AV102: [10, null]
  AV103: [null, 50]
`

// TestDiscard verifies the bounds filter: a numeric value is discarded iff a
// configured bound is violated; unconfigured points and non-numeric readings
// pass unchanged.
func TestDiscard(t *testing.T) {
	c := newFilteredConnector(t, testLogger())

	tests := []struct {
		name    string
		reading gateway.Reading
		want    bool
	}{
		{"within both bounds", numReading("AV101", 412.5), false},
		{"at lower bound", numReading("AV101", 0), false},
		{"at upper bound", numReading("AV101", 2000), false},
		{"below lower bound", numReading("AV101", -0.5), true},
		{"above upper bound", numReading("AV101", 2000.5), true},
		{"open upper bound ok", numReading("AV102", 1e9), false},
		{"open upper bound low", numReading("AV102", 9), true},
		{"open lower bound ok", numReading("AV103", -1e9), false},
		{"open lower bound high", numReading("AV103", 51), true},
		{"unfiltered point", numReading("AV104", 1e12), false},
		{"int value filtered", gateway.Reading{PointID: "AV102", Value: int64(5)}, true},
		{"non-numeric bypasses", gateway.Reading{PointID: "AV101", Value: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := c.discard(tt.reading); got != tt.want {
				t.Errorf("discard(%v) = %v, want %v", tt.reading.Value, got, tt.want)
			}
		})
	}
}

// TestConnector_FilterDiscards verifies end to end that an out-of-bounds
// value is dropped before gating (warned, not published) while the rest of
// the batch flows through.
func TestConnector_FilterDiscards(t *testing.T) {
	tr := &scriptedTransport{reply: func(_ string, _ []byte) transport.Response {
		return okReply(replyFor(
			realEntry(5000), // AV101: above its max of 2000
			realEntry(100), realEntry(10), realEntry(20)))
	}}
	sink := &recordingSink{}
	logs := &captureHandler{}

	cfg, err := config.Parse([]byte(filteredConfigYAML))
	if err != nil {
		t.Fatal(err)
	}
	c, err := New(cfg, sink, WithLogger(slog.New(logs)), WithTransport(tr))
	if err != nil {
		t.Fatal(err)
	}
	clock := newFakeClock()
	c.nowFn = clock.Now

	runCycles(c, clock, 1)

	events := sink.all()
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	for _, ev := range events {
		if ev.varName == "var_101" {
			t.Errorf("filtered value was published: %+v", ev)
		}
	}
	if got := logs.countOf("out of bounds value discarded"); got != 1 {
		t.Errorf("discard warned %d times, want 1", got)
	}
}

func newFilteredConnector(t *testing.T, logger *slog.Logger) *Connector {
	t.Helper()
	cfg, err := config.Parse([]byte(filteredConfigYAML))
	if err != nil {
		t.Fatal(err)
	}
	c, err := New(cfg, &recordingSink{}, WithLogger(logger), WithTransport(&scriptedTransport{}))
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func numReading(pointID string, v float64) gateway.Reading {
	return gateway.Reading{PointID: pointID, Value: v}
}
