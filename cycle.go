package obix

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"github.com/cstbox/ext-obix/internal/gateway"
)

// runCycle performs one full poll: batch exchange, decode, then per-reading
// filtering, gating and error throttling. No outcome of a cycle ever stops
// the loop.
func (c *Connector) runCycle(ctx context.Context, now time.Time) {
	resp := c.transport.Send(ctx, c.url, c.request)
	if !resp.OK() {
		c.health.Failure()
		return
	}
	c.health.Success()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// reported every occurrence: HTTP-level failures are not part of
		// the transport failure level tracking
		c.logger.Error("gateway request failure",
			"status_code", resp.StatusCode, "status", resp.Status)
		return
	}

	readings, err := gateway.DecodeBatchReply(resp.Body, c.points, c.mapping)
	if err != nil {
		c.logger.Error("unparseable gateway reply", "error", err)
		return
	}

	for _, r := range readings {
		if r.Err {
			c.reportError(r, now)
			continue
		}

		// a valid reading clears the point's error condition, even if the
		// bounds filter then discards the value
		delete(c.errors, r.PointID)

		if c.discard(r) {
			continue
		}
		c.gate(r, now)
	}
}

// discard applies the configured bounds filter, if any, to a valid reading.
// Non-numeric readings and unfiltered points pass unchanged.
func (c *Connector) discard(r gateway.Reading) bool {
	b, ok := c.filters[r.PointID]
	if !ok || !r.IsNumeric() {
		return false
	}

	v := r.Float()
	if (b.Min != nil && v < *b.Min) || (b.Max != nil && v > *b.Max) {
		c.logger.Warn("out of bounds value discarded",
			"point", r.PointID, "value", r.Value)
		return true
	}
	return false
}

// publish hands the reading to the event sink, isolating the engine from a
// misbehaving sink: errors are logged, panics are recovered and logged with
// a correlation ID.
func (c *Connector) publish(r gateway.Reading) {
	defer func() {
		if p := recover(); p != nil {
			correlationID := uuid.NewString()
			c.logger.Error("event sink panic",
				"correlation_id", correlationID,
				"panic", fmt.Sprintf("%v", p),
				"stack", string(debug.Stack()),
			)
		}
	}()

	if err := c.sink.Publish(r.Type, r.Name, Payload{Value: r.Value, Units: r.Unit}); err != nil {
		c.logger.Error("event publication failed",
			"var_name", r.Name, "error", err)
	}
}
