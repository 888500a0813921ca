package obix

import (
	"time"

	"github.com/cstbox/ext-obix/internal/gateway"
)

// gate is the change/TTL emission gate. A reading is published when its
// canonical name has never been emitted, when the value differs from the
// last emitted one, or when the last emission is older than the events TTL.
// The TTL re-emission gives downstream consumers a periodic heartbeat for
// values that never change.
//
// Values are compared as their typed selves (bool, int64, float64), never as
// strings; a point whose tag changes kind between cycles compares unequal
// and re-emits.
func (c *Connector) gate(r gateway.Reading, now time.Time) {
	le, seen := c.last[r.Name]
	if seen && le.value == r.Value && now.Sub(le.at) < c.eventsTTL {
		return
	}

	c.publish(r)
	c.last[r.Name] = lastEmission{value: r.Value, at: now}
}
