package obix

import (
	"time"

	"github.com/cstbox/ext-obix/internal/gateway"
)

// errorState is the per-point throttle state for gateway-reported errors.
// An entry is created on the first error observed for a point and removed
// the moment that point next yields a valid reading.
type errorState struct {
	lastReport  time.Time
	firstReport time.Time
	count       int
}

// reportError logs an error reading through the two-tier throttle.
//
// Active regime (within solidFailureThreshold of the first error): the point
// gets at most maxReportCount reports per errorReportTTL window. The report
// that hits the cap carries an extra notice; further errors are silent until
// the window expires, which restarts the count at 1.
//
// Solid regime (the error has persisted past solidFailureThreshold): a
// distinct message, at most once per solidFailureThreshold, indefinitely.
func (c *Connector) reportError(r gateway.Reading, now time.Time) {
	st, ok := c.errors[r.PointID]
	if !ok {
		st = &errorState{firstReport: now}
		c.errors[r.PointID] = st
	}

	if now.Sub(st.firstReport) <= solidFailureThreshold {
		expired := st.lastReport.IsZero() || now.Sub(st.lastReport) >= errorReportTTL
		capped := st.count >= maxReportCount

		if !expired && capped {
			return
		}

		if expired {
			st.count = 1
		} else {
			st.count++
		}
		st.lastReport = now

		c.logger.Error("point read request error",
			"point", r.PointID, "count", st.count, "message", r.Message)
		if st.count >= maxReportCount {
			c.logger.Error("max error count reached (will not be reported anymore)",
				"point", r.PointID)
		}
		return
	}

	// solid error: notify it far less frequently
	if now.Sub(st.lastReport) >= solidFailureThreshold {
		c.logger.Error("solid error", "point", r.PointID, "message", r.Message)
		st.lastReport = now
	}
}
