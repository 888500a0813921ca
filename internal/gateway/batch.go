// Package gateway implements the oBIX batch protocol: building the batched
// read request for a set of monitored points and decoding the batched reply
// into typed readings.
//
// The protocol carries no per-entry correlation key. The ordered point list
// used to build a request must be reused, in the same order, to decode the
// corresponding reply; both operations in this package take that list
// explicitly so the pairing lives in one place.
package gateway

import (
	"fmt"
	"strings"
)

const (
	requestProlog = `<?xml version="1.0" encoding="UTF-8"?><list is="obix:BatchIn">`
	requestEpilog = `</list>`

	batchItemTemplate = `<uri is="obix:Read" val="http://%s/obix/network/%s/%s/%s/Present_Value/"/>`
)

// BatchURL returns the gateway endpoint the batch request is POSTed to.
func BatchURL(host string) string {
	return fmt.Sprintf("http://%s/obix/batch", host)
}

// BuildBatchRequest assembles the batch read document for the given points.
// One read directive is emitted per point, in slice order. Pure construction,
// no error conditions.
func BuildBatchRequest(host, nodeID, deviceID string, points []string) []byte {
	var b strings.Builder
	b.WriteString(requestProlog)
	for _, p := range points {
		fmt.Fprintf(&b, batchItemTemplate, host, nodeID, deviceID, p)
	}
	b.WriteString(requestEpilog)
	return []byte(b.String())
}
