package gateway

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"
)

// batchReply mirrors the oBIX BatchOut envelope: a list element wrapping one
// child per requested point. Child tags denote the value kind.
type batchReply struct {
	XMLName xml.Name    `xml:"list"`
	Items   []replyItem `xml:",any"`
}

type replyItem struct {
	XMLName xml.Name
	Val     string `xml:"val,attr"`
	Unit    string `xml:"unit,attr"`
	Display string `xml:"display,attr"`
	Is      string `xml:"is,attr"`
}

// DecodeBatchReply parses a batch reply body and pairs entry i with points[i].
// Incoming XML namespaces are stripped, not validated. If the reply carries
// fewer or more entries than points, pairing stops at the shorter length.
//
// Per-entry problems (error markers, unknown tags, unparseable values) never
// fail the decode; they yield error readings for the throttle to handle. The
// returned error is only non-nil when the body is not a well-formed list.
func DecodeBatchReply(body []byte, points []string, mapping map[string]PointDef) ([]Reading, error) {
	var reply batchReply
	if err := xml.Unmarshal(bytes.TrimSpace(body), &reply); err != nil {
		return nil, fmt.Errorf("malformed batch reply: %w", err)
	}

	n := len(reply.Items)
	if len(points) < n {
		n = len(points)
	}

	readings := make([]Reading, 0, n)
	for i := 0; i < n; i++ {
		readings = append(readings, decodeItem(reply.Items[i], points[i], mapping))
	}
	return readings, nil
}

// decodeItem converts one reply entry into a Reading for the given point.
func decodeItem(item replyItem, pointID string, mapping map[string]PointDef) Reading {
	// xml.Name.Local already drops the namespace; Space is ignored.
	tag := item.XMLName.Local

	var value any
	switch tag {
	case "bool":
		value = strings.EqualFold(item.Val, "true")
	case "int":
		v, err := strconv.ParseInt(item.Val, 10, 64)
		if err != nil {
			return errorReading(pointID, fmt.Sprintf("invalid int value %q", item.Val))
		}
		value = v
	case "real":
		v, err := strconv.ParseFloat(item.Val, 64)
		if err != nil {
			return errorReading(pointID, fmt.Sprintf("invalid real value %q", item.Val))
		}
		value = v
	case "err":
		return errorReading(pointID, errorMessage(item))
	default:
		return errorReading(pointID, fmt.Sprintf("unexpected tag (%s)", tag))
	}

	def := mapping[pointID]
	return Reading{
		PointID: pointID,
		Name:    def.Name,
		Type:    def.Type,
		Value:   value,
		Unit:    unitBasename(item.Unit),
	}
}

// errorMessage extracts a human-readable message from an error entry,
// preferring the display attribute and falling back to the contract suffix
// of the is attribute (e.g. "obix:BadUriErr" -> "BadUriErr").
func errorMessage(item replyItem) string {
	if item.Display != "" {
		return item.Display
	}
	if item.Is != "" {
		parts := strings.Split(item.Is, ":")
		return parts[len(parts)-1]
	}
	return "read error"
}

// unitBasename keeps the last path segment of a unit URI
// (e.g. "obix:units/celsius" -> "celsius").
func unitBasename(unit string) string {
	if unit == "" {
		return ""
	}
	parts := strings.Split(unit, "/")
	return parts[len(parts)-1]
}

func errorReading(pointID, message string) Reading {
	return Reading{PointID: pointID, Err: true, Message: message}
}
