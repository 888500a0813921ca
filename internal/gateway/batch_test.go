package gateway

import (
	"encoding/xml"
	"strings"
	"testing"
)

// TestBatchURL verifies the batch endpoint address.
func TestBatchURL(t *testing.T) {
	got := BatchURL("10.1.2.3")
	want := "http://10.1.2.3/obix/batch"
	if got != want {
		t.Errorf("BatchURL() = %q, want %q", got, want)
	}
}

// TestBuildBatchRequest verifies that the request document enumerates one
// read directive per point, in slice order, with the full addressing prefix.
func TestBuildBatchRequest(t *testing.T) {
	points := []string{"AV101", "AV102", "AV103"}
	body := string(BuildBatchRequest("gw.local", "N001", "DEV201", points))

	if !strings.HasPrefix(body, `<?xml version="1.0" encoding="UTF-8"?><list is="obix:BatchIn">`) {
		t.Errorf("request missing prolog: %s", body)
	}
	if !strings.HasSuffix(body, "</list>") {
		t.Errorf("request missing epilog: %s", body)
	}

	// directives must appear in point order
	lastIdx := -1
	for _, p := range points {
		directive := `<uri is="obix:Read" val="http://gw.local/obix/network/N001/DEV201/` + p + `/Present_Value/"/>`
		idx := strings.Index(body, directive)
		if idx == -1 {
			t.Fatalf("request missing directive for %s: %s", p, body)
		}
		if idx <= lastIdx {
			t.Errorf("directive for %s out of order", p)
		}
		lastIdx = idx
	}
}

// TestBuildBatchRequest_WellFormed verifies the produced document parses as
// XML with one child per point.
func TestBuildBatchRequest_WellFormed(t *testing.T) {
	points := []string{"AV101", "AV102"}
	body := BuildBatchRequest("gw.local", "N001", "DEV201", points)

	var doc struct {
		XMLName xml.Name `xml:"list"`
		URIs    []struct {
			Val string `xml:"val,attr"`
		} `xml:"uri"`
	}
	if err := xml.Unmarshal(body, &doc); err != nil {
		t.Fatalf("request is not well-formed XML: %v", err)
	}
	if len(doc.URIs) != len(points) {
		t.Errorf("got %d directives, want %d", len(doc.URIs), len(points))
	}
}

// TestBuildBatchRequest_Empty verifies that an empty point list yields an
// empty (but still well-formed) batch.
func TestBuildBatchRequest_Empty(t *testing.T) {
	body := string(BuildBatchRequest("gw.local", "N001", "DEV201", nil))
	want := `<?xml version="1.0" encoding="UTF-8"?><list is="obix:BatchIn"></list>`
	if body != want {
		t.Errorf("got %q, want %q", body, want)
	}
}
