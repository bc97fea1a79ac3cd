package compare

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/usestring/harreplay/pkg/contenttype"
	"github.com/usestring/harreplay/pkg/har"
	"github.com/usestring/harreplay/pkg/transport"
)

// Validate reports whether live agrees with the captured response on all of
// status code, content-type family and body.
func Validate(live *transport.LiveResponse, captured har.Response) bool {
	if live == nil {
		return false
	}
	return statusMatches(live, captured) &&
		contentTypeMatches(live, captured) &&
		bodyMatches(live.Body, CapturedBody(captured))
}

func statusMatches(live *transport.LiveResponse, captured har.Response) bool {
	return live.Status == captured.Status
}

func contentTypeMatches(live *transport.LiveResponse, captured har.Response) bool {
	return contenttype.SameFamily(live.ContentType, captured.Content.MimeType)
}

// bodyMatches compares canonical JSON when both sides parse, otherwise
// requires the captured text to appear in the live body. An empty capture
// matches any body.
func bodyMatches(live []byte, captured string) bool {
	if captured == "" {
		return true
	}
	if a, ok := canonicalJSON([]byte(captured)); ok {
		if b, ok := canonicalJSON(live); ok {
			return bytes.Equal(a, b)
		}
	}
	return strings.Contains(string(live), captured)
}

// canonicalJSON re-serializes data with sorted object keys and normalized
// numbers so structurally equal documents compare byte-equal.
func canonicalJSON(data []byte) ([]byte, bool) {
	v, ok := parseJSON(data)
	if !ok {
		return nil, false
	}
	out, err := json.Marshal(v)
	if err != nil {
		return nil, false
	}
	return out, true
}

func parseJSON(data []byte) (any, bool) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, false
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, false
	}
	return v, true
}
