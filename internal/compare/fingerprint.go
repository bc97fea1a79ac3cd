package compare

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/usestring/harreplay/pkg/har"
)

// BodyHash returns a short xxhash fingerprint of a body, or "" when empty.
func BodyHash(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	return fmt.Sprintf("%016x", xxhash.Sum64(body))
}

// CapturedBody returns the captured response text, decoding base64 content.
// Undecodable base64 is returned as stored.
func CapturedBody(resp har.Response) string {
	if strings.EqualFold(resp.Content.Encoding, "base64") {
		if b, err := base64.StdEncoding.DecodeString(resp.Content.Text); err == nil {
			return string(b)
		}
	}
	return resp.Content.Text
}

// normalizeHeaders creates a lowercase key -> values map, skipping pseudo headers.
func normalizeHeaders(headers []har.NameValue) map[string][]string {
	result := make(map[string][]string, len(headers))
	for _, h := range headers {
		if strings.HasPrefix(h.Name, ":") {
			continue
		}
		key := strings.ToLower(h.Name)
		result[key] = append(result[key], h.Value)
	}
	return result
}

// normalizeHTTPHeader lowercases the keys of a live header map.
func normalizeHTTPHeader(h http.Header) map[string][]string {
	result := make(map[string][]string, len(h))
	for name, values := range h {
		key := strings.ToLower(name)
		result[key] = append(result[key], values...)
	}
	return result
}
