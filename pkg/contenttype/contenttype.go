package contenttype

import (
	"mime"
	"strings"
	"unicode/utf8"
)

// Category represents a broad content-type classification.
type Category string

const (
	JSON   Category = "json"
	XML    Category = "xml"
	HTML   Category = "html"
	Form   Category = "form"
	Text   Category = "text"
	Binary Category = "binary"
)

// BaseMediaType returns the lowercased media type without parameters.
// Malformed values are cut at the first ';'.
func BaseMediaType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err == nil {
		return mediaType
	}
	base, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(base))
}

// SameFamily reports whether the live content type contains the base media
// type of the captured one. An empty captured type matches anything.
func SameFamily(live, captured string) bool {
	base, _, _ := strings.Cut(captured, ";")
	base = strings.ToLower(strings.TrimSpace(base))
	return strings.Contains(strings.ToLower(live), base)
}

// Classify returns the broad content category for a content-type header value.
// Returns Binary for empty content-type strings.
func Classify(contentType string) Category {
	if contentType == "" {
		return Binary
	}

	mediaType := BaseMediaType(contentType)
	switch {
	case strings.Contains(mediaType, "json"):
		return JSON
	case mediaType == "text/html" || mediaType == "application/xhtml+xml":
		return HTML
	case strings.Contains(mediaType, "xml"):
		return XML
	case mediaType == "application/x-www-form-urlencoded":
		return Form
	case strings.HasPrefix(mediaType, "text/"),
		strings.Contains(mediaType, "javascript"),
		strings.Contains(mediaType, "yaml"):
		return Text
	}
	return Binary
}

// IsBinary reports whether a body should be treated as opaque bytes.
// Unknown content types fall back to UTF-8 validation of data.
func IsBinary(contentType string, data []byte) bool {
	switch Classify(contentType) {
	case JSON, XML, HTML, Form, Text:
		return false
	}
	ct := strings.ToLower(contentType)
	if strings.HasPrefix(ct, "image/") ||
		strings.HasPrefix(ct, "audio/") ||
		strings.HasPrefix(ct, "video/") ||
		strings.Contains(ct, "octet-stream") ||
		strings.Contains(ct, "zip") ||
		strings.Contains(ct, "pdf") {
		return true
	}
	return !utf8.Valid(data)
}

// IsJSON returns true if the content type indicates JSON (case-insensitive).
func IsJSON(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "json")
}

// IsForm returns true for url-encoded form bodies.
func IsForm(contentType string) bool {
	return strings.Contains(strings.ToLower(contentType), "application/x-www-form-urlencoded")
}
