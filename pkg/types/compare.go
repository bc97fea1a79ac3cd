package types

// Compared fields reported by a diff.
const (
	FieldStatus      = "status"
	FieldContentType = "content-type"
	FieldBody        = "body"
)

// DiffOptions controls diff behavior.
type DiffOptions struct {
	PreviewChars   int      // Default 100
	CompareHeaders bool     // Default false
	IgnoreHeaders  []string // Default from DefaultIgnoreHeaders
}

// DiffResult contains the structured comparison of a captured and a live response.
// Matches only reflects status, content type and body; header changes are
// informational.
type DiffResult struct {
	Index       int          `json:"index"`
	Matches     bool         `json:"matches"`
	Differences []Difference `json:"differences"`
	Headers     *HeaderDiff  `json:"headers,omitempty"`
}

// Difference is one field that disagrees between captured and live.
// Body values are JSON values when both sides parse, truncated previews otherwise.
type Difference struct {
	Field        string `json:"field"`
	Captured     any    `json:"captured"`
	Live         any    `json:"live"`
	Message      string `json:"message,omitempty"`
	CapturedHash string `json:"captured_hash,omitempty"`
	LiveHash     string `json:"live_hash,omitempty"`
}

// HeaderDiff lists response header changes.
type HeaderDiff struct {
	Missing []string          `json:"missing,omitempty"`
	Extra   []string          `json:"extra,omitempty"`
	Changed []HeaderValueDiff `json:"changed,omitempty"`
	Ignored []string          `json:"ignored,omitempty"`
}

// Empty reports whether no header changed.
func (h *HeaderDiff) Empty() bool {
	return h == nil || len(h.Missing) == 0 && len(h.Extra) == 0 && len(h.Changed) == 0
}

// HeaderValueDiff represents a difference in header values.
type HeaderValueDiff struct {
	Name     string   `json:"name"`
	Captured []string `json:"captured"`
	Live     []string `json:"live"`
}
