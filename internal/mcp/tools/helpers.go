// Package tools contains the MCP tool implementations for harreplay.
package tools

import (
	"fmt"
	"unicode/utf8"

	"github.com/usestring/harreplay/pkg/contenttype"
	"github.com/usestring/harreplay/pkg/jsoncompact"
	"github.com/usestring/harreplay/pkg/transport"
	"github.com/usestring/harreplay/pkg/types"
)

// MimeJSON is the MIME type of JSON resources.
const MimeJSON = "application/json"

// Body display modes.
const (
	BodyModeCompact = "compact"
	BodyModeFull    = "full"
	BodyModeNone    = "none"
)

// OutcomeView is the compact form of one replay outcome.
type OutcomeView struct {
	Index           int    `json:"index"`
	Result          string `json:"result"`
	Method          string `json:"method"`
	URL             string `json:"url"`
	CapturedStatus  int    `json:"captured_status"`
	LiveStatus      int    `json:"live_status,omitempty"`
	LiveContentType string `json:"live_content_type,omitempty"`
	Match           *bool  `json:"match,omitempty"`
	Expect          *bool  `json:"expect,omitempty"`
	ElapsedMs       int64  `json:"elapsed_ms"`
	Error           string `json:"error,omitempty"`
	ErrorCode       string `json:"error_code,omitempty"`
	Truncated       bool   `json:"truncated,omitempty"`
}

// NewOutcomeView builds the compact view of o.
func NewOutcomeView(o types.Outcome) OutcomeView {
	v := OutcomeView{
		Index:          o.Index,
		Result:         o.Result(),
		Method:         o.Request.Method,
		URL:            o.Request.URL,
		CapturedStatus: o.OriginalResponse.Status,
		Match:          o.Match,
		Expect:         o.Expect,
		ElapsedMs:      o.ElapsedMs,
	}
	if o.Live != nil {
		v.LiveStatus = o.Live.Status
		v.LiveContentType = o.Live.ContentType
		v.Truncated = o.Live.Truncated
	}
	if o.Err != nil {
		v.Error = o.Err.Error()
		v.ErrorCode = string(transport.CodeOf(o.Err))
	}
	return v
}

// OutcomeViews converts outcomes, never returning nil.
func OutcomeViews(outcomes []types.Outcome) []OutcomeView {
	views := make([]OutcomeView, 0, len(outcomes))
	for _, o := range outcomes {
		views = append(views, NewOutcomeView(o))
	}
	return views
}

// DisplayBody renders a body for tool output according to mode. JSON is
// compacted unless mode is full; binary content is replaced by a placeholder.
// maxBytes <= 0 means no truncation.
func DisplayBody(data []byte, ct, mode string, maxBytes int) (body string, truncated bool) {
	if len(data) == 0 || mode == BodyModeNone {
		return "", false
	}
	if contenttype.IsBinary(ct, data) {
		return fmt.Sprintf("[binary content, %d bytes]", len(data)), false
	}
	if mode != BodyModeFull && contenttype.IsJSON(ct) {
		if compacted, err := jsoncompact.Compact(data, nil); err == nil {
			data = compacted
		}
	}
	if maxBytes > 0 && len(data) > maxBytes {
		cut := maxBytes
		for cut > 0 && !utf8.RuneStart(data[cut]) {
			cut--
		}
		return string(data[:cut]) + "...", true
	}
	return string(data), false
}

func clampLimit(n, def, ceiling int) int {
	if n <= 0 {
		n = def
	}
	return min(n, ceiling)
}

// ResourceScheme prefixes every resource URI served alongside the tools.
const ResourceScheme = "harreplay://"

func entryResourceURI(sessionID string, index int) string {
	return fmt.Sprintf("%ssession/%s/entry/%d", ResourceScheme, sessionID, index)
}

func outcomeResourceURI(sessionID string, index int) string {
	return fmt.Sprintf("%ssession/%s/outcome/%d", ResourceScheme, sessionID, index)
}
