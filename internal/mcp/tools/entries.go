package tools

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/harreplay/internal/compare"
	"github.com/usestring/harreplay/pkg/har"
	"github.com/usestring/harreplay/pkg/mutate"
	"github.com/usestring/harreplay/pkg/types"
)

const (
	maxListLimit    = 500
	maxPreviewBytes = 4096
)

// ListEntriesInput is the input for harreplay_list_entries.
type ListEntriesInput struct {
	SessionID string             `json:"session_id,omitempty" jsonschema:"Session ID (default: active)"`
	Select    *types.SelectQuery `json:"select,omitempty" jsonschema:"Filters combined with AND across fields and OR within a field"`
	Offset    int                `json:"offset,omitempty" jsonschema:"Skip this many matches"`
	Limit     int                `json:"limit,omitempty" jsonschema:"Max entries to return (default 50)"`
}

// ListEntriesOutput is the output for harreplay_list_entries.
type ListEntriesOutput struct {
	Entries   []types.EntrySummary `json:"entries,omitzero"`
	Total     int                  `json:"total"`
	Truncated bool                 `json:"truncated,omitempty"`
}

// GetEntryInput is the input for harreplay_get_entry.
type GetEntryInput struct {
	SessionID      string `json:"session_id,omitempty" jsonschema:"Session ID (default: active)"`
	Index          int    `json:"index" jsonschema:"Transaction index"`
	BodyMode       string `json:"body_mode,omitempty" jsonschema:"compact (default) trims JSON arrays; full returns bodies as captured; none omits them"`
	MaxBytes       int    `json:"max_bytes,omitempty" jsonschema:"Max body bytes per body"`
	IncludeHeaders bool   `json:"include_headers,omitempty" jsonschema:"Include request and response headers"`
}

// DisplayRequest is the request as it would be replayed.
type DisplayRequest struct {
	Method      string          `json:"method"`
	URL         string          `json:"url"`
	HTTPVersion string          `json:"http_version,omitempty"`
	Headers     []har.NameValue `json:"headers,omitempty"`
	MimeType    string          `json:"mime_type,omitempty"`
	Body        string          `json:"body,omitempty"`
}

// DisplayResponse is the captured response.
type DisplayResponse struct {
	Status     int             `json:"status"`
	StatusText string          `json:"status_text,omitempty"`
	Headers    []har.NameValue `json:"headers,omitempty"`
	MimeType   string          `json:"mime_type,omitempty"`
	Body       string          `json:"body,omitempty"`
}

// GetEntryOutput is the output for harreplay_get_entry.
type GetEntryOutput struct {
	Summary      types.EntrySummary `json:"summary"`
	Request      DisplayRequest     `json:"request"`
	Response     DisplayResponse    `json:"response"`
	Modification *mutate.Spec       `json:"modification,omitempty"`
	State        string             `json:"state"`
	Outcome      *OutcomeView       `json:"outcome,omitempty"`
	Truncated    bool               `json:"truncated,omitempty"`
	Resource     string             `json:"resource,omitempty"`
}

// ToolListEntries lists captured transactions matching a selection.
func ToolListEntries(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input ListEntriesInput) (*sdkmcp.CallToolResult, ListEntriesOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input ListEntriesInput) (*sdkmcp.CallToolResult, ListEntriesOutput, error) {
		s, err := d.Session(input.SessionID)
		if err != nil {
			return nil, ListEntriesOutput{}, err
		}
		if input.Offset < 0 {
			return nil, ListEntriesOutput{}, ErrInvalidInput("offset must be >= 0")
		}

		indices := s.Index.Indices(input.Select)
		limit := clampLimit(input.Limit, d.Config.DefaultListLimit, maxListLimit)

		output := ListEntriesOutput{
			Entries: make([]types.EntrySummary, 0, min(limit, len(indices))),
			Total:   len(indices),
		}
		if input.Offset >= len(indices) {
			return nil, output, nil
		}
		page := indices[input.Offset:]
		if len(page) > limit {
			page = page[:limit]
			output.Truncated = true
		}
		for _, i := range page {
			summary := *s.Index.Meta(i).ToSummary()
			_, summary.Modified = s.Replayer.Modification(i)
			output.Entries = append(output.Entries, summary)
		}
		return nil, output, nil
	}
}

// ToolGetEntry returns one transaction with overrides applied to the request.
func ToolGetEntry(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input GetEntryInput) (*sdkmcp.CallToolResult, GetEntryOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input GetEntryInput) (*sdkmcp.CallToolResult, GetEntryOutput, error) {
		s, err := d.Session(input.SessionID)
		if err != nil {
			return nil, GetEntryOutput{}, err
		}
		mode := input.BodyMode
		if mode == "" {
			mode = BodyModeCompact
		}
		if mode != BodyModeCompact && mode != BodyModeFull && mode != BodyModeNone {
			return nil, GetEntryOutput{}, ErrInvalidInput("body_mode must be compact, full or none")
		}

		entry, err := s.Replayer.Entry(input.Index)
		if err != nil {
			return nil, GetEntryOutput{}, WrapReplayError(err)
		}
		effective, _ := s.Replayer.Request(input.Index)

		output := GetEntryOutput{
			Summary: *s.Index.Meta(input.Index).ToSummary(),
			Request: DisplayRequest{
				Method:      effective.Method,
				URL:         effective.URL,
				HTTPVersion: effective.HTTPVersion,
			},
			Response: DisplayResponse{
				Status:     entry.Response.Status,
				StatusText: entry.Response.StatusText,
				MimeType:   entry.Response.Content.MimeType,
			},
			State:    s.Replayer.State(input.Index).String(),
			Resource: entryResourceURI(s.ID, input.Index),
		}
		if spec, ok := s.Replayer.Modification(input.Index); ok {
			output.Modification = &spec
			output.Summary.Modified = true
		}
		if input.IncludeHeaders {
			output.Request.Headers = effective.Headers
			output.Response.Headers = entry.Response.Headers
		}

		var truncated bool
		if effective.PostData != nil {
			output.Request.MimeType = effective.PostData.MimeType
			output.Request.Body, truncated = DisplayBody([]byte(effective.PostData.Text), effective.PostData.MimeType, mode, input.MaxBytes)
			output.Truncated = truncated
		}
		output.Response.Body, truncated = DisplayBody([]byte(compare.CapturedBody(entry.Response)), entry.Response.Content.MimeType, mode, input.MaxBytes)
		output.Truncated = output.Truncated || truncated

		if o, ok := s.Replayer.Outcome(input.Index); ok {
			view := NewOutcomeView(o)
			output.Outcome = &view
		}
		return nil, output, nil
	}
}
