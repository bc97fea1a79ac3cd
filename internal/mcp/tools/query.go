package tools

import (
	"context"
	"encoding/json"
	"fmt"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/harreplay/internal/compare"
	"github.com/usestring/harreplay/internal/query"
	"github.com/usestring/harreplay/internal/session"
	"github.com/usestring/harreplay/pkg/types"
)

// Query targets.
const (
	TargetLive     = "live"
	TargetCaptured = "captured"
)

const (
	maxQueryEntries = 200
	maxQueryResults = 5000
)

// QueryBodyInput is the input for harreplay_query_body.
type QueryBodyInput struct {
	SessionID   string             `json:"session_id,omitempty" jsonschema:"Session ID (default: active)"`
	Indices     []int              `json:"indices,omitempty" jsonschema:"Transactions to query"`
	Select      *types.SelectQuery `json:"select,omitempty" jsonschema:"Query every transaction matching these filters when indices is empty"`
	Expression  string             `json:"expression" jsonschema:"jq for JSON, CSS selector for HTML, XPath for XML, regex for text, field name for forms"`
	Mode        string             `json:"mode,omitempty" jsonschema:"jq, css, xpath, regex or form (default: detected from the content type)"`
	Target      string             `json:"target,omitempty" jsonschema:"live (default) queries replayed bodies; captured queries bodies in the archive"`
	Deduplicate bool               `json:"deduplicate,omitempty" jsonschema:"Drop repeated values"`
	MaxEntries  int                `json:"max_entries,omitempty" jsonschema:"Max transactions to process (default 20)"`
	MaxResults  int                `json:"max_results,omitempty" jsonschema:"Max values to return (default 1000)"`
}

// QueryEntryResult is the per-transaction part of a body query.
type QueryEntryResult struct {
	Index  int    `json:"index"`
	Mode   string `json:"mode,omitempty"`
	Count  int    `json:"count"`
	Error  string `json:"error,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// QueryBodyOutput is the output for harreplay_query_body.
type QueryBodyOutput struct {
	Values  []any              `json:"values,omitzero"`
	Entries []QueryEntryResult `json:"entries,omitzero"`
	Summary types.QuerySummary `json:"summary"`
	Hint    string             `json:"hint,omitempty"`
}

type queryBody struct {
	data   []byte
	ct     string
	reason string
}

// ToolQueryBody extracts values from live or captured response bodies.
func ToolQueryBody(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input QueryBodyInput) (*sdkmcp.CallToolResult, QueryBodyOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input QueryBodyInput) (*sdkmcp.CallToolResult, QueryBodyOutput, error) {
		if input.Expression == "" {
			return nil, QueryBodyOutput{}, ErrInvalidInput("expression is required")
		}
		var mode query.Mode
		if input.Mode != "" {
			m, err := query.ParseMode(input.Mode)
			if err != nil {
				return nil, QueryBodyOutput{}, ErrInvalidInput(err.Error())
			}
			mode = m
		}
		if mode == query.ModeJQ {
			if err := d.Query.ValidateExpression(input.Expression); err != nil {
				return nil, QueryBodyOutput{}, ErrInvalidInput(err.Error())
			}
		}
		target := input.Target
		if target == "" {
			target = TargetLive
		}
		if target != TargetLive && target != TargetCaptured {
			return nil, QueryBodyOutput{}, ErrInvalidInput("target must be live or captured")
		}

		s, err := d.Session(input.SessionID)
		if err != nil {
			return nil, QueryBodyOutput{}, err
		}

		indices := input.Indices
		if len(indices) == 0 {
			indices = s.Index.Indices(input.Select)
		}
		maxEntries := clampLimit(input.MaxEntries, d.Config.DefaultQueryLimit, maxQueryEntries)
		maxResults := clampLimit(input.MaxResults, 1000, maxQueryResults)

		output := QueryBodyOutput{
			Values:  make([]any, 0),
			Entries: make([]QueryEntryResult, 0, min(len(indices), maxEntries)),
			Summary: types.QuerySummary{Deduplicated: input.Deduplicate},
		}
		if len(indices) > maxEntries {
			indices = indices[:maxEntries]
			output.Summary.Truncated = true
		}

		seen := make(map[string]bool)
		for _, index := range indices {
			if err := ctx.Err(); err != nil {
				return nil, QueryBodyOutput{}, WrapReplayError(err)
			}
			output.Summary.OutcomesProcessed++
			entry := QueryEntryResult{Index: index}

			body, err := bodyFor(s, index, target)
			if err != nil {
				return nil, QueryBodyOutput{}, WrapReplayError(err)
			}
			if body.reason != "" {
				entry.Reason = body.reason
				output.Summary.OutcomesSkipped++
				output.Entries = append(output.Entries, entry)
				continue
			}

			m := mode
			if m == "" {
				m = query.DetectMode(body.ct)
			}
			entry.Mode = string(m)

			remaining := maxResults - len(output.Values)
			if remaining <= 0 {
				output.Summary.Truncated = true
				break
			}
			res, err := d.Query.Extract(body.data, body.ct, input.Expression, m, remaining)
			if err != nil {
				entry.Error = err.Error()
				output.Summary.OutcomesSkipped++
				output.Entries = append(output.Entries, entry)
				continue
			}
			if len(res.Errors) > 0 {
				entry.Error = res.Errors[0]
			}

			for _, v := range res.Values {
				output.Summary.TotalValues++
				entry.Count++
				if input.Deduplicate {
					key := dedupeKey(v)
					if seen[key] {
						continue
					}
					seen[key] = true
				}
				output.Values = append(output.Values, v)
			}
			if entry.Count > 0 {
				output.Summary.OutcomesMatched++
			}
			output.Entries = append(output.Entries, entry)
		}

		if input.Deduplicate {
			output.Summary.UniqueValues = len(output.Values)
		}
		if len(output.Values) >= maxResults {
			output.Summary.Truncated = true
		}
		if target == TargetLive && output.Summary.OutcomesSkipped == output.Summary.OutcomesProcessed && output.Summary.OutcomesProcessed > 0 {
			output.Hint = "No replayed bodies matched; replay the transactions first or query target=captured."
		}
		return nil, output, nil
	}
}

func bodyFor(s *session.Session, index int, target string) (queryBody, error) {
	if target == TargetCaptured {
		entry, err := s.Replayer.Entry(index)
		if err != nil {
			return queryBody{}, err
		}
		data := compare.CapturedBody(entry.Response)
		if data == "" {
			return queryBody{reason: "empty captured body"}, nil
		}
		return queryBody{data: []byte(data), ct: entry.Response.Content.MimeType}, nil
	}

	if _, err := s.Replayer.Entry(index); err != nil {
		return queryBody{}, err
	}
	o, ok := s.Replayer.Outcome(index)
	switch {
	case !ok:
		return queryBody{reason: "not replayed"}, nil
	case o.Live == nil:
		return queryBody{reason: "replay failed"}, nil
	case len(o.Live.Body) == 0:
		return queryBody{reason: "empty live body"}, nil
	}
	return queryBody{data: o.Live.Body, ct: o.Live.ContentType}, nil
}

func dedupeKey(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%T:%v", v, v)
	}
	return string(data)
}
