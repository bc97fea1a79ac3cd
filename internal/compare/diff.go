package compare

import (
	"slices"
	"strings"

	"github.com/usestring/harreplay/pkg/har"
	"github.com/usestring/harreplay/pkg/jsoncompact"
	"github.com/usestring/harreplay/pkg/transport"
	"github.com/usestring/harreplay/pkg/types"
)

// Diff compares a captured response with its live replay and lists the
// fields that disagree. Matches always equals Validate(live, captured); the
// header section is informational. A nil live response yields an empty,
// non-matching result.
func Diff(captured har.Response, live *transport.LiveResponse, opts *types.DiffOptions) *types.DiffResult {
	if opts == nil {
		opts = &types.DiffOptions{}
	}
	preview := opts.PreviewChars
	if preview <= 0 {
		preview = DefaultPreviewChars
	}
	ignore := opts.IgnoreHeaders
	if ignore == nil {
		ignore = DefaultIgnoreHeaders
	}

	result := &types.DiffResult{Differences: []types.Difference{}}
	if live == nil {
		return result
	}

	if !statusMatches(live, captured) {
		result.Differences = append(result.Differences, types.Difference{
			Field:    types.FieldStatus,
			Captured: captured.Status,
			Live:     live.Status,
		})
	}

	if !contentTypeMatches(live, captured) {
		result.Differences = append(result.Differences, types.Difference{
			Field:    types.FieldContentType,
			Captured: captured.Content.MimeType,
			Live:     live.ContentType,
		})
	}

	capturedText := CapturedBody(captured)
	if !bodyMatches(live.Body, capturedText) {
		result.Differences = append(result.Differences, bodyDifference(capturedText, live.Body, preview))
	}

	if opts.CompareHeaders {
		h := diffHeaders(normalizeHeaders(captured.Headers), normalizeHTTPHeader(live.Header), ignore)
		if !h.Empty() || len(h.Ignored) > 0 {
			result.Headers = h
		}
	}

	result.Matches = len(result.Differences) == 0
	return result
}

func bodyDifference(captured string, live []byte, preview int) types.Difference {
	d := types.Difference{
		Field:        types.FieldBody,
		CapturedHash: BodyHash([]byte(captured)),
		LiveHash:     BodyHash(live),
	}

	cv, cok := parseJSON([]byte(captured))
	lv, lok := parseJSON(live)
	if cok && lok {
		opts := &jsoncompact.Options{MaxArrayItems: jsoncompact.DefaultMaxArrayItems, MaxStringLen: preview}
		d.Captured = jsoncompact.CompactValue(cv, opts)
		d.Live = jsoncompact.CompactValue(lv, opts)
		return d
	}

	d.Captured = jsoncompact.Preview(captured, preview)
	d.Live = jsoncompact.Preview(string(live), preview)
	d.Message = "response body mismatch (non-JSON content)"
	return d
}

// diffHeaders compares header presence and values. Output lists are sorted.
func diffHeaders(captured, live map[string][]string, ignore []string) *types.HeaderDiff {
	ignoreSet := make(map[string]struct{}, len(ignore))
	for _, h := range ignore {
		ignoreSet[strings.ToLower(h)] = struct{}{}
	}

	out := &types.HeaderDiff{}
	for name, capturedValues := range captured {
		if _, skip := ignoreSet[name]; skip {
			if _, inLive := live[name]; inLive {
				out.Ignored = append(out.Ignored, name)
			}
			continue
		}

		liveValues, exists := live[name]
		if !exists {
			out.Missing = append(out.Missing, name)
			continue
		}
		if !slices.Equal(capturedValues, liveValues) {
			out.Changed = append(out.Changed, types.HeaderValueDiff{
				Name:     name,
				Captured: capturedValues,
				Live:     liveValues,
			})
		}
	}

	for name := range live {
		if _, skip := ignoreSet[name]; skip {
			continue
		}
		if _, exists := captured[name]; !exists {
			out.Extra = append(out.Extra, name)
		}
	}

	slices.Sort(out.Missing)
	slices.Sort(out.Extra)
	slices.Sort(out.Ignored)
	slices.SortFunc(out.Changed, func(a, b types.HeaderValueDiff) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out
}
