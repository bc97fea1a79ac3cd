package tools

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/harreplay/pkg/types"
)

// DiffOutcomeInput is the input for harreplay_diff_outcome.
type DiffOutcomeInput struct {
	SessionID      string   `json:"session_id,omitempty" jsonschema:"Session ID (default: active)"`
	Index          int      `json:"index" jsonschema:"Replayed transaction index"`
	PreviewChars   int      `json:"preview_chars,omitempty" jsonschema:"Body preview length for non-JSON bodies"`
	CompareHeaders bool     `json:"compare_headers,omitempty" jsonschema:"Also list response header changes (never affects matches)"`
	IgnoreHeaders  []string `json:"ignore_headers,omitempty" jsonschema:"Headers to skip when comparing headers (default: volatile headers such as date and set-cookie)"`
}

// DiffOutcomeOutput is the output for harreplay_diff_outcome.
type DiffOutcomeOutput struct {
	Diff     *types.DiffResult `json:"diff"`
	Severity string            `json:"severity"`
	Resource string            `json:"resource,omitempty"`
}

// ToolDiffOutcome compares the live response of a replayed transaction
// with the captured one.
func ToolDiffOutcome(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input DiffOutcomeInput) (*sdkmcp.CallToolResult, DiffOutcomeOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input DiffOutcomeInput) (*sdkmcp.CallToolResult, DiffOutcomeOutput, error) {
		if input.PreviewChars < 0 {
			return nil, DiffOutcomeOutput{}, ErrInvalidInput("preview_chars must be >= 0")
		}
		s, err := d.Session(input.SessionID)
		if err != nil {
			return nil, DiffOutcomeOutput{}, err
		}

		preview := input.PreviewChars
		if preview == 0 {
			preview = d.Config.DiffPreviewChars
		}
		result, err := s.Replayer.Diff(input.Index, &types.DiffOptions{
			PreviewChars:   preview,
			CompareHeaders: input.CompareHeaders,
			IgnoreHeaders:  input.IgnoreHeaders,
		})
		if err != nil {
			return nil, DiffOutcomeOutput{}, WrapReplayError(err)
		}

		return nil, DiffOutcomeOutput{
			Diff:     result,
			Severity: diffSeverity(result),
			Resource: outcomeResourceURI(s.ID, input.Index),
		}, nil
	}
}

// diffSeverity ranks a diff: "high" for a status change or a failed replay,
// "medium" for content type or body changes, "low" when only headers
// differ and "none" otherwise.
func diffSeverity(result *types.DiffResult) string {
	if result == nil {
		return "none"
	}
	if !result.Matches && len(result.Differences) == 0 {
		return "high"
	}
	severity := "none"
	for _, diff := range result.Differences {
		switch diff.Field {
		case types.FieldStatus:
			return "high"
		case types.FieldContentType, types.FieldBody:
			severity = "medium"
		}
	}
	if severity == "none" && !result.Headers.Empty() {
		severity = "low"
	}
	return severity
}
