package tools

import (
	"context"
	"errors"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/harreplay/internal/query"
	"github.com/usestring/harreplay/pkg/types"
)

const maxReplayConcurrency = 32

// ReplayInput is the input for harreplay_replay.
type ReplayInput struct {
	SessionID   string             `json:"session_id,omitempty" jsonschema:"Session ID (default: active)"`
	Indices     []int              `json:"indices,omitempty" jsonschema:"Transactions to replay; duplicates are replayed once"`
	Select      *types.SelectQuery `json:"select,omitempty" jsonschema:"Replay every transaction matching these filters when indices is empty"`
	Concurrency int                `json:"concurrency,omitempty" jsonschema:"Workers for this call (default: session setting)"`
	DelayMs     *int               `json:"delay_ms,omitempty" jsonschema:"Delay between requests of one worker; kept for later calls"`
	Expect      string             `json:"expect,omitempty" jsonschema:"jq success expression over {status, headers, body, captured}; kept for later calls"`
	TimeoutMs   int                `json:"timeout_ms,omitempty" jsonschema:"Abort the whole call after this many milliseconds"`
}

// ReplayOutput is the output for harreplay_replay.
type ReplayOutput struct {
	RunID       string        `json:"run_id"`
	Outcomes    []OutcomeView `json:"outcomes,omitzero"`
	Summary     types.Summary `json:"summary"`
	Interrupted bool          `json:"interrupted,omitempty"`
	Error       string        `json:"error,omitempty"`
	Hint        string        `json:"hint,omitempty"`
}

// ToolReplay replays transactions against their live endpoints.
func ToolReplay(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input ReplayInput) (*sdkmcp.CallToolResult, ReplayOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input ReplayInput) (*sdkmcp.CallToolResult, ReplayOutput, error) {
		if input.Concurrency < 0 || input.TimeoutMs < 0 {
			return nil, ReplayOutput{}, ErrInvalidInput("concurrency and timeout_ms must be >= 0")
		}
		if input.DelayMs != nil && *input.DelayMs < 0 {
			return nil, ReplayOutput{}, ErrInvalidInput("delay_ms must be >= 0")
		}
		s, err := d.Session(input.SessionID)
		if err != nil {
			return nil, ReplayOutput{}, err
		}

		if input.Expect != "" {
			x, err := query.CompileExpectation(input.Expect)
			if err != nil {
				return nil, ReplayOutput{}, ErrInvalidInput(err.Error())
			}
			s.Replayer.SetExpect(x)
		}
		if input.DelayMs != nil {
			s.Replayer.SetDelay(time.Duration(*input.DelayMs) * time.Millisecond)
		}

		indices := input.Indices
		if len(indices) == 0 {
			indices = s.Index.Indices(input.Select)
		}

		if input.TimeoutMs > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, time.Duration(input.TimeoutMs)*time.Millisecond)
			defer cancel()
		}

		var outcomes []types.Outcome
		if input.Concurrency > 0 {
			outcomes, err = s.Replayer.ReplayConcurrent(ctx, indices, min(input.Concurrency, maxReplayConcurrency))
		} else {
			outcomes, err = s.Replayer.ReplayIndices(ctx, indices)
		}

		output := ReplayOutput{
			RunID:    s.Replayer.RunID(),
			Outcomes: OutcomeViews(outcomes),
			Summary:  types.Summarize(outcomes),
		}
		switch {
		case err == nil:
		case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
			output.Interrupted = true
			output.Error = err.Error()
		default:
			return nil, ReplayOutput{}, WrapReplayError(err)
		}
		if output.Summary.Mismatched > 0 {
			output.Hint = "Use harreplay_diff_outcome on a mismatched index to see what changed."
		}
		return nil, output, nil
	}
}
