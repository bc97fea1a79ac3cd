package tools

import (
	"context"
	"fmt"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/harreplay/internal/results"
	"github.com/usestring/harreplay/pkg/types"
)

// ReportInput is the input for harreplay_report.
type ReportInput struct {
	SessionID string `json:"session_id,omitempty" jsonschema:"Session ID (default: active)"`
	Text      bool   `json:"text,omitempty" jsonschema:"Include the plain-text report"`
	Failures  bool   `json:"failures,omitempty" jsonschema:"List only mismatched and failed outcomes"`
	Limit     int    `json:"limit,omitempty" jsonschema:"Max outcomes to list (default 50)"`
}

// ReportOutput is the output for harreplay_report.
type ReportOutput struct {
	RunID     string        `json:"run_id"`
	Summary   types.Summary `json:"summary"`
	Outcomes  []OutcomeView `json:"outcomes,omitzero"`
	Truncated bool          `json:"truncated,omitempty"`
	Report    string        `json:"report,omitempty"`
}

// SaveResultsInput is the input for harreplay_save_results.
type SaveResultsInput struct {
	SessionID  string `json:"session_id,omitempty" jsonschema:"Session ID (default: active)"`
	JSONPath   string `json:"json_path,omitempty" jsonschema:"Write the outcome dump as JSON here"`
	HARPath    string `json:"har_path,omitempty" jsonschema:"Write the replayed responses as a HAR archive here"`
	ReportPath string `json:"report_path,omitempty" jsonschema:"Write the plain-text report here"`
	Reset      bool   `json:"reset,omitempty" jsonschema:"Drop recorded outcomes after saving"`
}

// SaveResultsOutput is the output for harreplay_save_results.
type SaveResultsOutput struct {
	Written  []string `json:"written,omitzero"`
	Outcomes int      `json:"outcomes"`
}

// ToolReport summarizes the recorded outcomes of a session.
func ToolReport(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input ReportInput) (*sdkmcp.CallToolResult, ReportOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input ReportInput) (*sdkmcp.CallToolResult, ReportOutput, error) {
		s, err := d.Session(input.SessionID)
		if err != nil {
			return nil, ReportOutput{}, err
		}

		outcomes := s.Replayer.Sink().Outcomes()
		output := ReportOutput{
			RunID:   s.Replayer.RunID(),
			Summary: types.Summarize(outcomes),
		}
		if input.Text {
			output.Report = results.Report(outcomes)
		}

		listed := outcomes
		if input.Failures {
			listed = listed[:0:0]
			for i := range outcomes {
				if !outcomes[i].Matched() {
					listed = append(listed, outcomes[i])
				}
			}
		}
		limit := clampLimit(input.Limit, d.Config.DefaultListLimit, maxListLimit)
		if len(listed) > limit {
			listed = listed[:limit]
			output.Truncated = true
		}
		output.Outcomes = OutcomeViews(listed)
		return nil, output, nil
	}
}

// ToolSaveResults writes the recorded outcomes to files.
func ToolSaveResults(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input SaveResultsInput) (*sdkmcp.CallToolResult, SaveResultsOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input SaveResultsInput) (*sdkmcp.CallToolResult, SaveResultsOutput, error) {
		if input.JSONPath == "" && input.HARPath == "" && input.ReportPath == "" {
			return nil, SaveResultsOutput{}, ErrInvalidInput("at least one of json_path, har_path or report_path is required")
		}
		s, err := d.Session(input.SessionID)
		if err != nil {
			return nil, SaveResultsOutput{}, err
		}

		outcomes := s.Replayer.Sink().Outcomes()
		output := SaveResultsOutput{Written: make([]string, 0, 3), Outcomes: len(outcomes)}
		writers := []struct {
			path string
			save func(string, []types.Outcome) error
		}{
			{input.JSONPath, results.SaveJSON},
			{input.HARPath, results.SaveArchive},
			{input.ReportPath, results.SaveReport},
		}
		for _, w := range writers {
			if w.path == "" {
				continue
			}
			if err := w.save(w.path, outcomes); err != nil {
				return nil, SaveResultsOutput{}, &CodedError{Code: ErrCodeReplay, Message: fmt.Sprintf("writing %s", w.path), Cause: err}
			}
			output.Written = append(output.Written, w.path)
		}
		if input.Reset {
			s.Replayer.Sink().Reset()
		}
		return nil, output, nil
	}
}
