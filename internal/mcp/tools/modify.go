package tools

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/harreplay/pkg/har"
	"github.com/usestring/harreplay/pkg/mutate"
)

// ModifyRequestInput is the input for harreplay_modify_request.
type ModifyRequestInput struct {
	SessionID string       `json:"session_id,omitempty" jsonschema:"Session ID (default: active)"`
	Index     int          `json:"index" jsonschema:"Transaction index"`
	Spec      *mutate.Spec `json:"spec,omitempty" jsonschema:"Partial request overlay merged over earlier overlays; later fields win"`
	Clear     bool         `json:"clear,omitempty" jsonschema:"Drop all overlays for this index before applying spec"`
}

// ModifyRequestOutput is the output for harreplay_modify_request.
type ModifyRequestOutput struct {
	Index        int             `json:"index"`
	Modification *mutate.Spec    `json:"modification,omitempty"`
	Method       string          `json:"method"`
	URL          string          `json:"url"`
	Headers      []har.NameValue `json:"headers,omitempty"`
	Body         string          `json:"body,omitempty"`
}

// ToolModifyRequest stores a request overlay used by later replays.
func ToolModifyRequest(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input ModifyRequestInput) (*sdkmcp.CallToolResult, ModifyRequestOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input ModifyRequestInput) (*sdkmcp.CallToolResult, ModifyRequestOutput, error) {
		if input.Spec == nil && !input.Clear {
			return nil, ModifyRequestOutput{}, ErrInvalidInput("spec or clear is required")
		}
		s, err := d.Session(input.SessionID)
		if err != nil {
			return nil, ModifyRequestOutput{}, err
		}
		if _, err := s.Replayer.Entry(input.Index); err != nil {
			return nil, ModifyRequestOutput{}, WrapReplayError(err)
		}

		if input.Clear {
			s.Replayer.ClearModifications(input.Index)
		}
		if input.Spec != nil {
			if err := s.Replayer.Modify(input.Index, *input.Spec); err != nil {
				return nil, ModifyRequestOutput{}, WrapReplayError(err)
			}
		}

		effective, _ := s.Replayer.Request(input.Index)
		output := ModifyRequestOutput{
			Index:   input.Index,
			Method:  effective.Method,
			URL:     effective.URL,
			Headers: effective.Headers,
		}
		if spec, ok := s.Replayer.Modification(input.Index); ok {
			output.Modification = &spec
		}
		if effective.PostData != nil {
			output.Body, _ = DisplayBody([]byte(effective.PostData.Text), effective.PostData.MimeType, BodyModeCompact, maxPreviewBytes)
		}
		return nil, output, nil
	}
}
