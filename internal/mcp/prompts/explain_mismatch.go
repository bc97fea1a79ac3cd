package prompts

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// HandleExplainMismatch walks through diagnosing one mismatched or failed
// replay outcome.
func HandleExplainMismatch(cfg *Config) func(ctx context.Context, req *sdkmcp.GetPromptRequest) (*sdkmcp.GetPromptResult, error) {
	return func(ctx context.Context, req *sdkmcp.GetPromptRequest) (*sdkmcp.GetPromptResult, error) {
		args := req.Params.Arguments
		index, err := strconv.Atoi(strings.TrimSpace(args["index"]))
		if err != nil || index < 0 {
			return nil, fmt.Errorf("index must be a non-negative integer, got %q", args["index"])
		}
		session := ""
		if id := args["session"]; id != "" {
			session = fmt.Sprintf("session_id=%q, ", id)
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "# Explain Replay Outcome %d\n\n", index)
		sb.WriteString("The replayed response for this transaction did not match the capture. Find out why and say whether the difference is a regression, expected drift, or a replay artifact.\n\n")

		sb.WriteString("## Steps\n\n")
		fmt.Fprintf(&sb, "1. `harreplay_get_entry(%sindex=%d, include_headers=true)` to see the request as it was replayed\n", session, index)
		fmt.Fprintf(&sb, "2. `harreplay_diff_outcome(%sindex=%d, compare_headers=true)` to list the differing fields\n", session, index)
		sb.WriteString("3. Depending on the severity:\n")
		sb.WriteString("   - **high**: compare status codes; 401/403 usually means stale credentials, 404 a moved route, 5xx a server problem\n")
		sb.WriteString("   - **medium**: query the bodies on both sides, for example\n")
		fmt.Fprintf(&sb, "     `harreplay_query_body(%sindices=[%d], expression=\".\", target=\"captured\")` and the same with `target=\"live\"`\n", session, index)
		sb.WriteString("   - **low**: only headers changed; this never fails a match\n")
		sb.WriteString("4. If credentials look stale, override them with `harreplay_modify_request` and replay just this index\n\n")

		sb.WriteString("## Replay Artifacts\n\n")
		sb.WriteString("- Timestamps, request IDs, CSRF tokens and nonces differ on every call\n")
		sb.WriteString("- Pagination cursors and ordering of unsorted collections may change\n")
		if cfg.MaxBodySize > 0 {
			fmt.Fprintf(&sb, "- Bodies over %d bytes are truncated before comparison\n", cfg.MaxBodySize)
		}
		if cfg.ProxyURL != "" {
			fmt.Fprintf(&sb, "- Traffic went through %s; check the proxy if responses look rewritten\n", cfg.ProxyURL)
		}

		return &sdkmcp.GetPromptResult{
			Description: fmt.Sprintf("Diagnose replay outcome %d", index),
			Messages: []*sdkmcp.PromptMessage{
				{Role: "user", Content: &sdkmcp.TextContent{Text: sb.String()}},
			},
		}, nil
	}
}
