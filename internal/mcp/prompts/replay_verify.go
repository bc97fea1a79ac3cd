package prompts

import (
	"context"
	"fmt"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// HandleReplayAndVerify implements the replay workflow.
func HandleReplayAndVerify(cfg *Config) func(ctx context.Context, req *sdkmcp.GetPromptRequest) (*sdkmcp.GetPromptResult, error) {
	return func(ctx context.Context, req *sdkmcp.GetPromptRequest) (*sdkmcp.GetPromptResult, error) {
		args := req.Params.Arguments
		path, host, expect := args["path"], args["host"], args["expect"]

		var sb strings.Builder

		sb.WriteString("# Replay and Verify a HAR Capture\n\n")
		sb.WriteString("You are checking whether the HTTP traffic recorded in a HAR capture still behaves the same against the live servers. ")
		sb.WriteString("Replay the requests, then explain each response that no longer matches the capture.\n\n")

		sb.WriteString("## Context Usage Guide\n\n")
		sb.WriteString("- **Tools** return compact summaries; JSON bodies are trimmed by default\n")
		sb.WriteString("- **Resources** (`harreplay://session/{session}/entry/{index}` and `.../outcome/{index}`) return full bodies - only fetch when a diff preview is not enough\n\n")

		sb.WriteString("## Workflow Steps\n\n")
		sb.WriteString("1. **Load the capture** with `harreplay_load_archive`\n")
		sb.WriteString("2. **Pick transactions** with `harreplay_list_entries`\n")
		sb.WriteString("   - Skip static assets unless they matter; filter with `select.mime_types`\n")
		sb.WriteString("3. **Refresh stale credentials** with `harreplay_modify_request`\n")
		sb.WriteString("   - Expired tokens and cookies are the most common cause of 401/403 mismatches\n")
		sb.WriteString("4. **Replay** with `harreplay_replay`\n")
		sb.WriteString("5. **Explain mismatches** with `harreplay_diff_outcome` for each mismatched index\n")
		sb.WriteString("   - `status` differences are the most severe; `body` differences in JSON are reported as values\n")
		sb.WriteString("   - Timestamps, IDs and nonces in bodies are expected noise\n")
		sb.WriteString("6. **Save** the run with `harreplay_save_results` if the user wants artifacts\n\n")

		sb.WriteString("## Suggested Tools\n\n")
		sb.WriteString("```\n")
		if path != "" {
			fmt.Fprintf(&sb, "harreplay_load_archive(path=%q)\n", path)
		} else {
			sb.WriteString("harreplay_load_archive(path=\"capture.har\")\n")
		}
		if host != "" {
			fmt.Fprintf(&sb, "harreplay_list_entries(select={hosts: [%q]})\n", host)
		} else {
			sb.WriteString("harreplay_list_entries()\n")
		}
		sb.WriteString("harreplay_modify_request(index=3, spec={headers: {\"Authorization\": \"Bearer <fresh token>\"}})\n")

		replay := []string{}
		if host != "" {
			replay = append(replay, fmt.Sprintf("select={hosts: [%q]}", host))
		}
		if expect != "" {
			replay = append(replay, fmt.Sprintf("expect=%q", expect))
		}
		if cfg.Concurrency <= 1 {
			replay = append(replay, "concurrency=4")
		}
		fmt.Fprintf(&sb, "harreplay_replay(%s)\n", strings.Join(replay, ", "))
		sb.WriteString("harreplay_diff_outcome(index=3, compare_headers=true)\n")
		sb.WriteString("harreplay_report(failures=true)\n")
		sb.WriteString("```\n\n")

		sb.WriteString("## Interpreting Outcomes\n\n")
		sb.WriteString("- **matched**: status, content type and body agree (JSON compared structurally)\n")
		sb.WriteString("- **mismatched**: the server answered differently; use the diff\n")
		sb.WriteString("- **failed**: no response; `error_code` is one of TIMEOUT, CONNECTION_REFUSED, CONNECTION_RESET, DNS, TLS, INVALID_REQUEST, NETWORK\n")
		sb.WriteString("- **expect** is reported separately from match; a mismatched response can still pass the expectation\n\n")

		sb.WriteString("## Tips\n\n")
		sb.WriteString("- Redirects are not followed unless REPLAY_FOLLOW_REDIRECTS is set, so captured 3xx responses compare as recorded\n")
		if cfg.ProxyURL != "" {
			fmt.Fprintf(&sb, "- Requests go through the proxy at %s\n", cfg.ProxyURL)
		}
		if cfg.MaxBodySize > 0 {
			fmt.Fprintf(&sb, "- Live bodies larger than %d bytes are truncated and will not match\n", cfg.MaxBodySize)
		}
		sb.WriteString("- Replaying an index again replaces its previous outcome\n")

		return &sdkmcp.GetPromptResult{
			Description: "Guide for replaying a HAR capture and explaining mismatches",
			Messages: []*sdkmcp.PromptMessage{
				{
					Role:    "user",
					Content: &sdkmcp.TextContent{Text: sb.String()},
				},
			},
		}, nil
	}
}
