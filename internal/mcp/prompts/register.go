package prompts

import (
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Register adds the workflow prompts to srv.
func Register(srv *sdkmcp.Server, cfg *Config) {
	srv.AddPrompt(&sdkmcp.Prompt{
		Name:        "replay_and_verify",
		Description: "RECOMMENDED: Replay a HAR capture against live endpoints and explain every mismatch. Start here - walks through loading, overriding, replaying and diffing.",
		Arguments: []*sdkmcp.PromptArgument{
			{Name: "path", Description: "Path to the HAR file to load"},
			{Name: "host", Description: "Only replay requests to this host"},
			{Name: "expect", Description: "jq success expression checked against each live response (e.g. '.status < 400')"},
		},
	}, HandleReplayAndVerify(cfg))

	srv.AddPrompt(&sdkmcp.Prompt{
		Name:        "explain_mismatch",
		Description: "Diagnose one mismatched or failed replay outcome and classify the difference.",
		Arguments: []*sdkmcp.PromptArgument{
			{Name: "index", Description: "Transaction index of the outcome", Required: true},
			{Name: "session", Description: "Session ID (default: active)"},
		},
	}, HandleExplainMismatch(cfg))
}
