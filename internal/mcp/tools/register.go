package tools

import (
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Register registers all tools with the MCP server.
func Register(srv *sdkmcp.Server, d *Deps) {
	AddTool(srv, &sdkmcp.Tool{
		Name:        "harreplay_load_archive",
		Description: "Load a HAR capture from disk and make it the active session. Returns session_id and entry_count. Reloading the same path starts a fresh session with no overrides or outcomes.",
	}, ToolLoadArchive(d))

	AddTool(srv, &sdkmcp.Tool{
		Name:        "harreplay_sessions",
		Description: "List loaded archives with their entry and replayed counts. The most recently loaded archive is active and used when session_id is omitted.",
	}, ToolSessionsList(d))

	AddTool(srv, &sdkmcp.Tool{
		Name:        "harreplay_list_entries",
		Description: "List captured transactions as summaries (index, method, url, status, mime_type, modified). Filter with select: {indices, methods, hosts, statuses, mime_types, header_names, text}. Pass indices to get_entry, modify_request or replay.",
	}, ToolListEntries(d))

	AddTool(srv, &sdkmcp.Tool{
		Name:        "harreplay_get_entry",
		Description: "Get one transaction: the request as it will be replayed (overrides applied), the captured response, its replay state and latest outcome. Bodies are compacted by default; set body_mode=full for raw text and include_headers=true for headers.",
	}, ToolGetEntry(d))

	AddTool(srv, &sdkmcp.Tool{
		Name:        "harreplay_modify_request",
		Description: "Override fields of a captured request before replay: method, url, headers, cookies, queryString, postData (text or params). Overlays for the same index merge, later values win. Set clear=true to drop earlier overlays. The capture itself is never changed.",
	}, ToolModifyRequest(d))

	AddTool(srv, &sdkmcp.Tool{
		Name:        "harreplay_replay",
		Description: "Send transactions to their live endpoints and compare each response with the capture (status, content type, body; JSON bodies compare structurally). Pass indices or select; with neither every transaction is replayed. Returns per-outcome results and a summary. Transport errors are recorded in outcomes, not returned.",
	}, ToolReplay(d))

	AddTool(srv, &sdkmcp.Tool{
		Name:        "harreplay_diff_outcome",
		Description: "Explain why a replayed transaction did not match: lists differing fields with captured and live values (JSON) or previews and hashes (other bodies). Set compare_headers=true for informational header changes. Requires a prior replay of the index.",
	}, ToolDiffOutcome(d))

	AddTool(srv, &sdkmcp.Tool{
		Name:        "harreplay_query_body",
		Description: "Extract values from replayed (target=live) or captured (target=captured) response bodies across transactions. Expression language is detected from the content type (jq for JSON, CSS for HTML, XPath for XML, regex for text, field name for forms); set mode to override.",
	}, ToolQueryBody(d))

	AddTool(srv, &sdkmcp.Tool{
		Name:        "harreplay_report",
		Description: "Summarize recorded outcomes of a session: matched, mismatched and failed counts with rates, and a list of outcomes. Set failures=true to list only non-matching ones and text=true for the plain-text report.",
	}, ToolReport(d))

	AddTool(srv, &sdkmcp.Tool{
		Name:        "harreplay_save_results",
		Description: "Write recorded outcomes to disk: json_path for a JSON dump (errors as {message, code, request, response}), har_path for a HAR archive of the live responses, report_path for the plain-text report. Parent directories are created.",
	}, ToolSaveResults(d))
}
