package mcpsrv

import (
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/harreplay/internal/mcp/tools"
)

// AddTool is [sdkmcp.AddTool] plus a startup check of the output type. It
// panics when the zero value of Out would violate the schema the SDK infers,
// most often a slice field without omitzero that marshals as null.
func AddTool[In, Out any](srv *sdkmcp.Server, t *sdkmcp.Tool, h sdkmcp.ToolHandlerFor[In, Out]) {
	tools.AddTool(srv, t, h)
}
