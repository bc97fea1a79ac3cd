package mcp

import (
	"context"
	"errors"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/harreplay/internal/mcp/prompts"
	"github.com/usestring/harreplay/internal/mcp/tools"
	"github.com/usestring/harreplay/pkg/har"
)

// ServerName is the implementation name reported to MCP clients.
const ServerName = "harreplay-mcp"

const instructions = `harreplay replays HTTP transactions recorded in HAR archives against the live servers and compares the responses with the captured ones.
Typical workflow: harreplay_load_archive, harreplay_list_entries, optionally harreplay_modify_request, harreplay_replay, then harreplay_diff_outcome or harreplay_query_body on interesting indices, and harreplay_report or harreplay_save_results at the end.
Replays send real requests; prefer small selections before replaying a whole archive.`

// Server wraps the MCP server with the replay tools, resources and prompts.
type Server struct {
	mcpServer *sdkmcp.Server
	deps      *tools.Deps

	builtinTools   bool
	builtinPrompts bool
	registrations  []func(*sdkmcp.Server)
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithBuiltinTools enables the replay tools and the entry and outcome resources.
func WithBuiltinTools() ServerOption {
	return func(s *Server) { s.builtinTools = true }
}

// WithBuiltinPrompts enables the workflow prompts.
func WithBuiltinPrompts() ServerOption {
	return func(s *Server) { s.builtinPrompts = true }
}

// WithCustomRegistration runs fn against the underlying server after the
// builtin capabilities are registered.
func WithCustomRegistration(fn func(*sdkmcp.Server)) ServerOption {
	return func(s *Server) {
		s.registrations = append(s.registrations, fn)
	}
}

// NewServer builds the MCP server around deps.
func NewServer(deps *tools.Deps, opts ...ServerOption) (*Server, error) {
	if deps == nil || deps.Config == nil {
		return nil, errors.New("deps with a config are required")
	}

	s := &Server{deps: deps}
	for _, opt := range opts {
		opt(s)
	}

	s.mcpServer = sdkmcp.NewServer(
		&sdkmcp.Implementation{Name: ServerName, Version: har.CreatorVersion},
		&sdkmcp.ServerOptions{Instructions: instructions},
	)
	s.mcpServer.AddReceivingMiddleware(LoggingMiddleware())

	if s.builtinTools {
		tools.Register(s.mcpServer, deps)
		s.registerResources()
	}
	if s.builtinPrompts {
		prompts.Register(s.mcpServer, &prompts.Config{
			ProxyURL:    deps.Config.ProxyURL,
			Concurrency: deps.Config.Concurrency,
			MaxBodySize: deps.Config.MaxBodyBytes,
		})
	}
	for _, fn := range s.registrations {
		fn(s.mcpServer)
	}
	return s, nil
}

// Run serves MCP over stdio until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &sdkmcp.StdioTransport{})
}

// MCPServer returns the underlying MCP server.
func (s *Server) MCPServer() *sdkmcp.Server {
	return s.mcpServer
}
