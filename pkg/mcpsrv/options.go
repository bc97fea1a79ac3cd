package mcpsrv

import (
	"context"

	mcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/harreplay/internal/config"
)

type serverConfig struct {
	config      *config.Config
	metricsAddr *string
	logLevel    string
	logFile     string

	disableBuiltinTools   bool
	disableBuiltinPrompts bool

	// registrations run in option order once Deps exist
	registrations []func(*mcp.Server, *Deps)
}

func (c *serverConfig) register(fn func(*mcp.Server, *Deps)) {
	c.registrations = append(c.registrations, fn)
}

// Option configures the server.
type Option func(*serverConfig)

// WithConfig uses c instead of the configuration loaded from the environment.
func WithConfig(c *config.Config) Option {
	return func(cfg *serverConfig) {
		if c != nil {
			cfg.config = c
		}
	}
}

// WithLogLevel overrides LOG_LEVEL (debug, info, warn, error).
func WithLogLevel(level string) Option {
	return func(cfg *serverConfig) { cfg.logLevel = level }
}

// WithLogFile overrides LOG_FILE. Logs always go to stderr when no file is set
// because stdout carries the MCP stream.
func WithLogFile(path string) Option {
	return func(cfg *serverConfig) { cfg.logFile = path }
}

// WithMetricsAddr serves Prometheus metrics on addr while the server runs.
// An empty addr disables the endpoint even when METRICS_ADDR is set.
func WithMetricsAddr(addr string) Option {
	return func(cfg *serverConfig) { cfg.metricsAddr = &addr }
}

// WithoutBuiltinTools leaves out the harreplay_* tools and the entry and
// outcome resources.
func WithoutBuiltinTools() Option {
	return func(cfg *serverConfig) { cfg.disableBuiltinTools = true }
}

// WithoutBuiltinPrompts leaves out the workflow prompts.
func WithoutBuiltinPrompts() Option {
	return func(cfg *serverConfig) { cfg.disableBuiltinPrompts = true }
}

// WithTool registers a tool that needs nothing from the server. Its output
// type goes through the same zero-value schema check as the builtin tools.
//
//	mcpsrv.WithTool(&mcp.Tool{Name: "status_text", Description: "Reason phrase for a status code"},
//	    func(ctx context.Context, req *mcp.CallToolRequest, in StatusInput) (*mcp.CallToolResult, StatusOutput, error) {
//	        return nil, StatusOutput{Text: http.StatusText(in.Code)}, nil
//	    })
func WithTool[In, Out any](tool *mcp.Tool, handler func(context.Context, *mcp.CallToolRequest, In) (*mcp.CallToolResult, Out, error)) Option {
	return func(cfg *serverConfig) {
		cfg.register(func(srv *mcp.Server, _ *Deps) { AddTool(srv, tool, handler) })
	}
}

// WithDepsTool registers a tool built from the server's Deps, giving it the
// sessions loaded by harreplay_load_archive.
//
//	mcpsrv.WithDepsTool(&mcp.Tool{Name: "failed_count", Description: "Count failed replays"},
//	    func(d *mcpsrv.Deps) func(context.Context, *mcp.CallToolRequest, CountInput) (*mcp.CallToolResult, CountOutput, error) {
//	        return func(ctx context.Context, req *mcp.CallToolRequest, in CountInput) (*mcp.CallToolResult, CountOutput, error) {
//	            s, err := d.Sessions.Get(in.SessionID)
//	            if err != nil {
//	                return nil, CountOutput{}, err
//	            }
//	            return nil, CountOutput{Failed: s.Replayer.Sink().Summary().Failed}, nil
//	        }
//	    })
func WithDepsTool[In, Out any](tool *mcp.Tool, builder func(*Deps) func(context.Context, *mcp.CallToolRequest, In) (*mcp.CallToolResult, Out, error)) Option {
	return func(cfg *serverConfig) {
		cfg.register(func(srv *mcp.Server, deps *Deps) { AddTool(srv, tool, builder(deps)) })
	}
}

// WithPrompt registers a prompt.
func WithPrompt(prompt *mcp.Prompt, handler func(context.Context, *mcp.GetPromptRequest) (*mcp.GetPromptResult, error)) Option {
	return func(cfg *serverConfig) {
		cfg.register(func(srv *mcp.Server, _ *Deps) { srv.AddPrompt(prompt, handler) })
	}
}

// WithResourceTemplate registers a resource template. Builtin resources use
// the harreplay:// scheme; pick another one to avoid clashes.
func WithResourceTemplate(template *mcp.ResourceTemplate, handler func(context.Context, *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error)) Option {
	return func(cfg *serverConfig) {
		cfg.register(func(srv *mcp.Server, _ *Deps) { srv.AddResourceTemplate(template, handler) })
	}
}
