package mcpsrv

import (
	"context"
	"fmt"
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/harreplay/internal/config"
	"github.com/usestring/harreplay/internal/logging"
	"github.com/usestring/harreplay/internal/mcp"
	"github.com/usestring/harreplay/internal/mcp/tools"
	"github.com/usestring/harreplay/internal/metrics"
	"github.com/usestring/harreplay/internal/query"
	"github.com/usestring/harreplay/internal/session"
)

// Server is the harreplay MCP server.
// It wraps the internal implementation and provides extension points.
type Server struct {
	internal    *mcp.Server
	deps        *Deps
	metricsAddr string
	logCleanup  func() error
}

// NewServer creates a new MCP server with the builtin replay tools.
//
// Configuration is loaded from the environment unless WithConfig is given.
// Use functional options to configure logging, add custom tools, etc.
func NewServer(opts ...Option) (*Server, error) {
	cfg := &serverConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.config == nil {
		cfg.config = config.Load()
	}

	logCfg := logging.Config{
		Level:      cfg.config.LogLevel,
		Format:     cfg.config.LogFormat,
		FilePath:   cfg.config.LogFile,
		MaxSizeMB:  cfg.config.LogMaxSizeMB,
		MaxBackups: cfg.config.LogMaxBackups,
		MaxAgeDays: cfg.config.LogMaxAgeDays,
		Compress:   cfg.config.LogCompress,
	}
	if cfg.logLevel != "" {
		logCfg.Level = cfg.logLevel
	}
	if cfg.logFile != "" {
		logCfg.FilePath = cfg.logFile
	}
	logCleanup, err := logging.Setup(logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to setup logging: %w", err)
	}

	m := metrics.New()
	sessions, err := session.NewManager(cfg.config, m)
	if err != nil {
		_ = logCleanup()
		return nil, fmt.Errorf("failed to create session manager: %w", err)
	}
	queryEngine := query.NewEngine()

	toolDeps := &tools.Deps{
		Sessions: sessions,
		Query:    queryEngine,
		Config:   cfg.config,
	}
	deps := &Deps{
		Sessions: sessions,
		Query:    queryEngine,
		Config:   cfg.config,
		Metrics:  m,
	}

	var internalOpts []mcp.ServerOption
	if !cfg.disableBuiltinTools {
		internalOpts = append(internalOpts, mcp.WithBuiltinTools())
	}
	if !cfg.disableBuiltinPrompts {
		internalOpts = append(internalOpts, mcp.WithBuiltinPrompts())
	}

	for _, fn := range cfg.registrations {
		internalOpts = append(internalOpts, mcp.WithCustomRegistration(func(srv *sdkmcp.Server) {
			fn(srv, deps)
		}))
	}

	internal, err := mcp.NewServer(toolDeps, internalOpts...)
	if err != nil {
		_ = logCleanup()
		return nil, fmt.Errorf("failed to create server: %w", err)
	}

	metricsAddr := cfg.config.MetricsAddr
	if cfg.metricsAddr != nil {
		metricsAddr = *cfg.metricsAddr
	}

	return &Server{
		internal:    internal,
		deps:        deps,
		metricsAddr: metricsAddr,
		logCleanup:  logCleanup,
	}, nil
}

// Run starts the MCP server with stdio transport, and the metrics endpoint
// when an address is configured. The server runs until the context is
// cancelled.
func (s *Server) Run(ctx context.Context) error {
	if s.metricsAddr != "" {
		go func() {
			if err := s.deps.Metrics.Serve(ctx, s.metricsAddr); err != nil {
				slog.Error("metrics server stopped", slog.String("error", err.Error()))
			}
		}()
	}
	return s.internal.Run(ctx)
}

// Close cleans up server resources.
func (s *Server) Close() error {
	if s.logCleanup != nil {
		return s.logCleanup()
	}
	return nil
}

// Deps returns the dependencies for building custom tools.
func (s *Server) Deps() *Deps {
	return s.deps
}

// MCPServer returns the underlying MCP server.
func (s *Server) MCPServer() *sdkmcp.Server {
	return s.internal.MCPServer()
}
