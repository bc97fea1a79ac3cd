package mcpsrv

import (
	"context"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/usestring/harreplay/internal/config"
)

type countInput struct {
	SessionID string `json:"session_id,omitempty"`
}

type countOutput struct {
	Failed int `json:"failed"`
}

func TestNewServer(t *testing.T) {
	cfg := &config.Config{
		Concurrency:          1,
		RateLimitBurst:       1,
		ArchiveCacheMaxItems: 2,
		LogLevel:             "error",
		MetricsAddr:          "127.0.0.1:0",
	}

	var built *Deps
	srv, err := NewServer(
		WithConfig(cfg),
		WithMetricsAddr(""),
		WithoutBuiltinPrompts(),
		WithDepsTool(
			&mcp.Tool{Name: "failed_count", Description: "Count failed replays"},
			func(d *Deps) func(context.Context, *mcp.CallToolRequest, countInput) (*mcp.CallToolResult, countOutput, error) {
				built = d
				return func(ctx context.Context, req *mcp.CallToolRequest, input countInput) (*mcp.CallToolResult, countOutput, error) {
					s, err := d.Sessions.Get(input.SessionID)
					if err != nil {
						return nil, countOutput{}, err
					}
					return nil, countOutput{Failed: s.Replayer.Sink().Summary().Failed}, nil
				}
			},
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })

	assert.NotNil(t, srv.MCPServer())
	deps := srv.Deps()
	require.NotNil(t, deps)
	assert.Same(t, cfg, deps.Config)
	assert.NotNil(t, deps.Sessions)
	assert.NotNil(t, deps.Query)
	assert.NotNil(t, deps.Metrics)
	assert.Same(t, deps, built)
	assert.Empty(t, srv.metricsAddr)
}

func TestNewServer_MetricsAddrFromConfig(t *testing.T) {
	cfg := &config.Config{Concurrency: 1, RateLimitBurst: 1, ArchiveCacheMaxItems: 2, LogLevel: "error", MetricsAddr: ":9464"}
	srv, err := NewServer(WithConfig(cfg), WithoutBuiltinTools())
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })
	assert.Equal(t, ":9464", srv.metricsAddr)
}
