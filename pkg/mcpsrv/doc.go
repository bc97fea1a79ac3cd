// Package mcpsrv embeds the harreplay MCP server.
//
// The server keeps loaded HAR archives as sessions and exposes tools to list
// captured transactions, override requests, replay them against the live
// endpoints and explain mismatches. Everything is configured from the
// environment (see internal/config) unless [WithConfig] is given.
//
//	srv, err := mcpsrv.NewServer()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer srv.Close()
//	if err := srv.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// # Extending
//
// Custom tools get the same sessions as the builtin ones through [Deps].
// A tool that reports the slowest replays of the active session:
//
//	mcpsrv.WithDepsTool(&mcp.Tool{Name: "slowest_replays"},
//	    func(d *mcpsrv.Deps) func(context.Context, *mcp.CallToolRequest, SlowInput) (*mcp.CallToolResult, SlowOutput, error) {
//	        return func(ctx context.Context, req *mcp.CallToolRequest, in SlowInput) (*mcp.CallToolResult, SlowOutput, error) {
//	            s, err := d.Sessions.Get(in.SessionID)
//	            if err != nil {
//	                return nil, SlowOutput{}, err
//	            }
//	            return nil, slowest(s.Replayer.Sink().Outcomes(), in.Limit), nil
//	        }
//	    })
//
// examples/slowest contains the complete program.
//
// # Metrics
//
// With METRICS_ADDR or [WithMetricsAddr] set, Run also serves the replay
// counters and latency histogram on /metrics.
package mcpsrv
