package mcp

import (
	"context"
	"errors"
	"log/slog"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/harreplay/internal/mcp/tools"
)

// LoggingMiddleware logs every incoming request with the tool name or
// resource URI it targets. Coded tool errors are client mistakes and are
// logged at warn level.
func LoggingMiddleware() sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			start := time.Now()
			result, err := next(ctx, method, req)

			attrs := append(requestAttrs(method, req),
				slog.Int64("duration_ms", time.Since(start).Milliseconds()))

			var coded *tools.CodedError
			switch {
			case errors.As(err, &coded):
				attrs = append(attrs, slog.String("code", coded.Code))
				slog.LogAttrs(ctx, slog.LevelWarn, "request rejected", attrs...)
			case err != nil:
				attrs = append(attrs, slog.String("error", err.Error()))
				slog.LogAttrs(ctx, slog.LevelError, "request failed", attrs...)
			case isToolError(result):
				slog.LogAttrs(ctx, slog.LevelWarn, "tool returned error", attrs...)
			default:
				slog.LogAttrs(ctx, slog.LevelDebug, "request completed", attrs...)
			}
			return result, err
		}
	}
}

func requestAttrs(method string, req sdkmcp.Request) []slog.Attr {
	attrs := []slog.Attr{slog.String("method", method)}
	switch r := req.(type) {
	case *sdkmcp.CallToolRequest:
		if r.Params != nil {
			attrs = append(attrs, slog.String("tool", r.Params.Name))
		}
	case *sdkmcp.ReadResourceRequest:
		if r.Params != nil {
			attrs = append(attrs, slog.String("uri", r.Params.URI))
		}
	case *sdkmcp.GetPromptRequest:
		if r.Params != nil {
			attrs = append(attrs, slog.String("prompt", r.Params.Name))
		}
	}
	return attrs
}

func isToolError(result sdkmcp.Result) bool {
	res, ok := result.(*sdkmcp.CallToolResult)
	return ok && res != nil && res.IsError
}
