package tools

import (
	"context"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/usestring/harreplay/internal/session"
)

// LoadArchiveInput is the input for harreplay_load_archive.
type LoadArchiveInput struct {
	Path string `json:"path" jsonschema:"Path to a .har file; .gz .zst .lz4 and .sz compressed archives are accepted"`
}

// SessionInfo summarizes a loaded archive.
type SessionInfo struct {
	SessionID  string `json:"session_id"`
	Path       string `json:"path"`
	EntryCount int    `json:"entry_count"`
	Creator    string `json:"creator,omitempty"`
	LoadedAt   string `json:"loaded_at"`
	Active     bool   `json:"active"`
	Replayed   int    `json:"replayed"`
}

// LoadArchiveOutput is the output for harreplay_load_archive.
type LoadArchiveOutput struct {
	Session SessionInfo `json:"session"`
	Hint    string      `json:"hint,omitempty"`
}

// SessionsListInput is the input for harreplay_sessions.
type SessionsListInput struct{}

// SessionsListOutput is the output for harreplay_sessions.
type SessionsListOutput struct {
	Sessions []SessionInfo `json:"sessions,omitzero"`
}

func newSessionInfo(s *session.Session, active string) SessionInfo {
	info := SessionInfo{
		SessionID:  s.ID,
		Path:       s.Path,
		EntryCount: s.Replayer.Count(),
		LoadedAt:   s.LoadedAt.UTC().Format(time.RFC3339),
		Active:     s.ID == active,
		Replayed:   s.Replayer.Sink().Len(),
	}
	if s.Archive != nil {
		info.Creator = s.Archive.Log.Creator.Name
	}
	return info
}

// ToolLoadArchive loads a HAR file and makes it the active session.
func ToolLoadArchive(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input LoadArchiveInput) (*sdkmcp.CallToolResult, LoadArchiveOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input LoadArchiveInput) (*sdkmcp.CallToolResult, LoadArchiveOutput, error) {
		if input.Path == "" {
			return nil, LoadArchiveOutput{}, ErrInvalidInput("path is required")
		}

		s, err := d.Sessions.Load(ctx, input.Path)
		if err != nil {
			return nil, LoadArchiveOutput{}, WrapReplayError(err)
		}

		return nil, LoadArchiveOutput{
			Session: newSessionInfo(s, d.Sessions.Active()),
			Hint:    "Use harreplay_list_entries to pick transactions, then harreplay_replay.",
		}, nil
	}
}

// ToolSessionsList lists loaded archives, least recently used first.
func ToolSessionsList(d *Deps) func(ctx context.Context, req *sdkmcp.CallToolRequest, input SessionsListInput) (*sdkmcp.CallToolResult, SessionsListOutput, error) {
	return func(ctx context.Context, req *sdkmcp.CallToolRequest, input SessionsListInput) (*sdkmcp.CallToolResult, SessionsListOutput, error) {
		active := d.Sessions.Active()
		sessions := d.Sessions.List()
		output := SessionsListOutput{Sessions: make([]SessionInfo, 0, len(sessions))}
		for _, s := range sessions {
			output.Sessions = append(output.Sessions, newSessionInfo(s, active))
		}
		return nil, output, nil
	}
}
