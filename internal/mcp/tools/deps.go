package tools

import (
	"github.com/usestring/harreplay/internal/config"
	"github.com/usestring/harreplay/internal/query"
	"github.com/usestring/harreplay/internal/session"
)

// Deps contains all dependencies needed by tool handlers.
type Deps struct {
	Sessions *session.Manager
	Query    *query.Engine
	Config   *config.Config
}

// Session resolves a session ID, the active session when id is empty.
func (d *Deps) Session(id string) (*session.Session, error) {
	s, err := d.Sessions.Get(id)
	if err != nil {
		return nil, WrapReplayError(err)
	}
	return s, nil
}
