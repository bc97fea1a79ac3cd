package mcpsrv

import (
	"github.com/usestring/harreplay/internal/config"
	"github.com/usestring/harreplay/internal/metrics"
	"github.com/usestring/harreplay/internal/query"
	"github.com/usestring/harreplay/internal/session"
)

// Deps contains all dependencies available to custom tools.
// This gives custom tools access to the same sessions as builtin tools.
type Deps struct {
	Sessions *session.Manager
	Query    *query.Engine
	Config   *config.Config
	Metrics  *metrics.Metrics
}
