// Package session keeps loaded archives and their replayers for the MCP
// server. Sessions are held in a bounded LRU; loading the same file
// concurrently parses it once.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/usestring/harreplay/internal/cache"
	"github.com/usestring/harreplay/internal/config"
	"github.com/usestring/harreplay/internal/indexer"
	"github.com/usestring/harreplay/internal/metrics"
	"github.com/usestring/harreplay/internal/replay"
	"github.com/usestring/harreplay/pkg/har"
)

// ErrNotFound is returned for unknown session IDs and when no session is active.
var ErrNotFound = errors.New("session not found")

// Session is one loaded archive.
type Session struct {
	ID       string
	Path     string
	LoadedAt time.Time
	Archive  *har.Archive
	Replayer *replay.Replayer
	Index    *indexer.Indexer
}

// Manager owns the loaded sessions.
type Manager struct {
	cfg     *config.Config
	metrics *metrics.Metrics

	sessions *cache.LRU[string, *Session]
	loads    singleflight.Group

	mu     sync.RWMutex
	active string
}

// NewManager creates a manager keeping at most cfg.ArchiveCacheMaxItems
// sessions. m may be nil.
func NewManager(cfg *config.Config, m *metrics.Metrics) (*Manager, error) {
	mgr := &Manager{cfg: cfg, metrics: m}
	sessions, err := cache.NewLRU(max(cfg.ArchiveCacheMaxItems, 1), mgr.evicted)
	if err != nil {
		return nil, fmt.Errorf("creating session cache: %w", err)
	}
	mgr.sessions = sessions
	return mgr, nil
}

func (m *Manager) evicted(id string, s *Session) {
	slog.Debug("session closed", slog.String("session_id", id), slog.String("path", s.Path))
	if m.metrics != nil {
		m.metrics.Sessions.Dec()
	}
	m.mu.Lock()
	if m.active == id {
		m.active = ""
	}
	m.mu.Unlock()
}

// Load parses the archive at path and makes it the active session.
// Concurrent loads of the same path share one parse and one session.
func (m *Manager) Load(ctx context.Context, path string) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}

	v, err, shared := m.loads.Do(abs, func() (any, error) {
		return m.open(abs)
	})
	if err != nil {
		return nil, err
	}
	s := v.(*Session)
	if shared {
		slog.Debug("archive load shared", slog.String("path", abs))
	}

	m.mu.Lock()
	m.active = s.ID
	m.mu.Unlock()
	return s, nil
}

func (m *Manager) open(path string) (*Session, error) {
	start := time.Now()
	archive, err := har.LoadFile(path)
	if err != nil {
		return nil, err
	}
	r, err := m.newReplayer(archive)
	if err != nil {
		return nil, err
	}

	s := &Session{
		ID:       uuid.NewString(),
		Path:     path,
		LoadedAt: time.Now(),
		Archive:  archive,
		Replayer: r,
		Index:    indexer.Build(archive),
	}
	m.sessions.Put(s.ID, s)
	if m.metrics != nil {
		m.metrics.Sessions.Inc()
	}

	slog.Info("archive loaded",
		slog.String("session_id", s.ID),
		slog.String("path", path),
		slog.Int("entries", archive.Len()),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return s, nil
}

func (m *Manager) newReplayer(archive *har.Archive) (*replay.Replayer, error) {
	topts, err := m.cfg.TransportOptions()
	if err != nil {
		return nil, err
	}
	r, err := replay.New(archive,
		replay.WithTransport(topts...),
		replay.WithConcurrency(m.cfg.Concurrency),
		replay.WithDelay(m.cfg.Delay),
		replay.WithRateLimit(m.cfg.RateLimitRPS, m.cfg.RateLimitBurst),
	)
	if err != nil {
		return nil, err
	}
	if m.metrics != nil {
		m.metrics.Attach(&r.Sink().Bus)
	}
	return r, nil
}

// Get returns the session with id, or the active session when id is empty.
func (m *Manager) Get(id string) (*Session, error) {
	if id == "" {
		m.mu.RLock()
		id = m.active
		m.mu.RUnlock()
		if id == "" {
			return nil, fmt.Errorf("no archive loaded: %w", ErrNotFound)
		}
	}
	s, ok := m.sessions.Get(id)
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return s, nil
}

// Active returns the ID of the active session, or "".
func (m *Manager) Active() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active
}

// List returns the sessions from least to most recently used.
func (m *Manager) List() []*Session {
	keys := m.sessions.Keys()
	out := make([]*Session, 0, len(keys))
	for _, k := range keys {
		if s, ok := m.sessions.Peek(k); ok {
			out = append(out, s)
		}
	}
	return out
}

// Close discards a session. It reports whether the session existed.
func (m *Manager) Close(id string) bool {
	return m.sessions.Remove(id)
}
