// Package results collects replay outcomes and renders them as reports,
// JSON dumps and HAR archives.
package results

import (
	"sort"
	"sync"

	"github.com/usestring/harreplay/pkg/har"
	"github.com/usestring/harreplay/pkg/types"
)

// Sink holds outcomes keyed by transaction index and publishes lifecycle
// events. The collection is sparse: indices not yet replayed are absent.
type Sink struct {
	Bus

	mu       sync.RWMutex
	outcomes map[int]types.Outcome
}

// NewSink creates an empty sink.
func NewSink() *Sink {
	return &Sink{outcomes: make(map[int]types.Outcome)}
}

// Start announces that index is about to be sent.
func (s *Sink) Start(index int, req har.Request) {
	s.Publish(Event{Kind: EventStart, Index: index, Request: req})
}

// Record stores o, replacing any earlier outcome for the same index, and
// publishes EventComplete or EventError.
func (s *Sink) Record(o types.Outcome) {
	s.mu.Lock()
	s.outcomes[o.Index] = o
	s.mu.Unlock()

	kind := EventComplete
	if o.Err != nil {
		kind = EventError
	}
	s.Publish(Event{Kind: kind, Index: o.Index, Request: o.Request, Outcome: &o})
}

// Get returns the outcome recorded for index.
func (s *Sink) Get(index int) (types.Outcome, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.outcomes[index]
	return o, ok
}

// Len returns the number of recorded outcomes.
func (s *Sink) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.outcomes)
}

// Outcomes returns all recorded outcomes ordered by index.
func (s *Sink) Outcomes() []types.Outcome {
	s.mu.RLock()
	out := make([]types.Outcome, 0, len(s.outcomes))
	for _, o := range s.outcomes {
		out = append(out, o)
	}
	s.mu.RUnlock()

	SortByIndex(out)
	return out
}

// Reset drops all outcomes. Listeners stay registered.
func (s *Sink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outcomes = make(map[int]types.Outcome)
}

// Summary counts the recorded outcomes.
func (s *Sink) Summary() types.Summary {
	return types.Summarize(s.Outcomes())
}

// Report renders the recorded outcomes as plain text.
func (s *Sink) Report() string {
	return Report(s.Outcomes())
}

// SortByIndex orders outcomes by transaction index in place.
func SortByIndex(outcomes []types.Outcome) {
	sort.SliceStable(outcomes, func(i, j int) bool {
		return outcomes[i].Index < outcomes[j].Index
	})
}
