package results

import (
	"sync"

	"github.com/usestring/harreplay/pkg/har"
	"github.com/usestring/harreplay/pkg/types"
)

// EventKind identifies a lifecycle point of one replay attempt.
type EventKind int

const (
	EventStart EventKind = iota
	EventComplete
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventComplete:
		return "complete"
	case EventError:
		return "error"
	}
	return "start"
}

// Event is published by the replayer. Outcome is nil for EventStart.
type Event struct {
	Kind    EventKind
	Index   int
	Request har.Request
	Outcome *types.Outcome
}

// Listener consumes events. Listeners run synchronously on the publishing
// goroutine and must not publish.
type Listener func(Event)

// Bus fans events out to listeners in registration order. Deliveries are
// serialized, so concurrent workers observe one global completion order.
type Bus struct {
	mu        sync.RWMutex
	listeners [3][]Listener
	dispatch  sync.Mutex
}

// Subscribe registers fn for events of kind.
func (b *Bus) Subscribe(kind EventKind, fn Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners[kind] = append(b.listeners[kind], fn)
}

// SubscribeAll registers fn for every kind.
func (b *Bus) SubscribeAll(fn Listener) {
	for _, k := range []EventKind{EventStart, EventComplete, EventError} {
		b.Subscribe(k, fn)
	}
}

// OnStart registers a listener called before a request is sent.
func (b *Bus) OnStart(fn func(index int, req har.Request)) {
	b.Subscribe(EventStart, func(e Event) { fn(e.Index, e.Request) })
}

// OnComplete registers a listener called after a live response was validated.
func (b *Bus) OnComplete(fn func(o types.Outcome)) {
	b.Subscribe(EventComplete, func(e Event) { fn(*e.Outcome) })
}

// OnError registers a listener called after a transport failure.
func (b *Bus) OnError(fn func(o types.Outcome)) {
	b.Subscribe(EventError, func(e Event) { fn(*e.Outcome) })
}

// Publish delivers e to every listener of its kind.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	listeners := b.listeners[e.Kind]
	b.mu.RUnlock()
	if len(listeners) == 0 {
		return
	}

	b.dispatch.Lock()
	defer b.dispatch.Unlock()
	for _, fn := range listeners {
		fn(e)
	}
}
