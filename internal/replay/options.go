package replay

import (
	"time"

	"github.com/usestring/harreplay/internal/query"
	"github.com/usestring/harreplay/internal/results"
	"github.com/usestring/harreplay/pkg/transport"
)

// Options configures a Replayer.
type Options struct {
	// Delay is the pause between consecutive replays. In concurrent mode
	// it applies per worker.
	Delay time.Duration
	// Concurrency is the worker count used by ReplayAll and ReplayFiltered.
	Concurrency int
	// RateLimit caps requests per second across all workers. Zero disables it.
	RateLimit float64
	Burst     int
	// Expect, when set, is evaluated for every live response.
	Expect *query.Expectation
	// Sink receives outcomes and publishes events. A new sink is created
	// when nil.
	Sink *results.Sink
	// Sender is used as is. When nil one is built from Transport.
	Sender    *transport.Sender
	Transport []transport.Option
}

// Option is a functional option for configuring the Replayer.
type Option func(*Options)

// DefaultOptions returns sequential replay with no delay and no rate limit.
func DefaultOptions() Options {
	return Options{Concurrency: 1, Burst: 1}
}

// WithDelay sets the inter-request delay.
func WithDelay(d time.Duration) Option {
	return func(o *Options) {
		o.Delay = max(d, 0)
	}
}

// WithConcurrency sets the default worker count, clamped to at least 1.
func WithConcurrency(n int) Option {
	return func(o *Options) {
		o.Concurrency = max(n, 1)
	}
}

// WithRateLimit caps the global request rate.
func WithRateLimit(rps float64, burst int) Option {
	return func(o *Options) {
		o.RateLimit = rps
		o.Burst = max(burst, 1)
	}
}

// WithExpect evaluates x against every live response.
func WithExpect(x *query.Expectation) Option {
	return func(o *Options) {
		o.Expect = x
	}
}

// WithSink records outcomes into s.
func WithSink(s *results.Sink) Option {
	return func(o *Options) {
		o.Sink = s
	}
}

// WithSender uses an existing sender.
func WithSender(s *transport.Sender) Option {
	return func(o *Options) {
		o.Sender = s
	}
}

// WithTransport passes options to the sender the replayer builds.
func WithTransport(opts ...transport.Option) Option {
	return func(o *Options) {
		o.Transport = append(o.Transport, opts...)
	}
}
