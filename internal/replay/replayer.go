// Package replay re-issues captured transactions against the live network
// and records how each live response compares to the capture.
package replay

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/usestring/harreplay/internal/compare"
	"github.com/usestring/harreplay/internal/query"
	"github.com/usestring/harreplay/internal/results"
	"github.com/usestring/harreplay/pkg/har"
	"github.com/usestring/harreplay/pkg/mutate"
	"github.com/usestring/harreplay/pkg/transport"
	"github.com/usestring/harreplay/pkg/types"
)

// SupportedMethods lists the request methods the replayer is known to handle.
func SupportedMethods() []string {
	return []string{
		http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete,
		http.MethodPatch, http.MethodOptions, http.MethodHead,
	}
}

// Replayer replays the transactions of one archive.
type Replayer struct {
	mu          sync.RWMutex
	archive     *har.Archive
	overlays    map[int]mutate.Spec
	sender      *transport.Sender
	transport   []transport.Option
	delay       time.Duration
	concurrency int
	limiter     *rate.Limiter
	expect      *query.Expectation
	runID       string

	sink   *results.Sink
	states *tracker
}

// New creates a replayer for archive. archive may be nil; operations then
// fail with ErrNotLoaded until Load is called.
func New(archive *har.Archive, opts ...Option) (*Replayer, error) {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	sender := o.Sender
	if sender == nil {
		var err error
		sender, err = transport.New(o.Transport...)
		if err != nil {
			return nil, fmt.Errorf("creating sender: %w", err)
		}
	}
	sink := o.Sink
	if sink == nil {
		sink = results.NewSink()
	}

	r := &Replayer{
		overlays:    make(map[int]mutate.Spec),
		sender:      sender,
		transport:   o.Transport,
		delay:       o.Delay,
		concurrency: max(o.Concurrency, 1),
		expect:      o.Expect,
		runID:       uuid.NewString(),
		sink:        sink,
		states:      newTracker(),
	}
	if o.RateLimit > 0 {
		r.limiter = rate.NewLimiter(rate.Limit(o.RateLimit), max(o.Burst, 1))
	}
	r.archive = archive
	return r, nil
}

// Load replaces the archive. Overlays, states and recorded outcomes are
// discarded and a new run ID is assigned.
func (r *Replayer) Load(archive *har.Archive) {
	r.mu.Lock()
	r.archive = archive
	r.overlays = make(map[int]mutate.Spec)
	r.runID = uuid.NewString()
	r.mu.Unlock()

	r.states.reset()
	r.sink.Reset()
}

// RunID identifies the current archive load.
func (r *Replayer) RunID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.runID
}

// Sink returns the sink outcomes are recorded into.
func (r *Replayer) Sink() *results.Sink {
	return r.sink
}

// Count returns the number of transactions, 0 when nothing is loaded.
func (r *Replayer) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.archive.Len()
}

// Entry returns the captured transaction at index, without overlays.
func (r *Replayer) Entry(index int) (har.Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.checkIndexLocked(index); err != nil {
		return har.Entry{}, err
	}
	return r.archive.Log.Entries[index], nil
}

// Request returns the effective request at index: the captured request
// with every registered overlay applied. ok is false for a bad index.
func (r *Replayer) Request(index int) (har.Request, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.checkIndexLocked(index) != nil {
		return har.Request{}, false
	}
	return r.effectiveLocked(index), true
}

// Modify registers an overlay for index. Successive overlays compose,
// the last write winning per field. The captured request is not changed.
func (r *Replayer) Modify(index int, spec mutate.Spec) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkIndexLocked(index); err != nil {
		return err
	}
	r.overlays[index] = mutate.Merge(r.overlays[index], spec)
	return nil
}

// Modification returns the composed overlay registered for index.
func (r *Replayer) Modification(index int) (mutate.Spec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.overlays[index]
	return spec, ok
}

// ClearModifications drops the overlay for index.
func (r *Replayer) ClearModifications(index int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.overlays, index)
}

// SetDelay sets the pause between consecutive replays.
func (r *Replayer) SetDelay(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delay = max(d, 0)
}

// SetConcurrency sets the worker count used by ReplayAll and
// ReplayFiltered, clamped to at least 1.
func (r *Replayer) SetConcurrency(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.concurrency = max(n, 1)
}

// SetRateLimit caps the global request rate. rps <= 0 disables the limit.
func (r *Replayer) SetRateLimit(rps float64, burst int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rps <= 0 {
		r.limiter = nil
		return
	}
	r.limiter = rate.NewLimiter(rate.Limit(rps), max(burst, 1))
}

// SetExpect sets the success expression evaluated for live responses.
func (r *Replayer) SetExpect(x *query.Expectation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.expect = x
}

// Reconfigure rebuilds the sender with extra transport options, for
// example a proxy or a TLS verification change. Attempts already in
// flight keep the previous sender.
func (r *Replayer) Reconfigure(opts ...transport.Option) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	combined := append(slices.Clone(r.transport), opts...)
	sender, err := transport.New(combined...)
	if err != nil {
		return fmt.Errorf("creating sender: %w", err)
	}
	r.sender = sender
	r.transport = combined
	return nil
}

// State returns the state of the latest attempt for index.
func (r *Replayer) State(index int) types.State {
	return r.states.get(index)
}

// Outcome returns the recorded outcome for index.
func (r *Replayer) Outcome(index int) (types.Outcome, bool) {
	return r.sink.Get(index)
}

// Diff compares the recorded outcome for index against its capture.
func (r *Replayer) Diff(index int, opts *types.DiffOptions) (*types.DiffResult, error) {
	o, ok := r.sink.Get(index)
	if !ok {
		if _, err := r.Entry(index); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("index %d: %w", index, ErrNotReplayed)
	}
	d := compare.Diff(o.OriginalResponse, o.Live, opts)
	d.Index = index
	return d, nil
}

func (r *Replayer) checkIndexLocked(index int) error {
	if r.archive == nil {
		return ErrNotLoaded
	}
	if n := r.archive.Len(); index < 0 || index >= n {
		return &RangeError{Index: index, Count: n}
	}
	return nil
}

func (r *Replayer) effectiveLocked(index int) har.Request {
	captured := r.archive.Log.Entries[index].Request
	spec, ok := r.overlays[index]
	if !ok {
		return captured.Clone()
	}
	return mutate.Apply(captured, spec)
}

// attempt is what one replay needs, read under a single lock.
type attempt struct {
	index    int
	runID    string
	request  har.Request
	captured har.Response
	sender   *transport.Sender
	limiter  *rate.Limiter
	expect   *query.Expectation
}

func (r *Replayer) prepare(index int) (attempt, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if err := r.checkIndexLocked(index); err != nil {
		return attempt{}, err
	}
	return attempt{
		index:    index,
		runID:    r.runID,
		request:  r.effectiveLocked(index),
		captured: r.archive.Log.Entries[index].Response,
		sender:   r.sender,
		limiter:  r.limiter,
		expect:   r.expect,
	}, nil
}

// ReplayOne sends the effective request at index, validates the live
// response against the capture and records the outcome. Transport failures
// are reported in the outcome, not as an error; the returned error is
// reserved for a bad index, a missing archive or a canceled context.
func (r *Replayer) ReplayOne(ctx context.Context, index int) (types.Outcome, error) {
	a, err := r.prepare(index)
	if err != nil {
		return types.Outcome{}, err
	}
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return types.Outcome{}, fmt.Errorf("waiting for rate limiter: %w", err)
		}
	}
	if err := r.states.begin(index); err != nil {
		return types.Outcome{}, err
	}
	r.sink.Start(index, a.request)

	started := time.Now()
	live, sendErr := a.sender.Send(ctx, a.request)

	o := types.Outcome{
		Index:            index,
		RunID:            a.runID,
		Request:          a.request,
		OriginalResponse: a.captured,
		StartedAt:        started,
		ElapsedMs:        time.Since(started).Milliseconds(),
	}
	if sendErr != nil {
		o.Err = sendErr
		r.states.settle(index, types.StateFailed)
		r.sink.Record(o)
		slog.Warn("replay failed",
			slog.Int("index", index),
			slog.String("method", a.request.Method),
			slog.String("url", a.request.URL),
			slog.String("code", string(transport.CodeOf(sendErr))),
			slog.String("error", sendErr.Error()),
			slog.Int64("duration_ms", o.ElapsedMs),
		)
		return o, nil
	}

	o.Live = live
	match := compare.Validate(live, a.captured)
	o.Match = &match
	if a.expect != nil {
		ok, err := a.expect.Evaluate(ctx, a.captured, live)
		if err != nil {
			slog.Warn("expectation failed to evaluate",
				slog.Int("index", index),
				slog.String("expect", a.expect.String()),
				slog.String("error", err.Error()),
			)
		}
		o.Expect = &ok
	}
	r.states.settle(index, types.StateSucceeded)
	r.sink.Record(o)

	slog.Info("request replayed",
		slog.Int("index", index),
		slog.String("method", a.request.Method),
		slog.String("url", a.request.URL),
		slog.Int("status", live.Status),
		slog.Bool("match", match),
		slog.Int64("duration_ms", o.ElapsedMs),
	)
	return o, nil
}

// ReplayAll replays every transaction in archive order.
func (r *Replayer) ReplayAll(ctx context.Context) ([]types.Outcome, error) {
	n, err := r.loadedCount()
	if err != nil {
		return nil, err
	}
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	return r.run(ctx, indices)
}

// ReplayFiltered replays the transactions whose effective request
// satisfies pred, in archive order.
func (r *Replayer) ReplayFiltered(ctx context.Context, pred func(req *har.Request, index int) bool) ([]types.Outcome, error) {
	n, err := r.loadedCount()
	if err != nil {
		return nil, err
	}
	var indices []int
	for i := range n {
		req, ok := r.Request(i)
		if ok && pred(&req, i) {
			indices = append(indices, i)
		}
	}
	return r.run(ctx, indices)
}

// ReplayIndices replays the given indices using the configured concurrency.
func (r *Replayer) ReplayIndices(ctx context.Context, indices []int) ([]types.Outcome, error) {
	return r.run(ctx, indices)
}

func (r *Replayer) loadedCount() (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.archive == nil {
		return 0, ErrNotLoaded
	}
	return r.archive.Len(), nil
}

func (r *Replayer) run(ctx context.Context, indices []int) ([]types.Outcome, error) {
	r.mu.RLock()
	concurrency, delay := r.concurrency, r.delay
	r.mu.RUnlock()

	if concurrency > 1 {
		return r.ReplayConcurrent(ctx, indices, concurrency)
	}
	if err := r.checkIndices(indices); err != nil {
		return nil, err
	}
	indices = dedupe(indices)

	out := make([]types.Outcome, 0, len(indices))
	for i, index := range indices {
		if i > 0 && delay > 0 {
			if err := sleep(ctx, delay); err != nil {
				return out, err
			}
		}
		if err := ctx.Err(); err != nil {
			return out, err
		}
		o, err := r.ReplayOne(ctx, index)
		if err != nil {
			return out, err
		}
		out = append(out, o)
	}
	return out, nil
}

// ReplayConcurrent replays indices with a fixed pool of workers pulling
// from a shared cursor. Each index is replayed once even if listed twice.
// Outcomes are returned sorted by index regardless of completion order.
func (r *Replayer) ReplayConcurrent(ctx context.Context, indices []int, concurrency int) ([]types.Outcome, error) {
	if err := r.checkIndices(indices); err != nil {
		return nil, err
	}
	queue := dedupe(indices)
	if len(queue) == 0 {
		return []types.Outcome{}, nil
	}

	r.mu.RLock()
	delay := r.delay
	r.mu.RUnlock()

	workers := min(max(concurrency, 1), len(queue))
	slog.Debug("starting concurrent replay",
		slog.Int("count", len(queue)),
		slog.Int("workers", workers),
	)

	var (
		cursor atomic.Int64
		mu     sync.Mutex
		out    = make([]types.Outcome, 0, len(queue))
	)

	g, gctx := errgroup.WithContext(ctx)
	for range workers {
		g.Go(func() error {
			for first := true; ; first = false {
				if !first && delay > 0 {
					if err := sleep(gctx, delay); err != nil {
						return err
					}
				}
				if err := gctx.Err(); err != nil {
					return err
				}
				n := int(cursor.Add(1)) - 1
				if n >= len(queue) {
					return nil
				}

				o, err := r.ReplayOne(gctx, queue[n])
				if err != nil {
					return err
				}
				mu.Lock()
				out = append(out, o)
				mu.Unlock()
			}
		})
	}
	err := g.Wait()

	results.SortByIndex(out)
	return out, err
}

func (r *Replayer) checkIndices(indices []int) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.archive == nil {
		return ErrNotLoaded
	}
	for _, i := range indices {
		if err := r.checkIndexLocked(i); err != nil {
			return err
		}
	}
	return nil
}

func dedupe(indices []int) []int {
	seen := make(map[int]struct{}, len(indices))
	out := make([]int, 0, len(indices))
	for _, i := range indices {
		if _, ok := seen[i]; ok {
			continue
		}
		seen[i] = struct{}{}
		out = append(out, i)
	}
	return out
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
