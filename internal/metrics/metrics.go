// Package metrics exposes replay counters and latencies in Prometheus format.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/usestring/harreplay/internal/results"
	"github.com/usestring/harreplay/pkg/transport"
	"github.com/usestring/harreplay/pkg/types"
)

const namespace = "harreplay"

// Metrics holds the replay collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	ReplaysTotal   *prometheus.CounterVec
	ErrorsTotal    *prometheus.CounterVec
	ExpectTotal    *prometheus.CounterVec
	ReplayDuration prometheus.Histogram
	InFlight       prometheus.Gauge
	Sessions       prometheus.Gauge
}

// New creates and registers the collectors.
func New() *Metrics {
	r := prometheus.NewRegistry()
	m := &Metrics{
		registry: r,
		ReplaysTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "replays_total",
			Help:      "Replayed transactions by result",
		}, []string{"result"}),
		ErrorsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transport_errors_total",
			Help:      "Transport failures by error code",
		}, []string{"code"}),
		ExpectTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "expectations_total",
			Help:      "Success expectation verdicts",
		}, []string{"passed"}),
		ReplayDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "replay_duration_seconds",
			Help:      "Wall time of one replayed transaction",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 14),
		}),
		InFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "in_flight",
			Help:      "Transactions currently being replayed",
		}),
		Sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions",
			Help:      "Loaded archives held by the server",
		}),
	}
	r.MustRegister(m.ReplaysTotal, m.ErrorsTotal, m.ExpectTotal, m.ReplayDuration, m.InFlight, m.Sessions)
	return m
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Observe records one settled outcome.
func (m *Metrics) Observe(o types.Outcome) {
	m.ReplaysTotal.WithLabelValues(o.Result()).Inc()
	m.ReplayDuration.Observe(time.Duration(o.ElapsedMs * int64(time.Millisecond)).Seconds())
	if o.Err != nil {
		code := string(transport.CodeOf(o.Err))
		if code == "" {
			code = "UNKNOWN"
		}
		m.ErrorsTotal.WithLabelValues(code).Inc()
	}
	if o.Expect != nil {
		passed := "false"
		if *o.Expect {
			passed = "true"
		}
		m.ExpectTotal.WithLabelValues(passed).Inc()
	}
}

// Attach subscribes the collectors to the events of bus.
func (m *Metrics) Attach(bus *results.Bus) {
	bus.SubscribeAll(func(e results.Event) {
		switch e.Kind {
		case results.EventStart:
			m.InFlight.Inc()
		default:
			m.InFlight.Dec()
			m.Observe(*e.Outcome)
		}
	})
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("metrics server listening", slog.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
