// Package telemetry centralises logs and metrics for the gateway.
package telemetry

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder emits structured logs via slog and request metrics via a private
// prometheus registry, so multiple Recorder instances (e.g. in tests) never
// collide on metric registration.
type Recorder struct {
	logger   *slog.Logger
	registry *prometheus.Registry

	requests  *prometheus.CounterVec
	cacheHits prometheus.Counter
	duration  prometheus.Histogram
}

// NewRecorder constructs a telemetry recorder using the provided slog.Logger.
func NewRecorder(logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}

	registry := prometheus.NewRegistry()

	r := &Recorder{
		logger:   logger,
		registry: registry,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "voicegate_synthesis_requests_total",
			Help: "Synthesis requests by outcome.",
		}, []string{"outcome"}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "voicegate_cache_hits_total",
			Help: "Preview requests served from the audio cache.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "voicegate_synthesis_duration_seconds",
			Help:    "End-to-end synthesis request duration.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	registry.MustRegister(r.requests, r.cacheHits, r.duration)
	return r
}

// Logger returns the underlying slog.Logger for direct use.
func (r *Recorder) Logger() *slog.Logger {
	return r.logger
}

// ObserveRequest records one finished synthesis request.
func (r *Recorder) ObserveRequest(outcome string, d time.Duration) {
	r.requests.WithLabelValues(outcome).Inc()
	r.duration.Observe(d.Seconds())
}

// CacheHit records a preview served from cache.
func (r *Recorder) CacheHit() {
	r.cacheHits.Inc()
}

// MetricsHandler exposes the recorder's registry in prometheus text format.
func (r *Recorder) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
