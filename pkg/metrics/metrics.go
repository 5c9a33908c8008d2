// Package metrics defines the Prometheus metric collectors used across the
// platform and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the platform.
type Metrics struct {
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPRequestsInFlight  prometheus.Gauge
	PostsIngestedTotal    *prometheus.CounterVec
	PostsScoredTotal      *prometheus.CounterVec
	ScoringErrorsTotal    *prometheus.CounterVec
	ScoringLatency        *prometheus.HistogramVec
	BatchSize             prometheus.Histogram
	SegmentsTotal         *prometheus.CounterVec
	ThemeAssignmentsTotal *prometheus.CounterVec
	CacheHitsTotal        prometheus.Counter
	CacheMissesTotal      prometheus.Counter
	RescoreRunsTotal      *prometheus.CounterVec
	CircuitBreakerState   *prometheus.GaugeVec
}

// New creates all collectors and registers them with the default registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates all collectors and registers them with reg.
// Tests pass a fresh prometheus.NewRegistry() so repeated construction does
// not collide.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed.",
			},
		),
		PostsIngestedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "posts_ingested_total",
				Help: "Posts accepted by the ingestion service by platform and status (accepted, duplicate, rejected).",
			},
			[]string{"platform", "status"},
		),
		PostsScoredTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "posts_scored_total",
				Help: "Entity sentiment results produced, by entity and label.",
			},
			[]string{"entity", "label"},
		),
		ScoringErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scoring_errors_total",
				Help: "Per-item scoring failures replaced by a neutral result, by stage.",
			},
			[]string{"stage"},
		),
		ScoringLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scoring_latency_seconds",
				Help:    "Scoring latency in seconds by operation.",
				Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1, 5},
			},
			[]string{"operation"},
		),
		BatchSize: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "scoring_batch_size",
				Help:    "Number of posts per scoring batch.",
				Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
			},
		),
		SegmentsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "segments_extracted_total",
				Help: "Entity-scoped segments extracted, by the rule that produced them.",
			},
			[]string{"source"},
		),
		ThemeAssignmentsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "theme_assignments_total",
				Help: "Themes scoring above the relevance cutoff, by theme.",
			},
			[]string{"theme"},
		),
		CacheHitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of analysis cache hits.",
			},
		),
		CacheMissesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of analysis cache misses.",
			},
		),
		RescoreRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rescore_runs_total",
				Help: "Historical re-scoring runs by status.",
			},
			[]string{"status"},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=open, 2=half-open).",
			},
			[]string{"name"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.PostsIngestedTotal,
		m.PostsScoredTotal,
		m.ScoringErrorsTotal,
		m.ScoringLatency,
		m.BatchSize,
		m.SegmentsTotal,
		m.ThemeAssignmentsTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.RescoreRunsTotal,
		m.CircuitBreakerState,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
