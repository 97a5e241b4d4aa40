// Package metrics holds the Prometheus collectors of the valuation engine.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "indexbeta"

// Registry holds all collectors. A nil *Registry records nothing, so
// components can be built without metrics in tests and dry runs.
// ⭐ SSOT: 메트릭 정의는 여기서만
type Registry struct {
	reg *prometheus.Registry

	// Decisions
	Decisions *prometheus.CounterVec
	Position  *prometheus.GaugeVec

	// History builds
	SamplesKept    *prometheus.CounterVec
	SamplesDropped *prometheus.CounterVec
	FetchFailures  *prometheus.CounterVec
	BuildDuration  *prometheus.HistogramVec

	// History cache
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter

	// Scheduled jobs
	JobRuns *prometheus.CounterVec
}

// New creates a registry with every collector registered on a private
// prometheus.Registry (plus Go and process collectors)
func New() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		Decisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "decisions_total",
				Help:      "Position decisions by index and rule",
			},
			[]string{"index", "rule"},
		),

		Position: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "position",
				Help:      "Most recent position delta per index (-1.0 to 1.0)",
			},
			[]string{"index"},
		),

		SamplesKept: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "history_samples_kept_total",
				Help:      "Complete valuation samples kept in histories",
			},
			[]string{"index"},
		),

		SamplesDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "history_samples_dropped_total",
				Help:      "Sampled days dropped for missing pe or pb",
			},
			[]string{"index"},
		),

		FetchFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "history_fetch_failures_total",
				Help:      "Point-in-time fetches that failed or timed out",
			},
			[]string{"index"},
		),

		BuildDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "history_build_duration_seconds",
				Help:      "Duration of a history build in seconds",
				Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"index"},
		),

		CacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "history_cache_hits_total",
				Help:      "History cache hits",
			},
		),

		CacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "history_cache_misses_total",
				Help:      "History cache misses",
			},
		),

		JobRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "job_runs_total",
				Help:      "Scheduled job runs by job and status",
			},
			[]string{"job", "status"},
		),
	}

	r.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.Decisions,
		r.Position,
		r.SamplesKept,
		r.SamplesDropped,
		r.FetchFailures,
		r.BuildDuration,
		r.CacheHits,
		r.CacheMisses,
		r.JobRuns,
	)

	return r
}

// Gatherer exposes the underlying registry (tests)
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// Handler serves the registry in the Prometheus text format
func (r *Registry) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

// RecordDecision counts a decision and remembers its position
func (r *Registry) RecordDecision(indexID, rule string, position float64) {
	if r == nil {
		return
	}
	r.Decisions.WithLabelValues(indexID, rule).Inc()
	r.Position.WithLabelValues(indexID).Set(position)
}

// RecordHistory records the outcome of one history build
func (r *Registry) RecordHistory(indexID string, kept, dropped, failed int, duration time.Duration) {
	if r == nil {
		return
	}
	r.SamplesKept.WithLabelValues(indexID).Add(float64(kept))
	r.SamplesDropped.WithLabelValues(indexID).Add(float64(dropped))
	r.FetchFailures.WithLabelValues(indexID).Add(float64(failed))
	r.BuildDuration.WithLabelValues(indexID).Observe(duration.Seconds())
}

// RecordCache counts a history cache lookup
func (r *Registry) RecordCache(hit bool) {
	if r == nil {
		return
	}
	if hit {
		r.CacheHits.Inc()
		return
	}
	r.CacheMisses.Inc()
}

// RecordJob counts a scheduled job run
func (r *Registry) RecordJob(job string, err error) {
	if r == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	r.JobRuns.WithLabelValues(job, status).Inc()
}
