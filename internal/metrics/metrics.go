// Package metrics exposes Prometheus collectors for the analysis service.
// Pipeline-stage metrics live in the progress Prometheus sink; this package
// covers the HTTP surface, the result cache, jobs, and plan synthesis.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	cacheEventsTotal           *prometheus.CounterVec
	jobsTotal                  *prometheus.CounterVec
	jobsActive                 prometheus.Gauge
	synthesisTotal             *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		cacheEventsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "result_cache_events_total",
				Help: "Result cache activity, labeled by event (hit, miss, evict, error).",
			},
			[]string{"event"},
		)

		jobsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "analysis_jobs_total",
				Help: "Total number of comprehensive jobs, labeled by final status.",
			},
			[]string{"status"},
		)

		jobsActive = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "analysis_jobs_active",
				Help: "Number of comprehensive jobs currently running.",
			},
		)

		synthesisTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "plan_synthesis_total",
				Help: "Action plan synthesis attempts, labeled by result.",
			},
			[]string{"result"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveCacheEvent counts result cache activity (hit, miss, evict, error).
func ObserveCacheEvent(event string) {
	cacheEventsTotal.WithLabelValues(event).Inc()
}

// ObserveJob increments the job counter for the given status.
func ObserveJob(status string) {
	jobsTotal.WithLabelValues(status).Inc()
}

// IncActiveJobs increments the running jobs gauge.
func IncActiveJobs() {
	jobsActive.Inc()
}

// DecActiveJobs decrements the running jobs gauge.
func DecActiveJobs() {
	jobsActive.Dec()
}

// ObserveSynthesis counts a synthesis attempt outcome (valid, invalid,
// disabled, error).
func ObserveSynthesis(result string) {
	synthesisTotal.WithLabelValues(result).Inc()
}
