// Package monitoring provides Prometheus metrics for alertfeed: aggregation
// cycles, per-source fetch failures, operator mutations, and HTTP traffic.
package monitoring

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	aggregationCyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alertfeed_aggregation_cycles_total",
			Help: "Total number of aggregation cycles by result",
		},
		[]string{"result"},
	)

	aggregationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "alertfeed_aggregation_duration_seconds",
			Help:    "Duration of aggregation cycles",
			Buckets: prometheus.DefBuckets,
		},
	)

	sourceFetchFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alertfeed_source_fetch_failures_total",
			Help: "Total number of per-source fetch failures",
		},
		[]string{"source"},
	)

	mutationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alertfeed_mutations_total",
			Help: "Total number of operator mutations by kind and result",
		},
		[]string{"kind", "result"},
	)

	pendingMutations = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "alertfeed_pending_mutations",
			Help: "Number of optimistic mutations not yet corroborated by a poll",
		},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alertfeed_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_code"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "alertfeed_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)

func init() {
	prometheus.MustRegister(
		aggregationCyclesTotal,
		aggregationDuration,
		sourceFetchFailuresTotal,
		mutationsTotal,
		pendingMutations,
		httpRequestsTotal,
		httpRequestDuration,
	)
}

// Handler returns the /metrics endpoint handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordAggregationCycle records one completed aggregation cycle.
func RecordAggregationCycle(duration time.Duration, success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	aggregationCyclesTotal.WithLabelValues(result).Inc()
	aggregationDuration.Observe(duration.Seconds())
}

// RecordSourceFetchFailure records a fail-soft fetch failure for one source.
func RecordSourceFetchFailure(source string) {
	sourceFetchFailuresTotal.WithLabelValues(source).Inc()
}

// RecordMutation records the outcome of an operator mutation.
func RecordMutation(kind string, success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	mutationsTotal.WithLabelValues(kind, result).Inc()
}

// SetPendingMutations updates the pending-mutation gauge.
func SetPendingMutations(n int) {
	pendingMutations.Set(float64(n))
}

// statusRecorder captures the response status code for metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// HTTPMetricsMiddleware records request counts and latency per route.
func HTTPMetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		httpRequestsTotal.WithLabelValues(r.Method, r.URL.Path, strconv.Itoa(rec.status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(time.Since(start).Seconds())
	})
}
