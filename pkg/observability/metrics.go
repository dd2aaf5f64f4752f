// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring the datakiln service.
package observability

import "github.com/prometheus/client_golang/prometheus"

// GenerationBuckets defines histogram buckets suited for LLM code-generation
// latencies, ranging from 100ms to 120s.
var GenerationBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

// ExecutionBuckets defines histogram buckets suited for sandbox run
// latencies. Tuning runs dominate the long tail, so the buckets reach 600s.
var ExecutionBuckets = []float64{1, 5, 10, 30, 60, 120, 300, 600}

var (
	// RequestsTotal counts all HTTP requests by method, status class, and route.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datakiln_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "status", "route"},
	)

	// RequestDuration records HTTP request duration in seconds by method and route.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "datakiln_request_duration_seconds",
			Help:    "Request duration",
			Buckets: ExecutionBuckets,
		},
		[]string{"method", "route"},
	)

	// GenerationRequestsTotal counts code-generation backend calls.
	GenerationRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datakiln_generation_requests_total",
			Help: "Code generation requests",
		},
		[]string{"kind", "status"},
	)

	// GenerationLatency records code-generation backend latency in seconds.
	GenerationLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "datakiln_generation_latency_seconds",
			Help:    "Code generation latency",
			Buckets: GenerationBuckets,
		},
		[]string{"kind"},
	)

	// GenerationTokensTotal counts tokens processed by direction (input/output).
	GenerationTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datakiln_generation_tokens_total",
			Help: "Token count",
		},
		[]string{"direction"},
	)

	// ExecutionsTotal counts sandbox executions by kind and classification.
	ExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datakiln_executions_total",
			Help: "Sandbox executions",
		},
		[]string{"kind", "classification"},
	)

	// ExecutionDuration records sandbox execution duration in seconds by kind.
	ExecutionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "datakiln_execution_duration_seconds",
			Help:    "Sandbox execution duration",
			Buckets: ExecutionBuckets,
		},
		[]string{"kind"},
	)

	// ExecutionsActive tracks the number of sandbox runs in flight.
	ExecutionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "datakiln_executions_active",
			Help: "Active sandbox executions",
		},
	)

	// StorageOperationsTotal counts blob store operations by operation and outcome.
	StorageOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datakiln_storage_operations_total",
			Help: "Blob store operations",
		},
		[]string{"operation", "status"},
	)

	// RateLimitRejectedTotal counts requests rejected by the rate limiter.
	RateLimitRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "datakiln_ratelimit_rejected_total",
			Help: "Rate limit rejections",
		},
		[]string{"subject"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		GenerationRequestsTotal,
		GenerationLatency,
		GenerationTokensTotal,
		ExecutionsTotal,
		ExecutionDuration,
		ExecutionsActive,
		StorageOperationsTotal,
		RateLimitRejectedTotal,
	)
}

// ObserveExecution records a finished sandbox run.
func ObserveExecution(kind, classification string, seconds float64) {
	ExecutionsTotal.WithLabelValues(kind, classification).Inc()
	ExecutionDuration.WithLabelValues(kind).Observe(seconds)
}

// ObserveGeneration records a finished code-generation call.
func ObserveGeneration(kind, status string, seconds float64) {
	GenerationRequestsTotal.WithLabelValues(kind, status).Inc()
	GenerationLatency.WithLabelValues(kind).Observe(seconds)
}
