package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Tool call outcomes.
const (
	StatusOK              = "ok"
	StatusValidationError = "validation_error"
	StatusStoreError      = "store_error"
)

var (
	// ToolCallsTotal counts MCP tool invocations by outcome.
	ToolCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "claudememkeep",
			Subsystem: "tool",
			Name:      "calls_total",
			Help:      "Total number of MCP tool calls",
		},
		[]string{"tool", "status"},
	)

	ToolCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "claudememkeep",
			Subsystem: "tool",
			Name:      "call_duration_seconds",
			Help:      "MCP tool call duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"tool"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "claudememkeep",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "claudememkeep",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"method", "route"},
	)
)

// Handler returns the Prometheus metrics handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordToolCall records one tool invocation.
func RecordToolCall(tool, status string, durationSec float64) {
	ToolCallsTotal.WithLabelValues(tool, status).Inc()
	ToolCallDuration.WithLabelValues(tool).Observe(durationSec)
}

// RecordRequest records an HTTP request
func RecordRequest(method, route, status string, durationSec float64) {
	HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(durationSec)
}
