// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// ConversationsActive tracks conversations currently held in the store.
	ConversationsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "conversations_active",
			Help: "Number of conversations currently retained in memory",
		},
	)

	// ConversationsTotal tracks total conversations created.
	ConversationsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "conversations_total",
			Help: "Total conversations created",
		},
	)

	// ConversationsEvicted tracks conversations removed by the retention sweeper.
	ConversationsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "conversations_evicted_total",
			Help: "Total conversations evicted by the retention sweeper",
		},
	)

	// MessagesTotal tracks total messages appended, by role.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_total",
			Help: "Total messages appended",
		},
		[]string{"role"},
	)

	// ProviderRequestDuration tracks upstream LLM call duration.
	ProviderRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "provider_request_duration_seconds",
			Help:    "Upstream provider request duration",
			Buckets: []float64{.25, .5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"provider", "status"},
	)

	// ProviderErrorsTotal tracks upstream LLM call failures.
	ProviderErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_errors_total",
			Help: "Total upstream provider failures",
		},
		[]string{"provider"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordProviderRequest records metrics for an upstream provider call.
func RecordProviderRequest(provider, status string, duration float64) {
	ProviderRequestDuration.WithLabelValues(provider, status).Observe(duration)
	if status != "success" {
		ProviderErrorsTotal.WithLabelValues(provider).Inc()
	}
}
