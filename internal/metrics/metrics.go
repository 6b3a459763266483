// Package metrics exposes Prometheus collectors for the broker.
// Grounded on the client_golang usage pattern seen across the
// retrieval pack (metrics-first observability alongside structured
// logging rather than in place of it).
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// ActiveConnections tracks live sockets by role.
	ActiveConnections = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "broker_active_connections",
			Help: "Number of currently connected websocket clients.",
		},
		[]string{"role"},
	)

	// TranslationsDelivered counts successful per-student deliveries.
	TranslationsDelivered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broker_translations_delivered_total",
			Help: "Count of translation messages successfully delivered to students.",
		},
		[]string{"target_language"},
	)

	// DeliveryFailures counts abandoned deliveries after exhausting
	// retry attempts.
	DeliveryFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broker_delivery_failures_total",
			Help: "Count of translation deliveries abandoned after retry exhaustion.",
		},
		[]string{"target_language"},
	)

	// ReaperActions counts sessions ended by each lifecycle strategy.
	ReaperActions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broker_reaper_actions_total",
			Help: "Count of sessions ended by each lifecycle reaper strategy.",
		},
		[]string{"strategy", "quality"},
	)

	// DispatchLatency observes handler execution time by message type.
	DispatchLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "broker_dispatch_latency_seconds",
			Help:    "Handler execution latency by message type.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"message_type"},
	)

	// CodeGenerationAttempts observes how many retries classroom code
	// generation needed, to catch alphabet exhaustion trending toward
	// ErrCodeExhaustion before it happens.
	CodeGenerationAttempts = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "broker_classroom_code_generation_attempts",
			Help:    "Number of retry attempts needed to generate a unique classroom code.",
			Buckets: []float64{1, 2, 3, 4, 5, 6, 7, 8},
		},
	)
)

// Registry bundles the collectors for registration with a
// prometheus.Registerer at startup.
func Registry() []prometheus.Collector {
	return []prometheus.Collector{
		ActiveConnections,
		TranslationsDelivered,
		DeliveryFailures,
		ReaperActions,
		DispatchLatency,
		CodeGenerationAttempts,
	}
}
