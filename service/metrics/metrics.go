package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the application.
// Following the explicit dependency injection pattern, this struct
// is passed to all components that need to record metrics.
type Metrics struct {
	// Solana RPC Metrics
	solanaRPCCallsTotal   *prometheus.CounterVec
	solanaRPCCallDuration *prometheus.HistogramVec

	// Aggregation Metrics
	holdingsResolvedTotal *prometheus.CounterVec
	holdingsPerSnapshot   *prometheus.HistogramVec
	registryLookupsTotal  *prometheus.CounterVec

	// Sweep Metrics
	sweepsTotal          *prometheus.CounterVec
	sweepBuildDuration   *prometheus.HistogramVec
	sweepInstructions    *prometheus.HistogramVec
	submissionsTotal     *prometheus.CounterVec
	confirmationDuration *prometheus.HistogramVec

	// HTTP Metrics
	httpRequestDuration *prometheus.HistogramVec
	httpRequestsTotal   *prometheus.CounterVec

	// NATS Metrics
	natsMessagesPublished *prometheus.CounterVec
	natsPublishDuration   *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance and registers all collectors.
// If registry is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		// Solana RPC Metrics
		solanaRPCCallsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "solana_rpc_calls_total",
				Help: "Total number of Solana RPC calls by method and status",
			},
			[]string{"method", "status", "endpoint"},
		),
		solanaRPCCallDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "solana_rpc_call_duration_seconds",
				Help:    "Duration of Solana RPC calls in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0},
			},
			[]string{"method", "endpoint"},
		),

		// Aggregation Metrics
		holdingsResolvedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "holdings_resolved_total",
				Help: "Total number of token accounts resolved during aggregation",
			},
			[]string{"status"},
		),
		holdingsPerSnapshot: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "holdings_per_snapshot",
				Help:    "Number of non-zero token holdings per wallet snapshot",
				Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100},
			},
			[]string{"network"},
		),
		registryLookupsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "registry_lookups_total",
				Help: "Total number of token registry lookups by outcome",
			},
			[]string{"outcome"},
		),

		// Sweep Metrics
		sweepsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sweeps_total",
				Help: "Total number of sweep requests by outcome",
			},
			[]string{"outcome", "mode"},
		),
		sweepBuildDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sweep_build_duration_seconds",
				Help:    "Duration of sweep transaction assembly in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
			},
			[]string{"network"},
		),
		sweepInstructions: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sweep_instructions_per_plan",
				Help:    "Number of instructions in built sweep transactions",
				Buckets: []float64{2, 3, 5, 10, 25, 50},
			},
			[]string{"network"},
		),
		submissionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "submissions_total",
				Help: "Total number of backend-signed submissions by status",
			},
			[]string{"status"},
		),
		confirmationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "confirmation_duration_seconds",
				Help:    "Time from submission to confirmed status in seconds",
				Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"network"},
		),

		// HTTP Metrics
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Duration of HTTP requests in seconds",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
			},
			[]string{"handler", "method", "status"},
		),
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"handler", "method", "status"},
		),

		// NATS Metrics
		natsMessagesPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nats_messages_published_total",
				Help: "Total number of NATS messages published",
			},
			[]string{"subject", "status"},
		),
		natsPublishDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "nats_publish_duration_seconds",
				Help:    "Duration of NATS publish operations in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
			},
			[]string{"subject"},
		),
	}
}

// Solana RPC metric helpers

// RecordRPCCall records a Solana RPC call with duration.
func (m *Metrics) RecordRPCCall(method, status, endpoint string, duration float64) {
	m.solanaRPCCallsTotal.WithLabelValues(method, status, endpoint).Inc()
	m.solanaRPCCallDuration.WithLabelValues(method, endpoint).Observe(duration)
}

// Aggregation metric helpers

// RecordHoldingResolved records a token-account resolution attempt.
// Status is "resolved", "skipped", or "zero".
func (m *Metrics) RecordHoldingResolved(status string) {
	m.holdingsResolvedTotal.WithLabelValues(status).Inc()
}

// RecordSnapshotHoldings records the holding count of a finished snapshot.
func (m *Metrics) RecordSnapshotHoldings(network string, count int) {
	m.holdingsPerSnapshot.WithLabelValues(network).Observe(float64(count))
}

// RecordRegistryLookup records a token registry lookup outcome.
// Outcome is "hit", "chain_fallback", or "default".
func (m *Metrics) RecordRegistryLookup(outcome string) {
	m.registryLookupsTotal.WithLabelValues(outcome).Inc()
}

// Sweep metric helpers

// RecordSweep records a finished sweep request.
// Outcome is "swept", "insufficient", or "error".
func (m *Metrics) RecordSweep(outcome, mode string) {
	m.sweepsTotal.WithLabelValues(outcome, mode).Inc()
}

// RecordSweepBuild records transaction assembly duration and instruction count.
func (m *Metrics) RecordSweepBuild(network string, duration float64, instructions int) {
	m.sweepBuildDuration.WithLabelValues(network).Observe(duration)
	m.sweepInstructions.WithLabelValues(network).Observe(float64(instructions))
}

// RecordSubmission records a backend-signed submission attempt.
func (m *Metrics) RecordSubmission(status string) {
	m.submissionsTotal.WithLabelValues(status).Inc()
}

// RecordConfirmation records the submission-to-confirmation latency.
func (m *Metrics) RecordConfirmation(network string, duration float64) {
	m.confirmationDuration.WithLabelValues(network).Observe(duration)
}

// HTTP metric helpers

// RecordHTTPRequest records an HTTP request with duration.
func (m *Metrics) RecordHTTPRequest(handler, method string, statusCode int, duration float64) {
	status := statusCodeToString(statusCode)
	m.httpRequestDuration.WithLabelValues(handler, method, status).Observe(duration)
	m.httpRequestsTotal.WithLabelValues(handler, method, status).Inc()
}

// NATS metric helpers

// RecordNATSPublish records a NATS publish operation.
func (m *Metrics) RecordNATSPublish(subject, status string, duration float64) {
	m.natsMessagesPublished.WithLabelValues(subject, status).Inc()
	m.natsPublishDuration.WithLabelValues(subject).Observe(duration)
}

// Helper functions

func statusCodeToString(code int) string {
	// Group status codes by class
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500 && code < 600:
		return "5xx"
	default:
		return "unknown"
	}
}
