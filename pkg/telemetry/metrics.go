// Package telemetry owns the Prometheus metric set and the OpenTelemetry
// tracer handles shared by every service.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the instruments one service process registers. All series
// carry a service label so a shared dashboard can slice per process.
type Metrics struct {
	Registry *prometheus.Registry

	PaymentRequestsTotal  prometheus.Counter
	PaymentSuccessTotal   prometheus.Counter
	PaymentFailureTotal   prometheus.Counter
	PaymentE2ESeconds     *prometheus.HistogramVec
	DuplicateEventsTotal  *prometheus.CounterVec
	RetriesTotal          *prometheus.CounterVec
	DLQPublishedTotal     *prometheus.CounterVec
	InvariantViolations   *prometheus.CounterVec
	OutboxPending         prometheus.Gauge
	OutboxOldestAge       prometheus.Gauge
	OutboxFailedTotal     prometheus.Counter
	EventQueueDelay       *prometheus.HistogramVec
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
}

// NewMetrics builds and registers the metric set on a private registry.
func NewMetrics(service string) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	labels := prometheus.Labels{"service": service}

	return &Metrics{
		Registry: reg,
		PaymentRequestsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "payment_requests_total", Help: "Accepted payment creation requests.", ConstLabels: labels,
		}),
		PaymentSuccessTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "payment_success_total", Help: "Payments reaching SETTLED.", ConstLabels: labels,
		}),
		PaymentFailureTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "payment_failure_total", Help: "Payments reaching FAILED or REVERSED.", ConstLabels: labels,
		}),
		PaymentE2ESeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name: "payment_e2e_seconds", Help: "Creation-to-terminal latency.", ConstLabels: labels,
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"terminal_state"}),
		DuplicateEventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "duplicate_events_skipped_total", Help: "Events suppressed by inbox or stale CAS.", ConstLabels: labels,
		}, []string{"topic"}),
		RetriesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "retries_total", Help: "In-worker retries against a dependency.", ConstLabels: labels,
		}, []string{"dependency"}),
		DLQPublishedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dlq_published_total", Help: "Events parked on a dead-letter topic.", ConstLabels: labels,
		}, []string{"topic", "error_type"}),
		InvariantViolations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "invariant_violations_total", Help: "Detected invariant violations kept for manual inspection.", ConstLabels: labels,
		}, []string{"invariant"}),
		OutboxPending: factory.NewGauge(prometheus.GaugeOpts{
			Name: "outbox_pending_total", Help: "Outbox rows awaiting publication.", ConstLabels: labels,
		}),
		OutboxOldestAge: factory.NewGauge(prometheus.GaugeOpts{
			Name: "outbox_oldest_pending_age_seconds", Help: "Age of the oldest unpublished outbox row.", ConstLabels: labels,
		}),
		OutboxFailedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "outbox_failed_total", Help: "Outbox rows parked FAILED after exhausting publish attempts.", ConstLabels: labels,
		}),
		EventQueueDelay: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name: "event_queue_delay_seconds", Help: "occurred_at to consume delay.", ConstLabels: labels,
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
		}, []string{"topic"}),
		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total", Help: "HTTP requests by route and status.", ConstLabels: labels,
		}, []string{"route", "method", "status_code"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name: "http_request_duration_seconds", Help: "HTTP request latency by route.", ConstLabels: labels,
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
}
