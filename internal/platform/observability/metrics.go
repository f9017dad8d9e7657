// Package observability wires Prometheus metrics and OpenTelemetry tracing.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Run and charge status labels
const (
	RunStatusCompleted   = "completed"
	RunStatusUnavailable = "store_unavailable"
	RunStatusInvalid     = "invalid"

	ChargeSucceeded = "succeeded"
	ChargeFailed    = "failed"
)

// Metrics holds every Prometheus collector of a service. Each instance owns
// a private registry, so tests can build as many as they like.
type Metrics struct {
	Registry *prometheus.Registry

	billingRuns       *prometheus.CounterVec
	billingCharges    *prometheus.CounterVec
	billingDuration   prometheus.Histogram
	chargedAmount     *prometheus.CounterVec
	outboxProcessed   *prometheus.CounterVec
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	publisherFailures *prometheus.CounterVec
}

func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		billingRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "billing_runs_total",
				Help:      "Billing runs by final status.",
			},
			[]string{"status"},
		),
		billingCharges: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "billing_charges_total",
				Help:      "Per-subscription billing outcomes.",
			},
			[]string{"outcome"},
		),
		billingDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "billing_run_duration_seconds",
				Help:      "Wall time of one billing run.",
				Buckets:   prometheus.DefBuckets,
			},
		),
		chargedAmount: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "billing_charged_amount_total",
				Help:      "Sum of successfully charged amounts by currency.",
			},
			[]string{"currency"},
		),
		outboxProcessed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "outbox_messages_total",
				Help:      "Outbox messages handled by the poller, by result.",
			},
			[]string{"result"},
		),
		httpRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by route, method and status code.",
			},
			[]string{"route", "method", "code"},
		),
		httpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency by route and method.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		),
		publisherFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "publisher_failures_total",
				Help:      "Failed publish attempts by topic.",
			},
			[]string{"topic"},
		),
	}
}

// Handler exposes the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}

func (m *Metrics) ObserveBillingRun(status string, d time.Duration) {
	m.billingRuns.WithLabelValues(status).Inc()
	m.billingDuration.Observe(d.Seconds())
}

func (m *Metrics) IncrCharge(outcome string) {
	m.billingCharges.WithLabelValues(outcome).Inc()
}

// AddChargedAmount records a charged amount. The float is for exposition only.
func (m *Metrics) AddChargedAmount(currency string, amount float64) {
	m.chargedAmount.WithLabelValues(currency).Add(amount)
}

func (m *Metrics) IncrOutbox(result string) {
	m.outboxProcessed.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveHTTPRequest(route, method, code string, d time.Duration) {
	m.httpRequests.WithLabelValues(route, method, code).Inc()
	m.httpDuration.WithLabelValues(route, method).Observe(d.Seconds())
}

func (m *Metrics) IncrPublisherFailure(topic string) {
	m.publisherFailures.WithLabelValues(topic).Inc()
}
