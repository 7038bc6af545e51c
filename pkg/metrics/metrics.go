package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "food_wallet"

// Metrics groups every collector the service exports.
type Metrics struct {
	Requests         *prometheus.CounterVec
	LatencyMS        *prometheus.HistogramVec
	CheckoutOutcomes *prometheus.CounterVec
	OutboxPublished  *prometheus.CounterVec
	RateLimited      *prometheus.CounterVec
	registry         *prometheus.Registry
}

// New builds the collectors on a dedicated registry so tests can create as many
// instances as they like.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"route", "method", "status"}),
		LatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"route"}),
		CheckoutOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_outcomes_total",
			Help:      "Checkout attempts by final outcome.",
		}, []string{"outcome"}),
		OutboxPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_events_total",
			Help:      "Outbox events handled by the relay, by result.",
		}, []string{"topic", "result"}),
		RateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ratelimit_rejections_total",
			Help:      "Requests rejected by the rate limiter, by endpoint group.",
		}, []string{"group"}),
		registry: reg,
	}

	reg.MustRegister(
		m.Requests,
		m.LatencyMS,
		m.CheckoutOutcomes,
		m.OutboxPublished,
		m.RateLimited,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry (tests gather from it).
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveCheckout counts one checkout outcome.
func (m *Metrics) ObserveCheckout(outcome string) {
	if m == nil {
		return
	}
	m.CheckoutOutcomes.WithLabelValues(outcome).Inc()
}

// ObserveOutbox counts one relay attempt.
func (m *Metrics) ObserveOutbox(topic, result string) {
	if m == nil {
		return
	}
	m.OutboxPublished.WithLabelValues(topic, result).Inc()
}

func (m *Metrics) ObserveRateLimited(group string) {
	if m == nil {
		return
	}
	m.RateLimited.WithLabelValues(group).Inc()
}
