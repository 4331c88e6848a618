package http

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROMETHEUS METRICS
// ══════════════════════════════════════════════════════════════════════════════

// Metrics holds the Prometheus collectors for the HTTP API.
type Metrics struct {
	registry *prometheus.Registry

	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	requestsInFlight prometheus.Gauge

	checkInsTotal  *prometheus.CounterVec
	checkOutsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers the HTTP metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "attendance_http_requests_total",
			Help: "Total HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "attendance_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		requestsInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "attendance_http_requests_in_flight",
			Help: "Number of HTTP requests currently being served.",
		}),
		checkInsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "attendance_checkins_total",
			Help: "Check-in attempts by outcome.",
		}, []string{"outcome"}),
		checkOutsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "attendance_checkouts_total",
			Help: "Check-out attempts by outcome.",
		}, []string{"outcome"}),
	}
}

// Registry returns the underlying registry for the /metrics endpoint.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) observeRequest(method, route string, status int, duration time.Duration) {
	m.requestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func (m *Metrics) recordCheckIn(outcome string) {
	m.checkInsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) recordCheckOut(outcome string) {
	m.checkOutsTotal.WithLabelValues(outcome).Inc()
}
