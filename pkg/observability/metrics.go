package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Billing backend metrics
	BillingRequestsTotal     *prometheus.CounterVec
	BillingRequestDuration   *prometheus.HistogramVec
	UsageReportFailuresTotal *prometheus.CounterVec

	// Payment processor metrics
	PaymentRequestsTotal *prometheus.CounterVec

	// Business metrics
	ConversionsTotal        *prometheus.CounterVec
	EntitlementDenialsTotal *prometheus.CounterVec
	SignupsTotal            prometheus.Counter
	LoginsTotal             *prometheus.CounterVec

	// Cache metrics
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics. A nil registry
// gets a fresh one, which keeps tests isolated.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kelvin_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kelvin_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		BillingRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kelvin_billing_requests_total",
				Help: "Total number of billing backend calls",
			},
			[]string{"operation", "status"},
		),
		BillingRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "kelvin_billing_request_duration_seconds",
				Help:    "Billing backend call duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		UsageReportFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kelvin_usage_report_failures_total",
				Help: "Usage reports that failed and degraded the response",
			},
			[]string{"feature"},
		),
		PaymentRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kelvin_payment_requests_total",
				Help: "Total number of payment processor calls",
			},
			[]string{"operation", "status"},
		),
		ConversionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kelvin_conversions_total",
				Help: "Temperature conversions performed",
			},
			[]string{"scale"},
		),
		EntitlementDenialsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kelvin_entitlement_denials_total",
				Help: "Requests rejected with 402 Payment Required",
			},
			[]string{"feature"},
		),
		SignupsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "kelvin_signups_total",
				Help: "Completed signups",
			},
		),
		LoginsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kelvin_logins_total",
				Help: "Login attempts",
			},
			[]string{"status"},
		),
		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kelvin_cache_hits_total",
				Help: "Cache hits",
			},
			[]string{"cache"},
		),
		CacheMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "kelvin_cache_misses_total",
				Help: "Cache misses",
			},
			[]string{"cache"},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.BillingRequestsTotal,
		m.BillingRequestDuration,
		m.UsageReportFailuresTotal,
		m.PaymentRequestsTotal,
		m.ConversionsTotal,
		m.EntitlementDenialsTotal,
		m.SignupsTotal,
		m.LoginsTotal,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
	)

	return m
}

// Handler returns the /metrics endpoint handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Hit implements billing.CacheStats.
func (m *Metrics) Hit(cache string) {
	m.CacheHitsTotal.WithLabelValues(cache).Inc()
}

// Miss implements billing.CacheStats.
func (m *Metrics) Miss(cache string) {
	m.CacheMissesTotal.WithLabelValues(cache).Inc()
}

// EntitlementDenied records one 402 rejection for feature.
func (m *Metrics) EntitlementDenied(feature string) {
	m.EntitlementDenialsTotal.WithLabelValues(feature).Inc()
}

// ObserveHTTPRequest records one served request.
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}
