// Package metrics exposes Prometheus collectors for HTTP traffic, the cache and billing
// activity. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	CacheRequestsTotal *prometheus.CounterVec

	SubscriptionsTotal   *prometheus.CounterVec
	SubscriptionsExpired prometheus.Counter
	PromoRedemptions     *prometheus.CounterVec
	RevenueCollected     *prometheus.CounterVec
	UsageUnitsTotal      *prometheus.CounterVec
	JobRunsTotal         *prometheus.CounterVec
}

// New creates the collectors on a private registry, together with the Go runtime and
// process collectors.
func New(namespace string) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: registry,
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		CacheRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_requests_total",
				Help:      "Cache lookups by keyspace and result",
			},
			[]string{"keyspace", "result"},
		),
		SubscriptionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "subscriptions_total",
				Help:      "Subscribe attempts by billing cycle and outcome",
			},
			[]string{"billing_cycle", "outcome"},
		),
		SubscriptionsExpired: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "subscriptions_expired_total",
				Help:      "Subscriptions moved to EXPIRED by the worker",
			},
		),
		PromoRedemptions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "promo_redemptions_total",
				Help:      "Promo code redemptions by code",
			},
			[]string{"code"},
		),
		RevenueCollected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "revenue_collected_total",
				Help:      "Amount charged on successful transactions, by currency",
			},
			[]string{"currency"},
		),
		UsageUnitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "usage_units_total",
				Help:      "Metered units by resource and direction",
			},
			[]string{"resource", "direction"},
		),
		JobRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "job_runs_total",
				Help:      "Scheduled job runs by job and result",
			},
			[]string{"job", "result"},
		),
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.CacheRequestsTotal,
		m.SubscriptionsTotal,
		m.SubscriptionsExpired,
		m.PromoRedemptions,
		m.RevenueCollected,
		m.UsageUnitsTotal,
		m.JobRunsTotal,
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry is exposed for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) CacheResult(keyspace string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheRequestsTotal.WithLabelValues(keyspace, result).Inc()
}

func (m *Metrics) SubscribeOutcome(billingCycle, outcome string) {
	if m == nil {
		return
	}
	m.SubscriptionsTotal.WithLabelValues(billingCycle, outcome).Inc()
}

func (m *Metrics) SubscriptionsExpiredAdd(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.SubscriptionsExpired.Add(float64(n))
}

func (m *Metrics) PromoRedeemed(code string) {
	if m == nil {
		return
	}
	m.PromoRedemptions.WithLabelValues(code).Inc()
}

func (m *Metrics) RevenueAdd(currency string, amount float64) {
	if m == nil || amount <= 0 {
		return
	}
	m.RevenueCollected.WithLabelValues(currency).Add(amount)
}

func (m *Metrics) UsageUnits(resource, direction string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.UsageUnitsTotal.WithLabelValues(resource, direction).Add(float64(n))
}

func (m *Metrics) JobRun(job string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.JobRunsTotal.WithLabelValues(job, result).Inc()
}
