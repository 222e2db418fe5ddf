// Package metrics holds the Prometheus collectors for Folio.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Sync outcomes
const (
	OutcomeSuccess      = "success"
	OutcomeAuthRequired = "auth_required"
	OutcomeError        = "error"
)

// Quote lookup results
const (
	QuoteHit   = "cache_hit"
	QuoteFound = "found"
	QuoteMiss  = "miss"
)

// Metrics holds all Prometheus collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	SyncTotal       *prometheus.CounterVec   // labels: account, outcome
	SyncDuration    *prometheus.HistogramVec // labels: account
	LastSyncSuccess *prometheus.GaugeVec     // labels: account
	QuoteLookups    *prometheus.CounterVec   // labels: result
	HTTPRequests    *prometheus.CounterVec   // labels: route, status
	HTTPDuration    *prometheus.HistogramVec // labels: route
}

// New creates the collectors on a dedicated registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		SyncTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "folio_sync_total",
			Help: "Account syncs by outcome",
		}, []string{"account", "outcome"}),
		SyncDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "folio_sync_duration_seconds",
			Help:    "Account sync latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"account"}),
		LastSyncSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "folio_last_sync_success_timestamp_seconds",
			Help: "Unix time of the last successful sync per account",
		}, []string{"account"}),
		QuoteLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "folio_quote_lookups_total",
			Help: "Quote lookups per ticker by result",
		}, []string{"result"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "folio_http_requests_total",
			Help: "HTTP requests by route and status code",
		}, []string{"route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "folio_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"route"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.SyncTotal,
		m.SyncDuration,
		m.LastSyncSuccess,
		m.QuoteLookups,
		m.HTTPRequests,
		m.HTTPDuration,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveSync records one account sync.
func (m *Metrics) ObserveSync(account, outcome string, elapsed time.Duration, finished time.Time) {
	if m == nil {
		return
	}
	m.SyncTotal.WithLabelValues(account, outcome).Inc()
	m.SyncDuration.WithLabelValues(account).Observe(elapsed.Seconds())
	if outcome == OutcomeSuccess {
		m.LastSyncSuccess.WithLabelValues(account).Set(float64(finished.Unix()))
	}
}

// ObserveQuote records the result of one ticker lookup.
func (m *Metrics) ObserveQuote(result string) {
	if m == nil {
		return
	}
	m.QuoteLookups.WithLabelValues(result).Inc()
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(route, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(route, status).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}
