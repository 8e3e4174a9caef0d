// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Sync metrics
	SyncCycles        *prometheus.CounterVec
	SyncFetchErrors   *prometheus.CounterVec
	SyncCycleDuration prometheus.Histogram

	// Catalog metrics
	CatalogRefreshes *prometheus.CounterVec
	CatalogEntries   prometheus.Gauge

	// Portfolio metrics
	Holdings prometheus.Gauge

	// Provider metrics
	ProviderRequestDuration *prometheus.HistogramVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "bagz"
	}

	return &Metrics{
		SyncCycles: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "cycles_total",
			Help:      "Total number of sync cycles by outcome",
		}, []string{"outcome"}),
		SyncFetchErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "fetch_errors_total",
			Help:      "Total number of failed market data fetches by kind",
		}, []string{"kind"}),
		SyncCycleDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "cycle_duration_seconds",
			Help:      "Sync cycle duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		CatalogRefreshes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "refresh_total",
			Help:      "Total number of catalog refreshes by status",
		}, []string{"status"}),
		CatalogEntries: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "catalog",
			Name:      "entries",
			Help:      "Number of coins in the catalog",
		}),

		Holdings: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "portfolio",
			Name:      "holdings",
			Help:      "Number of coins held in the portfolio",
		}),

		ProviderRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "request_duration_seconds",
			Help:      "Market data provider request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint", "status"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordSyncCycle records a finished sync cycle; outcome is "applied", "discarded" or "empty".
func RecordSyncCycle(outcome string, seconds float64) {
	DefaultMetrics.SyncCycles.WithLabelValues(outcome).Inc()
	DefaultMetrics.SyncCycleDuration.Observe(seconds)
}

// RecordFetchError records a failed price or logo fetch.
func RecordFetchError(kind string) {
	DefaultMetrics.SyncFetchErrors.WithLabelValues(kind).Inc()
}

// RecordCatalogRefresh records a catalog refresh attempt.
func RecordCatalogRefresh(status string, entries int) {
	DefaultMetrics.CatalogRefreshes.WithLabelValues(status).Inc()
	if status == "ok" {
		DefaultMetrics.CatalogEntries.Set(float64(entries))
	}
}

// SetHoldings updates the holdings gauge.
func SetHoldings(n int) {
	DefaultMetrics.Holdings.Set(float64(n))
}

// RecordProviderRequest records provider request latency.
func RecordProviderRequest(endpoint string, seconds float64, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	DefaultMetrics.ProviderRequestDuration.WithLabelValues(endpoint, status).Observe(seconds)
}
