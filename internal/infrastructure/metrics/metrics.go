package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine's Prometheus instruments. They are observed at
// the HTTP layer so the application services stay free of instrumentation.
type Metrics struct {
	SyncRuns      *prometheus.CounterVec
	SyncItems     *prometheus.CounterVec
	SyncDuration  prometheus.Histogram
	WebhookEvents *prometheus.CounterVec
}

// New registers and returns the engine's metrics
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SyncRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_sync_runs_total",
			Help: "Full-sync runs by final status.",
		}, []string{"status"}),
		SyncItems: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_sync_items_total",
			Help: "Items touched by full-sync runs, by outcome.",
		}, []string{"outcome"}),
		SyncDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "catalog_sync_duration_seconds",
			Help:    "Wall-clock duration of full-sync runs.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		WebhookEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_webhook_events_total",
			Help: "Inbound webhook events by topic.",
		}, []string{"topic"}),
	}
}
