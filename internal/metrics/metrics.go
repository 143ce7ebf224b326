package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "searchsync"

// Backend adapter metrics.
var (
	BackendRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "backend_request_duration_seconds",
			Help:      "Search backend call duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"backend", "op"},
	)

	BackendErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_errors_total",
			Help:      "Total search backend errors by kind",
		},
		[]string{"backend", "op", "kind"},
	)

	BulkItemsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "backend_bulk_items_total",
			Help:      "Documents processed by bulk index calls",
		},
		[]string{"backend", "outcome"}, // "success" / "failed"
	)
)

// Sync engine metrics.
var (
	SyncEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_events_total",
			Help:      "Sync events applied by type and outcome",
		},
		[]string{"event", "outcome"},
	)

	SyncQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sync_queue_depth",
			Help:      "Events waiting in the sync queue",
		},
	)

	SyncRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_retries_total",
			Help:      "Retries scheduled after failed sync attempts",
		},
	)

	SyncQueueEvictionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_queue_evictions_total",
			Help:      "Events evicted from a full sync queue",
		},
	)

	SyncLedgerEntries = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sync_ledger_entries",
			Help:      "Ledger entries by sync status",
		},
		[]string{"status"},
	)
)

var registerOnce sync.Once

// Register registers backend and sync metrics with the default registry. Call once from main.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			BackendRequestDuration,
			BackendErrorsTotal,
			BulkItemsTotal,
			SyncEventsTotal,
			SyncQueueDepth,
			SyncRetriesTotal,
			SyncQueueEvictionsTotal,
			SyncLedgerEntries,
		)
	})
}
