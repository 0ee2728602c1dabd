package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the collection module: refresh outcomes,
// push delta application, and degraded-mode fallbacks.
type Metrics struct {
	RefreshesTotal    *prometheus.CounterVec
	RefreshDuration   prometheus.Histogram
	DeltasTotal       *prometheus.CounterVec
	MappingFailures   prometheus.Counter
	SnapshotFallbacks prometheus.Counter
	CollectionSize    prometheus.Gauge
}

// New creates a Metrics instance with all collection metrics registered.
func New() *Metrics {
	return &Metrics{
		RefreshesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "passage_collection_refreshes_total",
			Help: "Full refreshes attempted, labeled by outcome (ok/degraded/error)",
		}, []string{"outcome"}),
		RefreshDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "passage_collection_refresh_duration_seconds",
			Help:    "Duration of full refreshes against the persistence service",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
		DeltasTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "passage_collection_deltas_total",
			Help: "Push deltas applied, labeled by operation",
		}, []string{"op"}),
		MappingFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "passage_collection_mapping_failures_total",
			Help: "Push deltas rejected as malformed, each triggering a full refresh",
		}),
		SnapshotFallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "passage_collection_snapshot_fallbacks_total",
			Help: "Refresh failures served from the durable snapshot",
		}),
		CollectionSize: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "passage_collection_size",
			Help: "Candidates currently held in the in-memory collection",
		}),
	}
}
