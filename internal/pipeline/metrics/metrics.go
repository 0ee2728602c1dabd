package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the pipeline module. Tracks transition
// outcomes and SLA classifications so dashboards can alert on stuck stages.
type Metrics struct {
	TransitionsTotal   *prometheus.CounterVec
	GuardDenialsTotal  *prometheus.CounterVec
	RollbacksTotal     prometheus.Counter
	SLAStatusScans     *prometheus.CounterVec
	TransitionDuration prometheus.Histogram
}

// New creates a Metrics instance with all pipeline metrics registered.
func New() *Metrics {
	return &Metrics{
		TransitionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "passage_stage_transitions_total",
			Help: "Stage transitions applied, labeled by target stage and kind (advance/override)",
		}, []string{"to_stage", "kind"}),
		GuardDenialsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "passage_guard_denials_total",
			Help: "Transitions blocked by an exit guard, labeled by the stage being left",
		}, []string{"from_stage"}),
		RollbacksTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "passage_stage_rollbacks_total",
			Help: "Compensating rollbacks applied",
		}),
		SLAStatusScans: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "passage_sla_classifications_total",
			Help: "SLA classifications computed, labeled by resulting status",
		}, []string{"status"}),
		TransitionDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "passage_transition_duration_seconds",
			Help:    "Duration of PerformTransition including guard evaluation",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}),
	}
}
