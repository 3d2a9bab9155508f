package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/garyjia/kyc-review/internal/application/port"
	"github.com/garyjia/kyc-review/internal/domain/workflow"
)

// Metrics provides observability for the review workflow.
type Metrics struct {
	// Transition attempts by source state, target state and outcome
	Transitions *prometheus.CounterVec

	// Compare-and-swap writes that lost to a concurrent writer
	VersionConflicts prometheus.Counter

	// Next-step triggers consumed by outcome
	TriggersProcessed *prometheus.CounterVec

	// Applications expired by the sweeper
	ApplicationsExpired prometheus.Counter

	// Audit entries removed after their retention ended
	AuditPurged prometheus.Counter
}

// New registers the workflow metrics with reg; a nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kyc_workflow_transitions_total",
			Help: "Workflow transition attempts by from state, to state and outcome",
		}, []string{"from", "to", "outcome"}), // outcome: "committed", "refused", "failed"

		VersionConflicts: factory.NewCounter(prometheus.CounterOpts{
			Name: "kyc_workflow_version_conflicts_total",
			Help: "Application writes rejected because the stored version moved",
		}),

		TriggersProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kyc_workflow_triggers_processed_total",
			Help: "Next-step triggers consumed from the queue by outcome",
		}, []string{"outcome"}),

		ApplicationsExpired: factory.NewCounter(prometheus.CounterOpts{
			Name: "kyc_applications_expired_total",
			Help: "Applications moved to EXPIRED by the expiry sweeper",
		}),

		AuditPurged: factory.NewCounter(prometheus.CounterOpts{
			Name: "kyc_audit_entries_purged_total",
			Help: "Audit entries deleted after their retention period",
		}),
	}
}

// ObserveTransition records one transition attempt.
func (m *Metrics) ObserveTransition(from, to workflow.State, outcome string) {
	if m != nil {
		m.Transitions.WithLabelValues(string(from), string(to), outcome).Inc()
	}
}

// ObserveConflict records a lost compare-and-swap.
func (m *Metrics) ObserveConflict() {
	if m != nil {
		m.VersionConflicts.Inc()
	}
}

// ObserveTrigger records one consumed next-step trigger.
func (m *Metrics) ObserveTrigger(outcome string) {
	if m != nil {
		m.TriggersProcessed.WithLabelValues(outcome).Inc()
	}
}

// AddExpired records applications expired in one sweep.
func (m *Metrics) AddExpired(n int) {
	if m != nil && n > 0 {
		m.ApplicationsExpired.Add(float64(n))
	}
}

// AddAuditPurged records audit entries removed in one sweep.
func (m *Metrics) AddAuditPurged(n int64) {
	if m != nil && n > 0 {
		m.AuditPurged.Add(float64(n))
	}
}

var _ port.TransitionMetrics = (*Metrics)(nil)
