package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the lifecycle core.
type Metrics struct {
	// Applied commands by entity kind and command type
	CommandsApplied *prometheus.CounterVec

	// Rejected commands by error kind (illegal_transition, reason_required, ...)
	CommandsRejected *prometheus.CounterVec

	// Occurrence resolutions by outcome (confirmed, missed, skipped)
	OccurrencesResolved *prometheus.CounterVec

	// Audit append failures; non-zero values indicate storage trouble
	AuditAppendFailures prometheus.Counter
}

// New creates a Metrics instance registered on reg. Passing a dedicated
// registry keeps tests isolated from the default global one.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		CommandsApplied: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clinicore_commands_applied_total",
			Help: "Total lifecycle commands applied, by entity kind and command",
		}, []string{"kind", "command"}),

		CommandsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clinicore_commands_rejected_total",
			Help: "Total lifecycle commands rejected, by error kind",
		}, []string{"error"}),

		OccurrencesResolved: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "clinicore_occurrences_resolved_total",
			Help: "Total occurrence resolutions, by outcome",
		}, []string{"outcome"}),

		AuditAppendFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "clinicore_audit_append_failures_total",
			Help: "Total failed audit log appends (operational alert)",
		}),
	}
}
