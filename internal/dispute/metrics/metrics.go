package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the dispute ledger.
type Metrics struct {
	// Lifecycle events by outcome: filed, solved, dropped
	Outcomes *prometheus.CounterVec
}

// New creates a Metrics instance with all dispute metrics registered.
func New() *Metrics {
	return &Metrics{
		Outcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "landregistry_dispute_outcomes_total",
			Help: "Total dispute lifecycle events by outcome",
		}, []string{"outcome"}),
	}
}

// IncrementOutcome records a dispute lifecycle event.
func (m *Metrics) IncrementOutcome(outcome string) {
	if m != nil {
		m.Outcomes.WithLabelValues(outcome).Inc()
	}
}
