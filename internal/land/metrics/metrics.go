package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the land registry.
type Metrics struct {
	// Registrations by usage type
	Registrations *prometheus.CounterVec

	// Status transitions by target status
	StatusTransitions *prometheus.CounterVec

	// Ownership handovers
	OwnershipTransfers prometheus.Counter
}

// New creates a Metrics instance with all land registry metrics registered.
func New() *Metrics {
	return &Metrics{
		Registrations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "landregistry_land_registrations_total",
			Help: "Total parcels registered, by usage type",
		}, []string{"usage_type"}),

		StatusTransitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "landregistry_land_status_transitions_total",
			Help: "Total land status transitions, by resulting status",
		}, []string{"status"}),

		OwnershipTransfers: promauto.NewCounter(prometheus.CounterOpts{
			Name: "landregistry_land_ownership_transfers_total",
			Help: "Total completed ownership handovers",
		}),
	}
}

// IncrementRegistration records a new parcel registration.
func (m *Metrics) IncrementRegistration(usageType string) {
	if m != nil {
		m.Registrations.WithLabelValues(usageType).Inc()
	}
}

// IncrementTransition records a status flip.
func (m *Metrics) IncrementTransition(status string) {
	if m != nil {
		m.StatusTransitions.WithLabelValues(status).Inc()
	}
}

// IncrementOwnershipTransfer records a completed handover.
func (m *Metrics) IncrementOwnershipTransfer() {
	if m != nil {
		m.OwnershipTransfers.Inc()
	}
}
