package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the transfer workflow.
type Metrics struct {
	// Lifecycle events by outcome: opened, confirmed, canceled, sold
	Outcomes *prometheus.CounterVec

	// Bid amounts, for a rough view of market activity
	BidAmounts prometheus.Histogram
}

// New creates a Metrics instance with all transfer metrics registered.
func New() *Metrics {
	return &Metrics{
		Outcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "landregistry_transfer_outcomes_total",
			Help: "Total transfer lifecycle events by outcome",
		}, []string{"outcome"}),

		BidAmounts: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "landregistry_transfer_bid_amounts",
			Help:    "Distribution of placed bid amounts",
			Buckets: prometheus.ExponentialBuckets(1000, 10, 7),
		}),
	}
}

// IncrementOutcome records a transfer lifecycle event.
func (m *Metrics) IncrementOutcome(outcome string) {
	if m != nil {
		m.Outcomes.WithLabelValues(outcome).Inc()
	}
}

// ObserveBid records a placed bid's amount.
func (m *Metrics) ObserveBid(amount float64) {
	if m != nil {
		m.BidAmounts.Observe(amount)
	}
}
