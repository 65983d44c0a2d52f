// Package metrics provides observability for the card module.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the card module's Prometheus metrics.
type Metrics struct {
	CardsIssued      prometheus.Counter
	CardsDeleted     prometheus.Counter
	NumberCollisions prometheus.Counter
}

// New creates a new Metrics instance with all card module metrics registered.
func New() *Metrics {
	return &Metrics{
		CardsIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cardvault_cards_issued_total",
			Help: "Total number of virtual cards issued",
		}),
		CardsDeleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cardvault_cards_deleted_total",
			Help: "Total number of virtual cards deleted",
		}),
		NumberCollisions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cardvault_card_number_collisions_total",
			Help: "Times card number generation collided with an existing number and was retried",
		}),
	}
}

// IncrementCardsIssued records one issued card.
func (m *Metrics) IncrementCardsIssued() {
	if m != nil {
		m.CardsIssued.Inc()
	}
}

// IncrementCardsDeleted records one deleted card.
func (m *Metrics) IncrementCardsDeleted() {
	if m != nil {
		m.CardsDeleted.Inc()
	}
}

// IncrementNumberCollisions records one generation retry.
func (m *Metrics) IncrementNumberCollisions() {
	if m != nil {
		m.NumberCollisions.Inc()
	}
}
