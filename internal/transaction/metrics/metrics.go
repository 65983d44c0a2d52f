// Package metrics provides observability for the transaction module.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the transaction module's Prometheus metrics.
type Metrics struct {
	Authorizations *prometheus.CounterVec
}

// New creates a new Metrics instance with all transaction metrics registered.
func New() *Metrics {
	return &Metrics{
		Authorizations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "cardvault_authorizations_total",
			Help: "Authorization attempts by outcome and decline reason",
		}, []string{"outcome", "reason"}),
	}
}

// IncrementApproved records one approved authorization.
func (m *Metrics) IncrementApproved() {
	if m != nil {
		m.Authorizations.WithLabelValues("approved", "").Inc()
	}
}

// IncrementDeclined records one declined authorization with its reason.
func (m *Metrics) IncrementDeclined(reason string) {
	if m != nil {
		m.Authorizations.WithLabelValues("declined", reason).Inc()
	}
}
