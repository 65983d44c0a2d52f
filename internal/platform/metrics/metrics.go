// Package metrics registers the service-wide Prometheus metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the HTTP-level Prometheus metrics shared by all handlers.
// Module-specific counters live in the per-module metrics packages.
type Metrics struct {
	HTTPRequestDuration *prometheus.HistogramVec
}

// New creates and registers the shared metrics.
func New() *Metrics {
	return &Metrics{
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cardvault_http_request_duration_seconds",
			Help:    "Duration of HTTP requests by method, path, and status",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"method", "path", "status"}),
	}
}

// ObserveHTTPRequest records one request's duration.
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, d time.Duration) {
	if m != nil {
		m.HTTPRequestDuration.WithLabelValues(method, path, strconv.Itoa(status)).Observe(d.Seconds())
	}
}
