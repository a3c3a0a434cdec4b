// Package metrics provides HTTP-level observability shared by all handlers.
// Domain-specific metrics live next to their service (internal/record/metrics).
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides request-level observability.
type Metrics struct {
	RequestDuration *prometheus.HistogramVec
}

// New creates a Metrics instance with all HTTP metrics registered.
func New() *Metrics {
	return &Metrics{
		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tempora_http_request_duration_seconds",
			Help:    "Duration of HTTP requests by method, path, and status",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"method", "path", "status"}),
	}
}

// ObserveRequest records one served request.
func (m *Metrics) ObserveRequest(method, path string, status int, d time.Duration) {
	if m != nil {
		m.RequestDuration.WithLabelValues(method, path, strconv.Itoa(status)).Observe(d.Seconds())
	}
}
