package api

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records upstream API calls. A nil *Metrics records nothing.
type Metrics struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
}

// NewMetrics registers the upstream collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vidshare_upstream_requests_total",
			Help: "Requests sent to the video API, by endpoint and outcome",
		}, []string{"endpoint", "method", "outcome"}),

		latency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vidshare_upstream_request_duration_seconds",
			Help:    "Latency of requests to the video API",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"endpoint", "method"}),
	}
}

func (m *Metrics) observe(endpoint, method, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(endpoint, method, outcome).Inc()
	m.latency.WithLabelValues(endpoint, method).Observe(d.Seconds())
}
