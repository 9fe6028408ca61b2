package drift

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Request outcomes used as the "outcome" label.
const (
	OutcomeSuccess      = "success"
	OutcomeTimeout      = "timeout"
	OutcomeAPIError     = "api_error"
	OutcomeNetworkError = "network_error"
	OutcomeDecodeError  = "decode_error"
)

// Metrics holds the Prometheus collectors for one or more clients.
// A nil *Metrics records nothing.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the client collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "drift_client_requests_total",
			Help: "Drift API calls by operation and outcome",
		}, []string{"operation", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "drift_client_request_duration_seconds",
			Help:    "Drift API call latency",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"operation"}),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{m.requests, m.duration} {
			if err := reg.Register(c); err != nil {
				return nil, fmt.Errorf("registering drift metrics: %w", err)
			}
		}
	}
	return m, nil
}

func (m *Metrics) observe(operation, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(operation, outcome).Inc()
	m.duration.WithLabelValues(operation).Observe(elapsed.Seconds())
}
