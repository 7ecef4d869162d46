package sparkpost

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels recorded by Metrics.
const (
	OutcomeAccepted  = "accepted"
	OutcomeRejected  = "rejected"
	OutcomeTransport = "transport_error"
	OutcomeMalformed = "malformed_response"
)

// Metrics holds Prometheus collectors for client calls. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	requests   *prometheus.CounterVec
	recipients *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sparkpost",
			Name:      "requests_total",
			Help:      "Provider API calls by operation and outcome.",
		}, []string{"operation", "outcome"}),
		recipients: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sparkpost",
			Name:      "recipients_total",
			Help:      "Recipients reported by successful transmissions.",
		}, []string{"state"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "sparkpost",
			Name:      "request_duration_seconds",
			Help:      "Provider API call latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}

func (m *Metrics) observe(operation, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(operation, outcome).Inc()
	m.duration.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func (m *Metrics) observeSuccess(s *Success) {
	if m == nil {
		return
	}
	m.recipients.WithLabelValues(OutcomeAccepted).Add(float64(s.AcceptedCount))
	m.recipients.WithLabelValues(OutcomeRejected).Add(float64(s.RejectedCount))
}
