package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the token service.
type Metrics struct {
	Issued   prometheus.Counter
	Verified prometheus.Counter
	Rejected prometheus.Counter
}

// New creates and registers all token metrics.
func New() *Metrics {
	return &Metrics{
		Issued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "identra_tokens_issued_total",
			Help: "Total number of session tokens issued",
		}),
		Verified: promauto.NewCounter(prometheus.CounterOpts{
			Name: "identra_tokens_verified_total",
			Help: "Total number of session tokens successfully verified",
		}),
		Rejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "identra_tokens_rejected_total",
			Help: "Total number of session tokens rejected as invalid or expired",
		}),
	}
}

// IncIssued increments the issued counter.
func (m *Metrics) IncIssued() {
	if m != nil {
		m.Issued.Inc()
	}
}

// IncVerified increments the verified counter.
func (m *Metrics) IncVerified() {
	if m != nil {
		m.Verified.Inc()
	}
}

// IncRejected increments the rejected counter.
func (m *Metrics) IncRejected() {
	if m != nil {
		m.Rejected.Inc()
	}
}
