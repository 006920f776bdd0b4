package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the audit pipeline.
type Metrics struct {
	EntriesWritten prometheus.Counter
	WriteFailures  prometheus.Counter
	EntriesDropped prometheus.Counter
	EntriesPurged  prometheus.Counter
}

// New creates and registers all audit metrics.
func New() *Metrics {
	return &Metrics{
		EntriesWritten: promauto.NewCounter(prometheus.CounterOpts{
			Name: "identra_audit_entries_written_total",
			Help: "Total number of audit entries persisted",
		}),
		WriteFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "identra_audit_write_failures_total",
			Help: "Total number of audit writes that failed and were discarded",
		}),
		EntriesDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "identra_audit_entries_dropped_total",
			Help: "Total number of audit submissions dropped because the inbox was full",
		}),
		EntriesPurged: promauto.NewCounter(prometheus.CounterOpts{
			Name: "identra_audit_entries_purged_total",
			Help: "Total number of audit entries removed by retention sweeps",
		}),
	}
}

// IncWritten increments the written counter.
func (m *Metrics) IncWritten() {
	if m != nil {
		m.EntriesWritten.Inc()
	}
}

// IncWriteFailure increments the write failure counter.
func (m *Metrics) IncWriteFailure() {
	if m != nil {
		m.WriteFailures.Inc()
	}
}

// IncDropped increments the dropped counter.
func (m *Metrics) IncDropped() {
	if m != nil {
		m.EntriesDropped.Inc()
	}
}

// AddPurged adds n to the purged counter.
func (m *Metrics) AddPurged(n int64) {
	if m != nil && n > 0 {
		m.EntriesPurged.Add(float64(n))
	}
}
