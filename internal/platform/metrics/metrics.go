package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	SignupsTotal       *prometheus.CounterVec
	IDCollisionsTotal  prometheus.Counter
	LedgerRecordsTotal prometheus.Counter
	SignupDuration     prometheus.Histogram
}

func New() *Metrics {
	return &Metrics{
		SignupsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "enrolld_signups_total",
			Help: "Total signups by resolved path and outcome",
		}, []string{"path", "outcome"}),
		IDCollisionsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "enrolld_member_id_collisions_total",
			Help: "Total member ID collisions detected during allocation or insert",
		}),
		LedgerRecordsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "enrolld_failure_ledger_records_total",
			Help: "Total failure ledger records written for contained sub-write failures",
		}),
		SignupDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "enrolld_signup_duration_seconds",
			Help:    "End-to-end signup duration",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) ObserveSignup(path, outcome string, seconds float64) {
	m.SignupsTotal.WithLabelValues(path, outcome).Inc()
	m.SignupDuration.Observe(seconds)
}

func (m *Metrics) IncIDCollisions() {
	m.IDCollisionsTotal.Inc()
}

func (m *Metrics) IncLedgerRecords() {
	m.LedgerRecordsTotal.Inc()
}
