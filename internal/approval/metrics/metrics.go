package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Decisions *prometheus.CounterVec
	Duration  *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Decisions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bloodbank_approval_decisions_total",
			Help: "Approval actions by action and outcome",
		}, []string{"action", "outcome"}),
		Duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bloodbank_approval_tx_duration_seconds",
			Help:    "Time spent in the approval transaction",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}, []string{"action"}),
	}
}

func (m *Metrics) ObserveDecision(action, outcome string) {
	if m == nil {
		return
	}
	m.Decisions.WithLabelValues(action, outcome).Inc()
}

func (m *Metrics) ObserveDuration(action string, started time.Time) {
	if m == nil {
		return
	}
	m.Duration.WithLabelValues(action).Observe(time.Since(started).Seconds())
}
