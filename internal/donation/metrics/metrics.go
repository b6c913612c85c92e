package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Submitted prometheus.Counter
	Deleted   *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Submitted: f.NewCounter(prometheus.CounterOpts{
			Name: "bloodbank_donations_submitted_total",
			Help: "Donation offers submitted",
		}),
		Deleted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bloodbank_donations_deleted_total",
			Help: "Donation offers deleted by scope (own, all)",
		}, []string{"scope"}),
	}
}

func (m *Metrics) IncrementSubmitted() {
	if m == nil {
		return
	}
	m.Submitted.Inc()
}

func (m *Metrics) AddDeleted(scope string, n int) {
	if m == nil {
		return
	}
	m.Deleted.WithLabelValues(scope).Add(float64(n))
}
