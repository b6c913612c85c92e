package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Submitted *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Submitted: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "bloodbank_requests_submitted_total",
			Help: "Blood requests entering the approval queue by role",
		}, []string{"role"}),
	}
}

func (m *Metrics) IncrementSubmitted(role string) {
	if m == nil {
		return
	}
	m.Submitted.WithLabelValues(role).Inc()
}
