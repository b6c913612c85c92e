package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts account activity.
type Metrics struct {
	Registrations *prometheus.CounterVec
	Logins        *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Registrations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bloodbank_registrations_total",
			Help: "Accounts created by role",
		}, []string{"role"}),
		Logins: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bloodbank_logins_total",
			Help: "Login attempts by outcome (success, bad_credentials, role_mismatch)",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) IncrementRegistration(role string) {
	if m == nil {
		return
	}
	m.Registrations.WithLabelValues(role).Inc()
}

func (m *Metrics) IncrementLogin(outcome string) {
	if m == nil {
		return
	}
	m.Logins.WithLabelValues(outcome).Inc()
}
