package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Units       *prometheus.GaugeVec
	Adjustments *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Units: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "bloodbank_stock_units",
			Help: "Units currently held per blood group",
		}, []string{"blood_group"}),
		Adjustments: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bloodbank_stock_adjustments_total",
			Help: "Stock changes by kind (credit, debit, set, delete)",
		}, []string{"kind"}),
	}
}

// SetUnits records the current count for a group.
func (m *Metrics) SetUnits(group string, units int) {
	if m == nil {
		return
	}
	m.Units.WithLabelValues(group).Set(float64(units))
}

func (m *Metrics) IncrementAdjustment(kind string) {
	if m == nil {
		return
	}
	m.Adjustments.WithLabelValues(kind).Inc()
}
