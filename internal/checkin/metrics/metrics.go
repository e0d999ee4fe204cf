package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	CheckinOutcomes *prometheus.CounterVec
	TxRetries       prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		CheckinOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "turnstile_checkin_outcomes_total",
			Help: "Total check-in attempts by outcome code",
		}, []string{"outcome"}),
		TxRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "turnstile_checkin_tx_retries_total",
			Help: "Total check-in transactions retried after a serialization conflict",
		}),
	}
}

func (m *Metrics) ObserveOutcome(outcome string) {
	m.CheckinOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementTxRetries() {
	m.TxRetries.Inc()
}
