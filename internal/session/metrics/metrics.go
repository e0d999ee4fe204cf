// Package metrics exposes prometheus instrumentation for the session
// lifecycle.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	SessionsCreated   prometheus.Counter
	CooldownBlocks    prometheus.Counter
	ValidationResults *prometheus.CounterVec
	ReadFallbacks     prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		SessionsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "turnstile_sessions_created_total",
			Help: "Number of sessions created",
		}),
		CooldownBlocks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "turnstile_session_cooldown_blocks_total",
			Help: "Number of session creations blocked by the network cooldown",
		}),
		ValidationResults: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "turnstile_session_validations_total",
			Help: "Session validation results by status",
		}, []string{"status"}),
		ReadFallbacks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "turnstile_session_read_fallbacks_total",
			Help: "Validations answered with the availability fallback after a store read failure",
		}),
	}
}

func (m *Metrics) ObserveValidation(status string) {
	m.ValidationResults.WithLabelValues(status).Inc()
}
