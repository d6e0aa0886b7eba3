// Package metrics holds the Prometheus collectors for the auth core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts auth flow outcomes and admin guard decisions.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	authEvents     *prometheus.CounterVec
	guardDecisions *prometheus.CounterVec
	otpIssued      prometheus.Counter
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		authEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shop",
			Subsystem: "auth",
			Name:      "events_total",
			Help:      "Auth flow results by flow and outcome.",
		}, []string{"flow", "outcome"}),
		guardDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shop",
			Subsystem: "auth",
			Name:      "admin_guard_decisions_total",
			Help:      "Admin guard decisions by outcome.",
		}, []string{"outcome"}),
		otpIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shop",
			Subsystem: "auth",
			Name:      "otp_issued_total",
			Help:      "One-time passcodes issued.",
		}),
	}
	reg.MustRegister(m.authEvents, m.guardDecisions, m.otpIssued)
	return m
}

// AuthEvent records one flow result, e.g. ("login", "success").
func (m *Metrics) AuthEvent(flow, outcome string) {
	if m == nil {
		return
	}
	m.authEvents.WithLabelValues(flow, outcome).Inc()
}

func (m *Metrics) GuardDecision(outcome string) {
	if m == nil {
		return
	}
	m.guardDecisions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) OTPIssued() {
	if m == nil {
		return
	}
	m.otpIssued.Inc()
}
