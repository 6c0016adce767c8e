// Package metrics provides Prometheus metrics for token issuance and policy checks.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the token gate.
type Metrics struct {
	enabled bool

	// Issuance metrics
	tokensIssuedTotal  prometheus.Counter
	loginFailuresTotal *prometheus.CounterVec

	// Validation metrics
	tokensRejectedTotal *prometheus.CounterVec

	// Policy metrics
	policyDecisionsTotal   *prometheus.CounterVec
	policyDecisionDuration prometheus.Histogram

	// Side-effect metrics
	sideEffectErrorsTotal *prometheus.CounterVec
}

// New creates and registers metrics with reg.
// A nil reg returns a no-op Metrics instance.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{enabled: reg != nil}

	if !m.enabled {
		return m
	}
	factory := promauto.With(reg)

	m.tokensIssuedTotal = factory.NewCounter(prometheus.CounterOpts{
		Name: "tokengate_tokens_issued_total",
		Help: "Total tokens issued",
	})

	m.loginFailuresTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "tokengate_login_failures_total",
		Help: "Total rejected credential exchanges",
	}, []string{"reason"})

	m.tokensRejectedTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "tokengate_tokens_rejected_total",
		Help: "Total presented tokens rejected by the validator",
	}, []string{"reason"})

	m.policyDecisionsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "tokengate_policy_decisions_total",
		Help: "Total policy decisions",
	}, []string{"result", "reason"})

	m.policyDecisionDuration = factory.NewHistogram(prometheus.HistogramOpts{
		Name:    "tokengate_policy_decision_duration_seconds",
		Help:    "Authentication plus policy evaluation duration in seconds",
		Buckets: prometheus.DefBuckets,
	})

	m.sideEffectErrorsTotal = factory.NewCounterVec(prometheus.CounterOpts{
		Name: "tokengate_side_effect_errors_total",
		Help: "Total failed post-issuance side effects",
	}, []string{"effect"})

	return m
}

// RecordTokenIssued records a successful credential exchange.
func (m *Metrics) RecordTokenIssued() {
	if m == nil || !m.enabled {
		return
	}
	m.tokensIssuedTotal.Inc()
}

// RecordLoginFailure records a rejected credential exchange.
func (m *Metrics) RecordLoginFailure(reason string) {
	if m == nil || !m.enabled {
		return
	}
	m.loginFailuresTotal.WithLabelValues(reason).Inc()
}

// RecordTokenRejected records a token rejected at the gate.
func (m *Metrics) RecordTokenRejected(reason string) {
	if m == nil || !m.enabled {
		return
	}
	m.tokensRejectedTotal.WithLabelValues(reason).Inc()
}

// RecordPolicyDecision records a policy decision and its latency.
func (m *Metrics) RecordPolicyDecision(allowed bool, reason string, durationSeconds float64) {
	if m == nil || !m.enabled {
		return
	}
	result := "denied"
	if allowed {
		result = "allowed"
	}
	m.policyDecisionsTotal.WithLabelValues(result, reason).Inc()
	m.policyDecisionDuration.Observe(durationSeconds)
}

// RecordSideEffectError records a failed session or audit side effect.
func (m *Metrics) RecordSideEffectError(effect string) {
	if m == nil || !m.enabled {
		return
	}
	m.sideEffectErrorsTotal.WithLabelValues(effect).Inc()
}
