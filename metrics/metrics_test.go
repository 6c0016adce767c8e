package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsDisabled(t *testing.T) {
	metrics := New(nil)

	if metrics == nil {
		t.Fatal("metrics should not be nil (noop)")
	}

	// These should not panic even though they're noop
	metrics.RecordTokenIssued()
	metrics.RecordLoginFailure("wrong_password")
	metrics.RecordTokenRejected("expired")
	metrics.RecordPolicyDecision(true, "", 0.001)
	metrics.RecordSideEffectError("audit")
}

func TestNilMetrics(t *testing.T) {
	var metrics *Metrics

	tests := []func(){
		func() { metrics.RecordTokenIssued() },
		func() { metrics.RecordLoginFailure("locked_out") },
		func() { metrics.RecordTokenRejected("malformed") },
		func() { metrics.RecordPolicyDecision(false, "api-role", 0.001) },
		func() { metrics.RecordSideEffectError("session") },
	}

	for _, test := range tests {
		test() // Should not panic
	}
}

func TestRecordTokenIssued(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordTokenIssued()
	m.RecordTokenIssued()

	if got := testutil.ToFloat64(m.tokensIssuedTotal); got != 2 {
		t.Errorf("tokens issued = %v, want 2", got)
	}
}

func TestRecordFailuresByReason(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordLoginFailure("wrong_password")
	m.RecordLoginFailure("wrong_password")
	m.RecordLoginFailure("locked_out")
	m.RecordTokenRejected("expired")

	if got := testutil.ToFloat64(m.loginFailuresTotal.WithLabelValues("wrong_password")); got != 2 {
		t.Errorf("wrong_password = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.loginFailuresTotal.WithLabelValues("locked_out")); got != 1 {
		t.Errorf("locked_out = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.tokensRejectedTotal.WithLabelValues("expired")); got != 1 {
		t.Errorf("expired = %v, want 1", got)
	}
}

func TestRecordPolicyDecision(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.RecordPolicyDecision(true, "", 0.001)
	m.RecordPolicyDecision(false, "api-enabled", 0.002)

	expected := `
# HELP tokengate_policy_decisions_total Total policy decisions
# TYPE tokengate_policy_decisions_total counter
tokengate_policy_decisions_total{reason="",result="allowed"} 1
tokengate_policy_decisions_total{reason="api-enabled",result="denied"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "tokengate_policy_decisions_total"); err != nil {
		t.Error(err)
	}
	if n := testutil.CollectAndCount(m.policyDecisionDuration); n != 1 {
		t.Errorf("duration histogram series = %d, want 1", n)
	}
}

func TestSeparateRegistries(t *testing.T) {
	// Each registry gets its own collectors; no duplicate registration panic.
	a := New(prometheus.NewRegistry())
	b := New(prometheus.NewRegistry())

	a.RecordSideEffectError("audit")
	if got := testutil.ToFloat64(b.sideEffectErrorsTotal.WithLabelValues("audit")); got != 0 {
		t.Errorf("registries share state: %v", got)
	}
}
