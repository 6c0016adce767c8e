package policy_test

import (
	"context"
	"errors"
	"testing"

	tokengate "github.com/chimerakang/tokengate-go"
	"github.com/chimerakang/tokengate-go/policy"
)

type settings struct {
	enabled bool
	err     error
}

func (s settings) APIEnabled(context.Context) (bool, error)       { return s.enabled, s.err }
func (s settings) UsernamesEnabled(context.Context) (bool, error) { return false, nil }

func apiUser(roles ...string) *tokengate.Principal {
	return &tokengate.Principal{
		CustomerID: 42,
		ExternalID: "ext-42",
		Scheme:     "Bearer",
		Identity:   &tokengate.Identity{ID: 42, Active: true, Roles: roles},
	}
}

func defaultEvaluator(t *testing.T, s tokengate.SettingsProvider) *policy.Evaluator {
	t.Helper()
	e, err := policy.DefaultRegistry().Build(tokengate.DefaultRequirements, policy.Deps{
		Settings: s,
		Scheme:   "Bearer",
		Role:     "ApiUserRole",
	})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	return e
}

func TestEvaluator_Authorize(t *testing.T) {
	tests := []struct {
		name       string
		settings   settings
		principal  *tokengate.Principal
		scheme     string
		wantAllow  bool
		wantReason string
	}{
		{
			name:      "all requirements pass",
			settings:  settings{enabled: true},
			principal: apiUser("Registered", "ApiUserRole"),
			scheme:    "Bearer",
			wantAllow: true,
		},
		{
			name:       "feature disabled",
			settings:   settings{enabled: false},
			principal:  apiUser("ApiUserRole"),
			scheme:     "Bearer",
			wantReason: "api-enabled",
		},
		{
			name:       "settings unreadable",
			settings:   settings{enabled: true, err: errors.New("db down")},
			principal:  apiUser("ApiUserRole"),
			scheme:     "Bearer",
			wantReason: "api-enabled",
		},
		{
			name:       "wrong scheme",
			settings:   settings{enabled: true},
			principal:  apiUser("ApiUserRole"),
			scheme:     "Cookies",
			wantReason: "bearer-scheme",
		},
		{
			name:      "scheme is case-insensitive",
			settings:  settings{enabled: true},
			principal: apiUser("ApiUserRole"),
			scheme:    "bearer",
			wantAllow: true,
		},
		{
			name:       "missing role",
			settings:   settings{enabled: true},
			principal:  apiUser("Registered"),
			scheme:     "Bearer",
			wantReason: "api-role",
		},
		{
			name:       "unauthenticated",
			settings:   settings{enabled: true},
			principal:  nil,
			scheme:     "Bearer",
			wantReason: policy.ReasonUnauthenticated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := defaultEvaluator(t, tt.settings)
			d := e.Authorize(context.Background(), &tokengate.AuthzRequest{Principal: tt.principal, Scheme: tt.scheme})
			if d.Allowed != tt.wantAllow {
				t.Errorf("Allowed = %v, want %v (reason %q)", d.Allowed, tt.wantAllow, d.Reason)
			}
			if d.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", d.Reason, tt.wantReason)
			}
		})
	}
}

func TestEvaluator_RoleFromTokenSnapshot(t *testing.T) {
	e := defaultEvaluator(t, settings{enabled: true})
	p := &tokengate.Principal{CustomerID: 7, Scheme: "Bearer", Roles: []string{"ApiUserRole"}}

	d := e.Authorize(context.Background(), &tokengate.AuthzRequest{Principal: p, Scheme: "Bearer"})
	if !d.Allowed {
		t.Errorf("snapshot role should satisfy api-role when identity is gone, reason %q", d.Reason)
	}
}

func TestEvaluator_ReResolvedRolesWin(t *testing.T) {
	e := defaultEvaluator(t, settings{enabled: true})
	p := apiUser("Registered")
	p.Roles = []string{"ApiUserRole"}

	d := e.Authorize(context.Background(), &tokengate.AuthzRequest{Principal: p, Scheme: "Bearer"})
	if d.Allowed {
		t.Error("role removed from the live identity should deny")
	}
}

func TestEvaluator_ShortCircuits(t *testing.T) {
	calls := 0
	counting := policy.RequirementFunc{ID: "counting", Fn: func(context.Context, *tokengate.AuthzRequest) bool {
		calls++
		return true
	}}
	deny := policy.RequirementFunc{ID: "deny", Fn: func(context.Context, *tokengate.AuthzRequest) bool { return false }}

	e := policy.NewEvaluator(counting, deny, counting)
	d := e.Authorize(context.Background(), &tokengate.AuthzRequest{Principal: apiUser()})
	if d.Allowed || d.Reason != "deny" {
		t.Errorf("Authorize() = %+v, want denied by deny", d)
	}
	if calls != 1 {
		t.Errorf("requirements after the first failure ran: calls = %d", calls)
	}
}

func TestEvaluator_NoRequirementsAllowsAuthenticated(t *testing.T) {
	e := policy.NewEvaluator()
	if d := e.Authorize(context.Background(), &tokengate.AuthzRequest{Principal: apiUser()}); !d.Allowed {
		t.Errorf("empty policy should allow authenticated principals, reason %q", d.Reason)
	}
	if d := e.Authorize(context.Background(), nil); d.Allowed {
		t.Error("nil request must be denied")
	}
}

func TestRegistry_Build(t *testing.T) {
	r := policy.DefaultRegistry()

	if got := r.Names(); len(got) != 3 || got[0] != "api-enabled" || got[1] != "api-role" || got[2] != "bearer-scheme" {
		t.Errorf("Names() = %v", got)
	}

	if _, err := r.Build([]string{"nope"}, policy.Deps{}); err == nil {
		t.Error("Build() with unknown name should fail")
	}
	if _, err := r.Build([]string{"api-enabled"}, policy.Deps{}); err == nil {
		t.Error("Build() api-enabled without settings should fail")
	}
	if _, err := r.Build([]string{"api-role"}, policy.Deps{}); err == nil {
		t.Error("Build() api-role without a role should fail")
	}

	r.Register("always", func(policy.Deps) (policy.Requirement, error) {
		return policy.RequirementFunc{ID: "always", Fn: func(context.Context, *tokengate.AuthzRequest) bool { return true }}, nil
	})
	e, err := r.Build([]string{"always", "bearer-scheme"}, policy.Deps{Scheme: "Bearer"})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if got := e.Requirements(); len(got) != 2 || got[0] != "always" || got[1] != "bearer-scheme" {
		t.Errorf("Requirements() = %v, want configured order", got)
	}
}

func TestFromConfig(t *testing.T) {
	cfg := tokengate.Config{
		Scheme:       "Bearer",
		APIRole:      "ApiUserRole",
		Requirements: tokengate.DefaultRequirements,
	}
	e, err := policy.FromConfig(cfg, tokengate.StaticSettings{API: true})
	if err != nil {
		t.Fatalf("FromConfig() error: %v", err)
	}
	d := e.Authorize(context.Background(), &tokengate.AuthzRequest{Principal: apiUser("ApiUserRole"), Scheme: "Bearer"})
	if !d.Allowed {
		t.Errorf("FromConfig() evaluator denied: %q", d.Reason)
	}
}
