// Package policy composes independent authorization requirements into one
// allow/deny decision.
//
// Every requirement is a pure pass/fail check over the request; the evaluator
// denies unauthenticated requests before any requirement runs and otherwise
// returns the logical AND of all requirements.
package policy

import (
	"context"
	"strings"

	tokengate "github.com/chimerakang/tokengate-go"
)

// Requirement is a single authorization check.
type Requirement interface {
	// Name identifies the requirement in logs and metrics.
	Name() string

	// Evaluate reports whether the request satisfies the requirement.
	Evaluate(ctx context.Context, req *tokengate.AuthzRequest) bool
}

// RequirementFunc adapts an ordinary function to a named Requirement.
type RequirementFunc struct {
	ID string
	Fn func(ctx context.Context, req *tokengate.AuthzRequest) bool
}

// Name returns the ID.
func (f RequirementFunc) Name() string { return f.ID }

// Evaluate calls Fn.
func (f RequirementFunc) Evaluate(ctx context.Context, req *tokengate.AuthzRequest) bool {
	return f.Fn(ctx, req)
}

// FeatureEnabled passes while the host's "API enabled" setting is on.
// A settings read error fails the check.
type FeatureEnabled struct {
	settings tokengate.SettingsProvider
}

// NewFeatureEnabled returns a FeatureEnabled reading settings.
func NewFeatureEnabled(settings tokengate.SettingsProvider) *FeatureEnabled {
	return &FeatureEnabled{settings: settings}
}

func (r *FeatureEnabled) Name() string { return "api-enabled" }

func (r *FeatureEnabled) Evaluate(ctx context.Context, _ *tokengate.AuthzRequest) bool {
	if r.settings == nil {
		return false
	}
	enabled, err := r.settings.APIEnabled(ctx)
	return err == nil && enabled
}

// SchemeValid passes when the request was authenticated under scheme.
type SchemeValid struct {
	scheme string
}

// NewSchemeValid returns a SchemeValid for scheme, matched case-insensitively.
func NewSchemeValid(scheme string) *SchemeValid {
	return &SchemeValid{scheme: scheme}
}

func (r *SchemeValid) Name() string { return "bearer-scheme" }

func (r *SchemeValid) Evaluate(_ context.Context, req *tokengate.AuthzRequest) bool {
	return r.scheme != "" && req != nil && strings.EqualFold(req.Scheme, r.scheme)
}

// RoleMember passes when the principal holds role.
type RoleMember struct {
	role string
}

// NewRoleMember returns a RoleMember requiring role.
func NewRoleMember(role string) *RoleMember {
	return &RoleMember{role: role}
}

func (r *RoleMember) Name() string { return "api-role" }

func (r *RoleMember) Evaluate(_ context.Context, req *tokengate.AuthzRequest) bool {
	return r.role != "" && req != nil && req.Principal.HasRole(r.role)
}
