package policy

import (
	"context"
	"fmt"
	"sort"
	"sync"

	tokengate "github.com/chimerakang/tokengate-go"
)

// ReasonUnauthenticated is the decision reason for requests without a principal.
const ReasonUnauthenticated = "unauthenticated"

// Evaluator implements tokengate.Authorizer over a fixed requirement list.
type Evaluator struct {
	requirements []Requirement
}

// compile-time check
var _ tokengate.Authorizer = (*Evaluator)(nil)

// NewEvaluator returns an evaluator requiring all of reqs.
func NewEvaluator(reqs ...Requirement) *Evaluator {
	return &Evaluator{requirements: append([]Requirement(nil), reqs...)}
}

// Requirements returns the names of the configured requirements in order.
func (e *Evaluator) Requirements() []string {
	names := make([]string, len(e.requirements))
	for i, r := range e.requirements {
		names[i] = r.Name()
	}
	return names
}

// Authorize denies requests without a principal, then stops at the first
// failing requirement.
func (e *Evaluator) Authorize(ctx context.Context, req *tokengate.AuthzRequest) tokengate.Decision {
	if req == nil || req.Principal == nil {
		return tokengate.Decision{Reason: ReasonUnauthenticated}
	}
	for _, r := range e.requirements {
		if !r.Evaluate(ctx, req) {
			return tokengate.Decision{Reason: r.Name()}
		}
	}
	return tokengate.Decision{Allowed: true}
}

// Deps carries what requirement factories may need.
type Deps struct {
	Settings tokengate.SettingsProvider
	Scheme   string
	Role     string
}

// Factory builds a requirement from Deps.
type Factory func(Deps) (Requirement, error)

// Registry maps requirement names to factories so policies can be composed
// from configuration at startup.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry returns a registry holding the built-in requirements.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("api-enabled", func(d Deps) (Requirement, error) {
		if d.Settings == nil {
			return nil, fmt.Errorf("settings provider required")
		}
		return NewFeatureEnabled(d.Settings), nil
	})
	r.Register("bearer-scheme", func(d Deps) (Requirement, error) {
		if d.Scheme == "" {
			return nil, fmt.Errorf("scheme required")
		}
		return NewSchemeValid(d.Scheme), nil
	})
	r.Register("api-role", func(d Deps) (Requirement, error) {
		if d.Role == "" {
			return nil, fmt.Errorf("role required")
		}
		return NewRoleMember(d.Role), nil
	})
	return r
}

// Register adds or replaces a factory.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for n := range r.factories {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Build instantiates the named requirements in order.
func (r *Registry) Build(names []string, deps Deps) (*Evaluator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reqs := make([]Requirement, 0, len(names))
	for _, n := range names {
		f, ok := r.factories[n]
		if !ok {
			return nil, fmt.Errorf("tokengate/policy: unknown requirement %q", n)
		}
		req, err := f(deps)
		if err != nil {
			return nil, fmt.Errorf("tokengate/policy: build %q: %w", n, err)
		}
		reqs = append(reqs, req)
	}
	return NewEvaluator(reqs...), nil
}

// FromConfig builds the evaluator described by cfg.
func FromConfig(cfg tokengate.Config, settings tokengate.SettingsProvider) (*Evaluator, error) {
	return DefaultRegistry().Build(cfg.Requirements, Deps{
		Settings: settings,
		Scheme:   cfg.Scheme,
		Role:     cfg.APIRole,
	})
}
