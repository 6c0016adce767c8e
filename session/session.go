// Package session provides the legacy session bridge: after a token is
// issued, the subject is remembered so non-token parts of the host can
// recognize it.
package session

import (
	"context"
	"fmt"

	tokengate "github.com/chimerakang/tokengate-go"
)

// Record is what the bridge remembers about a subject.
type Record struct {
	CustomerID int64  `json:"customer_id"`
	ExternalID string `json:"external_id"`
	Name       string `json:"name,omitempty"`
}

// Backend defines the contract for pluggable session backends (Redis, cookies, etc.).
type Backend interface {
	// Save stores rec under its external ID, replacing any previous record.
	Save(ctx context.Context, rec Record) error
}

// Service implements tokengate.SessionBridge with a configurable backend.
type Service struct {
	backend Backend
}

// compile-time check
var _ tokengate.SessionBridge = (*Service)(nil)

// New creates a new session bridge with the given backend.
func New(backend Backend) *Service {
	return &Service{backend: backend}
}

// RememberSession records identity as signed in.
func (s *Service) RememberSession(ctx context.Context, identity *tokengate.Identity) error {
	if identity == nil || identity.ExternalID == "" {
		return fmt.Errorf("tokengate/session: identity external ID cannot be empty")
	}

	name := identity.Username
	if name == "" {
		name = identity.Email
	}
	err := s.backend.Save(ctx, Record{CustomerID: identity.ID, ExternalID: identity.ExternalID, Name: name})
	if err != nil {
		return fmt.Errorf("tokengate/session: %w", err)
	}
	return nil
}

// Close closes the backend when it holds resources.
func (s *Service) Close() error {
	if c, ok := s.backend.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
