// Package user provides the IdentityStore implementation.
package user

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tokengate "github.com/chimerakang/tokengate-go"
)

// Backend defines the contract for pluggable identity backends (SQL, REST, etc.).
type Backend interface {
	// FindByUsername returns the identity with the given username.
	FindByUsername(ctx context.Context, username string) (*tokengate.Identity, error)

	// FindByEmail returns the identity with the given email.
	FindByEmail(ctx context.Context, email string) (*tokengate.Identity, error)

	// FindByID returns the identity with the given numeric ID.
	FindByID(ctx context.Context, id int64) (*tokengate.Identity, error)
}

// Service implements tokengate.IdentityStore with a configurable backend.
// Backends may report a miss either as ErrIdentityNotFound or as a nil
// identity; both are returned as ErrIdentityNotFound.
type Service struct {
	backend Backend
}

// compile-time check
var _ tokengate.IdentityStore = (*Service)(nil)

// New creates a new identity service with the given backend.
func New(backend Backend) *Service {
	return &Service{backend: backend}
}

// GetByUsername returns an identity by username.
func (s *Service) GetByUsername(ctx context.Context, username string) (*tokengate.Identity, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("tokengate/user: username cannot be empty")
	}
	return found(s.backend.FindByUsername(ctx, username))
}

// GetByEmail returns an identity by email.
func (s *Service) GetByEmail(ctx context.Context, email string) (*tokengate.Identity, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, fmt.Errorf("tokengate/user: email cannot be empty")
	}
	return found(s.backend.FindByEmail(ctx, email))
}

// GetByID returns an identity by numeric ID.
func (s *Service) GetByID(ctx context.Context, id int64) (*tokengate.Identity, error) {
	if id <= 0 {
		return nil, fmt.Errorf("tokengate/user: invalid id %d", id)
	}
	return found(s.backend.FindByID(ctx, id))
}

// GetByLogin resolves by username or email depending on usernamesEnabled.
func (s *Service) GetByLogin(ctx context.Context, login string, usernamesEnabled bool) (*tokengate.Identity, error) {
	if usernamesEnabled {
		return s.GetByUsername(ctx, login)
	}
	return s.GetByEmail(ctx, login)
}

func found(identity *tokengate.Identity, err error) (*tokengate.Identity, error) {
	switch {
	case errors.Is(err, tokengate.ErrIdentityNotFound):
		return nil, tokengate.ErrIdentityNotFound
	case err != nil:
		return nil, fmt.Errorf("tokengate/user: %w", err)
	case identity == nil:
		return nil, tokengate.ErrIdentityNotFound
	}
	return identity, nil
}
