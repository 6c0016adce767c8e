// Package api implements the credential exchange and token check endpoints.
//
// Service holds the transport-independent logic and returns tokengate
// envelopes; the gin handlers in this package only bind input and write the
// envelope back with a matching transport status.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	tokengate "github.com/chimerakang/tokengate-go"
	"github.com/chimerakang/tokengate-go/metrics"
)

// Audit entry written for every issued token.
const (
	EventTokenRequest       = "Api.TokenRequest"
	EventTokenRequestDetail = "API token request"
)

// TokenType is reported alongside every issued token.
const TokenType = "Bearer"

// TokenResponse is the data payload of a successful exchange.
type TokenResponse struct {
	Token             string    `json:"token"`
	IssuedAt          time.Time `json:"issuedAt"`
	ExpiresAt         time.Time `json:"expiresAt"`
	SubjectID         int64     `json:"subjectId"`
	SubjectExternalID string    `json:"subjectExternalId"`
	Username          string    `json:"username"`
	TokenType         string    `json:"tokenType"`
}

// Option configures a Service.
type Option func(*Service)

// WithMetrics records issuance and login failures.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// Service runs the exchange and check operations against a client's
// collaborators.
type Service struct {
	client  *tokengate.Client
	metrics *metrics.Metrics
}

// New creates a Service. The client must carry a credential validator, an
// identity store and a token issuer.
func New(client *tokengate.Client, opts ...Option) *Service {
	s := &Service{client: client}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Client returns the underlying client.
func (s *Service) Client() *tokengate.Client { return s.client }

// Exchange trades a username and password for a signed token.
//
// The checks run in a fixed order and each one ends the exchange on failure:
// field presence, host credential verification, identity re-resolution,
// account approval, issuance. Session and audit side effects follow a
// successful issuance and never change the response.
func (s *Service) Exchange(ctx context.Context, username, password string) tokengate.Response {
	if username == "" {
		return tokengate.Failure(http.StatusBadRequest, "Missing username")
	}
	if password == "" {
		return tokengate.Failure(http.StatusBadRequest, "Missing password")
	}

	c := s.client
	logger := c.Logger()
	credentials, identities, issuer := c.Credentials(), c.Identities(), c.Issuer()
	if credentials == nil || identities == nil || issuer == nil {
		logger.ErrorContext(ctx, "token exchange not configured")
		return tokengate.InternalError()
	}

	outcome, err := credentials.ValidateCredentials(ctx, username, password)
	if err != nil {
		logger.ErrorContext(ctx, "validate credentials", "error", err)
		return tokengate.InternalError()
	}
	if outcome != tokengate.LoginSuccessful {
		s.metrics.RecordLoginFailure(outcome.String())
		logger.InfoContext(ctx, "login rejected", "outcome", outcome.String())
		return tokengate.Failure(http.StatusBadRequest, c.Messages().Resolve(ctx, outcome.MessageKey()))
	}

	usernames, err := c.Settings().UsernamesEnabled(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "read usernames setting", "error", err)
		return tokengate.InternalError()
	}
	identity, err := lookup(ctx, identities, username, usernames)
	if err != nil {
		if errors.Is(err, tokengate.ErrIdentityNotFound) {
			logger.WarnContext(ctx, "identity vanished after successful login")
			return tokengate.Failure(http.StatusForbidden, "Wrong username or password")
		}
		logger.ErrorContext(ctx, "resolve identity", "error", err)
		return tokengate.InternalError()
	}
	if !identity.Active {
		s.metrics.RecordLoginFailure("not_approved")
		return tokengate.Failure(http.StatusBadRequest, c.Messages().Resolve(ctx, tokengate.MessageAccountNotApproved))
	}

	tok, err := issuer.Issue(ctx, identity, usernames)
	if err != nil {
		logger.ErrorContext(ctx, "issue token", "customer_id", identity.ID, "error", err)
		return tokengate.InternalError()
	}

	s.afterIssue(ctx, identity)
	s.metrics.RecordTokenIssued()

	return tokengate.Success("Token", TokenResponse{
		Token:             tok.Value,
		IssuedAt:          tok.IssuedAt,
		ExpiresAt:         tok.ExpiresAt,
		SubjectID:         identity.ID,
		SubjectExternalID: identity.ExternalID,
		Username:          displayName(tok, identity),
		TokenType:         TokenType,
	})
}

// Check confirms that the gate admitted principal and that its identity is
// still known and active.
func (s *Service) Check(ctx context.Context, p *tokengate.Principal) tokengate.Response {
	if p == nil {
		return tokengate.Unauthorized()
	}
	if p.Identity == nil || !p.Identity.Active {
		return tokengate.Failure(http.StatusNotFound, s.client.Messages().Resolve(ctx, tokengate.MessageCustomerNotFound))
	}
	return tokengate.Success("Valid token", "Authorized")
}

// afterIssue runs the session and audit side effects. Both are skipped once
// ctx is done so a cancelled request leaves nothing half-applied.
func (s *Service) afterIssue(ctx context.Context, identity *tokengate.Identity) {
	logger := s.client.Logger()

	if bridge := s.client.Sessions(); bridge != nil && ctx.Err() == nil {
		if err := bridge.RememberSession(ctx, identity); err != nil {
			s.metrics.RecordSideEffectError("session")
			logger.WarnContext(ctx, "remember session", "customer_id", identity.ID, "error", err)
		}
	}

	if activity := s.client.Activity(); activity != nil && ctx.Err() == nil {
		if err := activity.Append(ctx, identity, EventTokenRequest, EventTokenRequestDetail); err != nil {
			s.metrics.RecordSideEffectError("activity")
			logger.WarnContext(ctx, "append activity", "customer_id", identity.ID, "error", err)
		}
	}
}

func lookup(ctx context.Context, store tokengate.IdentityStore, login string, usernames bool) (*tokengate.Identity, error) {
	var (
		identity *tokengate.Identity
		err      error
	)
	if usernames {
		identity, err = store.GetByUsername(ctx, login)
	} else {
		identity, err = store.GetByEmail(ctx, login)
	}
	if err == nil && identity == nil {
		err = tokengate.ErrIdentityNotFound
	}
	return identity, err
}

func displayName(tok *tokengate.Token, identity *tokengate.Identity) string {
	if tok.Claims != nil {
		if tok.Claims.Username != "" {
			return tok.Claims.Username
		}
		if tok.Claims.Email != "" {
			return tok.Claims.Email
		}
	}
	if identity.Username != "" {
		return identity.Username
	}
	return identity.Email
}
