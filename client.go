// Package tokengate issues and validates bearer tokens for programmatic access
// to a host application, and gates protected requests through a composable
// set of authorization requirements.
//
// The host's credential store, identity lookup, settings, audit log and
// message catalog are injected via Option functions. Package gate builds
// the issuer, verifier and policy from Config:
//
//	client, err := gate.New(
//	    tokengate.Config{TokenExpiry: 24 * time.Hour},
//	    keyRing,
//	    tokengate.WithCredentialValidator(hostStore),
//	    tokengate.WithIdentityStore(hostStore),
//	)
//
// NewClient alone leaves the issuer, verifier and authorizer to be injected
// with WithTokenIssuer, WithTokenVerifier and WithAuthorizer.
package tokengate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// Client is the main entry point. Collaborators are injected via Option functions.
type Client struct {
	config   Config
	logger   *slog.Logger
	issuer   TokenIssuer
	verifier TokenVerifier
	authz    Authorizer

	credentials CredentialValidator
	identities  IdentityStore
	settings    SettingsProvider
	sessions    SessionBridge
	activity    ActivityLogger
	messages    Localizer
}

// Option configures the Client.
type Option func(*Client)

// WithLogger sets a structured logger for the client.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithTokenIssuer sets the token issuance implementation.
func WithTokenIssuer(i TokenIssuer) Option {
	return func(c *Client) { c.issuer = i }
}

// WithTokenVerifier sets the token verification implementation.
func WithTokenVerifier(v TokenVerifier) Option {
	return func(c *Client) { c.verifier = v }
}

// WithAuthorizer sets the policy evaluator.
func WithAuthorizer(a Authorizer) Option {
	return func(c *Client) { c.authz = a }
}

// WithCredentialValidator sets the host credential check.
func WithCredentialValidator(v CredentialValidator) Option {
	return func(c *Client) { c.credentials = v }
}

// WithIdentityStore sets the host identity lookup.
func WithIdentityStore(s IdentityStore) Option {
	return func(c *Client) { c.identities = s }
}

// WithSettings overrides the settings derived from Config.
func WithSettings(s SettingsProvider) Option {
	return func(c *Client) { c.settings = s }
}

// WithSessionBridge sets the optional legacy session bridge.
func WithSessionBridge(b SessionBridge) Option {
	return func(c *Client) { c.sessions = b }
}

// WithActivityLogger sets the audit log.
func WithActivityLogger(a ActivityLogger) Option {
	return func(c *Client) { c.activity = a }
}

// WithLocalizer sets the message catalog.
func WithLocalizer(l Localizer) Option {
	return func(c *Client) { c.messages = l }
}

// NewClient creates a new client with the given configuration and options.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}

	c := &Client{config: cfg}
	for _, o := range opts {
		o(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.settings == nil {
		c.settings = SettingsFromConfig(cfg)
	}
	if c.messages == nil {
		c.messages = keyLocalizer{}
	}
	return c, nil
}

// Config returns the effective client configuration.
func (c *Client) Config() Config { return c.config }

// Logger returns the client logger.
func (c *Client) Logger() *slog.Logger { return c.logger }

// Issuer returns the token issuer, or nil if not configured.
func (c *Client) Issuer() TokenIssuer { return c.issuer }

// Verifier returns the token verifier, or nil if not configured.
func (c *Client) Verifier() TokenVerifier { return c.verifier }

// Authz returns the policy evaluator, or nil if not configured.
func (c *Client) Authz() Authorizer { return c.authz }

// Credentials returns the credential validator, or nil if not configured.
func (c *Client) Credentials() CredentialValidator { return c.credentials }

// Identities returns the identity store, or nil if not configured.
func (c *Client) Identities() IdentityStore { return c.identities }

// Settings returns the settings provider.
func (c *Client) Settings() SettingsProvider { return c.settings }

// Sessions returns the session bridge, or nil if not configured.
func (c *Client) Sessions() SessionBridge { return c.sessions }

// Activity returns the activity logger, or nil if not configured.
func (c *Client) Activity() ActivityLogger { return c.activity }

// Messages returns the localizer.
func (c *Client) Messages() Localizer { return c.messages }

// Authenticate verifies the credential in an Authorization header value of
// the form "<scheme> <token>" and re-resolves the subject from the identity
// store. Credential failures wrap ErrUnauthenticated; any other error is an
// internal failure.
func (c *Client) Authenticate(ctx context.Context, authorization string) (*Principal, error) {
	scheme, raw, ok := splitAuthorization(authorization)
	if !ok {
		return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, ErrNoCredentials)
	}
	if c.verifier == nil {
		return nil, errors.New("tokengate: token verifier not configured")
	}

	claims, err := c.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}

	p := &Principal{
		CustomerID: claims.CustomerID,
		ExternalID: claims.ExternalID,
		Name:       claims.Username,
		Roles:      claims.Roles,
		Scheme:     scheme,
	}
	if p.Name == "" {
		p.Name = claims.Email
	}

	if c.identities == nil {
		return p, nil
	}
	identity, err := c.identities.GetByID(ctx, claims.CustomerID)
	switch {
	case err == nil:
		p.Identity = identity
	case errors.Is(err, ErrIdentityNotFound):
		// Tokens are never revoked; a deleted subject surfaces as a nil Identity.
	default:
		return nil, fmt.Errorf("tokengate: resolve identity: %w", err)
	}
	return p, nil
}

// Authorize evaluates the configured policy for a principal. Without an
// Authorizer every request is denied.
func (c *Client) Authorize(ctx context.Context, p *Principal) Decision {
	if c.authz == nil {
		return Decision{Reason: "authorizer not configured"}
	}
	scheme := ""
	if p != nil {
		scheme = p.Scheme
	}
	return c.authz.Authorize(ctx, &AuthzRequest{Principal: p, Scheme: scheme})
}

// Close releases all resources held by the client.
// Any injected collaborator that implements io.Closer will be closed.
func (c *Client) Close() error {
	closers := []interface{}{
		c.issuer, c.verifier, c.authz, c.credentials, c.identities,
		c.settings, c.sessions, c.activity, c.messages,
	}
	var firstErr error
	for _, svc := range closers {
		if cl, ok := svc.(io.Closer); ok && cl != nil {
			if err := cl.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func splitAuthorization(h string) (scheme, token string, ok bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(h), " ")
	token = strings.TrimSpace(token)
	if !found || scheme == "" || token == "" {
		return "", "", false
	}
	return scheme, token, true
}

type keyLocalizer struct{}

func (keyLocalizer) Resolve(_ context.Context, key string) string { return key }
