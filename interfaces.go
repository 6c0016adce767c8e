package tokengate

//go:generate mockgen -destination=mocks/mock_tokengate.go -package=mocks github.com/chimerakang/tokengate-go CredentialValidator,IdentityStore,SessionBridge,ActivityLogger

import "context"

// CredentialValidator verifies a username/password pair against the host.
type CredentialValidator interface {
	// ValidateCredentials returns the host's login outcome. An error means the
	// host could not decide, not that the credentials were rejected.
	ValidateCredentials(ctx context.Context, username, password string) (LoginOutcome, error)
}

// IdentityStore resolves identities from the host. Lookups that find nothing
// return an error matching ErrIdentityNotFound.
type IdentityStore interface {
	GetByUsername(ctx context.Context, username string) (*Identity, error)
	GetByEmail(ctx context.Context, email string) (*Identity, error)
	GetByID(ctx context.Context, id int64) (*Identity, error)
}

// SessionBridge lets non-token parts of the host recognize a subject that
// obtained a token. Optional: pure API deployments leave it unset.
type SessionBridge interface {
	RememberSession(ctx context.Context, identity *Identity) error
}

// ActivityLogger appends audit entries against an identity.
type ActivityLogger interface {
	Append(ctx context.Context, identity *Identity, eventName, description string) error
}

// Localizer resolves user-facing messages. Missing keys resolve to the key.
type Localizer interface {
	Resolve(ctx context.Context, key string) string
}

// SettingsProvider exposes host settings read at request time.
type SettingsProvider interface {
	APIEnabled(ctx context.Context) (bool, error)
	UsernamesEnabled(ctx context.Context) (bool, error)
}

// SigningKey is a symmetric secret with a stable identifier.
type SigningKey struct {
	ID     string
	Secret []byte
}

// SigningKeyProvider supplies the key used to sign new tokens and the keys
// accepted when verifying them.
type SigningKeyProvider interface {
	SigningKey(ctx context.Context) (SigningKey, error)

	// VerificationKeys returns the current key first, followed by recently
	// retired keys that are still accepted.
	VerificationKeys(ctx context.Context) ([]SigningKey, error)
}

// TokenIssuer produces signed tokens for identities.
type TokenIssuer interface {
	Issue(ctx context.Context, identity *Identity, usernamesEnabled bool) (*Token, error)
}

// TokenVerifier verifies presented tokens and returns their claims.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*Claims, error)
}

// Authorizer combines authorization requirements into one decision.
type Authorizer interface {
	Authorize(ctx context.Context, req *AuthzRequest) Decision
}
