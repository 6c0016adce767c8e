package token

import (
	"context"
	"fmt"
	"time"

	tokengate "github.com/chimerakang/tokengate-go"
	"github.com/golang-jwt/jwt/v5"
)

// Option configures an Issuer or Validator.
type Option func(*options)

type options struct {
	now    func() time.Time
	leeway time.Duration
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithLeeway sets the clock-skew grace applied to nbf and exp. Validator only.
func WithLeeway(d time.Duration) Option {
	return func(o *options) { o.leeway = d }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now, leeway: tokengate.DefaultClockSkew}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// Issuer implements tokengate.TokenIssuer with HS256 signatures.
type Issuer struct {
	keys    tokengate.SigningKeyProvider
	builder Builder
	now     func() time.Time
}

// compile-time check
var _ tokengate.TokenIssuer = (*Issuer)(nil)

// NewIssuer creates an issuer signing with keys and tokens valid for expiry.
func NewIssuer(keys tokengate.SigningKeyProvider, expiry time.Duration, opts ...Option) *Issuer {
	o := buildOptions(opts)
	return &Issuer{keys: keys, builder: NewBuilder(expiry), now: o.now}
}

// Issue builds the claim set for identity and signs it.
func (i *Issuer) Issue(ctx context.Context, identity *tokengate.Identity, usernamesEnabled bool) (*tokengate.Token, error) {
	return i.Sign(ctx, i.builder.Build(identity, usernamesEnabled, i.now()))
}

// Sign signs an existing claim set with the current key.
func (i *Issuer) Sign(ctx context.Context, claims *tokengate.Claims) (*tokengate.Token, error) {
	key, err := i.keys.SigningKey(ctx)
	if err != nil {
		return nil, fmt.Errorf("tokengate/token: signing key: %w", err)
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, toJWT(claims))
	t.Header["kid"] = key.ID
	s, err := t.SignedString(key.Secret)
	if err != nil {
		return nil, fmt.Errorf("tokengate/token: sign: %w", err)
	}

	return &tokengate.Token{
		Value:     s,
		IssuedAt:  claims.IssuedAt,
		ExpiresAt: claims.ExpiresAt,
		Claims:    claims,
	}, nil
}
