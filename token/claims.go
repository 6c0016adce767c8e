// Package token builds claim sets and issues and validates HS256 bearer tokens.
//
// A token is a compact JWT whose payload carries the subject's external id
// (sub), numeric id (customer_id), one login name (username or email), a role
// snapshot and the iat/nbf/exp window in integer seconds. Validity is a pure
// function of the token bytes, the key ring and the current time.
package token

import (
	"time"

	tokengate "github.com/chimerakang/tokengate-go"
	"github.com/golang-jwt/jwt/v5"
)

// jwtClaims is the wire form of tokengate.Claims.
type jwtClaims struct {
	jwt.RegisteredClaims
	CustomerID int64    `json:"customer_id"`
	Username   string   `json:"username,omitempty"`
	Email      string   `json:"email,omitempty"`
	Roles      []string `json:"roles,omitempty"`
}

// Builder constructs claim sets for identities.
type Builder struct {
	expiry time.Duration
}

// NewBuilder returns a Builder issuing claims valid for expiry. A zero expiry
// means tokengate.DefaultTokenExpiry; a negative one panics.
func NewBuilder(expiry time.Duration) Builder {
	if expiry < 0 {
		panic("tokengate/token: negative token expiry")
	}
	if expiry == 0 {
		expiry = tokengate.DefaultTokenExpiry
	}
	return Builder{expiry: expiry}
}

// Expiry returns the validity window of built claims.
func (b Builder) Expiry() time.Duration { return b.expiry }

// Build returns the claim set for identity at now. The login name is the
// username when usernamesEnabled, else the email; the other one is used only
// when the preferred one is empty. Build panics on a nil identity.
func (b Builder) Build(identity *tokengate.Identity, usernamesEnabled bool, now time.Time) *tokengate.Claims {
	if identity == nil {
		panic("tokengate/token: Build called with nil identity")
	}
	if b.expiry == 0 {
		b.expiry = tokengate.DefaultTokenExpiry
	}
	now = now.UTC().Truncate(time.Second)

	c := &tokengate.Claims{
		CustomerID: identity.ID,
		ExternalID: identity.ExternalID,
		Roles:      append([]string(nil), identity.Roles...),
		IssuedAt:   now,
		NotBefore:  now,
		ExpiresAt:  now.Add(b.expiry),
	}

	username, email := identity.Username, identity.Email
	switch {
	case usernamesEnabled && username != "":
		c.Username = username
	case !usernamesEnabled && email != "":
		c.Email = email
	case username != "":
		c.Username = username
	case email != "":
		c.Email = email
	}
	return c
}

func toJWT(c *tokengate.Claims) *jwtClaims {
	return &jwtClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   c.ExternalID,
			IssuedAt:  jwt.NewNumericDate(c.IssuedAt),
			NotBefore: jwt.NewNumericDate(c.NotBefore),
			ExpiresAt: jwt.NewNumericDate(c.ExpiresAt),
		},
		CustomerID: c.CustomerID,
		Username:   c.Username,
		Email:      c.Email,
		Roles:      c.Roles,
	}
}

func fromJWT(j *jwtClaims) *tokengate.Claims {
	c := &tokengate.Claims{
		CustomerID: j.CustomerID,
		ExternalID: j.Subject,
		Username:   j.Username,
		Email:      j.Email,
		Roles:      j.Roles,
	}
	if j.IssuedAt != nil {
		c.IssuedAt = j.IssuedAt.UTC()
	}
	if j.NotBefore != nil {
		c.NotBefore = j.NotBefore.UTC()
	}
	if j.ExpiresAt != nil {
		c.ExpiresAt = j.ExpiresAt.UTC()
	}
	return c
}
