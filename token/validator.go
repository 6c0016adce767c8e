package token

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tokengate "github.com/chimerakang/tokengate-go"
	"github.com/golang-jwt/jwt/v5"
)

// Rejection reasons returned by Validator.Verify.
var (
	ErrMalformed        = errors.New("tokengate/token: malformed token")
	ErrSignatureInvalid = errors.New("tokengate/token: signature invalid")
	ErrExpired          = errors.New("tokengate/token: token expired")
	ErrNotYetValid      = errors.New("tokengate/token: token not yet valid")
)

// Reason returns a short label for a Verify error, for metrics and logs.
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrExpired):
		return "expired"
	case errors.Is(err, ErrNotYetValid):
		return "not_yet_valid"
	case errors.Is(err, ErrSignatureInvalid):
		return "signature_invalid"
	default:
		return "malformed"
	}
}

// Validator implements tokengate.TokenVerifier.
type Validator struct {
	keys   tokengate.SigningKeyProvider
	now    func() time.Time
	leeway time.Duration
}

// compile-time check
var _ tokengate.TokenVerifier = (*Validator)(nil)

// NewValidator creates a validator accepting tokens signed by any of the
// provider's verification keys.
func NewValidator(keys tokengate.SigningKeyProvider, opts ...Option) *Validator {
	o := buildOptions(opts)
	return &Validator{keys: keys, now: o.now, leeway: o.leeway}
}

// Verify checks the signature of a token before looking at any claim, then
// enforces the [nbf-leeway, exp+leeway] window.
func (v *Validator) Verify(ctx context.Context, raw string) (*tokengate.Claims, error) {
	parts := strings.Split(raw, ".")
	if len(parts) != 3 {
		return nil, ErrMalformed
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
		jwt.WithTimeFunc(v.now),
		jwt.WithStrictDecoding(),
	)

	sig, err := parser.DecodeSegment(parts[2])
	if err != nil {
		return nil, fmt.Errorf("%w: signature segment: %v", ErrMalformed, err)
	}

	key, err := v.matchKey(ctx, parts[0]+"."+parts[1], sig)
	if err != nil {
		return nil, err
	}

	claims := &jwtClaims{}
	_, err = parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return key, nil
	})
	if err != nil {
		return nil, classify(err)
	}

	if claims.CustomerID <= 0 || claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrMalformed)
	}
	return fromJWT(claims), nil
}

// matchKey returns the verification key whose HMAC matches the signature.
func (v *Validator) matchKey(ctx context.Context, signingString string, sig []byte) ([]byte, error) {
	keys, err := v.keys.VerificationKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("tokengate/token: verification keys: %w", err)
	}
	for _, k := range keys {
		if jwt.SigningMethodHS256.Verify(signingString, sig, k.Secret) == nil {
			return k.Secret, nil
		}
	}
	return nil, ErrSignatureInvalid
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return ErrNotYetValid
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	default:
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
}
