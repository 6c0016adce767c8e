// Package gate builds a tokengate.Client whose issuer, verifier and policy
// come from its Config.
//
//	client, err := gate.New(tokengate.Config{}, ring,
//	    tokengate.WithCredentialValidator(hostStore),
//	    tokengate.WithIdentityStore(hostStore),
//	    tokengate.WithSettings(hostStore),
//	)
package gate

import (
	"errors"

	tokengate "github.com/chimerakang/tokengate-go"
	"github.com/chimerakang/tokengate-go/policy"
	"github.com/chimerakang/tokengate-go/token"
)

// New creates a client from cfg. Collaborators injected through opts win;
// the rest are built from the normalized Config:
//   - issuer: HS256 with keys, tokens valid for TokenExpiry
//   - verifier: keys, leeway ClockSkew
//   - authorizer: Requirements for Scheme and APIRole, reading the
//     client's settings provider
func New(cfg tokengate.Config, keys tokengate.SigningKeyProvider, opts ...tokengate.Option) (*tokengate.Client, error) {
	injected, err := tokengate.NewClient(cfg, opts...)
	if err != nil {
		return nil, err
	}
	cfg = injected.Config()

	var defaults []tokengate.Option
	if injected.Issuer() == nil || injected.Verifier() == nil {
		if keys == nil {
			return nil, errors.New("tokengate/gate: signing keys required")
		}
	}
	if injected.Issuer() == nil {
		defaults = append(defaults, tokengate.WithTokenIssuer(token.NewIssuer(keys, cfg.TokenExpiry)))
	}
	if injected.Verifier() == nil {
		defaults = append(defaults, tokengate.WithTokenVerifier(token.NewValidator(keys, token.WithLeeway(cfg.ClockSkew))))
	}
	if injected.Authz() == nil {
		evaluator, err := policy.FromConfig(cfg, injected.Settings())
		if err != nil {
			return nil, err
		}
		defaults = append(defaults, tokengate.WithAuthorizer(evaluator))
	}
	if len(defaults) == 0 {
		return injected, nil
	}
	return tokengate.NewClient(cfg, append(defaults, opts...)...)
}
