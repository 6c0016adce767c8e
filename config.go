package tokengate

import (
	"context"
	"fmt"
	"time"

	"github.com/joeshaw/envdecode"
)

// Defaults applied by NewClient when the corresponding Config field is zero.
const (
	DefaultTokenExpiry = 24 * time.Hour
	DefaultClockSkew   = 5 * time.Minute
	DefaultScheme      = "Bearer"
	DefaultAPIRole     = "ApiUserRole"
)

// DefaultRequirements is the policy applied to protected routes.
var DefaultRequirements = []string{"api-enabled", "bearer-scheme", "api-role"}

// Config holds token and policy configuration. Fields can be populated from
// the environment with LoadConfig.
type Config struct {
	// TokenExpiry is how long an issued token stays valid. Default: 24h.
	TokenExpiry time.Duration `env:"TOKENGATE_TOKEN_EXPIRY,default=24h"`

	// ClockSkew is the grace window applied to both nbf and exp. Default: 5m.
	ClockSkew time.Duration `env:"TOKENGATE_CLOCK_SKEW,default=5m"`

	// Scheme is the authentication scheme tokens are issued for. Default: "Bearer".
	Scheme string `env:"TOKENGATE_SCHEME,default=Bearer"`

	// APIRole is the role an identity must hold to use protected routes.
	APIRole string `env:"TOKENGATE_API_ROLE,default=ApiUserRole"`

	// APIDisabled turns the static "API enabled" setting used by
	// StaticSettings off. The zero value leaves the API enabled.
	APIDisabled bool `env:"TOKENGATE_API_DISABLED,default=false"`

	// UsernamesEnabled selects username (true) or email (false) as login name.
	UsernamesEnabled bool `env:"TOKENGATE_USERNAMES_ENABLED,default=false"`

	// Requirements names the policy requirements, in evaluation order.
	Requirements []string `env:"TOKENGATE_REQUIREMENTS,default=api-enabled;bearer-scheme;api-role"`
}

// LoadConfig reads Config from the environment. Malformed values are errors.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envdecode.StrictDecode(&cfg); err != nil {
		return Config{}, fmt.Errorf("tokengate: load config: %w", err)
	}
	return cfg, nil
}

func (c Config) withDefaults() (Config, error) {
	if c.TokenExpiry < 0 {
		return c, fmt.Errorf("tokengate: token expiry must be positive, got %s", c.TokenExpiry)
	}
	if c.ClockSkew < 0 {
		return c, fmt.Errorf("tokengate: clock skew cannot be negative, got %s", c.ClockSkew)
	}
	if c.TokenExpiry == 0 {
		c.TokenExpiry = DefaultTokenExpiry
	}
	if c.ClockSkew == 0 {
		c.ClockSkew = DefaultClockSkew
	}
	if c.Scheme == "" {
		c.Scheme = DefaultScheme
	}
	if c.APIRole == "" {
		c.APIRole = DefaultAPIRole
	}
	if len(c.Requirements) == 0 {
		c.Requirements = append([]string(nil), DefaultRequirements...)
	}
	return c, nil
}

// StaticSettings serves settings fixed at startup.
type StaticSettings struct {
	API       bool
	Usernames bool
}

// SettingsFromConfig returns StaticSettings mirroring cfg.
func SettingsFromConfig(cfg Config) StaticSettings {
	return StaticSettings{API: !cfg.APIDisabled, Usernames: cfg.UsernamesEnabled}
}

func (s StaticSettings) APIEnabled(context.Context) (bool, error)       { return s.API, nil }
func (s StaticSettings) UsernamesEnabled(context.Context) (bool, error) { return s.Usernames, nil }
