package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	tokengate "github.com/chimerakang/tokengate-go"
	"github.com/chimerakang/tokengate-go/keys"
	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
)

// serverConfig is the process configuration. Every field can be set from the
// environment or from a .env file in the working directory.
type serverConfig struct {
	Token tokengate.Config

	HTTPAddr string `env:"TOKENGATE_HTTP_ADDR,default=:8080"`
	GRPCAddr string `env:"TOKENGATE_GRPC_ADDR"` // empty disables the gRPC listener

	DatabaseDSN string `env:"TOKENGATE_DATABASE_DSN,default=tokengate.db"`

	RedisAddr     string        `env:"TOKENGATE_REDIS_ADDR"` // empty disables the session bridge
	RedisPassword string        `env:"TOKENGATE_REDIS_PASSWORD"`
	RedisDB       int           `env:"TOKENGATE_REDIS_DB,default=0"`
	SessionTTL    time.Duration `env:"TOKENGATE_SESSION_TTL,default=24h"`

	SigningKeyID  string   `env:"TOKENGATE_SIGNING_KEY_ID,default=primary"`
	SigningSecret string   `env:"TOKENGATE_SIGNING_SECRET,required"`
	PreviousKeys  []string `env:"TOKENGATE_PREVIOUS_KEYS"` // "id=secret;id=secret"

	LockoutAttempts int           `env:"TOKENGATE_LOCKOUT_ATTEMPTS,default=0"`
	LockoutWindow   time.Duration `env:"TOKENGATE_LOCKOUT_WINDOW,default=10m"`

	MessagesFile   string `env:"TOKENGATE_MESSAGES_FILE"`
	LogLevel       string `env:"TOKENGATE_LOG_LEVEL,default=info"`
	MetricsEnabled bool   `env:"TOKENGATE_METRICS_ENABLED,default=true"`
	AuditBuffer    int    `env:"TOKENGATE_AUDIT_BUFFER,default=256"`
}

// loadConfig reads envFile when it exists, then decodes the environment.
// Variables already present in the environment win over the file.
func loadConfig(envFile string) (serverConfig, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return serverConfig{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	var cfg serverConfig
	if err := envdecode.StrictDecode(&cfg); err != nil {
		return serverConfig{}, fmt.Errorf("decode environment: %w", err)
	}
	return cfg, nil
}

// keyRing builds the signing key ring from the current secret and any
// previous keys still accepted for verification.
func (c serverConfig) keyRing() (*keys.Ring, error) {
	previous, err := keys.ParseKeys(c.PreviousKeys)
	if err != nil {
		return nil, err
	}
	return keys.NewRing(tokengate.SigningKey{ID: c.SigningKeyID, Secret: []byte(c.SigningSecret)}, previous...)
}

func (c serverConfig) logLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}
