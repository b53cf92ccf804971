package authcore

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config carries everything the auth stack needs, parsed from the
// environment. The zero value works for local development; every default
// that would be unsafe in production is marked as such.
type Config struct {
	// Dev disables the Secure flag on cookies so flows work over plain
	// http://localhost.
	Dev bool `env:"AUTH_DEV" envDefault:"false"`

	// PasswordPepper is appended to every password before hashing. The
	// default is deliberately recognizable as insecure; set a real value
	// in production.
	PasswordPepper string `env:"AUTH_PASSWORD_PEPPER" envDefault:"insecure-dev-pepper"`

	// BcryptCost of 0 means bcrypt.DefaultCost.
	BcryptCost int `env:"AUTH_BCRYPT_COST" envDefault:"0"`

	SessionDuration    time.Duration `env:"AUTH_SESSION_DURATION" envDefault:"168h"`
	SessionTokenLength int           `env:"AUTH_SESSION_TOKEN_LENGTH" envDefault:"32"`
	ResetTokenLength   int           `env:"AUTH_RESET_TOKEN_LENGTH" envDefault:"32"`

	// CacheTTL bounds how long a session or user lookup may be served from
	// memory before durable storage is consulted again.
	CacheTTL      time.Duration `env:"AUTH_CACHE_TTL" envDefault:"5s"`
	CacheCapacity int           `env:"AUTH_CACHE_CAPACITY" envDefault:"4096"`

	// Rate limiting for the credential endpoints, per client key.
	RateLimitPerMinute int `env:"AUTH_RATE_LIMIT_PER_MINUTE" envDefault:"10"`
	RateLimitBurst     int `env:"AUTH_RATE_LIMIT_BURST" envDefault:"5"`

	// BaseURL is used to build password reset links.
	BaseURL string `env:"AUTH_BASE_URL" envDefault:"http://localhost:8080"`

	DatabaseURL string `env:"AUTH_DATABASE_URL"`

	GoogleClientID       string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret   string `env:"GOOGLE_CLIENT_SECRET"`
	FacebookClientID     string `env:"FACEBOOK_CLIENT_ID"`
	FacebookClientSecret string `env:"FACEBOOK_CLIENT_SECRET"`
}

// ConfigFromEnv parses Config from the process environment.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse auth config: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns the configuration used when no environment is
// consulted at all, e.g. in tests.
func DefaultConfig() Config {
	return Config{
		Dev:                true,
		PasswordPepper:     "insecure-dev-pepper",
		SessionDuration:    7 * 24 * time.Hour,
		SessionTokenLength: 32,
		ResetTokenLength:   32,
		CacheTTL:           5 * time.Second,
		CacheCapacity:      4096,
		RateLimitPerMinute: 10,
		RateLimitBurst:     5,
		BaseURL:            "http://localhost:8080",
	}
}
