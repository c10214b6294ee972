package authflow

import (
	"time"

	"github.com/caarlos0/env/v11"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/goliatone/go-errors"
)

// Config holds the token and transport settings for the session core. It is
// built once at startup and injected; nothing in this package mutates it.
type Config struct {
	// SigningSecret is the base64-encoded HMAC key for access tokens. The
	// decoded key must be at least 32 bytes (HS256 strength).
	SigningSecret string `env:"AUTHFLOW_SIGNING_SECRET"`

	Issuer   string   `env:"AUTHFLOW_ISSUER" envDefault:"authflow"`
	Audience []string `env:"AUTHFLOW_AUDIENCE" envSeparator:","`

	AccessTokenTTL  time.Duration `env:"AUTHFLOW_ACCESS_TTL" envDefault:"30m"`
	RefreshTokenTTL time.Duration `env:"AUTHFLOW_REFRESH_TTL" envDefault:"336h"`

	// ClockSkew is the leeway applied to exp/iat checks during validation.
	ClockSkew time.Duration `env:"AUTHFLOW_CLOCK_SKEW" envDefault:"5s"`

	// AccessTokenHeader is the request header carrying the bearer access
	// token and the response header carrying a rotated one.
	AccessTokenHeader string `env:"AUTHFLOW_ACCESS_HEADER" envDefault:"Authorization"`

	// RefreshTokenCookie names the cookie carrying the refresh token.
	RefreshTokenCookie string `env:"AUTHFLOW_REFRESH_COOKIE" envDefault:"refresh_token"`

	// DefaultRoles are embedded in access tokens issued at sign-in.
	DefaultRoles []string `env:"AUTHFLOW_DEFAULT_ROLES" envSeparator:"," envDefault:"member"`
}

// ConfigFromEnv loads and validates a Config from process environment.
func ConfigFromEnv() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to parse authflow environment")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the structural constraints the constructors rely on.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.SigningSecret, validation.Required, is.Base64),
		validation.Field(&c.Issuer, validation.Required),
		validation.Field(&c.AccessTokenTTL, validation.Required, validation.Min(time.Minute)),
		validation.Field(&c.RefreshTokenTTL, validation.Required, validation.Min(time.Hour)),
		validation.Field(&c.ClockSkew, validation.Min(time.Duration(0)), validation.Max(2*time.Minute)),
		validation.Field(&c.AccessTokenHeader, validation.Required),
		validation.Field(&c.RefreshTokenCookie, validation.Required),
	)
	if err != nil {
		return errors.Wrap(err, errors.CategoryValidation, "invalid authflow configuration")
	}
	return nil
}
