// Package tokenware provides the request-path authentication middleware:
// it validates the bearer access token and, when the token is expired or
// absent but a refresh cookie is present, rotates the pair inline so the
// request proceeds authenticated without a client round trip.
package tokenware

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"

	authflow "github.com/lumeon/go-authflow"
)

const defaultRefreshCookie = "refresh_token"

// Decoder verifies access tokens and returns structured claims.
// This mirrors the Codec.Decode method from the authflow package.
type Decoder interface {
	Decode(tokenString string) (*authflow.AccessClaims, error)
}

// Rotator exchanges a refresh token for a fresh pair.
// This mirrors the SessionOrchestrator.Rotate method from the authflow package.
type Rotator interface {
	Rotate(ctx context.Context, refreshToken string) (*authflow.Rotation, error)
}

type Config struct {
	Filter         func(router.Context) bool
	SuccessHandler router.HandlerFunc
	// ErrorHandler runs when rotation was attempted and failed. The default
	// logs and lets the request proceed unauthenticated; the middleware
	// itself never rejects.
	ErrorHandler router.ErrorHandler

	// Decoder is required for access-token validation.
	Decoder Decoder
	// Rotator is optional; without it expired tokens are not rotated and
	// requests simply proceed unauthenticated.
	Rotator Rotator

	ContextKey    string
	HeaderName    string
	AuthScheme    string
	RefreshCookie string

	// CookieSecure marks the rotated refresh cookie Secure. Leave false only
	// for plain-HTTP development setups.
	CookieSecure bool
	CookiePath   string

	Logger authflow.Logger
}

// New creates the authentication middleware. Every request falls into one of
// three outcomes: authenticated with the presented token, authenticated with
// a rotated pair (new tokens attached to the response), or unauthenticated
// passthrough. None of them short-circuit the chain.
func New(config ...Config) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		cfg := GetDefaultConfig(config...)
		return func(ctx router.Context) error {
			if cfg.Filter != nil && cfg.Filter(ctx) {
				return ctx.Next()
			}

			raw := rawTokenFromHeader(ctx, cfg.HeaderName, cfg.AuthScheme)
			if raw != "" {
				claims, err := cfg.Decoder.Decode(raw)
				if err == nil {
					ctx.Locals(cfg.ContextKey, claims)
					return cfg.SuccessHandler(ctx)
				}
				if !errors.Is(err, authflow.ErrTokenExpired) {
					// Malformed or tampered: not rotatable.
					cfg.Logger.Debug("rejected access token: %v", err)
					return ctx.Next()
				}
			}

			refreshToken := ctx.Cookies(cfg.RefreshCookie, "")
			if refreshToken == "" || cfg.Rotator == nil {
				return ctx.Next()
			}

			rotation, err := cfg.Rotator.Rotate(ctx.Context(), refreshToken)
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			attachRotation(ctx, cfg, rotation)
			ctx.Locals(cfg.ContextKey, rotation.Claims)
			return cfg.SuccessHandler(ctx)
		}
	}
}

// attachRotation surfaces the new pair on the response: the access token in
// the auth header so API clients can adopt it, the refresh token as an
// HttpOnly cookie so scripts never see it.
func attachRotation(ctx router.Context, cfg Config, rotation *authflow.Rotation) {
	ctx.SetHeader(cfg.HeaderName, cfg.AuthScheme+" "+rotation.AccessToken)
	ctx.Cookie(&router.Cookie{
		Name:     cfg.RefreshCookie,
		Value:    rotation.RefreshToken,
		Path:     cfg.CookiePath,
		Expires:  time.Now().Add(rotation.RefreshTokenTTL),
		HTTPOnly: true,
		Secure:   cfg.CookieSecure,
		SameSite: "Strict",
	})
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Decoder == nil {
		panic("AUTHFLOW: token middleware configuration: Decoder is required.")
	}

	if cfg.Logger == nil {
		cfg.Logger = authflow.DefaultLogger()
	}

	if cfg.SuccessHandler == nil {
		cfg.SuccessHandler = func(ctx router.Context) error {
			return ctx.Next()
		}
	}

	if cfg.ErrorHandler == nil {
		logger := cfg.Logger
		cfg.ErrorHandler = func(c router.Context, err error) error {
			// A failed rotation downgrades to unauthenticated, it never 401s.
			logger.Debug("token rotation failed, continuing unauthenticated: %v", err)
			return c.Next()
		}
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = "user"
	}

	if cfg.HeaderName == "" {
		cfg.HeaderName = router.HeaderAuthorization
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}

	if cfg.RefreshCookie == "" {
		cfg.RefreshCookie = defaultRefreshCookie
	}

	if cfg.CookiePath == "" {
		cfg.CookiePath = "/"
	}

	return cfg
}

// rawTokenFromHeader extracts the bearer token from the configured header.
// An absent or malformed header yields "", which the caller treats as
// no-token rather than an error.
func rawTokenFromHeader(ctx router.Context, header, authScheme string) string {
	a := ctx.GetString(header, "")
	scheme := strings.TrimSpace(authScheme)
	l := len(scheme)
	if l == 0 || len(a) <= l+1 {
		return ""
	}
	if !strings.EqualFold(a[:l], scheme) {
		return ""
	}
	return strings.TrimSpace(a[l:])
}
