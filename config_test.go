package authflow_test

import (
	"crypto/rand"
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authflow "github.com/lumeon/go-authflow"
)

func validSecret(t *testing.T) string {
	t.Helper()
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		t.Fatalf("failed to generate signing key: %v", err)
	}
	return base64.StdEncoding.EncodeToString(key)
}

func TestConfigFromEnv(t *testing.T) {
	secret := validSecret(t)

	t.Setenv("AUTHFLOW_SIGNING_SECRET", secret)
	t.Setenv("AUTHFLOW_ISSUER", "my-service")
	t.Setenv("AUTHFLOW_ACCESS_TTL", "15m")
	t.Setenv("AUTHFLOW_REFRESH_TTL", "72h")
	t.Setenv("AUTHFLOW_DEFAULT_ROLES", "member,beta")

	cfg, err := authflow.ConfigFromEnv()
	require.NoError(t, err)

	assert.Equal(t, secret, cfg.SigningSecret)
	assert.Equal(t, "my-service", cfg.Issuer)
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 72*time.Hour, cfg.RefreshTokenTTL)
	assert.Equal(t, []string{"member", "beta"}, cfg.DefaultRoles)
}

func TestConfigFromEnvDefaults(t *testing.T) {
	t.Setenv("AUTHFLOW_SIGNING_SECRET", validSecret(t))

	cfg, err := authflow.ConfigFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "authflow", cfg.Issuer)
	assert.Equal(t, 30*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, 336*time.Hour, cfg.RefreshTokenTTL)
	assert.Equal(t, 5*time.Second, cfg.ClockSkew)
	assert.Equal(t, "Authorization", cfg.AccessTokenHeader)
	assert.Equal(t, "refresh_token", cfg.RefreshTokenCookie)
	assert.Equal(t, []string{"member"}, cfg.DefaultRoles)
}

func TestConfigValidate(t *testing.T) {
	base := func(t *testing.T) *authflow.Config {
		return &authflow.Config{
			SigningSecret:      validSecret(t),
			Issuer:             "authflow",
			AccessTokenTTL:     30 * time.Minute,
			RefreshTokenTTL:    336 * time.Hour,
			ClockSkew:          5 * time.Second,
			AccessTokenHeader:  "Authorization",
			RefreshTokenCookie: "refresh_token",
		}
	}

	t.Run("valid", func(t *testing.T) {
		require.NoError(t, base(t).Validate())
	})

	t.Run("missing secret", func(t *testing.T) {
		cfg := base(t)
		cfg.SigningSecret = ""
		require.Error(t, cfg.Validate())
	})

	t.Run("secret not base64", func(t *testing.T) {
		cfg := base(t)
		cfg.SigningSecret = "!!not-base64!!"
		require.Error(t, cfg.Validate())
	})

	t.Run("access ttl too short", func(t *testing.T) {
		cfg := base(t)
		cfg.AccessTokenTTL = 10 * time.Second
		require.Error(t, cfg.Validate())
	})

	t.Run("clock skew too large", func(t *testing.T) {
		cfg := base(t)
		cfg.ClockSkew = 10 * time.Minute
		require.Error(t, cfg.Validate())
	})
}
