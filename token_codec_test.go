package authflow_test

import (
	"crypto/rand"
	"encoding/base64"
	"testing"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authflow "github.com/lumeon/go-authflow"
)

func testConfig(t *testing.T) *authflow.Config {
	t.Helper()

	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		t.Fatalf("failed to generate signing key: %v", err)
	}

	return &authflow.Config{
		SigningSecret:   base64.StdEncoding.EncodeToString(key),
		Issuer:          "authflow-test",
		AccessTokenTTL:  30 * time.Minute,
		RefreshTokenTTL: 14 * 24 * time.Hour,
		ClockSkew:       5 * time.Second,
		DefaultRoles:    []string{"member"},
	}
}

func TestNewCodecRejectsWeakSecrets(t *testing.T) {
	cfg := testConfig(t)

	cfg.SigningSecret = "not-base64!!!"
	_, err := authflow.NewCodec(cfg, nil)
	require.Error(t, err)

	cfg.SigningSecret = base64.StdEncoding.EncodeToString([]byte("short"))
	_, err = authflow.NewCodec(cfg, nil)
	require.Error(t, err)

	var gerr *errors.Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, errors.CategoryValidation, gerr.Category)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	cfg := testConfig(t)
	codec, err := authflow.NewCodec(cfg, nil)
	require.NoError(t, err)

	identity := &authflow.Identity{LocalID: 1, ExternalID: 42, DisplayName: "Sam"}

	token, err := codec.IssueAccess(identity, []string{"member", "admin"})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	assert.True(t, codec.Validate(token))

	claims, err := codec.Decode(token)
	require.NoError(t, err)

	localID, err := claims.LocalID()
	require.NoError(t, err)
	assert.Equal(t, int64(1), localID)
	assert.Equal(t, "authflow-test", claims.Issuer)
	assert.NotEmpty(t, claims.ID, "every access token carries a unique jti")
	assert.True(t, claims.HasRole("admin"))
	assert.False(t, claims.HasRole("owner"))
	assert.WithinDuration(t, time.Now().Add(cfg.AccessTokenTTL), claims.Expires(), 5*time.Second)
}

func TestDecodeExpiredToken(t *testing.T) {
	cfg := testConfig(t)
	cfg.AccessTokenTTL = -time.Minute
	cfg.ClockSkew = 0
	codec, err := authflow.NewCodec(cfg, nil)
	require.NoError(t, err)

	token, err := codec.IssueAccess(&authflow.Identity{LocalID: 1}, nil)
	require.NoError(t, err)

	assert.False(t, codec.Validate(token))

	_, err = codec.Decode(token)
	require.ErrorIs(t, err, authflow.ErrTokenExpired)
}

func TestDecodeToleratesClockSkew(t *testing.T) {
	cfg := testConfig(t)
	cfg.AccessTokenTTL = -2 * time.Second
	cfg.ClockSkew = 10 * time.Second
	codec, err := authflow.NewCodec(cfg, nil)
	require.NoError(t, err)

	// Expired two seconds ago but inside the leeway window.
	token, err := codec.IssueAccess(&authflow.Identity{LocalID: 1}, nil)
	require.NoError(t, err)

	assert.True(t, codec.Validate(token))
}

func TestDecodeEnforcesAudience(t *testing.T) {
	cfg := testConfig(t)
	cfg.Audience = []string{"web", "mobile"}
	codec, err := authflow.NewCodec(cfg, nil)
	require.NoError(t, err)

	token, err := codec.IssueAccess(&authflow.Identity{LocalID: 1}, nil)
	require.NoError(t, err)

	// Issued tokens carry every configured audience, so decoding checks all
	// of them.
	claims, err := codec.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, []string{"web", "mobile"}, []string(claims.Audience))

	// A token minted without an audience claim fails the same codec.
	bare := testConfig(t)
	bare.SigningSecret = cfg.SigningSecret
	bareCodec, err := authflow.NewCodec(bare, nil)
	require.NoError(t, err)

	noAudience, err := bareCodec.IssueAccess(&authflow.Identity{LocalID: 1}, nil)
	require.NoError(t, err)

	_, err = codec.Decode(noAudience)
	require.Error(t, err)
	assert.False(t, codec.Validate(noAudience))
}

func TestDecodeRejectsTamperedToken(t *testing.T) {
	cfg := testConfig(t)
	codec, err := authflow.NewCodec(cfg, nil)
	require.NoError(t, err)

	otherCodec, err := authflow.NewCodec(testConfig(t), nil)
	require.NoError(t, err)

	foreign, err := otherCodec.IssueAccess(&authflow.Identity{LocalID: 1}, nil)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not.a.token"},
		{"empty", ""},
		{"wrong signing key", foreign},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.False(t, codec.Validate(tc.token))

			_, err := codec.Decode(tc.token)
			require.Error(t, err)
			assert.NotErrorIs(t, err, authflow.ErrTokenExpired)
		})
	}
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	codec, err := authflow.NewCodec(testConfig(t), nil)
	require.NoError(t, err)

	refresh, err := codec.IssueRefresh(7)
	require.NoError(t, err)
	require.NotEmpty(t, refresh.Value)
	require.NotEmpty(t, refresh.ID)
	assert.WithinDuration(t, time.Now(), refresh.IssuedAt, 5*time.Second)

	localID, err := codec.DecodeRefresh(refresh.Value)
	require.NoError(t, err)
	assert.Equal(t, int64(7), localID)

	other, err := codec.IssueRefresh(7)
	require.NoError(t, err)
	assert.NotEqual(t, refresh.Value, other.Value, "every issuance is unique")
	assert.NotEqual(t, refresh.ID, other.ID)
}

func TestDecodeRefreshRejectsMalformedTokens(t *testing.T) {
	codec, err := authflow.NewCodec(testConfig(t), nil)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"not base64", "!!!"},
		{"no separator", base64.RawURLEncoding.EncodeToString([]byte("justsometext"))},
		{"short secret", base64.RawURLEncoding.EncodeToString([]byte("7.abcdef"))},
		{"non numeric id", base64.RawURLEncoding.EncodeToString([]byte("abc." + longHex()))},
		{"zero id", base64.RawURLEncoding.EncodeToString([]byte("0." + longHex()))},
		{"negative id", base64.RawURLEncoding.EncodeToString([]byte("-3." + longHex()))},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := codec.DecodeRefresh(tc.token)
			require.ErrorIs(t, err, authflow.ErrTokenMalformed)
		})
	}
}

func longHex() string {
	b := make([]byte, 64)
	for i := range b {
		b[i] = 'a'
	}
	return string(b)
}
