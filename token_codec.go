package authflow

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// minSigningKeyBytes is the HS256 floor: keys shorter than the hash output
// weaken the HMAC.
const minSigningKeyBytes = 32

const refreshSecretBytes = 32

// Codec issues and verifies both token families. It holds no I/O; every
// method is a pure function over the decoded signing key and the clock.
type Codec struct {
	signingKey []byte
	issuer     string
	audience   jwt.ClaimStrings
	accessTTL  time.Duration
	clockSkew  time.Duration
	logger     Logger
}

// NewCodec decodes the configured base64 signing secret and fails fast when
// the key is below HS256 strength. This is a startup error, never a runtime
// one.
func NewCodec(cfg *Config, logger Logger) (*Codec, error) {
	if logger == nil {
		logger = defLogger{}
	}

	key, err := base64.StdEncoding.DecodeString(cfg.SigningSecret)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryValidation, "signing secret is not valid base64")
	}
	if len(key) < minSigningKeyBytes {
		return nil, errors.New(
			fmt.Sprintf("signing key is %d bytes, need at least %d for HS256", len(key), minSigningKeyBytes),
			errors.CategoryValidation,
		)
	}

	return &Codec{
		signingKey: key,
		issuer:     cfg.Issuer,
		audience:   jwt.ClaimStrings(cfg.Audience),
		accessTTL:  cfg.AccessTokenTTL,
		clockSkew:  cfg.ClockSkew,
		logger:     logger,
	}, nil
}

// IssueAccess signs a fresh access token for the identity. No side effects;
// the token is never stored server-side.
func (c *Codec) IssueAccess(identity *Identity, roles []string) (string, error) {
	if identity == nil {
		return "", errors.New("identity must not be nil", errors.CategoryInternal)
	}

	now := time.Now()
	claims := &AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    c.issuer,
			Subject:   strconv.FormatInt(identity.LocalID, 10),
			Audience:  c.audience,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.accessTTL)),
			ID:        uuid.NewString(),
		},
		Roles: roles,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.signingKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to sign access token")
	}

	return signed, nil
}

// IssueRefresh mints an opaque refresh token for the identity. The value is
// self-describing (the local id is recoverable from the token alone) but
// unguessable; ID and IssuedAt are audit metadata only.
func (c *Codec) IssueRefresh(localID int64) (*RefreshToken, error) {
	secret := make([]byte, refreshSecretBytes)
	if _, err := rand.Read(secret); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to generate refresh secret")
	}

	raw := strconv.FormatInt(localID, 10) + "." + hex.EncodeToString(secret)

	return &RefreshToken{
		Value:    base64.RawURLEncoding.EncodeToString([]byte(raw)),
		ID:       uuid.NewString(),
		IssuedAt: time.Now(),
	}, nil
}

// Validate reports whether the access token has a valid signature and is
// inside its lifetime (with clock-skew leeway). Malformed input is false,
// never a panic or an error.
func (c *Codec) Validate(tokenString string) bool {
	_, err := c.Decode(tokenString)
	return err == nil
}

// Decode parses and verifies an access token, returning structured claims.
// Callers should Validate first or be prepared for ErrTokenMalformed and
// ErrTokenExpired.
func (c *Codec) Decode(tokenString string) (*AccessClaims, error) {
	opts := []jwt.ParserOption{jwt.WithLeeway(c.clockSkew)}
	if c.issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.issuer))
	}
	for _, aud := range c.audience {
		opts = append(opts, jwt.WithAudience(aud))
	}

	token, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			c.logger.Error("codec rejected unexpected signing method: %v", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return c.signingKey, nil
	}, opts...)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode)
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenMalformed
	}

	return claims, nil
}

// DecodeRefresh recovers the local identity id embedded in an opaque refresh
// token. It performs no store lookup and no liveness check; the caller owns
// comparing the value against the cached entry.
func (c *Codec) DecodeRefresh(tokenString string) (int64, error) {
	raw, err := base64.RawURLEncoding.DecodeString(tokenString)
	if err != nil {
		return 0, ErrTokenMalformed
	}

	id, secret, found := strings.Cut(string(raw), ".")
	if !found || len(secret) != refreshSecretBytes*2 {
		return 0, ErrTokenMalformed
	}

	localID, err := strconv.ParseInt(id, 10, 64)
	if err != nil || localID <= 0 {
		return 0, ErrTokenMalformed
	}

	return localID, nil
}
