package authflow

import (
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims are the structured claims carried by issued access tokens.
// Subject is the local identity id in decimal form; it is the only identity
// value tokens ever embed.
type AccessClaims struct {
	jwt.RegisteredClaims
	Roles []string `json:"roles,omitempty"`
}

// LocalID parses the subject back into a local identity id.
func (c *AccessClaims) LocalID() (int64, error) {
	id, err := strconv.ParseInt(c.RegisteredClaims.Subject, 10, 64)
	if err != nil {
		return 0, ErrTokenMalformed
	}
	return id, nil
}

// HasRole reports whether the token carries the given role.
func (c *AccessClaims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// Expires returns the expiration time, zero if unset.
func (c *AccessClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAtTime returns the issuance time, zero if unset.
func (c *AccessClaims) IssuedAtTime() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}
