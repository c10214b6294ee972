package authflow

import "time"

// Identity is the local user record linked to one external provider account.
// The LocalID is the only value ever embedded in issued tokens. Immutable
// except for DisplayName.
type Identity struct {
	LocalID     int64  `json:"local_id"`
	ExternalID  int64  `json:"external_id"`
	DisplayName string `json:"display_name,omitempty"`
}

// ProviderSession is the mirrored copy of the provider's own token pair for
// one identity. It is overwritten wholesale on every sign-in and deleted on
// sign-out and account deletion.
type ProviderSession struct {
	LocalID              int64  `json:"local_id"`
	ProviderAccessToken  string `json:"-"`
	ProviderRefreshToken string `json:"-"`
}

// TokenPair is what a successful sign-in or rotation hands back to the
// request layer. The access token is never stored server-side.
type TokenPair struct {
	AccessToken     string        `json:"access_token"`
	RefreshToken    string        `json:"refresh_token"`
	RefreshTokenTTL time.Duration `json:"refresh_token_ttl"`
}

// Rotation is the result of the transparent refresh path: a fresh pair plus
// the claims the filter attaches as the request's authentication context.
type Rotation struct {
	TokenPair
	Claims *AccessClaims
}

// RefreshToken carries an issued opaque refresh token plus audit metadata.
// Only Value ever leaves the process; ID and IssuedAt exist for logging.
type RefreshToken struct {
	Value    string
	ID       string
	IssuedAt time.Time
}
