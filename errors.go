package authflow

import "github.com/goliatone/go-errors"

const (
	TextCodeMissingAuthCode     = "auth_missing_authorization_code"
	TextCodeInvalidAuthCode     = "auth_invalid_authorization_code"
	TextCodeProviderUnavailable = "auth_provider_unavailable"
	TextCodeProviderTokenMiss   = "auth_provider_token_missing"
	TextCodeIdentityNotFound    = "auth_identity_not_found"
	TextCodeDuplicateIdentity   = "auth_duplicate_identity"
	TextCodeSessionNotFound     = "auth_provider_session_not_found"
	TextCodeTokenMalformed      = "auth_token_malformed"
	TextCodeTokenExpired        = "auth_token_expired"
)

// ErrMissingAuthorizationCode is returned when sign-in is invoked with an
// empty or blank authorization code.
var ErrMissingAuthorizationCode = errors.New("missing authorization code", errors.CategoryBadInput).
	WithTextCode(TextCodeMissingAuthCode).
	WithCode(errors.CodeBadRequest)

// ErrInvalidAuthorizationCode is returned when the provider rejects the
// authorization code during the token exchange.
var ErrInvalidAuthorizationCode = errors.New("invalid authorization code", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidAuthCode).
	WithCode(errors.CodeUnauthorized)

// ErrProviderUnavailable is returned for provider 5xx responses, network
// failures, and timeouts. Timeouts are treated identically to a 5xx.
var ErrProviderUnavailable = errors.New("authentication provider unavailable", errors.CategoryOperation).
	WithTextCode(TextCodeProviderUnavailable).
	WithCode(errors.CodeInternal)

// ErrProviderTokenMissing is returned when a provider token exchange succeeds
// at the HTTP level but yields no usable token pair.
var ErrProviderTokenMissing = errors.New("provider returned no token", errors.CategoryAuth).
	WithTextCode(TextCodeProviderTokenMiss).
	WithCode(errors.CodeUnauthorized)

// ErrIdentityNotFound is returned when no identity can be resolved for the
// requested external or local id.
var ErrIdentityNotFound = errors.New("identity not found", errors.CategoryNotFound).
	WithTextCode(TextCodeIdentityNotFound).
	WithCode(errors.CodeNotFound)

// ErrDuplicateIdentity is returned when creating an identity collides with an
// existing external id. The storage unique constraint is the source of truth;
// callers racing on first sign-in retry the create as a lookup.
var ErrDuplicateIdentity = errors.New("identity already exists", errors.CategoryConflict).
	WithTextCode(TextCodeDuplicateIdentity).
	WithCode(errors.CodeConflict)

// ErrProviderSessionNotFound is returned when sign-out or account deletion
// finds no mirrored provider session for the identity.
var ErrProviderSessionNotFound = errors.New("provider session not found", errors.CategoryNotFound).
	WithTextCode(TextCodeSessionNotFound).
	WithCode(errors.CodeNotFound)

// ErrTokenMalformed is returned when a token fails signature or structural
// checks.
var ErrTokenMalformed = errors.New("token is malformed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrTokenExpired is returned when a token is past its expiry (beyond the
// configured clock-skew tolerance) or has been superseded by rotation.
var ErrTokenExpired = errors.New("token is expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)
