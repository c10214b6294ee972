package authflow

import (
	"context"
	stderrors "errors"
	"fmt"

	goerrors "github.com/goliatone/go-errors"
)

// Provider is the external-provider port the orchestrator depends on. One
// concrete adapter exists per backing provider; see providers/kakao.
type Provider interface {
	// ExchangeCode trades an authorization code for the provider token pair.
	ExchangeCode(ctx context.Context, code string) (*ProviderTokenPair, error)

	// FetchUserInfo resolves the provider account behind an access token.
	// Nickname resolution never fails for missing profile data; adapters
	// fall back to a generated placeholder.
	FetchUserInfo(ctx context.Context, accessToken string) (*ProviderUser, error)

	// Refresh obtains a guaranteed-fresh provider token pair. Revoke-style
	// calls require a live access token, so this always precedes them.
	Refresh(ctx context.Context, refreshToken string) (*ProviderTokenPair, error)

	// RevokeLink unlinks the account at the provider and returns the
	// external id that was unlinked. Used by account deletion.
	RevokeLink(ctx context.Context, accessToken string) (int64, error)

	// EndSession terminates the provider session without unlinking the
	// account. Used by sign-out.
	EndSession(ctx context.Context, accessToken string) error
}

// ProviderTokenPair is the provider's own access/refresh token pair.
type ProviderTokenPair struct {
	AccessToken  string
	RefreshToken string
}

// ProviderUser is the normalized provider account record.
type ProviderUser struct {
	ExternalID int64
	Nickname   string
}

// ProviderError captures a normalized provider response. Status 0 means the
// request never produced an HTTP response (network failure or timeout).
type ProviderError struct {
	Provider    string
	Operation   string
	Status      int
	Code        string
	Description string
	Err         error
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "provider error"
	}

	scope := "provider"
	if e.Provider != "" && e.Operation != "" {
		scope = fmt.Sprintf("%s %s", e.Provider, e.Operation)
	} else if e.Provider != "" {
		scope = e.Provider
	} else if e.Operation != "" {
		scope = e.Operation
	}

	if e.Description != "" {
		return fmt.Sprintf("%s failed: %s", scope, e.Description)
	}
	if e.Code != "" {
		return fmt.Sprintf("%s failed: %s", scope, e.Code)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s failed: %v", scope, e.Err)
	}

	return fmt.Sprintf("%s failed", scope)
}

func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Unavailable reports whether the failure is transport-level or server-side:
// anything that is not a definite 4xx rejection.
func (e *ProviderError) Unavailable() bool {
	if e == nil {
		return false
	}
	return e.Status == 0 || e.Status >= 500
}

func (e *ProviderError) metadata() map[string]any {
	if e == nil {
		return nil
	}

	meta := map[string]any{}
	if e.Provider != "" {
		meta["provider"] = e.Provider
	}
	if e.Operation != "" {
		meta["operation"] = e.Operation
	}
	if e.Status != 0 {
		meta["status"] = e.Status
	}
	if e.Code != "" {
		meta["code"] = e.Code
	}
	if e.Description != "" {
		meta["description"] = e.Description
	}

	return meta
}

// mapExchangeError classifies a failed code exchange: 4xx means the code was
// rejected, everything else means the provider could not be reached.
func mapExchangeError(err error) error {
	var perr *ProviderError
	if stderrors.As(err, &perr) && !perr.Unavailable() {
		return wrapProviderError(ErrInvalidAuthorizationCode, err)
	}
	return wrapProviderError(ErrProviderUnavailable, err)
}

// mapProviderError classifies any other provider failure as unavailability.
func mapProviderError(err error) error {
	return wrapProviderError(ErrProviderUnavailable, err)
}

// wrapProviderError clones a taxonomy error and attaches the normalized
// provider metadata so the request boundary can log status and code without
// string parsing.
func wrapProviderError(base *goerrors.Error, err error) error {
	if base == nil {
		return err
	}

	meta := map[string]any{}
	var perr *ProviderError
	if stderrors.As(err, &perr) && perr != nil {
		for k, v := range perr.metadata() {
			meta[k] = v
		}
	} else if err != nil {
		meta["error"] = err.Error()
	}

	clone := base.Clone()
	if clone == nil {
		clone = base
	}
	if err != nil {
		clone.Source = err
	}
	if len(meta) > 0 {
		clone.WithMetadata(meta)
	}

	return clone
}
