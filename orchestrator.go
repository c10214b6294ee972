package authflow

import (
	"context"
	stderrors "errors"
	"strings"
	"time"
)

// SessionOrchestrator composes the provider client, the identity stores, and
// the refresh-token cache into the sign-in, sign-out, and account-deletion
// protocols. It owns the anti-replay invariant: every issuance overwrites the
// cached refresh token for the identity.
type SessionOrchestrator struct {
	provider      Provider
	identities    Identities
	sessions      ProviderSessions
	refreshTokens RefreshTokenStore
	codec         *Codec
	refreshTTL    time.Duration
	defaultRoles  []string
	logger        Logger
}

// OrchestratorOption configures the session orchestrator.
type OrchestratorOption func(*SessionOrchestrator)

// NewSessionOrchestrator wires the session protocols together.
func NewSessionOrchestrator(
	provider Provider,
	identities Identities,
	sessions ProviderSessions,
	refreshTokens RefreshTokenStore,
	codec *Codec,
	cfg *Config,
	opts ...OrchestratorOption,
) *SessionOrchestrator {
	o := &SessionOrchestrator{
		provider:      provider,
		identities:    identities,
		sessions:      sessions,
		refreshTokens: refreshTokens,
		codec:         codec,
		refreshTTL:    cfg.RefreshTokenTTL,
		defaultRoles:  cfg.DefaultRoles,
		logger:        defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	return o
}

// WithLogger sets the orchestrator logger.
func WithLogger(logger Logger) OrchestratorOption {
	return func(o *SessionOrchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// SignIn runs the full authorization-code sign-in sequence: exchange the
// code, resolve or create the local identity, mirror the provider token pair,
// and issue a fresh local access/refresh pair. Any failure before issuance
// leaves no partial token state.
func (o *SessionOrchestrator) SignIn(ctx context.Context, code string) (*TokenPair, error) {
	if strings.TrimSpace(code) == "" {
		return nil, ErrMissingAuthorizationCode
	}

	pair, err := o.provider.ExchangeCode(ctx, code)
	if err != nil {
		return nil, mapExchangeError(err)
	}
	if pair == nil || pair.AccessToken == "" {
		return nil, ErrProviderTokenMissing
	}

	user, err := o.provider.FetchUserInfo(ctx, pair.AccessToken)
	if err != nil {
		return nil, mapProviderError(err)
	}
	if user == nil || user.ExternalID == 0 {
		return nil, ErrIdentityNotFound
	}

	identity, err := o.findOrCreateIdentity(ctx, user)
	if err != nil {
		return nil, err
	}

	// Overwrite, never merge: the provider pair from this sign-in is the
	// only one worth keeping.
	err = o.sessions.Upsert(ctx, &ProviderSession{
		LocalID:              identity.LocalID,
		ProviderAccessToken:  pair.AccessToken,
		ProviderRefreshToken: pair.RefreshToken,
	})
	if err != nil {
		return nil, err
	}

	return o.issueTokens(ctx, identity)
}

// SignOut terminates the session but keeps the account. Provider-side logout
// is best-effort; local cleanup always runs so the user is never stuck
// signed-in because the provider was unreachable. Access tokens already in
// the wild stay valid until their own expiry.
func (o *SessionOrchestrator) SignOut(ctx context.Context, localID int64) error {
	session, err := o.sessions.FindByLocalID(ctx, localID)
	if err != nil {
		return err
	}

	o.bestEffort("provider logout", localID, func() error {
		pair, err := o.provider.Refresh(ctx, session.ProviderRefreshToken)
		if err != nil {
			return err
		}
		return o.provider.EndSession(ctx, pair.AccessToken)
	})

	if err := o.sessions.DeleteByLocalID(ctx, localID); err != nil {
		return err
	}

	return o.refreshTokens.Delete(ctx, localID)
}

// DeleteAccount unlinks the account at the provider and removes every local
// trace. The provider unlink is a hard step: it runs before any local delete
// so a crash mid-sequence leaves at worst orphaned local rows that a retry
// can still clean up, never a dangling provider link with nothing local to
// retry against.
func (o *SessionOrchestrator) DeleteAccount(ctx context.Context, localID int64) error {
	session, err := o.sessions.FindByLocalID(ctx, localID)
	if err != nil {
		return err
	}

	pair, err := o.provider.Refresh(ctx, session.ProviderRefreshToken)
	if err != nil {
		return mapProviderError(err)
	}

	externalID, err := o.provider.RevokeLink(ctx, pair.AccessToken)
	if err != nil {
		return mapProviderError(err)
	}
	o.logger.Info("provider link revoked: local_id=%d external_id=%d", localID, externalID)

	if err := o.sessions.DeleteByLocalID(ctx, localID); err != nil {
		return err
	}
	if err := o.refreshTokens.Delete(ctx, localID); err != nil {
		return err
	}

	return o.identities.DeleteByLocalID(ctx, localID)
}

// Rotate exchanges a still-valid refresh token for a fresh access/refresh
// pair. The refresh token is self-describing, so the lookup key comes from
// the token itself, not from any (possibly expired) access token. The old
// cache entry is removed before the new pair is minted.
func (o *SessionOrchestrator) Rotate(ctx context.Context, refreshToken string) (*Rotation, error) {
	localID, err := o.codec.DecodeRefresh(refreshToken)
	if err != nil {
		return nil, err
	}

	cached, err := o.refreshTokens.Get(ctx, localID)
	if err != nil {
		return nil, err
	}
	if cached == "" || cached != refreshToken {
		// Absent, expired, or superseded by a newer issuance.
		return nil, ErrTokenExpired
	}

	if err := o.refreshTokens.Delete(ctx, localID); err != nil {
		return nil, err
	}

	identity, err := o.identities.FindByLocalID(ctx, localID)
	if err != nil {
		return nil, err
	}

	pair, err := o.issueTokens(ctx, identity)
	if err != nil {
		return nil, err
	}

	claims, err := o.codec.Decode(pair.AccessToken)
	if err != nil {
		return nil, err
	}

	return &Rotation{TokenPair: *pair, Claims: claims}, nil
}

// issueTokens mints a fresh pair and overwrites the cached refresh token,
// superseding any earlier issuance for the identity.
func (o *SessionOrchestrator) issueTokens(ctx context.Context, identity *Identity) (*TokenPair, error) {
	access, err := o.codec.IssueAccess(identity, o.defaultRoles)
	if err != nil {
		return nil, err
	}

	refresh, err := o.codec.IssueRefresh(identity.LocalID)
	if err != nil {
		return nil, err
	}

	if err := o.refreshTokens.Put(ctx, identity.LocalID, refresh.Value, o.refreshTTL); err != nil {
		return nil, err
	}

	o.logger.Debug("issued token pair: local_id=%d refresh_token_id=%s issued_at=%s",
		identity.LocalID, refresh.ID, refresh.IssuedAt.Format(time.RFC3339))

	return &TokenPair{
		AccessToken:     access,
		RefreshToken:    refresh.Value,
		RefreshTokenTTL: o.refreshTTL,
	}, nil
}

// findOrCreateIdentity resolves the local identity for a provider account,
// creating it on first sign-in. The storage unique constraint on the external
// id decides create races; the loser retries as a lookup instead of surfacing
// a conflict to the user.
func (o *SessionOrchestrator) findOrCreateIdentity(ctx context.Context, user *ProviderUser) (*Identity, error) {
	identity, err := o.identities.FindByExternalID(ctx, user.ExternalID)
	if err == nil {
		return identity, nil
	}
	if !stderrors.Is(err, ErrIdentityNotFound) {
		return nil, err
	}

	created, err := o.identities.Create(ctx, &Identity{
		ExternalID:  user.ExternalID,
		DisplayName: user.Nickname,
	})
	if err == nil {
		o.logger.Info("identity created: local_id=%d external_id=%d", created.LocalID, created.ExternalID)
		return created, nil
	}
	if stderrors.Is(err, ErrDuplicateIdentity) {
		return o.identities.FindByExternalID(ctx, user.ExternalID)
	}

	return nil, err
}

// bestEffort runs a step whose failure must not abort the protocol. The
// error is logged and swallowed.
func (o *SessionOrchestrator) bestEffort(op string, localID int64, fn func() error) {
	if err := fn(); err != nil {
		o.logger.Error("best-effort %s failed for local_id=%d, continuing: %v", op, localID, err)
	}
}
