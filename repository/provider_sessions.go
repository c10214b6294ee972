package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/uptrace/bun"

	authflow "github.com/lumeon/go-authflow"
)

// ProviderSessionModel is the Bun model mirroring the provider token pair.
// One row per identity; sign-in replaces the row wholesale.
type ProviderSessionModel struct {
	bun.BaseModel `bun:"table:provider_sessions"`

	LocalID              int64     `bun:"local_id,pk"`
	ProviderAccessToken  string    `bun:"provider_access_token,notnull"`
	ProviderRefreshToken string    `bun:"provider_refresh_token,notnull"`
	UpdatedAt            time.Time `bun:"updated_at,nullzero,default:current_timestamp"`
}

// ProviderSessions implements authflow.ProviderSessions using Bun.
type ProviderSessions struct {
	db *bun.DB
}

var _ authflow.ProviderSessions = (*ProviderSessions)(nil)

// NewProviderSessions creates the provider-session repository.
func NewProviderSessions(db *bun.DB) *ProviderSessions {
	return &ProviderSessions{db: db}
}

// Upsert implements authflow.ProviderSessions. The row is overwritten, not
// merged.
func (r *ProviderSessions) Upsert(ctx context.Context, session *authflow.ProviderSession) error {
	model := &ProviderSessionModel{
		LocalID:              session.LocalID,
		ProviderAccessToken:  session.ProviderAccessToken,
		ProviderRefreshToken: session.ProviderRefreshToken,
		UpdatedAt:            time.Now(),
	}

	_, err := r.db.NewInsert().
		Model(model).
		On("CONFLICT (local_id) DO UPDATE").
		Set("provider_access_token = EXCLUDED.provider_access_token").
		Set("provider_refresh_token = EXCLUDED.provider_refresh_token").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to upsert provider session")
	}
	return nil
}

// FindByLocalID implements authflow.ProviderSessions.
func (r *ProviderSessions) FindByLocalID(ctx context.Context, localID int64) (*authflow.ProviderSession, error) {
	var model ProviderSessionModel
	err := r.db.NewSelect().
		Model(&model).
		Where("local_id = ?", localID).
		Scan(ctx)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, authflow.ErrProviderSessionNotFound
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load provider session")
	}

	return &authflow.ProviderSession{
		LocalID:              model.LocalID,
		ProviderAccessToken:  model.ProviderAccessToken,
		ProviderRefreshToken: model.ProviderRefreshToken,
	}, nil
}

// ExistsByLocalID implements authflow.ProviderSessions.
func (r *ProviderSessions) ExistsByLocalID(ctx context.Context, localID int64) (bool, error) {
	exists, err := r.db.NewSelect().
		Model((*ProviderSessionModel)(nil)).
		Where("local_id = ?", localID).
		Exists(ctx)
	if err != nil {
		return false, errors.Wrap(err, errors.CategoryInternal, "failed to check provider session")
	}
	return exists, nil
}

// DeleteByLocalID implements authflow.ProviderSessions. Idempotent; deleting
// an absent row succeeds.
func (r *ProviderSessions) DeleteByLocalID(ctx context.Context, localID int64) error {
	_, err := r.db.NewDelete().
		Model((*ProviderSessionModel)(nil)).
		Where("local_id = ?", localID).
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to delete provider session")
	}
	return nil
}
