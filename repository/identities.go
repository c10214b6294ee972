package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/uptrace/bun"

	authflow "github.com/lumeon/go-authflow"
)

// IdentityModel is the Bun model for local identities. The unique constraint
// on external_id is the source of truth for first-sign-in create races.
type IdentityModel struct {
	bun.BaseModel `bun:"table:identities"`

	LocalID     int64     `bun:"local_id,pk,autoincrement"`
	ExternalID  int64     `bun:"external_id,notnull,unique"`
	DisplayName string    `bun:"display_name"`
	CreatedAt   time.Time `bun:"created_at,nullzero,default:current_timestamp"`
	UpdatedAt   time.Time `bun:"updated_at,nullzero,default:current_timestamp"`
}

// Identities implements authflow.Identities using Bun.
type Identities struct {
	db *bun.DB
}

var _ authflow.Identities = (*Identities)(nil)

// NewIdentities creates the identity repository.
func NewIdentities(db *bun.DB) *Identities {
	return &Identities{db: db}
}

// FindByExternalID implements authflow.Identities.
func (r *Identities) FindByExternalID(ctx context.Context, externalID int64) (*authflow.Identity, error) {
	var model IdentityModel
	err := r.db.NewSelect().
		Model(&model).
		Where("external_id = ?", externalID).
		Scan(ctx)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, authflow.ErrIdentityNotFound
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load identity")
	}
	return toIdentity(&model), nil
}

// FindByLocalID implements authflow.Identities.
func (r *Identities) FindByLocalID(ctx context.Context, localID int64) (*authflow.Identity, error) {
	var model IdentityModel
	err := r.db.NewSelect().
		Model(&model).
		Where("local_id = ?", localID).
		Scan(ctx)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, authflow.ErrIdentityNotFound
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load identity")
	}
	return toIdentity(&model), nil
}

// ExistsByExternalID implements authflow.Identities.
func (r *Identities) ExistsByExternalID(ctx context.Context, externalID int64) (bool, error) {
	exists, err := r.db.NewSelect().
		Model((*IdentityModel)(nil)).
		Where("external_id = ?", externalID).
		Exists(ctx)
	if err != nil {
		return false, errors.Wrap(err, errors.CategoryInternal, "failed to check identity")
	}
	return exists, nil
}

// Create implements authflow.Identities. A unique-constraint violation on
// external_id maps to ErrDuplicateIdentity so the caller can retry the create
// as a lookup.
func (r *Identities) Create(ctx context.Context, identity *authflow.Identity) (*authflow.Identity, error) {
	model := &IdentityModel{
		ExternalID:  identity.ExternalID,
		DisplayName: identity.DisplayName,
	}

	_, err := r.db.NewInsert().
		Model(model).
		Returning("local_id").
		Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, authflow.ErrDuplicateIdentity
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to create identity")
	}

	return toIdentity(model), nil
}

// DeleteByLocalID implements authflow.Identities. Deleting an absent row is
// not an error.
func (r *Identities) DeleteByLocalID(ctx context.Context, localID int64) error {
	_, err := r.db.NewDelete().
		Model((*IdentityModel)(nil)).
		Where("local_id = ?", localID).
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to delete identity")
	}
	return nil
}

func toIdentity(m *IdentityModel) *authflow.Identity {
	return &authflow.Identity{
		LocalID:     m.LocalID,
		ExternalID:  m.ExternalID,
		DisplayName: m.DisplayName,
	}
}

// isUniqueViolation matches the constraint-violation shapes of the SQLite and
// Postgres drivers Bun fronts here.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint") ||
		strings.Contains(msg, "constraint failed: UNIQUE")
}
