package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	authflow "github.com/lumeon/go-authflow"
)

const (
	sqliteCreateIdentities = `CREATE TABLE identities (
    local_id INTEGER PRIMARY KEY AUTOINCREMENT,
    external_id INTEGER NOT NULL UNIQUE,
    display_name TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);`
	sqliteCreateProviderSessions = `CREATE TABLE provider_sessions (
    local_id INTEGER NOT NULL PRIMARY KEY,
    provider_access_token TEXT NOT NULL,
    provider_refresh_token TEXT NOT NULL,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);`
)

func setupDB(t *testing.T) *bun.DB {
	t.Helper()

	db, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	bunDB := bun.NewDB(db, sqlitedialect.New())

	_, err = bunDB.Exec(sqliteCreateIdentities)
	require.NoError(t, err)
	_, err = bunDB.Exec(sqliteCreateProviderSessions)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = bunDB.Close()
		_ = db.Close()
	})

	return bunDB
}

func TestIdentitiesCreateAndFind(t *testing.T) {
	repo := NewIdentities(setupDB(t))
	ctx := context.Background()

	created, err := repo.Create(ctx, &authflow.Identity{ExternalID: 42, DisplayName: "Sam"})
	require.NoError(t, err)
	require.NotZero(t, created.LocalID)
	assert.Equal(t, int64(42), created.ExternalID)

	byExternal, err := repo.FindByExternalID(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, created.LocalID, byExternal.LocalID)
	assert.Equal(t, "Sam", byExternal.DisplayName)

	byLocal, err := repo.FindByLocalID(ctx, created.LocalID)
	require.NoError(t, err)
	assert.Equal(t, int64(42), byLocal.ExternalID)

	exists, err := repo.ExistsByExternalID(ctx, 42)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsByExternalID(ctx, 43)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestIdentitiesFindMissing(t *testing.T) {
	repo := NewIdentities(setupDB(t))
	ctx := context.Background()

	_, err := repo.FindByExternalID(ctx, 42)
	require.ErrorIs(t, err, authflow.ErrIdentityNotFound)

	_, err = repo.FindByLocalID(ctx, 1)
	require.ErrorIs(t, err, authflow.ErrIdentityNotFound)
}

func TestIdentitiesDuplicateExternalID(t *testing.T) {
	repo := NewIdentities(setupDB(t))
	ctx := context.Background()

	_, err := repo.Create(ctx, &authflow.Identity{ExternalID: 42, DisplayName: "Sam"})
	require.NoError(t, err)

	_, err = repo.Create(ctx, &authflow.Identity{ExternalID: 42, DisplayName: "Other Sam"})
	require.ErrorIs(t, err, authflow.ErrDuplicateIdentity)
}

func TestIdentitiesDelete(t *testing.T) {
	repo := NewIdentities(setupDB(t))
	ctx := context.Background()

	created, err := repo.Create(ctx, &authflow.Identity{ExternalID: 42})
	require.NoError(t, err)

	require.NoError(t, repo.DeleteByLocalID(ctx, created.LocalID))

	_, err = repo.FindByLocalID(ctx, created.LocalID)
	require.ErrorIs(t, err, authflow.ErrIdentityNotFound)

	// Idempotent.
	require.NoError(t, repo.DeleteByLocalID(ctx, created.LocalID))
}
