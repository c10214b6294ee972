package authflow

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Error(format string, args ...any)
}

// Identities is the persistent store mapping external provider ids to local
// identities. Implementations map storage-level conflicts and misses to the
// package error taxonomy.
type Identities interface {
	FindByExternalID(ctx context.Context, externalID int64) (*Identity, error)
	FindByLocalID(ctx context.Context, localID int64) (*Identity, error)
	ExistsByExternalID(ctx context.Context, externalID int64) (bool, error)
	Create(ctx context.Context, identity *Identity) (*Identity, error)
	DeleteByLocalID(ctx context.Context, localID int64) error
}

// ProviderSessions stores the mirrored provider token pair, one row per
// identity. Upsert overwrites the whole row; Delete is idempotent.
type ProviderSessions interface {
	Upsert(ctx context.Context, session *ProviderSession) error
	FindByLocalID(ctx context.Context, localID int64) (*ProviderSession, error)
	ExistsByLocalID(ctx context.Context, localID int64) (bool, error)
	DeleteByLocalID(ctx context.Context, localID int64) error
}

// RefreshTokenStore is the keyed cache holding at most one live refresh token
// per local identity. Get returns ("", nil) when the entry is absent or
// expired; Delete on a missing entry is not an error.
type RefreshTokenStore interface {
	Put(ctx context.Context, localID int64, token string, ttl time.Duration) error
	Get(ctx context.Context, localID int64) (string, error)
	Delete(ctx context.Context, localID int64) error
}

// DefaultLogger returns the stdout fallback logger used when no Logger is
// configured.
func DefaultLogger() Logger {
	return defLogger{}
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTHFLOW "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTHFLOW "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTHFLOW "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
