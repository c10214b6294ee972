// Package cache provides the Redis-backed refresh-token store.
package cache

import (
	"context"
	stderrors "errors"
	"strconv"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/redis/go-redis/v9"

	authflow "github.com/lumeon/go-authflow"
)

const defaultKeyPrefix = "refresh:"

// RefreshTokens implements authflow.RefreshTokenStore on Redis. The key is
// the local identity id, so a plain SET is enough to guarantee at most one
// live token per identity: a new Put replaces whatever was there.
type RefreshTokens struct {
	client *redis.Client
	prefix string
}

// Option configures the store.
type Option func(*RefreshTokens)

// WithKeyPrefix overrides the default "refresh:" key prefix.
func WithKeyPrefix(prefix string) Option {
	return func(r *RefreshTokens) {
		if prefix != "" {
			r.prefix = prefix
		}
	}
}

// NewRefreshTokens creates a Redis-backed refresh-token store.
func NewRefreshTokens(client *redis.Client, opts ...Option) *RefreshTokens {
	store := &RefreshTokens{
		client: client,
		prefix: defaultKeyPrefix,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}

	return store
}

var _ authflow.RefreshTokenStore = (*RefreshTokens)(nil)

func (r *RefreshTokens) key(localID int64) string {
	return r.prefix + strconv.FormatInt(localID, 10)
}

// Put implements authflow.RefreshTokenStore. Unconditional upsert: any
// earlier entry for the identity is overwritten along with its TTL.
func (r *RefreshTokens) Put(ctx context.Context, localID int64, token string, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.key(localID), token, ttl).Err(); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to store refresh token")
	}
	return nil
}

// Get implements authflow.RefreshTokenStore. Absent or expired entries return
// ("", nil), not an error.
func (r *RefreshTokens) Get(ctx context.Context, localID int64) (string, error) {
	token, err := r.client.Get(ctx, r.key(localID)).Result()
	if stderrors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrap(err, errors.CategoryInternal, "failed to load refresh token")
	}
	return token, nil
}

// Delete implements authflow.RefreshTokenStore. Idempotent; deleting an
// absent entry succeeds.
func (r *RefreshTokens) Delete(ctx context.Context, localID int64) error {
	if err := r.client.Del(ctx, r.key(localID)).Err(); err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to delete refresh token")
	}
	return nil
}
