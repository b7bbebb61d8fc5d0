package store

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"registrar/internal/registry/models"
	id "registrar/pkg/domain"
)

const (
	resolveKeyPrefix = "reg:resolve:"

	// maxResolveTTL caps how long a cached target may outlive a retargeting
	// on another node. Entries also never outlive the record's own expiry.
	maxResolveTTL = 30 * time.Second
)

// ResolveCache is a read-through cache for the resolution hot path.
// Misses and errors both fall back to the authoritative store; the cache is
// never consulted for writes.
type ResolveCache struct {
	client *redis.Client
}

// NewResolveCache wraps a redis client whose lifecycle is managed externally.
func NewResolveCache(client *redis.Client) *ResolveCache {
	return &ResolveCache{client: client}
}

// Lookup returns the cached target for key, or ok=false on miss or error.
func (c *ResolveCache) Lookup(ctx context.Context, key models.RecordKey) (id.AccountID, bool) {
	val, err := c.client.Get(ctx, resolveKeyPrefix+key.String()).Result()
	if err != nil {
		// redis.Nil is an ordinary miss; anything else degrades to the store.
		return id.NilAccount, false
	}
	acct, err := id.ParseAccountID(val)
	if err != nil {
		return id.NilAccount, false
	}
	return acct, true
}

// Store caches the target until the record expires, bounded by maxResolveTTL.
// Records at or past expiry are not cached.
func (c *ResolveCache) Store(ctx context.Context, key models.RecordKey, target id.AccountID, expiresAt, now time.Time) {
	ttl := expiresAt.Sub(now)
	if ttl <= 0 {
		return
	}
	if ttl > maxResolveTTL {
		ttl = maxResolveTTL
	}
	_ = c.client.Set(ctx, resolveKeyPrefix+key.String(), target.String(), ttl).Err()
}

// Invalidate drops the cached target after a mutation of key.
func (c *ResolveCache) Invalidate(ctx context.Context, key models.RecordKey) error {
	err := c.client.Del(ctx, resolveKeyPrefix+key.String()).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}
