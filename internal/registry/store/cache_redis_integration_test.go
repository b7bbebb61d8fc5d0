//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"registrar/internal/registry/models"
	id "registrar/pkg/domain"
	"registrar/pkg/testutil/containers"
)

func TestResolveCache(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	rc := containers.NewRedisContainer(t)
	cache := NewResolveCache(rc.Client)
	ctx := context.Background()
	now := time.Now()
	key := models.NewRecordKey("cached", "neo")
	target := id.NewAccountID()

	t.Run("miss before store", func(t *testing.T) {
		_, ok := cache.Lookup(ctx, key)
		assert.False(t, ok)
	})

	t.Run("store then lookup", func(t *testing.T) {
		cache.Store(ctx, key, target, now.Add(time.Hour), now)

		got, ok := cache.Lookup(ctx, key)
		require.True(t, ok)
		assert.Equal(t, target, got)
	})

	t.Run("ttl is capped", func(t *testing.T) {
		ttl, err := rc.Client.TTL(ctx, "reg:resolve:"+key.String()).Result()
		require.NoError(t, err)
		assert.LessOrEqual(t, ttl, 30*time.Second)
		assert.Greater(t, ttl, time.Duration(0))
	})

	t.Run("invalidate drops the entry", func(t *testing.T) {
		require.NoError(t, cache.Invalidate(ctx, key))
		_, ok := cache.Lookup(ctx, key)
		assert.False(t, ok)
	})

	t.Run("expired records are never cached", func(t *testing.T) {
		cache.Store(ctx, key, target, now.Add(-time.Second), now)
		_, ok := cache.Lookup(ctx, key)
		assert.False(t, ok)
	})

	t.Run("near-expiry records get the shorter ttl", func(t *testing.T) {
		other := models.NewRecordKey("short", "neo")
		cache.Store(ctx, other, target, now.Add(2*time.Second), now)

		ttl, err := rc.Client.TTL(ctx, "reg:resolve:"+other.String()).Result()
		require.NoError(t, err)
		assert.LessOrEqual(t, ttl, 2*time.Second)
	})
}
