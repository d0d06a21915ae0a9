package catalog

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yashagency/storefront-client/internal/domain"
)

func setupTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisCache(client), mr
}

func TestRedisGet_Success(t *testing.T) {
	cache, mr := setupTestRedis(t)
	ctx := context.Background()

	products := []domain.Product{
		{ID: "p1", Name: "Mug", Price: 7.5},
		{ID: "p2", Name: "Shirt", Price: 19.0},
	}
	data, _ := json.Marshal(products)
	mr.Set(productsKey, string(data))

	got, err := cache.Get(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Mug", got[0].Name)
}

func TestRedisGet_CacheMiss(t *testing.T) {
	cache, _ := setupTestRedis(t)

	got, err := cache.Get(context.Background())
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Nil(t, got)
}

func TestRedisGet_InvalidJSON(t *testing.T) {
	cache, mr := setupTestRedis(t)
	mr.Set(productsKey, "not json")

	_, err := cache.Get(context.Background())
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

func TestRedisSet_RoundTrip(t *testing.T) {
	cache, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, []domain.Product{{ID: "p1", Name: "Mug"}}))
	assert.True(t, mr.Exists(productsKey))

	got, err := cache.Get(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "p1", got[0].ID)
}

func TestRedisSet_ExpiresAfterTTL(t *testing.T) {
	cache, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, []domain.Product{{ID: "p1"}}))

	// past the base TTL plus the maximum jitter
	mr.FastForward(DefaultTTL + 31e9)

	_, err := cache.Get(ctx)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisInvalidate(t *testing.T) {
	cache, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, []domain.Product{{ID: "p1"}}))
	require.NoError(t, cache.Invalidate(ctx))
	assert.False(t, mr.Exists(productsKey))
}
