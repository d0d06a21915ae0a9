package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yashagency/storefront-client/internal/domain"
)

const productsKey = "products"

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{
		client:  client,
		baseTTL: DefaultTTL,
	}
}

// RedisCache keeps the catalog in Redis with the freshness TTL. Redis drops
// expired keys, so Stale is the same as Get here.
type RedisCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func (r *RedisCache) Get(ctx context.Context) ([]domain.Product, error) {
	data, err := r.client.Get(ctx, productsKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var products []domain.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("unmarshal products failed: %w", err)
	}
	return products, nil
}

func (r *RedisCache) Stale(ctx context.Context) ([]domain.Product, error) {
	return r.Get(ctx)
}

func (r *RedisCache) Set(ctx context.Context, products []domain.Product) error {
	data, err := json.Marshal(products)
	if err != nil {
		return fmt.Errorf("marshal products failed: %w", err)
	}

	jitter := time.Duration(rand.Intn(30)) * time.Second
	if err := r.client.Set(ctx, productsKey, data, r.baseTTL+jitter).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisCache) Invalidate(ctx context.Context) error {
	if err := r.client.Del(ctx, productsKey).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}
