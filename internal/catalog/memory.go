package catalog

import (
	"context"
	"sync"
	"time"

	"github.com/yashagency/storefront-client/internal/domain"
)

// MemoryCache is the in-process cache backend, used when no Redis is
// configured.
type MemoryCache struct {
	mu        sync.RWMutex
	products  []domain.Product
	fetchedAt time.Time
	ttl       time.Duration
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryCache{ttl: ttl}
}

func (m *MemoryCache) Get(_ context.Context) ([]domain.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.products == nil || time.Since(m.fetchedAt) > m.ttl {
		return nil, ErrCacheMiss
	}
	return append([]domain.Product(nil), m.products...), nil
}

func (m *MemoryCache) Stale(_ context.Context) ([]domain.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.products == nil {
		return nil, ErrCacheMiss
	}
	return append([]domain.Product(nil), m.products...), nil
}

func (m *MemoryCache) Set(_ context.Context, products []domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products = append([]domain.Product(nil), products...)
	m.fetchedAt = time.Now()
	return nil
}

func (m *MemoryCache) Invalidate(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products = nil
	return nil
}
