package catalog

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/yashagency/storefront-client/internal/domain"
	"github.com/yashagency/storefront-client/internal/gateway"
)

const productsPath = "/api/products"

// DefaultTTL is the catalog freshness window.
const DefaultTTL = 300 * time.Second

// Service serves the product catalog from cache, refetching after the TTL.
// Concurrent cache misses are coalesced into one upstream fetch.
type Service struct {
	gw    *gateway.Gateway
	cache ProductCache
	sfg   singleflight.Group
}

func NewService(gw *gateway.Gateway, cache ProductCache) *Service {
	return &Service{gw: gw, cache: cache}
}

func (s *Service) Products(ctx context.Context) ([]domain.Product, error) {
	v, err, _ := s.sfg.Do(productsKey, func() (interface{}, error) {
		products, err := s.cache.Get(ctx)
		if err == nil {
			return products, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			log.Printf("catalog: cache get error: %v", err)
		}

		products, errFetch := s.fetch(ctx)
		if errFetch != nil {
			// degraded read: an expired snapshot beats no catalog at all
			if stale, errStale := s.cache.Stale(ctx); errStale == nil {
				log.Printf("catalog: fetch failed, serving stale snapshot: %v", errFetch)
				return stale, nil
			}
			return nil, errFetch
		}

		go func() {
			if errSet := s.cache.Set(context.Background(), products); errSet != nil {
				log.Printf("catalog: cache set error: %v", errSet)
			}
		}()

		return products, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]domain.Product), nil
}

// Invalidate drops the cached snapshot. Called after an admin catalog
// mutation.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Invalidate(ctx)
}

func (s *Service) fetch(ctx context.Context) ([]domain.Product, error) {
	res, err := s.gw.Do(ctx, http.MethodGet, productsPath, nil)
	if err != nil {
		return nil, err
	}
	if !res.Success() {
		return nil, fmt.Errorf("products endpoint returned %d", res.StatusCode)
	}

	var payload struct {
		Products []domain.Product `json:"products"`
	}
	if err := res.Decode(&payload); err != nil {
		return nil, err
	}
	return payload.Products, nil
}
