package catalog

import (
	"context"
	"errors"

	"github.com/yashagency/storefront-client/internal/domain"
)

// ProductCache stores the catalog snapshot for the fixed freshness window.
// Stale returns whatever is held regardless of age, for degraded reads when
// the catalog endpoint is down.
type ProductCache interface {
	Get(ctx context.Context) ([]domain.Product, error)
	Stale(ctx context.Context) ([]domain.Product, error)
	Set(ctx context.Context, products []domain.Product) error
	Invalidate(ctx context.Context) error
}

var ErrCacheMiss = errors.New("cache miss")
