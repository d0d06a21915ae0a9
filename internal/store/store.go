package store

import (
	"context"
	"errors"
)

// Store is the durable local key/value contract. Values are opaque bytes;
// callers own the schema. A Set is visible to the next Get.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

var ErrNotFound = errors.New("key not found")

// Keys used by the sync core.
const (
	KeyToken         = "token"
	KeyUser          = "user"
	KeyCart          = "cart"
	KeyWishlist      = "wishlist"
	KeyCookieConsent = "cookie_consent"
)
