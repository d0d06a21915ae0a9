package session

import (
	"context"
	"log"
	"net/http"

	"github.com/yashagency/storefront-client/internal/domain"
	"github.com/yashagency/storefront-client/internal/store"
)

type wishlistResponse struct {
	Wishlist []string         `json:"wishlist"`
	Products []domain.Product `json:"products"`
}

// RefreshWishlist refetches the wishlist on demand.
func (m *Manager) RefreshWishlist(ctx context.Context) {
	m.fetchWishlist(ctx)
}

func (m *Manager) fetchWishlist(ctx context.Context) {
	res, err := m.gw.Do(ctx, http.MethodGet, wishlistPath, nil)
	if err != nil {
		log.Printf("session: wishlist fetch failed, keeping persisted copy: %v", err)
		return
	}
	if res.AuthFailure() {
		m.Invalidate()
		return
	}
	if !res.Success() {
		log.Printf("session: wishlist fetch returned %d, keeping persisted copy", res.StatusCode)
		return
	}

	var payload wishlistResponse
	if err := res.Decode(&payload); err != nil {
		log.Printf("session: unreadable wishlist response: %v", err)
		return
	}

	if err := m.st.Set(ctx, store.KeyWishlist, res.Body); err != nil {
		log.Printf("session: failed to persist wishlist: %v", err)
	}
}

// subscribePush registers for push notifications. Best-effort: failures are
// ignored and never replayed.
func (m *Manager) subscribePush(ctx context.Context) {
	if _, err := m.gw.DoOnce(ctx, http.MethodPost, subscribePath, struct{}{}); err != nil {
		log.Printf("session: push subscription failed: %v", err)
	}
}
