package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/yashagency/storefront-client/internal/domain"
	"github.com/yashagency/storefront-client/internal/gateway"
	"github.com/yashagency/storefront-client/internal/store"
)

const cartPath = "/api/cart"

// snapshot is the wire format of the full-cart push/pull.
type snapshot struct {
	Cart []domain.CartItem `json:"cart"`
}

// Engine owns the cart. The in-memory copy is the source of truth during a
// session; the persistent store and the server are replicas. Mutations write
// through to the store synchronously and, while a session is active, signal
// a background pusher that sends the full snapshot to the server.
type Engine struct {
	mu     sync.Mutex
	items  []domain.CartItem
	active bool
	loaded bool

	st store.Store
	gw *gateway.Gateway

	dirty         chan struct{}
	onAuthFailure func()
}

func NewEngine(st store.Store, gw *gateway.Gateway) *Engine {
	return &Engine{
		st:    st,
		gw:    gw,
		dirty: make(chan struct{}, 1),
	}
}

// SetAuthFailureHandler wires the session invalidator. Called when a push or
// pull is rejected with 401/403.
func (e *Engine) SetAuthFailureHandler(f func()) {
	e.onAuthFailure = f
}

// Load restores the persisted cart into memory. Completes the initial-load
// phase: pushes only start firing after Load has run.
func (e *Engine) Load(ctx context.Context) error {
	data, err := e.st.Get(ctx, store.KeyCart)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("failed to load cart: %w", err)
	}

	var items []domain.CartItem
	if len(data) > 0 {
		if err := json.Unmarshal(data, &items); err != nil {
			// a corrupt persisted cart is discarded rather than wedging startup
			log.Printf("cart: discarding unreadable persisted cart: %v", err)
			items = nil
		}
	}

	e.mu.Lock()
	e.items = sanitize(items)
	e.loaded = true
	e.mu.Unlock()
	return nil
}

// Run drives the coalesced push loop: one discrete cart mutation marks the
// cart dirty, the pusher sends the full snapshot. Multiple mutations while a
// push is in flight collapse into a single follow-up push.
func (e *Engine) Run(ctx context.Context) {
	for {
		select {
		case <-e.dirty:
			e.push(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Activate marks the session authenticated; pushes start firing.
func (e *Engine) Activate() {
	e.mu.Lock()
	e.active = true
	e.mu.Unlock()
}

// Deactivate stops pushes. Local mutation and write-through continue.
func (e *Engine) Deactivate() {
	e.mu.Lock()
	e.active = false
	e.mu.Unlock()
}

func (e *Engine) Items() []domain.CartItem {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.CartItem, len(e.items))
	copy(out, e.items)
	return out
}

// AddItem increments the quantity of the matching identity key, or appends
// the product with quantity 1.
func (e *Engine) AddItem(ctx context.Context, p domain.Product, variant *domain.Variant) {
	e.mu.Lock()
	key := domain.NewItemKey(p.ID, variant)
	found := false
	for i := range e.items {
		if e.items[i].Key() == key {
			e.items[i].Quantity++
			found = true
			break
		}
	}
	if !found {
		e.items = append(e.items, domain.CartItem{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Quantity:  1,
			Variant:   variant,
		})
	}
	e.persistLocked(ctx)
	e.markDirtyLocked()
	e.mu.Unlock()
}

// UpdateQuantity replaces the item's quantity; quantity <= 0 removes the
// item entirely. Zero or negative quantities are never stored.
func (e *Engine) UpdateQuantity(ctx context.Context, productID string, variant *domain.Variant, quantity int) {
	e.mu.Lock()
	key := domain.NewItemKey(productID, variant)
	if quantity <= 0 {
		for i := range e.items {
			if e.items[i].Key() == key {
				e.items = append(e.items[:i], e.items[i+1:]...)
				break
			}
		}
	} else {
		for i := range e.items {
			if e.items[i].Key() == key {
				e.items[i].Quantity = quantity
				break
			}
		}
	}
	e.persistLocked(ctx)
	e.markDirtyLocked()
	e.mu.Unlock()
}

func (e *Engine) RemoveItem(ctx context.Context, productID string, variant *domain.Variant) {
	e.UpdateQuantity(ctx, productID, variant, 0)
}

// Clear empties the cart; an active session pushes the empty snapshot.
func (e *Engine) Clear(ctx context.Context) {
	e.mu.Lock()
	e.items = nil
	e.persistLocked(ctx)
	e.markDirtyLocked()
	e.mu.Unlock()
}

// ClearLocal wipes memory and storage without pushing. Used by session
// teardown.
func (e *Engine) ClearLocal(ctx context.Context) {
	e.mu.Lock()
	e.items = nil
	if err := e.st.Delete(ctx, store.KeyCart); err != nil {
		log.Printf("cart: failed to clear persisted cart: %v", err)
	}
	e.mu.Unlock()
}

// Pull replaces local state with the server's cart. Any failure falls back
// silently to whatever is already local; only an auth failure escalates.
func (e *Engine) Pull(ctx context.Context) {
	res, err := e.gw.Do(ctx, http.MethodGet, cartPath, nil)
	if err != nil {
		log.Printf("cart: pull failed, keeping local copy: %v", err)
		return
	}
	if res.AuthFailure() {
		e.escalate()
		return
	}
	if !res.Success() {
		log.Printf("cart: pull returned %d, keeping local copy", res.StatusCode)
		return
	}

	var snap snapshot
	if err := res.Decode(&snap); err != nil {
		log.Printf("cart: pull returned unreadable body, keeping local copy: %v", err)
		return
	}

	e.mu.Lock()
	e.items = sanitize(snap.Cart)
	e.persistLocked(ctx)
	e.loaded = true
	e.mu.Unlock()
}

// Merge folds the pre-login guest cart into the server's cart. The server
// cart is the base map keyed by identity key; guest quantities are summed
// into colliding keys and guest-only items are appended. Summing is
// commutative and the key lookup prevents duplicate rows, so an accidental
// second merge with the same inputs yields the same result.
func (e *Engine) Merge(ctx context.Context) {
	var server []domain.CartItem

	res, err := e.gw.Do(ctx, http.MethodGet, cartPath, nil)
	switch {
	case err != nil:
		// server unreachable: merge against an empty base and let the push
		// land in the outbox
		log.Printf("cart: merge could not fetch server cart: %v", err)
	case res.AuthFailure():
		e.escalate()
		return
	case !res.Success():
		log.Printf("cart: merge fetch returned %d, merging against empty cart", res.StatusCode)
	default:
		var snap snapshot
		if err := res.Decode(&snap); err != nil {
			log.Printf("cart: merge fetch returned unreadable body: %v", err)
		} else {
			server = snap.Cart
		}
	}

	e.mu.Lock()
	e.items = mergeCarts(server, e.items)
	e.persistLocked(ctx)
	e.markDirtyLocked()
	e.mu.Unlock()
}

// mergeCarts keeps the server's order, sums quantities on identity-key
// collision and appends local-only items in their local order.
func mergeCarts(server, local []domain.CartItem) []domain.CartItem {
	merged := sanitize(server)
	index := make(map[domain.ItemKey]int, len(merged))
	for i, item := range merged {
		index[item.Key()] = i
	}

	for _, item := range sanitize(local) {
		if i, ok := index[item.Key()]; ok {
			merged[i].Quantity += item.Quantity
			continue
		}
		index[item.Key()] = len(merged)
		merged = append(merged, item)
	}
	return merged
}

// sanitize drops rows that violate the quantity invariant.
func sanitize(items []domain.CartItem) []domain.CartItem {
	out := make([]domain.CartItem, 0, len(items))
	for _, item := range items {
		if item.Quantity > 0 {
			out = append(out, item)
		}
	}
	return out
}

func (e *Engine) push(ctx context.Context) {
	e.mu.Lock()
	if !e.active {
		e.mu.Unlock()
		return
	}
	items := make([]domain.CartItem, len(e.items))
	copy(items, e.items)
	e.mu.Unlock()

	res, err := e.gw.Do(ctx, http.MethodPost, cartPath, snapshot{Cart: items})
	if err != nil {
		// the gateway already handed the request to the outbox
		log.Printf("cart: push failed: %v", err)
		return
	}
	if res.AuthFailure() {
		e.escalate()
	}
}

func (e *Engine) persistLocked(ctx context.Context) {
	items := e.items
	if items == nil {
		items = []domain.CartItem{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		log.Printf("cart: failed to marshal cart: %v", err)
		return
	}
	if err := e.st.Set(ctx, store.KeyCart, data); err != nil {
		log.Printf("cart: failed to persist cart: %v", err)
	}
}

func (e *Engine) markDirtyLocked() {
	if !e.active || !e.loaded {
		return
	}
	select {
	case e.dirty <- struct{}{}:
	default:
	}
}

func (e *Engine) escalate() {
	if e.onAuthFailure != nil {
		e.onAuthFailure()
	}
}
