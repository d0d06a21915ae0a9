package cart

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yashagency/storefront-client/internal/domain"
	"github.com/yashagency/storefront-client/internal/gateway"
	"github.com/yashagency/storefront-client/internal/store"
)

// fakeAPI serves the csrf endpoint and GET/POST /api/cart.
type fakeAPI struct {
	mu         sync.Mutex
	serverCart []domain.CartItem
	pushes     [][]domain.CartItem
	failPulls  bool
}

func (f *fakeAPI) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/csrf-token":
			json.NewEncoder(w).Encode(map[string]string{"csrfToken": "t"})
		case r.URL.Path == "/api/cart" && r.Method == http.MethodGet:
			f.mu.Lock()
			defer f.mu.Unlock()
			if f.failPulls {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			json.NewEncoder(w).Encode(map[string][]domain.CartItem{"cart": f.serverCart})
		case r.URL.Path == "/api/cart" && r.Method == http.MethodPost:
			var snap snapshot
			if err := json.NewDecoder(r.Body).Decode(&snap); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			f.mu.Lock()
			f.serverCart = snap.Cart
			f.pushes = append(f.pushes, snap.Cart)
			f.mu.Unlock()
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func (f *fakeAPI) pushCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.pushes)
}

func (f *fakeAPI) lastPush() []domain.CartItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.pushes) == 0 {
		return nil
	}
	return f.pushes[len(f.pushes)-1]
}

func newTestEngine(t *testing.T, api *fakeAPI) (*Engine, *store.Memory) {
	t.Helper()
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)
	st := store.NewMemory()
	return NewEngine(st, gateway.New(srv.URL, st)), st
}

func product(id string, price float64) domain.Product {
	return domain.Product{ID: id, Name: "Product " + id, Price: price}
}

func TestAddItem_AppendsThenIncrements(t *testing.T) {
	e, _ := newTestEngine(t, &fakeAPI{})
	ctx := context.Background()
	require.NoError(t, e.Load(ctx))

	e.AddItem(ctx, product("A", 9.99), nil)
	e.AddItem(ctx, product("A", 9.99), nil)

	items := e.Items()
	require.Len(t, items, 1)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, "A", items[0].ProductID)
}

func TestAddItem_VariantsAreDistinctRows(t *testing.T) {
	e, _ := newTestEngine(t, &fakeAPI{})
	ctx := context.Background()
	require.NoError(t, e.Load(ctx))

	red := &domain.Variant{Size: "M", Color: "red"}
	blue := &domain.Variant{Size: "M", Color: "blue"}
	e.AddItem(ctx, product("A", 9.99), red)
	e.AddItem(ctx, product("A", 9.99), blue)
	e.AddItem(ctx, product("A", 9.99), red)

	items := e.Items()
	require.Len(t, items, 2)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, 1, items[1].Quantity)
}

func TestUpdateQuantity_ZeroRemovesItem(t *testing.T) {
	e, _ := newTestEngine(t, &fakeAPI{})
	ctx := context.Background()
	require.NoError(t, e.Load(ctx))

	e.AddItem(ctx, product("A", 1), nil)
	e.AddItem(ctx, product("B", 2), nil)
	require.Len(t, e.Items(), 2)

	e.UpdateQuantity(ctx, "A", nil, 0)

	items := e.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "B", items[0].ProductID)
}

func TestUpdateQuantity_NegativeNeverPersisted(t *testing.T) {
	e, st := newTestEngine(t, &fakeAPI{})
	ctx := context.Background()
	require.NoError(t, e.Load(ctx))

	e.AddItem(ctx, product("A", 1), nil)
	e.UpdateQuantity(ctx, "A", nil, -3)

	assert.Empty(t, e.Items())

	data, err := st.Get(ctx, store.KeyCart)
	require.NoError(t, err)
	var persisted []domain.CartItem
	require.NoError(t, json.Unmarshal(data, &persisted))
	for _, item := range persisted {
		assert.Positive(t, item.Quantity)
	}
}

func TestRemoveItem_EquivalentToZeroQuantity(t *testing.T) {
	e, _ := newTestEngine(t, &fakeAPI{})
	ctx := context.Background()
	require.NoError(t, e.Load(ctx))

	e.AddItem(ctx, product("A", 1), nil)
	e.RemoveItem(ctx, "A", nil)
	assert.Empty(t, e.Items())
}

func TestClear_EmptiesCartAndStore(t *testing.T) {
	e, st := newTestEngine(t, &fakeAPI{})
	ctx := context.Background()
	require.NoError(t, e.Load(ctx))

	e.AddItem(ctx, product("A", 1), nil)
	e.Clear(ctx)

	assert.Empty(t, e.Items())
	data, err := st.Get(ctx, store.KeyCart)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))
}

func TestLoad_DropsInvalidQuantities(t *testing.T) {
	e, st := newTestEngine(t, &fakeAPI{})
	ctx := context.Background()

	require.NoError(t, st.Set(ctx, store.KeyCart,
		[]byte(`[{"productId":"A","quantity":2},{"productId":"B","quantity":0},{"productId":"C","quantity":-1}]`)))
	require.NoError(t, e.Load(ctx))

	items := e.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "A", items[0].ProductID)
}

func TestMergeCarts_SumsCollidingKeys(t *testing.T) {
	server := []domain.CartItem{
		{ProductID: "A", Quantity: 1},
		{ProductID: "B", Quantity: 1},
	}
	local := []domain.CartItem{
		{ProductID: "A", Quantity: 2},
	}

	merged := mergeCarts(server, local)
	require.Len(t, merged, 2)
	assert.Equal(t, "A", merged[0].ProductID)
	assert.Equal(t, 3, merged[0].Quantity)
	assert.Equal(t, "B", merged[1].ProductID)
	assert.Equal(t, 1, merged[1].Quantity)
}

func TestMergeCarts_LocalOnlyItemsAppended(t *testing.T) {
	server := []domain.CartItem{{ProductID: "B", Quantity: 1}}
	local := []domain.CartItem{
		{ProductID: "C", Quantity: 4},
		{ProductID: "A", Quantity: 2, Variant: &domain.Variant{Size: "L"}},
	}

	merged := mergeCarts(server, local)
	require.Len(t, merged, 3)
	assert.Equal(t, "B", merged[0].ProductID)
	assert.Equal(t, "C", merged[1].ProductID)
	assert.Equal(t, "A", merged[2].ProductID)
}

func TestMergeCarts_Idempotent(t *testing.T) {
	server := []domain.CartItem{
		{ProductID: "A", Quantity: 1},
		{ProductID: "B", Quantity: 5},
	}
	local := []domain.CartItem{
		{ProductID: "A", Quantity: 2},
		{ProductID: "C", Quantity: 1},
	}

	once := mergeCarts(server, local)
	twice := mergeCarts(server, local)
	assert.Equal(t, once, twice)
}

func TestMergeCarts_NoDuplicateKeys(t *testing.T) {
	server := []domain.CartItem{
		{ProductID: "A", Quantity: 1},
		{ProductID: "A", Quantity: 2, Variant: &domain.Variant{Color: "red"}},
	}
	local := []domain.CartItem{
		{ProductID: "A", Quantity: 3},
		{ProductID: "A", Quantity: 1, Variant: &domain.Variant{Color: "red"}},
	}

	merged := mergeCarts(server, local)
	seen := map[domain.ItemKey]bool{}
	for _, item := range merged {
		require.False(t, seen[item.Key()], "duplicate key %s", item.Key())
		seen[item.Key()] = true
	}
	require.Len(t, merged, 2)
	assert.Equal(t, 4, merged[0].Quantity)
	assert.Equal(t, 3, merged[1].Quantity)
}

func TestMerge_GuestCartFoldedIntoServerCart(t *testing.T) {
	api := &fakeAPI{serverCart: []domain.CartItem{
		{ProductID: "A", Name: "Product A", Quantity: 1},
		{ProductID: "B", Name: "Product B", Quantity: 1},
	}}
	e, st := newTestEngine(t, api)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, st.Set(ctx, store.KeyCart, []byte(`[{"productId":"A","quantity":2}]`)))
	require.NoError(t, e.Load(ctx))

	go e.Run(ctx)
	e.Activate()
	e.Merge(ctx)

	items := e.Items()
	require.Len(t, items, 2)
	assert.Equal(t, 3, items[0].Quantity)
	assert.Equal(t, "B", items[1].ProductID)

	// the merged cart is pushed to the server
	require.Eventually(t, func() bool { return api.pushCount() >= 1 }, 2*time.Second, 10*time.Millisecond)
	pushed := api.lastPush()
	require.Len(t, pushed, 2)
	assert.Equal(t, 3, pushed[0].Quantity)
}

func TestPull_ReplacesLocalAndPersisted(t *testing.T) {
	api := &fakeAPI{serverCart: []domain.CartItem{{ProductID: "Z", Quantity: 7}}}
	e, st := newTestEngine(t, api)
	ctx := context.Background()

	require.NoError(t, st.Set(ctx, store.KeyCart, []byte(`[{"productId":"A","quantity":1}]`)))
	require.NoError(t, e.Load(ctx))

	e.Pull(ctx)

	items := e.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "Z", items[0].ProductID)

	data, err := st.Get(ctx, store.KeyCart)
	require.NoError(t, err)
	var persisted []domain.CartItem
	require.NoError(t, json.Unmarshal(data, &persisted))
	require.Len(t, persisted, 1)
	assert.Equal(t, "Z", persisted[0].ProductID)
}

func TestPull_FailureKeepsLocalCopy(t *testing.T) {
	api := &fakeAPI{failPulls: true}
	e, _ := newTestEngine(t, api)
	ctx := context.Background()

	require.NoError(t, e.Load(ctx))
	e.AddItem(ctx, product("A", 1), nil)

	e.Pull(ctx)

	items := e.Items()
	require.Len(t, items, 1)
	assert.Equal(t, "A", items[0].ProductID)
}

func TestPush_FiresWhileActiveOnly(t *testing.T) {
	api := &fakeAPI{}
	e, _ := newTestEngine(t, api)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, e.Load(ctx))
	go e.Run(ctx)

	// anonymous: mutations stay local
	e.AddItem(ctx, product("A", 1), nil)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, api.pushCount())

	e.Activate()
	e.AddItem(ctx, product("B", 2), nil)

	require.Eventually(t, func() bool { return api.pushCount() >= 1 }, 2*time.Second, 10*time.Millisecond)
	pushed := api.lastPush()
	require.Len(t, pushed, 2)
}
