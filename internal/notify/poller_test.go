package notify

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

	"github.com/yashagency/storefront-client/internal/gateway"
	"github.com/yashagency/storefront-client/internal/store"
)

func TestPoller_FetchesAndExposesList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"notifications": []map[string]any{
				{"id": "n1", "message": "order shipped"},
			},
		})
	}))
	defer srv.Close()

	p := NewPoller(gateway.New(srv.URL, store.NewMemory()), time.Hour)
	p.Start(context.Background())
	defer p.Stop()

	require.Eventually(t, func() bool {
		return len(p.Notifications()) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "order shipped", p.Notifications()[0].Message)
}

func TestPoller_AuthFailureEscalates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	var mu sync.Mutex
	invalidated := false

	p := NewPoller(gateway.New(srv.URL, store.NewMemory()), time.Hour)
	p.SetAuthFailureHandler(func() {
		mu.Lock()
		invalidated = true
		mu.Unlock()
		p.Stop()
	})
	p.Start(context.Background())

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return invalidated
	}, 2*time.Second, 10*time.Millisecond)
}

func TestPoller_StopClearsList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"notifications": []map[string]any{{"id": "n1", "message": "hi"}},
		})
	}))
	defer srv.Close()

	p := NewPoller(gateway.New(srv.URL, store.NewMemory()), time.Hour)
	p.Start(context.Background())
	require.Eventually(t, func() bool {
		return len(p.Notifications()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	p.Stop()
	assert.Empty(t, p.Notifications())
}

func TestPoller_FailedFetchKeepsPreviousList(t *testing.T) {
	var mu sync.Mutex
	fail := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		if fail {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"notifications": []map[string]any{{"id": "n1", "message": "hi"}},
		})
	}))
	defer srv.Close()

	p := NewPoller(gateway.New(srv.URL, store.NewMemory()), time.Hour)
	ctx := context.Background()

	p.fetch(ctx)
	require.Len(t, p.Notifications(), 1)

	mu.Lock()
	fail = true
	mu.Unlock()

	p.fetch(ctx)
	assert.Len(t, p.Notifications(), 1)
}
