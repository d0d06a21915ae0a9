package gateway

import (
	"context"
	"fmt"
	"net/http"
	"sync"
)

const csrfPath = "/api/csrf-token"

// csrfCache holds the per-session anti-forgery token. Fetched once, reused
// for every mutating call until the session changes.
type csrfCache struct {
	mu    sync.Mutex
	token string
}

func (g *Gateway) csrfToken(ctx context.Context) (string, error) {
	g.csrf.mu.Lock()
	defer g.csrf.mu.Unlock()

	if g.csrf.token != "" {
		return g.csrf.token, nil
	}

	headers := map[string]string{}
	if token := g.token(ctx); token != "" {
		headers["Authorization"] = "Bearer " + token
	}

	res, err := g.send(ctx, http.MethodGet, g.baseURL+csrfPath, headers, nil)
	if err != nil {
		return "", err
	}
	if !res.Success() {
		return "", fmt.Errorf("csrf token endpoint returned %d", res.StatusCode)
	}

	var payload struct {
		Token string `json:"csrfToken"`
	}
	if err := res.Decode(&payload); err != nil {
		return "", err
	}
	if payload.Token == "" {
		return "", fmt.Errorf("csrf token endpoint returned empty token")
	}

	g.csrf.token = payload.Token
	return g.csrf.token, nil
}

// InvalidateCSRF drops the cached anti-forgery token. Called on login,
// logout and session invalidation.
func (g *Gateway) InvalidateCSRF() {
	g.csrf.mu.Lock()
	g.csrf.token = ""
	g.csrf.mu.Unlock()
}
