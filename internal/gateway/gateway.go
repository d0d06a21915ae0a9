package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/yashagency/storefront-client/internal/outbox"
	"github.com/yashagency/storefront-client/internal/store"
)

// Enqueuer hands a failed mutating request to the outbox worker.
type Enqueuer interface {
	Add(e outbox.Entry)
}

// Result is a classified API response. A 401/403 is returned to the caller
// as-is; callers must check AuthFailure and escalate to the session manager.
type Result struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (r *Result) Success() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

func (r *Result) AuthFailure() bool {
	return r.StatusCode == http.StatusUnauthorized || r.StatusCode == http.StatusForbidden
}

// Decode unmarshals the response body. Callers treat a decode error the same
// as a transient read failure.
func (r *Result) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Gateway is the single chokepoint for calls to the storefront API. It
// attaches the bearer token and the anti-forgery token, classifies responses,
// and hands failed mutations to the outbox. Centralizing this means cart,
// wishlist, notifications and addresses all share one auth/retry path.
type Gateway struct {
	baseURL string
	client  *http.Client
	st      store.Store
	breaker *gobreaker.CircuitBreaker[*http.Response]
	outbox  Enqueuer

	csrf csrfCache
}

func New(baseURL string, st store.Store) *Gateway {
	breaker := gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:        "storefront-api",
		MaxRequests: 3,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &Gateway{
		baseURL: baseURL,
		client: &http.Client{
			Timeout:   15 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		st:      st,
		breaker: breaker,
	}
}

// SetOutbox wires the replay worker in. Wired after construction because the
// worker needs the gateway as its sender.
func (g *Gateway) SetOutbox(e Enqueuer) {
	g.outbox = e
}

// Do performs an API call. Mutating verbs that fail for a non-auth reason
// are enqueued to the outbox before the original failure is returned; the
// caller's optimistic local state is never rolled back here.
func (g *Gateway) Do(ctx context.Context, method, path string, payload any) (*Result, error) {
	return g.call(ctx, method, path, payload, true)
}

// DoOnce is Do without the outbox hand-off, for requests that must never be
// replayed later: login (would re-authenticate a stale identity) and logout
// (replayed after a re-login it would kill the new session).
func (g *Gateway) DoOnce(ctx context.Context, method, path string, payload any) (*Result, error) {
	return g.call(ctx, method, path, payload, false)
}

func (g *Gateway) call(ctx context.Context, method, path string, payload any, handOff bool) (*Result, error) {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	headers := map[string]string{}
	if payload != nil {
		headers["Content-Type"] = "application/json"
	}
	if token := g.token(ctx); token != "" {
		headers["Authorization"] = "Bearer " + token
	}

	url := g.baseURL + path
	mutating := method != http.MethodGet

	if mutating {
		csrf, err := g.csrfToken(ctx)
		if err != nil {
			if handOff {
				g.enqueue(url, method, headers, body)
			}
			return nil, fmt.Errorf("failed to obtain csrf token: %w", err)
		}
		headers["X-CSRF-Token"] = csrf
	}

	res, err := g.send(ctx, method, url, headers, body)
	if err != nil {
		if mutating && handOff {
			g.enqueue(url, method, headers, body)
		}
		return nil, err
	}

	if !res.Success() && !res.AuthFailure() && mutating && handOff {
		g.enqueue(url, method, headers, body)
	}
	return res, nil
}

func (g *Gateway) send(ctx context.Context, method, url string, headers map[string]string, body []byte) (*Result, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := g.breaker.Execute(func() (*http.Response, error) {
		return g.client.Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response from %s: %w", url, err)
	}

	return &Result{StatusCode: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

// Send replays an outbox entry with its stored headers, verbatim.
func (g *Gateway) Send(ctx context.Context, e outbox.Entry) (int, error) {
	res, err := g.send(ctx, e.Method, e.URL, e.Headers, e.Body)
	if err != nil {
		return 0, err
	}
	return res.StatusCode, nil
}

func (g *Gateway) enqueue(url, method string, headers map[string]string, body []byte) {
	if g.outbox == nil {
		log.Printf("gateway: no outbox wired, dropping failed %s %s", method, url)
		return
	}
	g.outbox.Add(outbox.Entry{
		URL:     url,
		Method:  method,
		Headers: headers,
		Body:    body,
	})
}

func (g *Gateway) token(ctx context.Context) string {
	value, err := g.st.Get(ctx, store.KeyToken)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.Printf("gateway: failed to read token: %v", err)
		}
		return ""
	}
	return string(value)
}
