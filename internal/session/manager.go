package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"

	"github.com/yashagency/storefront-client/internal/cart"
	"github.com/yashagency/storefront-client/internal/domain"
	"github.com/yashagency/storefront-client/internal/gateway"
	"github.com/yashagency/storefront-client/internal/store"
)

const (
	loginPath     = "/api/login"
	logoutPath    = "/api/logout"
	profilePath   = "/api/profile"
	wishlistPath  = "/api/wishlist"
	subscribePath = "/api/push/subscribe"
)

// State of the authentication lifecycle.
type State string

const (
	StateAnonymous      State = "anonymous"
	StateAuthenticating State = "authenticating"
	StateAuthenticated  State = "authenticated"
	StateInvalidated    State = "invalidated"
)

var (
	// ErrRateLimited maps a 429 from the login endpoint; the user should
	// wait and retry, there is no automatic retry.
	ErrRateLimited = errors.New("too many login attempts, wait and retry")
	ErrLoginFailed = errors.New("invalid credentials")
	ErrUnavailable = errors.New("storefront unreachable")
)

// Poller is the notification poller as the manager sees it. Stop also
// clears the fetched notification list.
type Poller interface {
	Start(ctx context.Context)
	Stop()
}

// Manager owns the authentication lifecycle:
// Anonymous → Authenticating → Authenticated → Invalidated → Anonymous.
// Any 401/403 observed on an authenticated call escalates to Invalidate,
// which tears down token, user, cart and notifications.
type Manager struct {
	mu    sync.Mutex
	state State
	user  *domain.User

	st     store.Store
	gw     *gateway.Gateway
	cart   *cart.Engine
	poller Poller
}

func NewManager(st store.Store, gw *gateway.Gateway, cartEngine *cart.Engine, poller Poller) *Manager {
	return &Manager{
		state:  StateAnonymous,
		st:     st,
		gw:     gw,
		cart:   cartEngine,
		poller: poller,
	}
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) User() *domain.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

// Login authenticates against the storefront. Any previously cached token is
// cleared before the POST goes out: a stale token sent alongside a fresh
// login could make the server apply the wrong identity.
func (m *Manager) Login(ctx context.Context, email, password string) (*domain.User, error) {
	m.setState(StateAuthenticating)
	m.clearCredentials(ctx)

	res, err := m.gw.DoOnce(ctx, http.MethodPost, loginPath, loginRequest{Email: email, Password: password})
	if err != nil {
		m.setState(StateAnonymous)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	switch {
	case res.StatusCode == http.StatusTooManyRequests:
		m.setState(StateAnonymous)
		return nil, ErrRateLimited
	case !res.Success():
		m.setState(StateAnonymous)
		return nil, ErrLoginFailed
	}

	var payload loginResponse
	if err := res.Decode(&payload); err != nil {
		m.setState(StateAnonymous)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if err := m.persistCredentials(ctx, payload.Token, payload.User); err != nil {
		m.setState(StateAnonymous)
		return nil, err
	}

	m.mu.Lock()
	m.state = StateAuthenticated
	user := payload.User
	m.user = &user
	m.mu.Unlock()

	// the csrf token belongs to the previous (anonymous) session
	m.gw.InvalidateCSRF()

	bg := context.WithoutCancel(ctx)
	m.cart.Activate()
	m.cart.Merge(bg)
	m.fetchWishlist(bg)
	m.subscribePush(bg)
	m.poller.Start(bg)

	return m.User(), nil
}

// Logout notifies the server best-effort, then tears down locally no matter
// what the server said. Logout never fails from the caller's perspective.
func (m *Manager) Logout(ctx context.Context) {
	if _, err := m.gw.DoOnce(ctx, http.MethodPost, logoutPath, nil); err != nil {
		log.Printf("session: server-side logout failed: %v", err)
	}
	m.teardown(context.WithoutCancel(ctx))
}

// Restore rebuilds the session at startup. A persisted token is trusted
// immediately so the caller is not blocked, then validated in the
// background. An unreachable server keeps the session: an offline user is
// not logged out; only an explicit rejection tears it down.
func (m *Manager) Restore(ctx context.Context) {
	token, errToken := m.st.Get(ctx, store.KeyToken)
	userData, errUser := m.st.Get(ctx, store.KeyUser)
	if errToken != nil || errUser != nil || len(token) == 0 {
		return
	}

	var user domain.User
	if err := json.Unmarshal(userData, &user); err != nil {
		log.Printf("session: discarding unreadable persisted user: %v", err)
		m.clearCredentials(ctx)
		return
	}

	m.mu.Lock()
	m.state = StateAuthenticated
	m.user = &user
	m.mu.Unlock()

	bg := context.WithoutCancel(ctx)
	m.cart.Activate()
	m.poller.Start(bg)
	go m.validate(bg)
}

func (m *Manager) validate(ctx context.Context) {
	res, err := m.gw.Do(ctx, http.MethodGet, profilePath, nil)
	if err != nil {
		log.Printf("session: startup validation unreachable, keeping session: %v", err)
		return
	}
	if res.AuthFailure() {
		m.Invalidate()
		return
	}
	if !res.Success() {
		log.Printf("session: startup validation returned %d, keeping session", res.StatusCode)
		return
	}

	var payload struct {
		User domain.User `json:"user"`
	}
	if err := res.Decode(&payload); err != nil {
		log.Printf("session: unreadable profile response, keeping session: %v", err)
		return
	}

	if data, err := json.Marshal(payload.User); err == nil {
		if err := m.st.Set(ctx, store.KeyUser, data); err != nil {
			log.Printf("session: failed to persist canonical user: %v", err)
		}
	}
	m.mu.Lock()
	user := payload.User
	m.user = &user
	m.mu.Unlock()

	m.cart.Pull(ctx)
}

// Invalidate is the forced teardown for an authorization failure. Safe to
// call from any goroutine and idempotent.
func (m *Manager) Invalidate() {
	m.mu.Lock()
	if m.state == StateAnonymous {
		m.mu.Unlock()
		return
	}
	m.state = StateInvalidated
	m.mu.Unlock()

	m.teardown(context.Background())
}

func (m *Manager) teardown(ctx context.Context) {
	m.poller.Stop()
	m.cart.Deactivate()
	m.cart.ClearLocal(ctx)
	m.clearCredentials(ctx)
	if err := m.st.Delete(ctx, store.KeyWishlist); err != nil {
		log.Printf("session: failed to clear wishlist: %v", err)
	}

	m.mu.Lock()
	m.state = StateAnonymous
	m.user = nil
	m.mu.Unlock()
}

func (m *Manager) clearCredentials(ctx context.Context) {
	if err := m.st.Delete(ctx, store.KeyToken); err != nil {
		log.Printf("session: failed to clear token: %v", err)
	}
	if err := m.st.Delete(ctx, store.KeyUser); err != nil {
		log.Printf("session: failed to clear user: %v", err)
	}
	m.gw.InvalidateCSRF()

	m.mu.Lock()
	m.user = nil
	m.mu.Unlock()
}

func (m *Manager) persistCredentials(ctx context.Context, token string, user domain.User) error {
	if err := m.st.Set(ctx, store.KeyToken, []byte(token)); err != nil {
		return fmt.Errorf("failed to persist token: %w", err)
	}
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}
	if err := m.st.Set(ctx, store.KeyUser, data); err != nil {
		return fmt.Errorf("failed to persist user: %w", err)
	}
	return nil
}
