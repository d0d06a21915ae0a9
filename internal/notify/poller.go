package notify

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/yashagency/storefront-client/internal/domain"
	"github.com/yashagency/storefront-client/internal/gateway"
)

const notificationsPath = "/api/notifications"

const DefaultInterval = 60 * time.Second

// Poller fetches the notification list on a fixed interval while the session
// is authenticated. A 401/403 escalates to the session invalidator; any other
// failure keeps the previous list.
type Poller struct {
	gw            *gateway.Gateway
	interval      time.Duration
	onAuthFailure func()

	mu     sync.Mutex
	list   []domain.Notification
	cancel context.CancelFunc
}

func NewPoller(gw *gateway.Gateway, interval time.Duration) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{gw: gw, interval: interval}
}

func (p *Poller) SetAuthFailureHandler(f func()) {
	p.onAuthFailure = f
}

// Start begins polling. Calling Start on a running poller is a no-op.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	if p.cancel != nil {
		p.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.mu.Unlock()

	go p.run(ctx)
}

// Stop clears the interval and drops the fetched list.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.list = nil
}

func (p *Poller) Notifications() []domain.Notification {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.Notification, len(p.list))
	copy(out, p.list)
	return out
}

func (p *Poller) run(ctx context.Context) {
	p.fetch(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.fetch(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *Poller) fetch(ctx context.Context) {
	res, err := p.gw.Do(ctx, http.MethodGet, notificationsPath, nil)
	if err != nil {
		log.Printf("notify: fetch failed, keeping previous list: %v", err)
		return
	}
	if res.AuthFailure() {
		if p.onAuthFailure != nil {
			p.onAuthFailure()
		}
		return
	}
	if !res.Success() {
		log.Printf("notify: fetch returned %d, keeping previous list", res.StatusCode)
		return
	}

	var payload struct {
		Notifications []domain.Notification `json:"notifications"`
	}
	if err := res.Decode(&payload); err != nil {
		log.Printf("notify: unreadable notification list: %v", err)
		return
	}

	p.mu.Lock()
	p.list = payload.Notifications
	p.mu.Unlock()
}
