package outbox

import (
	"context"
	"log"
	"net/http"
	"time"
)

// Sender replays a single entry against the remote API and reports the
// resulting HTTP status. A non-nil error means the request never completed.
type Sender interface {
	Send(ctx context.Context, e Entry) (int, error)
}

type Config struct {
	// Tick is how often the worker looks for a replay opportunity.
	Tick time.Duration
	// MaxAttempts drops an entry after this many failed replays (0 = default).
	MaxAttempts int
	// OnAuthFailure is called when a replay is rejected with 401/403.
	OnAuthFailure func()
}

const (
	defaultTick        = 30 * time.Second
	defaultMaxAttempts = 50
	replayBatchSize    = 100
)

// Worker owns the durable queue. Callers hand entries over via Add; the
// worker persists and replays them. On success an entry is removed, on
// failure it stays queued with an incremented attempt counter. There is no
// backoff between opportunities; entries past MaxAttempts are dropped so a
// poisoned request cannot wedge the queue.
type Worker struct {
	queue         *Queue
	sender        Sender
	tick          time.Duration
	maxAttempts   int
	onAuthFailure func()

	msgs chan Message
	kick chan struct{}
}

func NewWorker(queue *Queue, sender Sender, cfg Config) *Worker {
	if cfg.Tick <= 0 {
		cfg.Tick = defaultTick
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = defaultMaxAttempts
	}
	return &Worker{
		queue:         queue,
		sender:        sender,
		tick:          cfg.Tick,
		maxAttempts:   cfg.MaxAttempts,
		onAuthFailure: cfg.OnAuthFailure,
		msgs:          make(chan Message, 64),
		kick:          make(chan struct{}, 1),
	}
}

// Add hands an entry to the worker. Fire-and-forget: it never blocks the
// caller, even when the worker is busy.
func (w *Worker) Add(e Entry) {
	msg := Message{Action: ActionAdd, Payload: e}
	select {
	case w.msgs <- msg:
	default:
		go func() { w.msgs <- msg }()
	}
}

// Kick signals a connectivity opportunity outside the regular tick.
func (w *Worker) Kick() {
	select {
	case w.kick <- struct{}{}:
	default:
	}
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.tick)
	defer ticker.Stop()
	for {
		select {
		case msg := <-w.msgs:
			w.handleMessage(ctx, msg)
		case <-ticker.C:
			w.drainMessages(ctx)
			w.replayPending(ctx)
		case <-w.kick:
			w.drainMessages(ctx)
			w.replayPending(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// drainMessages persists any entries already handed over before a replay
// pass, so a kick right after a failed request replays that request too.
func (w *Worker) drainMessages(ctx context.Context) {
	for {
		select {
		case msg := <-w.msgs:
			w.handleMessage(ctx, msg)
		default:
			return
		}
	}
}

func (w *Worker) handleMessage(ctx context.Context, msg Message) {
	switch msg.Action {
	case ActionAdd:
		if err := w.queue.Enqueue(ctx, msg.Payload); err != nil {
			log.Printf("outbox: failed to persist entry for %s %s: %v", msg.Payload.Method, msg.Payload.URL, err)
		}
	default:
		log.Printf("outbox: unknown message action %q", msg.Action)
	}
}

func (w *Worker) replayPending(ctx context.Context) {
	entries, err := w.queue.Pending(ctx, replayBatchSize)
	if err != nil {
		log.Printf("outbox: failed to fetch pending entries: %v", err)
		return
	}

	for _, e := range entries {
		status, err := w.sender.Send(ctx, e)
		if err != nil {
			w.recordFailure(ctx, e)
			continue
		}

		switch {
		case status == http.StatusUnauthorized || status == http.StatusForbidden:
			// replaying an unauthenticated mutation is useless and could
			// double-apply once re-authenticated
			if w.onAuthFailure != nil {
				w.onAuthFailure()
			}
			w.remove(ctx, e)
		case status >= 200 && status < 300:
			w.remove(ctx, e)
		default:
			w.recordFailure(ctx, e)
		}
	}
}

func (w *Worker) recordFailure(ctx context.Context, e Entry) {
	if e.Attempts+1 >= w.maxAttempts {
		log.Printf("outbox: dropping entry %s after %d attempts (%s %s)", e.ID, e.Attempts+1, e.Method, e.URL)
		w.remove(ctx, e)
		return
	}
	if err := w.queue.RecordAttempt(ctx, e.ID); err != nil {
		log.Printf("outbox: failed to record attempt for %s: %v", e.ID, err)
	}
}

func (w *Worker) remove(ctx context.Context, e Entry) {
	if err := w.queue.Remove(ctx, e.ID); err != nil {
		log.Printf("outbox: failed to remove entry %s: %v", e.ID, err)
	}
}
