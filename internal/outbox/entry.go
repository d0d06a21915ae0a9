package outbox

import "time"

// Entry is a failed mutating request awaiting replay. Entries are not
// deduplicated: delivery is at-least-once, and the server side applies
// full-snapshot writes so a duplicate replay is harmless.
type Entry struct {
	ID         string
	URL        string
	Method     string
	Headers    map[string]string
	Body       []byte
	EnqueuedAt time.Time
	Attempts   int
}

// Action tags a message from the main goroutines to the replay worker.
type Action string

const ActionAdd Action = "OUTBOX_ADD"

// Message is the typed main-to-worker protocol. Coordination with the worker
// is message-based only; the worker is the sole writer of the queue table.
type Message struct {
	Action  Action
	Payload Entry
}
