package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Queue persists entries in the outbox table of the local store database.
type Queue struct {
	db *sql.DB
}

func NewQueue(db *sql.DB) *Queue {
	return &Queue{db: db}
}

func (q *Queue) Enqueue(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.EnqueuedAt.IsZero() {
		e.EnqueuedAt = time.Now().UTC()
	}

	headers, err := json.Marshal(e.Headers)
	if err != nil {
		return fmt.Errorf("failed to marshal headers: %w", err)
	}

	_, err = q.db.ExecContext(ctx, `
		INSERT INTO outbox (id, url, method, headers, body, enqueued_at, attempts)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.URL, e.Method, string(headers), e.Body, e.EnqueuedAt, e.Attempts)
	if err != nil {
		return fmt.Errorf("failed to enqueue outbox entry: %w", err)
	}
	return nil
}

// Pending returns queued entries oldest-first.
func (q *Queue) Pending(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, url, method, headers, body, enqueued_at, attempts
		FROM outbox
		ORDER BY enqueued_at, id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query outbox: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var headers string
		if err := rows.Scan(&e.ID, &e.URL, &e.Method, &headers, &e.Body, &e.EnqueuedAt, &e.Attempts); err != nil {
			return nil, fmt.Errorf("failed to scan outbox entry: %w", err)
		}
		if err := json.Unmarshal([]byte(headers), &e.Headers); err != nil {
			return nil, fmt.Errorf("failed to unmarshal headers for %s: %w", e.ID, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return entries, nil
}

// Remove deletes an entry after a confirmed successful replay.
func (q *Queue) Remove(ctx context.Context, id string) error {
	if _, err := q.db.ExecContext(ctx, `DELETE FROM outbox WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to remove outbox entry %s: %w", id, err)
	}
	return nil
}

// RecordAttempt increments the attempt counter after a failed replay.
func (q *Queue) RecordAttempt(ctx context.Context, id string) error {
	if _, err := q.db.ExecContext(ctx, `UPDATE outbox SET attempts = attempts + 1 WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to record attempt for %s: %w", id, err)
	}
	return nil
}

func (q *Queue) Count(ctx context.Context) (int, error) {
	var n int
	if err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM outbox`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count outbox: %w", err)
	}
	return n, nil
}
