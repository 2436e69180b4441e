package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/jcmexdev/ecommerce-orders/internal/pkg/outbox"
)

type outboxRepo struct {
	base
}

// Enqueue stores payload as JSON under a fresh event id. Called inside the
// transaction that makes the change the event announces.
func (r *outboxRepo) Enqueue(ctx context.Context, topic, key string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("sqlstore: encode outbox payload: %w", err)
	}

	const q = `
		INSERT INTO outbox (event_id, topic, key, payload, created_at)
		VALUES (?, ?, ?, ?, ?)`

	if _, err := r.exec(ctx, q, uuid.NewString(), topic, key, string(data), formatTime(r.now())); err != nil {
		return fmt.Errorf("sqlstore: enqueue %s event: %w", topic, err)
	}
	return nil
}

func (r *outboxRepo) FetchPending(ctx context.Context, limit int) ([]outbox.Record, error) {
	const q = `
		SELECT id, event_id, topic, key, payload, created_at, sent_at
		FROM   outbox
		WHERE  sent_at IS NULL
		ORDER  BY id
		LIMIT  ?`

	rows, err := r.query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: fetch pending outbox: %w", err)
	}
	defer rows.Close()

	var out []outbox.Record
	for rows.Next() {
		var (
			rec       outbox.Record
			payload   string
			createdAt string
			sentAt    sql.NullString
		)
		if err := rows.Scan(&rec.ID, &rec.EventID, &rec.Topic, &rec.Key, &payload, &createdAt, &sentAt); err != nil {
			return nil, fmt.Errorf("sqlstore: fetch pending outbox: %w", err)
		}
		rec.Payload = json.RawMessage(payload)
		if rec.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if sentAt.Valid {
			t, err := parseTime(sentAt.String)
			if err != nil {
				return nil, err
			}
			rec.SentAt = &t
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *outboxRepo) MarkSent(ctx context.Context, id int64) error {
	if _, err := r.exec(ctx, `UPDATE outbox SET sent_at = ? WHERE id = ?`, formatTime(r.now()), id); err != nil {
		return fmt.Errorf("sqlstore: mark outbox %d sent: %w", id, err)
	}
	return nil
}
