package sqlstore

import (
	"context"
	"fmt"

	"github.com/jcmexdev/ecommerce-orders/internal/order-service/domain"
)

// historyRepo is append-only: one row per status transition.
type historyRepo struct {
	base
}

func (r *historyRepo) Append(ctx context.Context, e *domain.HistoryEntry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = r.now().UTC()
	}

	const q = `
		INSERT INTO order_history (order_id, status, message, trace_id, span_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	_, err := r.exec(ctx, q, e.OrderID, string(e.Status), e.Message, e.TraceID, e.SpanID, formatTime(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("sqlstore: append history for order %d: %w", e.OrderID, err)
	}
	return nil
}

func (r *historyRepo) List(ctx context.Context, orderID int64) ([]domain.HistoryEntry, error) {
	const q = `
		SELECT order_id, status, message, trace_id, span_id, created_at
		FROM   order_history
		WHERE  order_id = ?
		ORDER  BY id`

	rows, err := r.query(ctx, q, orderID)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: list history for order %d: %w", orderID, err)
	}
	defer rows.Close()

	out := []domain.HistoryEntry{}
	for rows.Next() {
		var (
			e         domain.HistoryEntry
			status    string
			createdAt string
		)
		if err := rows.Scan(&e.OrderID, &status, &e.Message, &e.TraceID, &e.SpanID, &createdAt); err != nil {
			return nil, fmt.Errorf("sqlstore: list history for order %d: %w", orderID, err)
		}
		e.Status = domain.OrderStatus(status)
		if e.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
