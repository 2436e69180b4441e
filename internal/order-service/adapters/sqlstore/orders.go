package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jcmexdev/ecommerce-orders/internal/order-service/domain"
)

type orderRepo struct {
	base
}

func (r *orderRepo) Insert(ctx context.Context, o *domain.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("sqlstore: encode line items: %w", err)
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = r.now().UTC()
	}

	const q = `
		INSERT INTO orders (line_items, total_price, status, created_at)
		VALUES (?, ?, ?, ?)
		RETURNING id`

	if err := r.queryRow(ctx, q, string(items), o.TotalPrice.StringFixed(2), string(o.Status), formatTime(o.CreatedAt)).Scan(&o.ID); err != nil {
		return fmt.Errorf("sqlstore: insert order: %w", err)
	}
	return nil
}

func (r *orderRepo) Get(ctx context.Context, id int64) (*domain.Order, error) {
	const q = `SELECT id, line_items, total_price, status, created_at FROM orders WHERE id = ?`

	var (
		o         domain.Order
		items     string
		total     decimal.Decimal
		status    string
		createdAt string
	)
	err := r.queryRow(ctx, q, id).Scan(&o.ID, &items, &total, &status, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlstore: get order %d: %w", id, err)
	}

	if err := json.Unmarshal([]byte(items), &o.Items); err != nil {
		return nil, fmt.Errorf("sqlstore: decode line items of order %d: %w", id, err)
	}
	o.TotalPrice = total
	o.Status = domain.OrderStatus(status)
	if o.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *orderRepo) UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) error {
	res, err := r.exec(ctx, `UPDATE orders SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("sqlstore: update status of order %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlstore: update status of order %d: %w", id, err)
	}
	if n == 0 {
		return &domain.NotFoundError{Entity: "Order", ID: id}
	}
	return nil
}
