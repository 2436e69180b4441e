package app

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/jcmexdev/ecommerce-orders/internal/order-service/domain"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/ports"
	"github.com/jcmexdev/ecommerce-orders/internal/pkg/telemetry"
)

const (
	MessageOrderPlaced    = "Order placed successfully"
	MessageOrderProcessed = "Order processed successfully"

	EventOrderCompleted = "order.completed"
)

// OrderCompletedEvent is the outbox payload written when an order commits.
type OrderCompletedEvent struct {
	Type       string            `json:"type"`
	OrderID    int64             `json:"order_id"`
	Items      []domain.LineItem `json:"items"`
	TotalPrice string            `json:"total_price"`
	Status     string            `json:"status"`
	CreatedAt  time.Time         `json:"created_at"`
}

// Engine places and processes orders. It must be built from the repositories
// of one open transaction: the availability check, the stock deltas and the
// order writes all commit or roll back together.
type Engine struct {
	repos       ports.Repositories
	ledger      *Ledger
	eventsTopic string
	now         func() time.Time
}

// NewEngine binds an engine to repos. An empty eventsTopic disables the
// order.completed outbox event.
func NewEngine(repos ports.Repositories, eventsTopic string) *Engine {
	return &Engine{
		repos:       repos,
		ledger:      NewLedger(repos.Products, DefaultMaxPageSize),
		eventsTopic: eventsTopic,
		now:         time.Now,
	}
}

// PlaceOrder validates the whole batch before mutating anything. Products are
// locked in ascending id order; the first unknown id in request order aborts
// with *domain.NotFoundError, otherwise every short product is reported in one
// *domain.InsufficientStockError. Repeated ids are checked against their
// summed quantity.
func (e *Engine) PlaceOrder(ctx context.Context, items []domain.LineItem) (*domain.OrderDetails, error) {
	if err := domain.ValidateItems(items); err != nil {
		return nil, err
	}

	requested := make(map[int64]int, len(items))
	var order []int64
	for _, it := range items {
		if _, seen := requested[it.ProductID]; !seen {
			order = append(order, it.ProductID)
		}
		requested[it.ProductID] += it.Quantity
	}

	ids := append([]int64(nil), order...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	products := make(map[int64]*domain.Product, len(ids))
	available := make(map[int64]bool, len(ids))
	for _, id := range ids {
		ok, p, err := e.ledger.CheckStockAvailability(ctx, id, requested[id])
		if err != nil {
			return nil, fmt.Errorf("engine: check stock for product %d: %w", id, err)
		}
		products[id] = p
		available[id] = ok
	}

	for _, it := range items {
		if products[it.ProductID] == nil {
			return nil, &domain.NotFoundError{Entity: "Product", ID: it.ProductID}
		}
	}

	var short []domain.Shortfall
	for _, id := range order {
		if !available[id] {
			short = append(short, domain.Shortfall{
				ProductID:         id,
				AvailableStock:    products[id].Stock,
				RequestedQuantity: requested[id],
			})
		}
	}
	if len(short) > 0 {
		return nil, &domain.InsufficientStockError{Items: short}
	}

	lines := make([]domain.OrderLine, len(items))
	for i, it := range items {
		lines[i] = domain.OrderLine{Product: *products[it.ProductID], Quantity: it.Quantity}
	}

	o := &domain.Order{
		Items:      append([]domain.LineItem(nil), items...),
		TotalPrice: domain.TotalPrice(lines),
		Status:     domain.StatusPending,
		CreatedAt:  e.now().UTC(),
	}
	if err := e.repos.Orders.Insert(ctx, o); err != nil {
		return nil, fmt.Errorf("engine: insert order: %w", err)
	}
	if err := e.record(ctx, o.ID, domain.StatusPending, "Order created"); err != nil {
		return nil, err
	}

	after := make(map[int64]*domain.Product, len(ids))
	for _, it := range items {
		p, err := e.ledger.ApplyStockDelta(ctx, it.ProductID, -it.Quantity)
		if err != nil {
			return nil, fmt.Errorf("engine: decrement stock for product %d: %w", it.ProductID, err)
		}
		if p == nil {
			return nil, &domain.NotFoundError{Entity: "Product", ID: it.ProductID}
		}
		after[it.ProductID] = p
	}
	for i := range lines {
		// Report the post-decrement stock while keeping the checked price.
		lines[i].Product.Stock = after[lines[i].Product.ID].Stock
	}

	if err := e.complete(ctx, o, "Order completed"); err != nil {
		return nil, err
	}
	if err := e.publishCompleted(ctx, o); err != nil {
		return nil, err
	}

	return &domain.OrderDetails{Order: *o, Lines: lines, Message: MessageOrderPlaced}, nil
}

// ProcessOrder moves a pending order to completed. Any other status is
// returned unchanged with an "Order already <status>" message.
func (e *Engine) ProcessOrder(ctx context.Context, id int64) (*domain.Order, string, error) {
	o, err := e.repos.Orders.Get(ctx, id)
	if err != nil {
		return nil, "", fmt.Errorf("engine: get order %d: %w", id, err)
	}
	if o == nil {
		return nil, "", &domain.NotFoundError{Entity: "Order", ID: id}
	}
	if o.Status != domain.StatusPending {
		return o, fmt.Sprintf("Order already %s", o.Status), nil
	}

	if err := e.complete(ctx, o, "Order processed"); err != nil {
		return nil, "", err
	}
	if err := e.publishCompleted(ctx, o); err != nil {
		return nil, "", err
	}
	return o, MessageOrderProcessed, nil
}

func (e *Engine) complete(ctx context.Context, o *domain.Order, message string) error {
	if err := e.repos.Orders.UpdateStatus(ctx, o.ID, domain.StatusCompleted); err != nil {
		return fmt.Errorf("engine: complete order %d: %w", o.ID, err)
	}
	o.Status = domain.StatusCompleted
	return e.record(ctx, o.ID, domain.StatusCompleted, message)
}

func (e *Engine) record(ctx context.Context, orderID int64, status domain.OrderStatus, message string) error {
	info := telemetry.TraceInfoFrom(ctx)
	entry := &domain.HistoryEntry{
		OrderID:   orderID,
		Status:    status,
		Message:   message,
		TraceID:   info.TraceID,
		SpanID:    info.SpanID,
		CreatedAt: e.now().UTC(),
	}
	if err := e.repos.History.Append(ctx, entry); err != nil {
		return fmt.Errorf("engine: record %s for order %d: %w", status, orderID, err)
	}
	return nil
}

func (e *Engine) publishCompleted(ctx context.Context, o *domain.Order) error {
	if e.eventsTopic == "" {
		return nil
	}
	evt := OrderCompletedEvent{
		Type:       EventOrderCompleted,
		OrderID:    o.ID,
		Items:      o.Items,
		TotalPrice: o.TotalPrice.StringFixed(2),
		Status:     string(o.Status),
		CreatedAt:  o.CreatedAt,
	}
	if err := e.repos.Outbox.Enqueue(ctx, e.eventsTopic, strconv.FormatInt(o.ID, 10), evt); err != nil {
		return fmt.Errorf("engine: enqueue %s for order %d: %w", EventOrderCompleted, o.ID, err)
	}
	return nil
}

// unitsOrdered is the total quantity across items.
func unitsOrdered(items []domain.LineItem) int {
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	return n
}
