package app

import (
	"context"
	"fmt"

	"github.com/jcmexdev/ecommerce-orders/internal/order-service/domain"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/ports"
)

const MessageOrderRetrieved = "Order details retrieved successfully"

// Query rebuilds an order for reading by joining its stored line items
// against the current product rows. Prices shown may differ from the price
// captured in the order total.
type Query struct {
	orders   ports.OrderRepository
	products ports.ProductRepository
}

func NewQuery(orders ports.OrderRepository, products ports.ProductRepository) *Query {
	return &Query{orders: orders, products: products}
}

// GetOrderWithDetails returns (nil, nil) for an unknown order id. Line items
// whose product no longer resolves are left out.
func (q *Query) GetOrderWithDetails(ctx context.Context, id int64) (*domain.OrderDetails, error) {
	o, err := q.orders.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("query: get order %d: %w", id, err)
	}
	if o == nil {
		return nil, nil
	}

	lines := make([]domain.OrderLine, 0, len(o.Items))
	for _, it := range o.Items {
		p, err := q.products.Get(ctx, it.ProductID)
		if err != nil {
			return nil, fmt.Errorf("query: get product %d: %w", it.ProductID, err)
		}
		if p == nil {
			continue
		}
		lines = append(lines, domain.OrderLine{Product: *p, Quantity: it.Quantity})
	}

	return &domain.OrderDetails{Order: *o, Lines: lines, Message: MessageOrderRetrieved}, nil
}
