package ports

import (
	"context"

	"github.com/jcmexdev/ecommerce-orders/internal/order-service/domain"
)

type CatalogService interface {
	CreateProduct(ctx context.Context, in domain.NewProduct) (*domain.Product, error)
	ListProducts(ctx context.Context, offset, limit int) ([]domain.Product, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
}

type OrderService interface {
	PlaceOrder(ctx context.Context, idempotencyKey string, items []domain.LineItem) (*domain.OrderDetails, error)
	ProcessOrder(ctx context.Context, id int64) (*domain.Order, string, error)
	// GetOrder returns (nil, nil) for an unknown id.
	GetOrder(ctx context.Context, id int64) (*domain.OrderDetails, error)
	OrderHistory(ctx context.Context, id int64) ([]domain.HistoryEntry, error)
}
