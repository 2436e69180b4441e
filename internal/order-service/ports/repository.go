package ports

import (
	"context"

	"github.com/jcmexdev/ecommerce-orders/internal/order-service/domain"
	"github.com/jcmexdev/ecommerce-orders/internal/pkg/outbox"
)

// ProductRepository reads and mutates product rows. Lookups return (nil, nil)
// when no row matches.
type ProductRepository interface {
	Get(ctx context.Context, id int64) (*domain.Product, error)
	GetByName(ctx context.Context, name string) (*domain.Product, error)
	GetBySKU(ctx context.Context, sku string) (*domain.Product, error)
	// GetForUpdate is Get plus a row lock held until the transaction ends,
	// on engines that support one.
	GetForUpdate(ctx context.Context, id int64) (*domain.Product, error)
	List(ctx context.Context, offset, limit int) ([]domain.Product, error)
	// Insert returns *domain.ConflictError when a unique constraint fires.
	Insert(ctx context.Context, in domain.NewProduct) (*domain.Product, error)
	// ApplyStockDelta adds delta to stock in one statement, clamping at 0.
	ApplyStockDelta(ctx context.Context, id int64, delta int) (*domain.Product, error)
}

type OrderRepository interface {
	// Insert persists o and sets its ID.
	Insert(ctx context.Context, o *domain.Order) error
	Get(ctx context.Context, id int64) (*domain.Order, error)
	UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) error
}

// HistoryRepository is the append-only audit trail of order status changes.
type HistoryRepository interface {
	Append(ctx context.Context, entry *domain.HistoryEntry) error
	List(ctx context.Context, orderID int64) ([]domain.HistoryEntry, error)
}

type OutboxRepository interface {
	outbox.Source
	Enqueue(ctx context.Context, topic, key string, payload any) error
}

// Repositories is one set of repositories bound to the same connection or
// transaction.
type Repositories struct {
	Products ProductRepository
	Orders   OrderRepository
	History  HistoryRepository
	Outbox   OutboxRepository
}

// Store hands out repositories. WithinTx commits when fn returns nil and rolls
// back on any error, including a panic inside fn.
type Store interface {
	Repositories() Repositories
	WithinTx(ctx context.Context, fn func(Repositories) error) error
	Ping(ctx context.Context) error
	Close() error
}
