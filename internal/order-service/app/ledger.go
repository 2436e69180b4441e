package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/jcmexdev/ecommerce-orders/internal/order-service/domain"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/ports"
)

// Ledger owns product records and their stock counters. It works on whatever
// ProductRepository it is given, so binding it to a transaction's repositories
// makes every call part of that transaction.
type Ledger struct {
	products    ports.ProductRepository
	maxPageSize int
}

func NewLedger(products ports.ProductRepository, maxPageSize int) *Ledger {
	if maxPageSize < 1 {
		maxPageSize = DefaultMaxPageSize
	}
	return &Ledger{products: products, maxPageSize: maxPageSize}
}

// Get returns (nil, nil) when the id is unknown.
func (l *Ledger) Get(ctx context.Context, id int64) (*domain.Product, error) {
	return l.products.Get(ctx, id)
}

func (l *Ledger) GetByName(ctx context.Context, name string) (*domain.Product, error) {
	return l.products.GetByName(ctx, name)
}

func (l *Ledger) GetBySKU(ctx context.Context, sku string) (*domain.Product, error) {
	return l.products.GetBySKU(ctx, domain.NormalizeSKU(sku))
}

// ListProducts returns products in id order. A limit above the configured
// maximum is lowered to it.
func (l *Ledger) ListProducts(ctx context.Context, offset, limit int) ([]domain.Product, error) {
	if offset < 0 {
		return nil, &domain.ValidationError{Field: "skip", Reason: "must not be negative"}
	}
	if limit < 1 {
		return nil, &domain.ValidationError{Field: "limit", Reason: "must be at least 1"}
	}
	if limit > l.maxPageSize {
		limit = l.maxPageSize
	}
	return l.products.List(ctx, offset, limit)
}

// Create inserts a product after checking name and SKU uniqueness. A unique
// constraint firing on insert, when a concurrent writer won the race, yields
// the same *domain.ConflictError as the pre-check.
func (l *Ledger) Create(ctx context.Context, in domain.NewProduct) (*domain.Product, error) {
	in = in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	existing, err := l.products.GetByName(ctx, in.Name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, &domain.ConflictError{Field: "name", Value: in.Name}
	}

	existing, err = l.products.GetBySKU(ctx, in.SKU)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, &domain.ConflictError{Field: "sku", Value: in.SKU}
	}

	p, err := l.products.Insert(ctx, in)
	if err != nil {
		var conflict *domain.ConflictError
		if errors.As(err, &conflict) {
			return nil, conflict
		}
		return nil, fmt.Errorf("ledger: create product: %w", err)
	}
	return p, nil
}

// ApplyStockDelta adds delta to the product's stock. A result below zero is
// stored as zero. Returns (nil, nil) for an unknown id.
func (l *Ledger) ApplyStockDelta(ctx context.Context, id int64, delta int) (*domain.Product, error) {
	return l.products.ApplyStockDelta(ctx, id, delta)
}

// CheckStockAvailability reads the product under a row lock and reports
// whether quantity units are available. An unknown id yields (false, nil).
func (l *Ledger) CheckStockAvailability(ctx context.Context, id int64, quantity int) (bool, *domain.Product, error) {
	p, err := l.products.GetForUpdate(ctx, id)
	if err != nil {
		return false, nil, err
	}
	if p == nil {
		return false, nil, nil
	}
	return p.Stock >= quantity, p, nil
}
