package domain

import (
	"fmt"
	"strings"
)

// ValidationError reports malformed or out-of-range input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError reports a referenced entity id that does not exist.
type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %d not found", e.Entity, e.ID)
}

// ConflictError reports a uniqueness violation on create. Field is the
// column whose constraint fired ("name" or "sku").
// ConflictError reports a uniqueness violation. An empty Field means the
// store could not tell which constraint was hit.
type ConflictError struct {
	Field string
	Value string
}

func (e *ConflictError) Error() string {
	if e.Field == "" {
		return "Database integrity error occurred"
	}
	label := e.Field
	if label == "sku" {
		label = "SKU"
	}
	if e.Value == "" {
		return fmt.Sprintf("a product with this %s already exists", label)
	}
	return fmt.Sprintf("product with %s '%s' already exists", label, e.Value)
}

type Shortfall struct {
	ProductID         int64 `json:"product_id"`
	AvailableStock    int   `json:"available_stock"`
	RequestedQuantity int   `json:"requested_quantity"`
}

// InsufficientStockError carries every short item of a batch, not only the
// first one found.
type InsufficientStockError struct {
	Items []Shortfall
}

func (e *InsufficientStockError) Error() string {
	ids := make([]string, len(e.Items))
	for i, it := range e.Items {
		ids[i] = fmt.Sprintf("%d (available %d, requested %d)", it.ProductID, it.AvailableStock, it.RequestedQuantity)
	}
	return "insufficient stock for products: " + strings.Join(ids, ", ")
}

// DuplicateRequestError reports an idempotency key whose first request has
// not finished yet.
type DuplicateRequestError struct {
	Key string
}

func (e *DuplicateRequestError) Error() string {
	return fmt.Sprintf("a request with idempotency key '%s' is still being processed", e.Key)
}
