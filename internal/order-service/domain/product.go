package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          int64
	Name        string
	SKU         string
	Category    string
	Description *string
	Price       decimal.Decimal
	Stock       int
	CreatedAt   time.Time
}

// NewProduct is the input accepted by the ledger when creating a product.
type NewProduct struct {
	Name        string
	SKU         string
	Category    string
	Description *string
	Price       decimal.Decimal
	Stock       int
}

// NormalizeSKU trims surrounding space and upper-cases the code.
func NormalizeSKU(sku string) string {
	return strings.ToUpper(strings.TrimSpace(sku))
}

// ValidPrice reports whether p is positive with at most two fractional digits.
func ValidPrice(p decimal.Decimal) bool {
	return p.IsPositive() && p.Equal(p.Truncate(2))
}

// Normalize returns a copy with trimmed name and category and a normalized SKU.
func (in NewProduct) Normalize() NewProduct {
	in.Name = strings.TrimSpace(in.Name)
	in.Category = strings.TrimSpace(in.Category)
	in.SKU = NormalizeSKU(in.SKU)
	return in
}

// Validate performs the checks the ledger relies on regardless of what the
// transport already did.
func (in NewProduct) Validate() error {
	switch {
	case in.Name == "":
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	case in.SKU == "":
		return &ValidationError{Field: "sku", Reason: "must not be empty"}
	case !ValidPrice(in.Price):
		return &ValidationError{Field: "price", Reason: "must be greater than zero with at most 2 decimal places"}
	case in.Stock < 0:
		return &ValidationError{Field: "stock", Reason: "must not be negative"}
	}
	return nil
}
