package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusCompleted OrderStatus = "completed"
)

// LineItem is one requested product/quantity pair. Orders keep the list they
// were created with; it is never rewritten afterwards.
type LineItem struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type Order struct {
	ID         int64
	Items      []LineItem
	TotalPrice decimal.Decimal
	Status     OrderStatus
	CreatedAt  time.Time
}

// OrderLine pairs a stored line item with a product record.
type OrderLine struct {
	Product  Product
	Quantity int
}

func (l OrderLine) Subtotal() decimal.Decimal {
	return l.Product.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// OrderDetails is an order together with its resolved lines and the message
// reported to the caller.
type OrderDetails struct {
	Order
	Lines   []OrderLine
	Message string
}

// TotalPrice sums price x quantity over lines and rounds to cents.
func TotalPrice(lines []OrderLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
	}
	return total.Round(2)
}

// ValidateItems rejects empty batches and non-positive ids or quantities.
func ValidateItems(items []LineItem) error {
	if len(items) == 0 {
		return &ValidationError{Field: "products", Reason: "at least one item is required"}
	}
	for _, it := range items {
		if it.ProductID <= 0 {
			return &ValidationError{Field: "product_id", Reason: "must be a positive integer"}
		}
		if it.Quantity <= 0 {
			return &ValidationError{Field: "quantity", Reason: "must be greater than zero"}
		}
	}
	return nil
}
