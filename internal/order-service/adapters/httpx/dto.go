package httpx

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jcmexdev/ecommerce-orders/internal/order-service/domain"
)

type CreateProductRequest struct {
	Name        string           `json:"name"`
	SKU         string           `json:"sku"`
	Category    string           `json:"category"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock"`
}

type PlaceOrderRequest struct {
	Products []PlaceOrderItemDTO `json:"products"`
}

type PlaceOrderItemDTO struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type ProductResponse struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name"`
	SKU         string      `json:"sku"`
	Category    string      `json:"category"`
	Description *string     `json:"description"`
	Price       json.Number `json:"price"`
	Stock       int         `json:"stock"`
	CreatedAt   time.Time   `json:"created_at"`
}

type OrderProductResponse struct {
	Product  ProductResponse `json:"product"`
	Quantity int             `json:"quantity"`
}

type OrderDetailsResponse struct {
	ID         int64                  `json:"id"`
	Products   []OrderProductResponse `json:"products"`
	TotalPrice json.Number            `json:"total_price"`
	Status     string                 `json:"status"`
	CreatedAt  time.Time              `json:"created_at"`
	Message    string                 `json:"message"`
}

type OrderResponse struct {
	ID         int64       `json:"id"`
	TotalPrice json.Number `json:"total_price"`
	Status     string      `json:"status"`
	Message    string      `json:"message"`
}

type HistoryEntryResponse struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	TraceID   string    `json:"trace_id,omitempty"`
	SpanID    string    `json:"span_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type OrderHistoryResponse struct {
	OrderID int64                  `json:"order_id"`
	Entries []HistoryEntryResponse `json:"entries"`
}

type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error   string             `json:"error"`
	Message string             `json:"message,omitempty"`
	Field   string             `json:"field,omitempty"`
	Items   []domain.Shortfall `json:"items,omitempty"`
}

// money renders d with exactly two decimals as a JSON number.
func money(d decimal.Decimal) json.Number {
	return json.Number(d.StringFixed(2))
}

func mapProduct(p domain.Product) ProductResponse {
	return ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		SKU:         p.SKU,
		Category:    p.Category,
		Description: p.Description,
		Price:       money(p.Price),
		Stock:       p.Stock,
		CreatedAt:   p.CreatedAt,
	}
}

func mapProducts(ps []domain.Product) []ProductResponse {
	out := make([]ProductResponse, len(ps))
	for i, p := range ps {
		out[i] = mapProduct(p)
	}
	return out
}

func mapOrderDetails(d *domain.OrderDetails) OrderDetailsResponse {
	lines := make([]OrderProductResponse, len(d.Lines))
	for i, l := range d.Lines {
		lines[i] = OrderProductResponse{Product: mapProduct(l.Product), Quantity: l.Quantity}
	}
	return OrderDetailsResponse{
		ID:         d.ID,
		Products:   lines,
		TotalPrice: money(d.TotalPrice),
		Status:     string(d.Status),
		CreatedAt:  d.CreatedAt,
		Message:    d.Message,
	}
}

func mapOrder(o *domain.Order, message string) OrderResponse {
	return OrderResponse{
		ID:         o.ID,
		TotalPrice: money(o.TotalPrice),
		Status:     string(o.Status),
		Message:    message,
	}
}

func mapHistory(orderID int64, entries []domain.HistoryEntry) OrderHistoryResponse {
	out := make([]HistoryEntryResponse, len(entries))
	for i, e := range entries {
		out[i] = HistoryEntryResponse{
			Status:    string(e.Status),
			Message:   e.Message,
			TraceID:   e.TraceID,
			SpanID:    e.SpanID,
			CreatedAt: e.CreatedAt,
		}
	}
	return OrderHistoryResponse{OrderID: orderID, Entries: out}
}
