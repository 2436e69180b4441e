package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jcmexdev/ecommerce-orders/internal/order-service/domain"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/ports"
	"github.com/jcmexdev/ecommerce-orders/internal/pkg/interceptors"
)

const internalErrorMessage = "An unexpected error occurred. Please try again later."

// Handler serves the product and order endpoints.
type Handler struct {
	catalog ports.CatalogService
	orders  ports.OrderService
	health  func(ctx context.Context) error
	logger  *slog.Logger
}

// NewHandler wires the services. health may be nil, in which case the root
// endpoint always reports healthy.
func NewHandler(catalog ports.CatalogService, orders ports.OrderService, health func(ctx context.Context) error, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{catalog: catalog, orders: orders, health: health, logger: logger}
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health(r.Context()); err != nil {
			h.logger.ErrorContext(r.Context(), "health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unhealthy", Message: "storage unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "healthy", Message: "E-Commerce API is running"})
}

func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid_json", err.Error())
		return
	}

	in, err := req.toNewProduct()
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	p, err := h.catalog.CreateProduct(r.Context(), in)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, mapProduct(*p))
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	skip, limit, err := pagination(r.URL.Query())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	products, err := h.catalog.ListProducts(r.Context(), skip, limit)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapProducts(products))
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	p, err := h.catalog.GetProduct(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapProduct(*p))
}

// PlaceOrder honours the X-Idempotency-Key header through the order service.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid_json", err.Error())
		return
	}

	items, err := req.toLineItems()
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	d, err := h.orders.PlaceOrder(r.Context(), interceptors.IdempotencyKeyFromContext(r.Context()), items)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapOrderDetails(d))
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	d, err := h.orders.GetOrder(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	if d == nil {
		writeError(w, http.StatusNotFound, "not_found", "Order not found")
		return
	}
	writeJSON(w, http.StatusOK, mapOrderDetails(d))
}

func (h *Handler) ProcessOrder(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	o, msg, err := h.orders.ProcessOrder(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapOrder(o, msg))
}

func (h *Handler) OrderHistory(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	entries, err := h.orders.OrderHistory(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mapHistory(id, entries))
}

// writeDomainError maps the business error taxonomy to status codes. Any
// other error is logged and reported without detail.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validation *domain.ValidationError
		notFound   *domain.NotFoundError
		conflict   *domain.ConflictError
		short      *domain.InsufficientStockError
		duplicate  *domain.DuplicateRequestError
	)
	switch {
	case errors.As(err, &validation):
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{
			Error:   "validation_error",
			Message: validation.Error(),
			Field:   validation.Field,
		})
	case errors.As(err, &notFound):
		writeError(w, http.StatusNotFound, "not_found", notFound.Error())
	case errors.As(err, &conflict):
		writeError(w, http.StatusBadRequest, "conflict", conflict.Error())
	case errors.As(err, &short):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "insufficient_stock",
			Message: "Insufficient stock for some products",
			Items:   short.Items,
		})
	case errors.As(err, &duplicate):
		writeError(w, http.StatusConflict, "request_in_progress", duplicate.Error())
	default:
		h.logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", interceptors.RequestIDFromContext(r.Context()),
			"error", err,
		)
		writeError(w, http.StatusInternalServerError, "internal_error", internalErrorMessage)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{
		Error:   code,
		Message: msg,
	})
}
