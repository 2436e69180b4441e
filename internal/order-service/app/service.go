package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jcmexdev/ecommerce-orders/internal/order-service/domain"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/ports"
	"github.com/jcmexdev/ecommerce-orders/internal/pkg/cache"
	"github.com/jcmexdev/ecommerce-orders/internal/pkg/metrics"
)

const (
	DefaultMaxPageSize = 100

	MessageOrderAlreadyPlaced = "Order already placed"

	idempotencyOperation = "order:place"
	pendingMarker        = "pending"
	maxPendingTTL        = time.Minute
)

type Config struct {
	MaxPageSize int
	// EventsTopic enables the order.completed outbox event when set.
	EventsTopic string

	// Cache enables idempotent PlaceOrder for requests carrying a key.
	Cache          cache.Cache
	IdempotencyTTL time.Duration

	Metrics *metrics.ServerMetrics
	Logger  *slog.Logger
}

// Service runs every catalog and order operation in its own storage
// transaction and adds tracing, metrics and idempotency around the core.
type Service struct {
	store  ports.Store
	cfg    Config
	tracer trace.Tracer
	logger *slog.Logger
}

var (
	_ ports.CatalogService = (*Service)(nil)
	_ ports.OrderService   = (*Service)(nil)
)

func NewService(store ports.Store, cfg Config) *Service {
	if cfg.MaxPageSize < 1 {
		cfg.MaxPageSize = DefaultMaxPageSize
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  store,
		cfg:    cfg,
		tracer: otel.Tracer("order-service/app"),
		logger: logger.With("component", "order_service"),
	}
}

func (s *Service) CreateProduct(ctx context.Context, in domain.NewProduct) (*domain.Product, error) {
	ctx, span := s.tracer.Start(ctx, "Ledger.CreateProduct")
	defer span.End()

	var created *domain.Product
	err := s.store.WithinTx(ctx, func(r ports.Repositories) error {
		p, err := NewLedger(r.Products, s.cfg.MaxPageSize).Create(ctx, in)
		created = p
		return err
	})
	if err != nil {
		endWithError(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.Int64("product.id", created.ID), attribute.String("product.sku", created.SKU))
	s.logger.InfoContext(ctx, "product created", "product_id", created.ID, "sku", created.SKU)
	return created, nil
}

func (s *Service) ListProducts(ctx context.Context, offset, limit int) ([]domain.Product, error) {
	ctx, span := s.tracer.Start(ctx, "Ledger.ListProducts",
		trace.WithAttributes(attribute.Int("page.offset", offset), attribute.Int("page.limit", limit)))
	defer span.End()

	products, err := NewLedger(s.store.Repositories().Products, s.cfg.MaxPageSize).ListProducts(ctx, offset, limit)
	if err != nil {
		endWithError(span, err)
		return nil, err
	}
	return products, nil
}

// GetProduct returns *domain.NotFoundError for an unknown id.
func (s *Service) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	ctx, span := s.tracer.Start(ctx, "Ledger.GetProduct", trace.WithAttributes(attribute.Int64("product.id", id)))
	defer span.End()

	p, err := NewLedger(s.store.Repositories().Products, s.cfg.MaxPageSize).Get(ctx, id)
	if err != nil {
		endWithError(span, err)
		return nil, err
	}
	if p == nil {
		return nil, &domain.NotFoundError{Entity: "Product", ID: id}
	}
	return p, nil
}

// PlaceOrder runs the order transaction. With a non-empty idempotencyKey and a
// configured cache, a repeated key returns the order first placed under it and
// a repeat racing an unfinished placement fails with DuplicateRequestError.
func (s *Service) PlaceOrder(ctx context.Context, idempotencyKey string, items []domain.LineItem) (*domain.OrderDetails, error) {
	ctx, span := s.tracer.Start(ctx, "OrderEngine.PlaceOrder",
		trace.WithAttributes(attribute.Int("order.line_items", len(items))))
	defer span.End()

	cacheKey := s.idempotencyKey(idempotencyKey)
	reserved := false
	if cacheKey != "" {
		prior, ok, err := s.reserve(ctx, idempotencyKey, cacheKey)
		if err != nil {
			s.rejected(err)
			endWithError(span, err)
			return nil, err
		}
		if prior != nil {
			span.SetAttributes(attribute.Bool("order.replayed", true), attribute.Int64("order.id", prior.ID))
			return prior, nil
		}
		reserved = ok
	}

	var placed *domain.OrderDetails
	err := s.store.WithinTx(ctx, func(r ports.Repositories) error {
		d, err := NewEngine(r, s.cfg.EventsTopic).PlaceOrder(ctx, items)
		placed = d
		return err
	})
	if err != nil {
		if reserved {
			s.release(ctx, cacheKey)
		}
		s.rejected(err)
		endWithError(span, err)
		return nil, err
	}

	if s.cfg.Metrics != nil {
		s.cfg.Metrics.OrdersPlaced.Inc()
		s.cfg.Metrics.StockDecrement.Add(float64(unitsOrdered(placed.Items)))
	}
	if reserved {
		if err := s.cfg.Cache.Set(context.WithoutCancel(ctx), cacheKey, placed.ID, s.cfg.IdempotencyTTL); err != nil {
			s.logger.WarnContext(ctx, "store idempotency key", "key", cacheKey, "error", err)
		}
	}

	span.SetAttributes(attribute.Int64("order.id", placed.ID), attribute.String("order.total_price", placed.TotalPrice.StringFixed(2)))
	s.logger.InfoContext(ctx, "order placed",
		"order_id", placed.ID,
		"total_price", placed.TotalPrice.StringFixed(2),
		"line_items", len(placed.Items),
	)
	return placed, nil
}

func (s *Service) ProcessOrder(ctx context.Context, id int64) (*domain.Order, string, error) {
	ctx, span := s.tracer.Start(ctx, "OrderEngine.ProcessOrder", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	var (
		processed *domain.Order
		message   string
	)
	err := s.store.WithinTx(ctx, func(r ports.Repositories) error {
		o, msg, err := NewEngine(r, s.cfg.EventsTopic).ProcessOrder(ctx, id)
		processed, message = o, msg
		return err
	})
	if err != nil {
		endWithError(span, err)
		return nil, "", err
	}

	span.SetAttributes(attribute.String("order.status", string(processed.Status)))
	return processed, message, nil
}

// GetOrder returns (nil, nil) for an unknown id.
func (s *Service) GetOrder(ctx context.Context, id int64) (*domain.OrderDetails, error) {
	ctx, span := s.tracer.Start(ctx, "OrderQuery.GetOrderWithDetails", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	r := s.store.Repositories()
	d, err := NewQuery(r.Orders, r.Products).GetOrderWithDetails(ctx, id)
	if err != nil {
		endWithError(span, err)
		return nil, err
	}
	return d, nil
}

// OrderHistory returns *domain.NotFoundError for an unknown order.
func (s *Service) OrderHistory(ctx context.Context, id int64) ([]domain.HistoryEntry, error) {
	ctx, span := s.tracer.Start(ctx, "OrderQuery.History", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	r := s.store.Repositories()
	o, err := r.Orders.Get(ctx, id)
	if err != nil {
		endWithError(span, err)
		return nil, err
	}
	if o == nil {
		return nil, &domain.NotFoundError{Entity: "Order", ID: id}
	}

	entries, err := r.History.List(ctx, id)
	if err != nil {
		endWithError(span, err)
		return nil, err
	}
	return entries, nil
}

func (s *Service) idempotencyKey(key string) string {
	if key == "" || s.cfg.Cache == nil {
		return ""
	}
	return s.cfg.Cache.GenerateKey(idempotencyOperation, key)
}

// reserve claims cacheKey before a placement starts. It returns the order
// already recorded under the key, or reports whether this call now holds the
// claim. A claim still held by an unfinished placement yields
// *domain.DuplicateRequestError. When the cache itself fails the placement
// proceeds without a claim.
func (s *Service) reserve(ctx context.Context, key, cacheKey string) (*domain.OrderDetails, bool, error) {
	ok, err := s.cfg.Cache.SetNX(ctx, cacheKey, pendingMarker, s.pendingTTL())
	if err != nil {
		s.logger.WarnContext(ctx, "reserve idempotency key", "key", cacheKey, "error", err)
		return nil, false, nil
	}
	if ok {
		return nil, true, nil
	}

	v, err := s.cfg.Cache.Get(ctx, cacheKey)
	if err != nil {
		s.logger.WarnContext(ctx, "read idempotency key", "key", cacheKey, "error", err)
		return nil, false, &domain.DuplicateRequestError{Key: key}
	}
	if v == "" || v == pendingMarker {
		return nil, false, &domain.DuplicateRequestError{Key: key}
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, false, fmt.Errorf("service: malformed idempotency entry %q under %s", v, cacheKey)
	}

	r := s.store.Repositories()
	d, err := NewQuery(r.Orders, r.Products).GetOrderWithDetails(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if d == nil {
		return nil, false, fmt.Errorf("service: idempotency key %s refers to missing order %d", cacheKey, id)
	}
	d.Message = MessageOrderAlreadyPlaced
	return d, false, nil
}

// release drops a claim after a failed placement so the key can be retried.
func (s *Service) release(ctx context.Context, cacheKey string) {
	if err := s.cfg.Cache.Delete(context.WithoutCancel(ctx), cacheKey); err != nil {
		s.logger.WarnContext(ctx, "release idempotency key", "key", cacheKey, "error", err)
	}
}

// pendingTTL bounds how long a claim outlives a crashed placement.
func (s *Service) pendingTTL() time.Duration {
	if s.cfg.IdempotencyTTL > 0 && s.cfg.IdempotencyTTL < maxPendingTTL {
		return s.cfg.IdempotencyTTL
	}
	return maxPendingTTL
}

func (s *Service) rejected(err error) {
	if s.cfg.Metrics == nil {
		return
	}
	s.cfg.Metrics.OrdersRejected.WithLabelValues(reason(err)).Inc()
}

// reason classifies err for metrics and span status.
func reason(err error) string {
	var (
		validation *domain.ValidationError
		notFound   *domain.NotFoundError
		conflict   *domain.ConflictError
		short      *domain.InsufficientStockError
		duplicate  *domain.DuplicateRequestError
	)
	switch {
	case errors.As(err, &validation):
		return "validation"
	case errors.As(err, &notFound):
		return "not_found"
	case errors.As(err, &conflict):
		return "conflict"
	case errors.As(err, &short):
		return "insufficient_stock"
	case errors.As(err, &duplicate):
		return "in_progress"
	default:
		return "internal"
	}
}

// endWithError marks the span failed for unexpected errors only; business
// rejections are recorded as an event.
func endWithError(span trace.Span, err error) {
	r := reason(err)
	if r == "internal" {
		span.RecordError(err)
		span.SetStatus(codes.Error, "internal error")
		return
	}
	span.AddEvent("rejected", trace.WithAttributes(attribute.String("reason", r), attribute.String("error", err.Error())))
}
