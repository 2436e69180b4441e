package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcmexdev/ecommerce-orders/internal/order-service/adapters/sqlstore"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/app"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/domain"
	"github.com/jcmexdev/ecommerce-orders/internal/pkg/cache"
	"github.com/jcmexdev/ecommerce-orders/internal/pkg/metrics"
)

type testServer struct {
	t       *testing.T
	handler http.Handler
	cache   *cache.Memory
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store, err := sqlstore.Open(context.Background(), "file:"+filepath.Join(t.TempDir(), "orders.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	m := metrics.NewServerMetrics("test", reg)
	c := cache.NewMemory("order-service")
	svc := app.NewService(store, app.Config{
		MaxPageSize: 100,
		Cache:       c,
		Metrics:     m,
		Logger:      logger,
	})

	h := NewHandler(svc, svc, store.Ping, logger)
	return &testServer{t: t, cache: c, handler: NewRouter(h, RouterOptions{
		Logger:         logger,
		Metrics:        m,
		MetricsHandler: metrics.HandlerFor(reg),
	})}
}

func (s *testServer) do(method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	s.t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(s.t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func productBody(name, sku string, price string, stock int) map[string]any {
	return map[string]any{
		"name":        name,
		"sku":         sku,
		"category":    "Electronics",
		"description": "A product used in tests",
		"price":       json.Number(price),
		"stock":       stock,
	}
}

func (s *testServer) createProduct(name, sku, price string, stock int) ProductResponse {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/products", productBody(name, sku, price, stock))
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[ProductResponse](s.t, rec)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode[HealthResponse](t, rec).Status)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestHealthReportsStorageFailure(t *testing.T) {
	h := NewHandler(nil, nil, func(context.Context) error { return errors.New("down") }, slog.New(slog.NewJSONHandler(io.Discard, nil)))
	rec := httptest.NewRecorder()
	NewRouter(h, RouterOptions{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCreateProduct(t *testing.T) {
	s := newTestServer(t)

	p := s.createProduct("Test Product", "test-001", "99.99", 10)
	assert.Equal(t, "TEST-001", p.SKU)
	assert.Equal(t, json.Number("99.99"), p.Price)
	assert.Equal(t, 10, p.Stock)

	rec := s.do(http.MethodGet, fmt.Sprintf("/products/%d", p.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[ProductResponse](t, rec)
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, p.Name, got.Name)
	assert.Equal(t, "A product used in tests", *got.Description)
}

func TestCreateProductDuplicates(t *testing.T) {
	s := newTestServer(t)
	s.createProduct("Test Product", "TEST-001", "99.99", 10)

	rec := s.do(http.MethodPost, "/products", productBody("Test Product", "TEST-002", "1.00", 1))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "product with name 'Test Product' already exists", decode[ErrorResponse](t, rec).Message)

	rec = s.do(http.MethodPost, "/products", productBody("Other Product", "test-001", "1.00", 1))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "product with SKU 'TEST-001' already exists", decode[ErrorResponse](t, rec).Message)
}

func TestCreateProductValidation(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name  string
		mut   func(b map[string]any)
		field string
	}{
		{"short name", func(b map[string]any) { b["name"] = "ab" }, "name"},
		{"short name after trim", func(b map[string]any) { b["name"] = "  ab " }, "name"},
		{"blank category", func(b map[string]any) { b["category"] = "   " }, "category"},
		{"short sku after trim", func(b map[string]any) { b["sku"] = " AB " }, "sku"},
		{"bad name characters", func(b map[string]any) { b["name"] = "Lamp <script>" }, "name"},
		{"bad sku", func(b map[string]any) { b["sku"] = "SKU_001" }, "sku"},
		{"short category", func(b map[string]any) { b["category"] = "E" }, "category"},
		{"short description", func(b map[string]any) { b["description"] = "short" }, "description"},
		{"zero price", func(b map[string]any) { b["price"] = json.Number("0") }, "price"},
		{"three decimals", func(b map[string]any) { b["price"] = json.Number("10.999") }, "price"},
		{"missing price", func(b map[string]any) { delete(b, "price") }, "price"},
		{"negative stock", func(b map[string]any) { b["stock"] = -1 }, "stock"},
		{"missing stock", func(b map[string]any) { delete(b, "stock") }, "stock"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := productBody("Valid Name", "VALID-1", "10.00", 1)
			tt.mut(body)
			rec := s.do(http.MethodPost, "/products", body)
			require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
			assert.Equal(t, tt.field, decode[ErrorResponse](t, rec).Field)
		})
	}

	rec := s.do(http.MethodPost, "/products", `{"name":`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestCreateProductWithoutDescription(t *testing.T) {
	s := newTestServer(t)
	body := productBody("No Description", "NODESC-1", "5.00", 1)
	delete(body, "description")

	rec := s.do(http.MethodPost, "/products", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"description":null`)
}

func TestListProducts(t *testing.T) {
	s := newTestServer(t)
	for i := 0; i < 3; i++ {
		s.createProduct(fmt.Sprintf("Product %d", i), fmt.Sprintf("PROD-%d", i), "1.00", 1)
	}

	rec := s.do(http.MethodGet, "/products?skip=1&limit=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[[]ProductResponse](t, rec)
	require.Len(t, page, 1)
	assert.Equal(t, "Product 1", page[0].Name)

	rec = s.do(http.MethodGet, "/products", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]ProductResponse](t, rec), 3)

	for _, q := range []string{"skip=-1", "limit=0", "limit=101", "limit=abc"} {
		rec = s.do(http.MethodGet, "/products?"+q, nil)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, q)
	}
}

func TestGetProductNotFound(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodGet, "/products/999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodGet, "/products/abc", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestPlaceOrder(t *testing.T) {
	s := newTestServer(t)
	a := s.createProduct("Product A", "PROD-A", "99.99", 10)
	b := s.createProduct("Product B", "PROD-B", "199.99", 5)

	rec := s.do(http.MethodPost, "/orders", map[string]any{
		"products": []map[string]any{
			{"product_id": a.ID, "quantity": 2},
			{"product_id": b.ID, "quantity": 1},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	order := decode[OrderDetailsResponse](t, rec)
	assert.Equal(t, json.Number("399.97"), order.TotalPrice)
	assert.Equal(t, "completed", order.Status)
	assert.Equal(t, "Order placed successfully", order.Message)
	require.Len(t, order.Products, 2)
	assert.Equal(t, 2, order.Products[0].Quantity)

	rec = s.do(http.MethodGet, fmt.Sprintf("/products/%d", a.ID), nil)
	assert.Equal(t, 8, decode[ProductResponse](t, rec).Stock)
	rec = s.do(http.MethodGet, fmt.Sprintf("/products/%d", b.ID), nil)
	assert.Equal(t, 4, decode[ProductResponse](t, rec).Stock)

	rec = s.do(http.MethodGet, fmt.Sprintf("/orders/%d", order.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[OrderDetailsResponse](t, rec)
	assert.Equal(t, "Order details retrieved successfully", got.Message)
	assert.Equal(t, order.TotalPrice, got.TotalPrice)
}

func TestPlaceOrderErrors(t *testing.T) {
	s := newTestServer(t)
	p := s.createProduct("Scarce Item", "SCARCE-1", "10.00", 3)

	rec := s.do(http.MethodPost, "/orders", map[string]any{
		"products": []map[string]any{{"product_id": 999, "quantity": 1}},
	})
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Product with ID 999 not found", decode[ErrorResponse](t, rec).Message)

	rec = s.do(http.MethodPost, "/orders", map[string]any{
		"products": []map[string]any{{"product_id": p.ID, "quantity": 5}},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[ErrorResponse](t, rec)
	assert.Equal(t, "insufficient_stock", body.Error)
	assert.Equal(t, []domain.Shortfall{{ProductID: p.ID, AvailableStock: 3, RequestedQuantity: 5}}, body.Items)

	for _, payload := range []any{
		map[string]any{"products": []map[string]any{}},
		map[string]any{"products": []map[string]any{{"product_id": p.ID, "quantity": 0}}},
		map[string]any{"products": []map[string]any{{"product_id": p.ID}}},
		`{"products": "nope"}`,
	} {
		rec = s.do(http.MethodPost, "/orders", payload)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
	}

	rec = s.do(http.MethodGet, fmt.Sprintf("/products/%d", p.ID), nil)
	assert.Equal(t, 3, decode[ProductResponse](t, rec).Stock)
}

func TestPlaceOrderIdempotencyKey(t *testing.T) {
	s := newTestServer(t)
	p := s.createProduct("Widget Item", "WID-1", "2.00", 10)
	body := map[string]any{"products": []map[string]any{{"product_id": p.ID, "quantity": 1}}}

	first := decode[OrderDetailsResponse](t, s.do(http.MethodPost, "/orders", body, "X-Idempotency-Key", "abc"))
	second := decode[OrderDetailsResponse](t, s.do(http.MethodPost, "/orders", body, "X-Idempotency-Key", "abc"))

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Order already placed", second.Message)

	rec := s.do(http.MethodGet, fmt.Sprintf("/products/%d", p.ID), nil)
	assert.Equal(t, 9, decode[ProductResponse](t, rec).Stock)
}

func TestPlaceOrderKeyStillInFlight(t *testing.T) {
	s := newTestServer(t)
	p := s.createProduct("Widget Item", "WID-1", "2.00", 10)
	_, err := s.cache.SetNX(context.Background(), s.cache.GenerateKey("order:place", "held"), "pending", time.Minute)
	require.NoError(t, err)

	body := map[string]any{"products": []map[string]any{{"product_id": p.ID, "quantity": 1}}}
	rec := s.do(http.MethodPost, "/orders", body, "X-Idempotency-Key", "held")
	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())
	assert.Equal(t, "request_in_progress", decode[ErrorResponse](t, rec).Error)

	rec = s.do(http.MethodGet, fmt.Sprintf("/products/%d", p.ID), nil)
	assert.Equal(t, 10, decode[ProductResponse](t, rec).Stock)
}

func TestGetOrderNotFound(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodGet, "/orders/999", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Order not found", decode[ErrorResponse](t, rec).Message)
}

func TestProcessOrderAndHistory(t *testing.T) {
	s := newTestServer(t)
	p := s.createProduct("Widget Item", "WID-1", "2.00", 10)
	order := decode[OrderDetailsResponse](t, s.do(http.MethodPost, "/orders", map[string]any{
		"products": []map[string]any{{"product_id": p.ID, "quantity": 1}},
	}))

	rec := s.do(http.MethodPost, fmt.Sprintf("/orders/%d/process", order.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	processed := decode[OrderResponse](t, rec)
	assert.Equal(t, "Order already completed", processed.Message)
	assert.Equal(t, json.Number("2.00"), processed.TotalPrice)

	rec = s.do(http.MethodGet, fmt.Sprintf("/orders/%d/history", order.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	history := decode[OrderHistoryResponse](t, rec)
	require.Len(t, history.Entries, 2)
	assert.Equal(t, "pending", history.Entries[0].Status)
	assert.Equal(t, "completed", history.Entries[1].Status)

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodPost, "/orders/999/process", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, "/orders/999/history", nil).Code)
}

type failingCatalog struct{}

func (failingCatalog) CreateProduct(context.Context, domain.NewProduct) (*domain.Product, error) {
	return nil, errors.New("pq: connection reset by peer")
}
func (failingCatalog) ListProducts(context.Context, int, int) ([]domain.Product, error) {
	return nil, errors.New("pq: connection reset by peer")
}
func (failingCatalog) GetProduct(context.Context, int64) (*domain.Product, error) {
	return nil, errors.New("pq: connection reset by peer")
}

func TestInternalErrorsAreOpaque(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))
	h := NewHandler(failingCatalog{}, nil, nil, logger)

	rec := httptest.NewRecorder()
	NewRouter(h, RouterOptions{Logger: logger}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode[ErrorResponse](t, rec)
	assert.Equal(t, internalErrorMessage, body.Message)
	assert.NotContains(t, rec.Body.String(), "connection reset")
	assert.Contains(t, logs.String(), "connection reset")
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.do(http.MethodGet, "/products", nil)

	rec := s.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `orders_test_http_requests_total{handler="GET /products`)
	assert.Contains(t, rec.Body.String(), "orders_test_http_request_duration_ms")
}
