package httpx

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/jcmexdev/ecommerce-orders/internal/order-service/adapters/httpx/middlewares"
	"github.com/jcmexdev/ecommerce-orders/internal/pkg/metrics"
)

type RouterOptions struct {
	ServiceName string
	Logger      *slog.Logger
	// Metrics adds per-route request metrics when set.
	Metrics *metrics.ServerMetrics
	// MetricsHandler is mounted at GET /metrics when set.
	MetricsHandler http.Handler
	// Timeout bounds each request's context when positive.
	Timeout time.Duration
}

func NewRouter(handler *Handler, opts RouterOptions) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middlewares.AttachRequestMetadata)
	r.Use(middlewares.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware)
	}
	if opts.Timeout > 0 {
		r.Use(middleware.Timeout(opts.Timeout))
	}

	r.Get("/", handler.Health)
	if opts.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", opts.MetricsHandler)
	}

	r.Route("/products", func(r chi.Router) {
		r.Post("/", handler.CreateProduct)
		r.Get("/", handler.ListProducts)
		r.Get("/{id}", handler.GetProduct)
	})
	r.Route("/orders", func(r chi.Router) {
		r.Post("/", handler.PlaceOrder)
		r.Get("/{id}", handler.GetOrder)
		r.Post("/{id}/process", handler.ProcessOrder)
		r.Get("/{id}/history", handler.OrderHistory)
	})

	name := opts.ServiceName
	if name == "" {
		name = "order-service"
	}
	return otelhttp.NewHandler(r, name,
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}
