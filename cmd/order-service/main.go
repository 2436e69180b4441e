package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jcmexdev/ecommerce-orders/internal/order-service/adapters/grpcx"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/adapters/httpx"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/adapters/sqlstore"
	"github.com/jcmexdev/ecommerce-orders/internal/order-service/app"
	"github.com/jcmexdev/ecommerce-orders/internal/pkg/cache"
	"github.com/jcmexdev/ecommerce-orders/internal/pkg/config"
	"github.com/jcmexdev/ecommerce-orders/internal/pkg/events"
	"github.com/jcmexdev/ecommerce-orders/internal/pkg/metrics"
	"github.com/jcmexdev/ecommerce-orders/internal/pkg/outbox"
	"github.com/jcmexdev/ecommerce-orders/internal/pkg/telemetry"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("order service exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := telemetry.InitLogger(cfg.ServiceName, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.SetupTracer(ctx, cfg.ServiceName, cfg.OtelEndpoint, cfg.Environment)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(shutdownCtx); err != nil {
			logger.Error("tracer shutdown error", "error", err)
		}
	}()

	store, err := sqlstore.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer store.Close()
	logger.Info("storage ready", "dialect", store.Dialect())

	srvMetrics := metrics.NewServerMetrics("order_service", nil)

	svcCfg := app.Config{
		MaxPageSize:    cfg.MaxPageSize,
		IdempotencyTTL: cfg.IdempotencyTTL,
		Metrics:        srvMetrics,
		Logger:         logger,
	}
	idemCache, closeCache := newIdempotencyCache(ctx, cfg, logger)
	defer closeCache()
	svcCfg.Cache = idemCache

	var publisher *events.Publisher
	if cfg.EventsEnabled() {
		producer, err := events.NewProducer(events.ParseBrokers(cfg.KafkaBrokers), cfg.ServiceName)
		if err != nil {
			return err
		}
		publisher = events.NewPublisher(producer)
		defer publisher.Close()
		svcCfg.EventsTopic = cfg.OrderEventsTopic
	}

	svc := app.NewService(store, svcCfg)

	handler := httpx.NewHandler(svc, svc, store.Ping, logger)
	httpServer := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: httpx.NewRouter(handler, httpx.RouterOptions{
			ServiceName:    cfg.ServiceName,
			Logger:         logger,
			Metrics:        srvMetrics,
			MetricsHandler: metrics.Handler(),
			Timeout:        cfg.RequestTimeout,
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpcx.NewServer(cfg.ServiceName, store.Ping, logger)
	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("order service HTTP running", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		logger.Info("order service gRPC running", "addr", cfg.GRPCAddr)
		return grpcServer.Serve(lis)
	})
	g.Go(func() error {
		grpcServer.Watch(gctx, 5*time.Second)
		return nil
	})
	if publisher != nil {
		relay := outbox.NewRelay(store.Repositories().Outbox, publisher, cfg.OutboxPollInterval, cfg.OutboxBatchSize, logger)
		g.Go(func() error { return relay.Run(gctx) })
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		grpcServer.GracefulStop()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// newIdempotencyCache picks redis when an address is configured and an
// in-process cache otherwise, so keys are honoured on a single instance too.
func newIdempotencyCache(ctx context.Context, cfg *config.Config, logger *slog.Logger) (cache.Cache, func()) {
	if cfg.RedisAddr == "" {
		logger.Info("idempotency keys kept in process memory")
		return cache.NewMemory(cfg.ServiceName), func() {}
	}
	redisCache := cache.NewRedisCache(cfg.RedisAddr, cfg.ServiceName)
	if err := redisCache.Ping(ctx); err != nil {
		logger.Warn("redis unreachable, idempotency keys degrade to plain placement", "addr", cfg.RedisAddr, "error", err)
	}
	return redisCache, func() { _ = redisCache.Close() }
}
