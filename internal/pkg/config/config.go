// Package config loads the order service settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	ServiceName    = "order-service"
	ServiceVersion = "0.1.0"
)

type Config struct {
	ServiceName  string
	Environment  string
	LogLevel     string
	HTTPAddr     string
	GRPCAddr     string
	DatabaseURL  string
	OtelEndpoint string

	// RedisAddr shares idempotency keys through redis; empty keeps them in process.
	RedisAddr      string
	IdempotencyTTL time.Duration

	// KafkaBrokers enables the order event outbox relay when non-empty.
	KafkaBrokers       string
	OrderEventsTopic   string
	OutboxPollInterval time.Duration
	OutboxBatchSize    int

	MaxPageSize    int
	RequestTimeout time.Duration
}

// Load reads the configuration, applying defaults for unset variables.
func Load() (*Config, error) {
	cfg := &Config{
		ServiceName:      getEnv("OTEL_SERVICE_NAME", ServiceName),
		Environment:      getEnv("APP_ENV", "local"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		GRPCAddr:         getEnv("GRPC_ADDR", ":9090"),
		DatabaseURL:      getEnv("DATABASE_URL", "file:orders.db"),
		OtelEndpoint:     getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		RedisAddr:        getEnv("REDIS_ADDR", ""),
		KafkaBrokers:     getEnv("KAFKA_BROKERS", ""),
		OrderEventsTopic: getEnv("ORDER_EVENTS_TOPIC", "orders.events"),
	}

	var err error
	if cfg.IdempotencyTTL, err = durationEnv("IDEMPOTENCY_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.OutboxPollInterval, err = durationEnv("OUTBOX_POLL_INTERVAL", time.Second); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout, err = durationEnv("REQUEST_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.OutboxBatchSize, err = intEnv("OUTBOX_BATCH_SIZE", 100); err != nil {
		return nil, err
	}
	if cfg.MaxPageSize, err = intEnv("MAX_PAGE_SIZE", 100); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// EventsEnabled reports whether order events are written to the outbox.
func (c *Config) EventsEnabled() bool {
	return strings.TrimSpace(c.KafkaBrokers) != ""
}

func (c *Config) validate() error {
	if c.MaxPageSize < 1 {
		return fmt.Errorf("MAX_PAGE_SIZE must be at least 1, got %d", c.MaxPageSize)
	}
	if c.OutboxBatchSize < 1 {
		return fmt.Errorf("OUTBOX_BATCH_SIZE must be at least 1, got %d", c.OutboxBatchSize)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}
	if c.EventsEnabled() && c.OrderEventsTopic == "" {
		return fmt.Errorf("ORDER_EVENTS_TOPIC is required when KAFKA_BROKERS is set")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := getEnv(key, "")
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, v, err)
	}
	return d, nil
}

func intEnv(key string, fallback int) (int, error) {
	v := getEnv(key, "")
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, v, err)
	}
	return n, nil
}
