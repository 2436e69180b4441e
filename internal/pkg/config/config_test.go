package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"OTEL_SERVICE_NAME", "APP_ENV", "LOG_LEVEL", "HTTP_ADDR", "GRPC_ADDR", "DATABASE_URL",
		"OTEL_EXPORTER_OTLP_ENDPOINT", "REDIS_ADDR", "KAFKA_BROKERS", "ORDER_EVENTS_TOPIC",
		"IDEMPOTENCY_TTL", "OUTBOX_POLL_INTERVAL", "OUTBOX_BATCH_SIZE", "MAX_PAGE_SIZE", "REQUEST_TIMEOUT",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ServiceName, cfg.ServiceName)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, ":9090", cfg.GRPCAddr)
	assert.Equal(t, "file:orders.db", cfg.DatabaseURL)
	assert.Equal(t, 100, cfg.MaxPageSize)
	assert.Equal(t, 24*time.Hour, cfg.IdempotencyTTL)
	assert.Equal(t, time.Second, cfg.OutboxPollInterval)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "orders.events", cfg.OrderEventsTopic)
	assert.False(t, cfg.EventsEnabled())
	assert.Empty(t, cfg.RedisAddr)
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("HTTP_ADDR", ":8000")
	t.Setenv("DATABASE_URL", "postgres://db/orders")
	t.Setenv("KAFKA_BROKERS", "kafka:9092")
	t.Setenv("MAX_PAGE_SIZE", "50")
	t.Setenv("IDEMPOTENCY_TTL", "1h")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8000", cfg.HTTPAddr)
	assert.Equal(t, "postgres://db/orders", cfg.DatabaseURL)
	assert.True(t, cfg.EventsEnabled())
	assert.Equal(t, 50, cfg.MaxPageSize)
	assert.Equal(t, time.Hour, cfg.IdempotencyTTL)
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		key   string
		value string
	}{
		{"MAX_PAGE_SIZE", "zero"},
		{"MAX_PAGE_SIZE", "0"},
		{"IDEMPOTENCY_TTL", "tomorrow"},
		{"REQUEST_TIMEOUT", "-1s"},
		{"OUTBOX_BATCH_SIZE", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.key)
		})
	}
}
