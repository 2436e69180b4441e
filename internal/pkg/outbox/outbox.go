// Package outbox relays events that were written in the same database
// transaction as the state change they describe.
//
// Producers insert rows through a Source implementation; a Relay polls the
// pending rows in id order, hands each to a Publisher and marks it sent. A
// row whose publish fails stays pending and is retried on the next poll, so
// consumers must tolerate duplicates (delivery is at-least-once).
package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"
)

type Record struct {
	ID        int64
	EventID   string
	Topic     string
	Key       string
	Payload   json.RawMessage
	CreatedAt time.Time
	SentAt    *time.Time
}

// Source is the storage side of the outbox.
type Source interface {
	FetchPending(ctx context.Context, limit int) ([]Record, error)
	MarkSent(ctx context.Context, id int64) error
}

// Publisher delivers one record to the message broker.
type Publisher interface {
	Publish(ctx context.Context, rec Record) error
}

type Relay struct {
	source    Source
	publisher Publisher
	interval  time.Duration
	batchSize int
	logger    *slog.Logger
}

// NewRelay builds a relay; a nil logger falls back to slog.Default.
func NewRelay(source Source, publisher Publisher, interval time.Duration, batchSize int, logger *slog.Logger) *Relay {
	if interval <= 0 {
		interval = time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Relay{
		source:    source,
		publisher: publisher,
		interval:  interval,
		batchSize: batchSize,
		logger:    logger.With("component", "outbox_relay"),
	}
}

// Run polls until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.InfoContext(ctx, "outbox relay started", "interval", r.interval.String(), "batch_size", r.batchSize)
	for {
		if _, err := r.Flush(ctx); err != nil && !errors.Is(err, context.Canceled) {
			r.logger.ErrorContext(ctx, "outbox flush failed", "error", err)
		}
		select {
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "outbox relay stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Flush publishes one batch and returns how many records were marked sent.
// It stops at the first publish failure so records leave in id order.
func (r *Relay) Flush(ctx context.Context) (int, error) {
	recs, err := r.source.FetchPending(ctx, r.batchSize)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, rec := range recs {
		if err := r.publisher.Publish(ctx, rec); err != nil {
			return sent, err
		}
		if err := r.source.MarkSent(ctx, rec.ID); err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}
