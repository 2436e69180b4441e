// Package events publishes outbox records to Kafka.
package events

import (
	"context"
	"fmt"
	"strings"
	"time"

	otelkafka "github.com/Trendyol/otel-kafka-konsumer"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"

	"github.com/jcmexdev/ecommerce-orders/internal/pkg/outbox"
)

const (
	HeaderEventID = "event_id"

	batchTimeout = 10 * time.Millisecond
)

// Producer is the subset of the instrumented writer the publisher needs.
type Producer interface {
	WriteMessage(ctx context.Context, msg kafka.Message) error
	Close() error
}

// ParseBrokers splits a comma separated broker list, dropping blanks.
func ParseBrokers(csv string) []string {
	brokers := []string{}
	for _, b := range strings.Split(csv, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// NewProducer builds a traced Kafka writer. The topic is taken from each
// message so one writer serves every outbox topic.
func NewProducer(brokers []string, clientID string) (Producer, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("events: no kafka brokers configured")
	}
	base := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: batchTimeout,
	}
	w, err := otelkafka.NewWriter(base,
		otelkafka.WithTracerProvider(otel.GetTracerProvider()),
		otelkafka.WithPropagator(propagation.TraceContext{}),
		otelkafka.WithAttributes([]attribute.KeyValue{
			attribute.String("messaging.kafka.client_id", clientID),
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("events: create kafka writer: %w", err)
	}
	return w, nil
}

// Publisher adapts a Producer to outbox.Publisher.
type Publisher struct {
	producer Producer
}

var _ outbox.Publisher = (*Publisher)(nil)

func NewPublisher(p Producer) *Publisher {
	return &Publisher{producer: p}
}

func (p *Publisher) Publish(ctx context.Context, rec outbox.Record) error {
	msg := kafka.Message{
		Topic: rec.Topic,
		Key:   []byte(rec.Key),
		Value: rec.Payload,
		Time:  rec.CreatedAt,
		Headers: []kafka.Header{
			{Key: HeaderEventID, Value: []byte(rec.EventID)},
		},
	}
	if err := p.producer.WriteMessage(ctx, msg); err != nil {
		return fmt.Errorf("events: publish %s to %s: %w", rec.EventID, rec.Topic, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.producer.Close()
}
