// Package kafka publishes conversion events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/couchcryptid/storm-grid-etl/internal/config"
	"github.com/couchcryptid/storm-grid-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

const (
	defaultAttempts   = 3
	initialBackoff    = 200 * time.Millisecond
	defaultMaxBackoff = 2 * time.Second
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher produces one message per processed file.
// It implements pipeline.Notifier.
type Publisher struct {
	writer     messageWriter
	logger     *slog.Logger
	attempts   int
	maxBackoff time.Duration
}

// NewPublisher creates a Kafka producer for the configured topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(cfg.Kafka.Brokers...),
		Topic:                  cfg.Kafka.Topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireAll,
		AllowAutoTopicCreation: true,
	}
	return newPublisher(w, logger)
}

func newPublisher(w messageWriter, logger *slog.Logger) *Publisher {
	return &Publisher{writer: w, logger: logger, attempts: defaultAttempts, maxBackoff: defaultMaxBackoff}
}

// Publish serializes ev and writes it, retrying with exponential backoff.
// Events are keyed by source file so every event for a file lands on the
// same partition.
func (p *Publisher) Publish(ctx context.Context, ev domain.ConversionEvent) error {
	msg, err := serializeToMessage(ev)
	if err != nil {
		return err
	}

	backoff := initialBackoff
	for attempt := 1; ; attempt++ {
		err = p.writer.WriteMessages(ctx, msg)
		if err == nil {
			return nil
		}
		if attempt >= p.attempts || ctx.Err() != nil {
			return fmt.Errorf("publish event %s after %d attempts: %w", ev.ID, attempt, err)
		}
		p.logger.Warn("publish failed, retrying", "error", err, "event_id", ev.ID, "attempt", attempt, "backoff", backoff)
		if !retry.SleepWithContext(ctx, backoff) {
			return ctx.Err()
		}
		backoff = retry.NextBackoff(backoff, p.maxBackoff)
	}
}

// Close flushes buffered messages and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeToMessage marshals a ConversionEvent into a Kafka message.
func serializeToMessage(ev domain.ConversionEvent) (kafkago.Message, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize conversion event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(ev.Source),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "event_id", Value: []byte(ev.ID)},
			{Key: "status", Value: []byte(ev.Status)},
			{Key: "processed_at", Value: []byte(ev.ProcessedAt.Format(time.RFC3339))},
		},
	}, nil
}
