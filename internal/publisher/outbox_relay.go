package publisher

import (
	"context"
	"log/slog"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"github.com/segmentio/kafka-go"
)

const defaultBatchSize = 100

// MessageWriter is the part of *kafka.Writer the relay needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// OutboxRelay polls unpublished outbox events and hands them to the broker
// in id order. An event is marked published only after the write succeeds,
// so delivery is at least once.
type OutboxRelay struct {
	outbox   repo.OutboxRepository
	writer   MessageWriter
	interval time.Duration
	batch    int
	now      func() time.Time
}

// DI
func NewOutboxRelay(outbox repo.OutboxRepository, writer MessageWriter, interval time.Duration) *OutboxRelay {
	if interval <= 0 {
		interval = time.Second
	}
	return &OutboxRelay{
		outbox:   outbox,
		writer:   writer,
		interval: interval,
		batch:    defaultBatchSize,
		now:      time.Now,
	}
}

// NewKafkaWriter builds the writer used in production.
func NewKafkaWriter(topic string, brokers ...string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
}

// Run blocks until ctx is done.
func (r *OutboxRelay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.PublishPending(ctx)
		case <-ctx.Done():
			return nil
		}
	}
}

// PublishPending sends one batch and returns how many events were marked.
// It stops at the first failed write so later events of the same order are
// not published ahead of it.
func (r *OutboxRelay) PublishPending(ctx context.Context) int {
	events, err := r.outbox.ListUnpublished(ctx, r.batch)
	if err != nil {
		slog.ErrorContext(ctx, "outbox fetch failed", slog.Any("err", err))
		return 0
	}

	published := 0
	for _, ev := range events {
		if err := r.writer.WriteMessages(ctx, toMessage(ev)); err != nil {
			slog.ErrorContext(ctx, "outbox publish failed",
				slog.Int64("event_id", ev.ID),
				slog.String("event_type", ev.EventType),
				slog.Any("err", err),
			)
			return published
		}
		if err := r.outbox.MarkPublished(ctx, ev.ID, r.now()); err != nil {
			slog.ErrorContext(ctx, "outbox mark failed", slog.Int64("event_id", ev.ID), slog.Any("err", err))
			return published
		}
		published++
	}
	return published
}

func toMessage(ev model.OutboxEvent) kafka.Message {
	return kafka.Message{
		Key:   []byte(ev.AggregateID),
		Value: []byte(ev.Payload),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(ev.EventType)},
			{Key: "aggregate_type", Value: []byte(ev.AggregateType)},
		},
	}
}
