// Package publisher relays outbox rows to Kafka.
package publisher

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/swaadanna/storefront/internal/repository"
)

const batchSize = 100

// EventStore is the outbox half of the order repository.
type EventStore interface {
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*repository.OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int64) error
}

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type OutboxPublisher struct {
	tick   time.Duration
	store  EventStore
	writer MessageWriter
	log    zerolog.Logger
}

func NewOutboxPublisher(store EventStore, log zerolog.Logger, topic string, brokers ...string) *OutboxPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
	return newOutboxPublisher(store, w, time.Second, log)
}

func newOutboxPublisher(store EventStore, writer MessageWriter, tick time.Duration, log zerolog.Logger) *OutboxPublisher {
	return &OutboxPublisher{
		tick:   tick,
		store:  store,
		writer: writer,
		log:    log.With().Str("component", "outbox_publisher").Logger(),
	}
}

func (p *OutboxPublisher) Run(ctx context.Context) {
	ticker := time.NewTicker(p.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.processUnpublishedEvents(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *OutboxPublisher) Close() error {
	return p.writer.Close()
}

// processUnpublishedEvents returns how many events reached Kafka and were marked.
func (p *OutboxPublisher) processUnpublishedEvents(ctx context.Context) int {
	events, err := p.store.GetUnprocessedEvents(ctx, batchSize)
	if err != nil {
		p.log.Error().Err(err).Msg("failed to fetch outbox events")
		return 0
	}

	published := 0
	for _, event := range events {
		if err := p.publish(ctx, event); err != nil {
			p.log.Error().Err(err).Int64("event_id", event.ID).Msg("failed to publish event")
			continue
		}

		// A failed mark means the event goes out again; consumers are idempotent.
		if err := p.store.MarkEventAsProcessed(ctx, event.ID); err != nil {
			p.log.Error().Err(err).Int64("event_id", event.ID).Msg("failed to mark event as processed")
			continue
		}
		published++
	}
	if published > 0 {
		p.log.Debug().Int("count", published).Msg("outbox events published")
	}
	return published
}

func (p *OutboxPublisher) publish(ctx context.Context, event *repository.OutboxEvent) error {
	msg := kafka.Message{
		Key:   []byte(event.AggregateID), // order_id keeps per-order ordering
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}
	return p.writer.WriteMessages(ctx, msg)
}
