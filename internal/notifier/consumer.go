// Package notifier consumes order events and sends the confirmation
// notifications, then flags the order as emailed.
package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/swaadanna/storefront/internal/domain"
	"github.com/swaadanna/storefront/internal/repository"
)

type OrderStore interface {
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)
	MarkEmailSent(ctx context.Context, orderID string) (bool, error)
}

type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	reader  MessageReader
	orders  OrderStore
	mailer  Mailer
	admin   AdminChannel
	log     zerolog.Logger
	retries int
	backoff time.Duration
}

func NewConsumer(orders OrderStore, mailer Mailer, admin AdminChannel, log zerolog.Logger, topic, groupID string, brokers ...string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MaxBytes: 10e6, // 10MB
	})
	return newConsumer(reader, orders, mailer, admin, log)
}

func newConsumer(reader MessageReader, orders OrderStore, mailer Mailer, admin AdminChannel, log zerolog.Logger) *Consumer {
	return &Consumer{
		reader:  reader,
		orders:  orders,
		mailer:  mailer,
		admin:   admin,
		log:     log.With().Str("component", "notifier").Logger(),
		retries: 3,
		backoff: time.Second,
	}
}

func (c *Consumer) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		c.processMessage(ctx)
	}
}

func (c *Consumer) Close() {
	if err := c.reader.Close(); err != nil {
		c.log.Error().Err(err).Msg("error closing kafka reader")
	}
}

func (c *Consumer) processMessage(ctx context.Context) {
	m, err := c.reader.FetchMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return
		}
		c.log.Error().Err(err).Msg("error reading message")
		return
	}

	if err := c.handle(ctx, m); err != nil {
		// Shutdown mid-message: leave it uncommitted for the next run.
		if ctx.Err() != nil {
			return
		}
		c.log.Error().Err(err).Str("key", string(m.Key)).Msg("giving up on order event")
	}

	if err := c.reader.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
		c.log.Error().Err(err).Int64("offset", m.Offset).Msg("error committing message")
	}
}

// handle is safe to run more than once for the same event.
func (c *Consumer) handle(ctx context.Context, m kafka.Message) error {
	if t := eventType(m); t != "" && t != repository.EventOrderCreated {
		return nil
	}

	var event domain.Order
	if err := json.Unmarshal(m.Value, &event); err != nil {
		c.log.Warn().Err(err).Msg("error parsing order event")
		return nil
	}

	order, err := c.orders.GetOrder(ctx, event.OrderID)
	if errors.Is(err, repository.ErrOrderNotFound) {
		c.log.Warn().Str("order_id", event.OrderID).Msg("order event for unknown order, skipping")
		return nil
	}
	if err != nil {
		return err
	}
	if order.EmailSent {
		c.log.Debug().Str("order_id", order.OrderID).Msg("confirmation already sent, skipping")
		return nil
	}

	if err := c.withRetry(ctx, func() error { return c.mailer.SendOrderConfirmation(ctx, order) }); err != nil {
		return err
	}

	if err := c.admin.NotifyNewOrder(ctx, order); err != nil {
		c.log.Warn().Err(err).Str("order_id", order.OrderID).Msg("admin channel notification failed")
	}

	flipped, err := c.orders.MarkEmailSent(ctx, order.OrderID)
	if err != nil {
		return err
	}
	c.log.Info().Str("order_id", order.OrderID).Bool("flipped", flipped).Msg("confirmation sent")
	return nil
}

func (c *Consumer) withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 1; attempt <= c.retries; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt == c.retries {
			break
		}
		c.log.Warn().Err(err).Int("attempt", attempt).Msg("send failed, retrying")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.backoff * time.Duration(attempt)):
		}
	}
	return err
}

func eventType(m kafka.Message) string {
	for _, h := range m.Headers {
		if h.Key == "event_type" {
			return string(h.Value)
		}
	}
	return ""
}
