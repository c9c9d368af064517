package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/swaadanna/storefront/internal/domain"
	"github.com/swaadanna/storefront/internal/pricing"
	"github.com/swaadanna/storefront/internal/receipt"
)

// AdminChannel tells the shop operator a new order arrived.
type AdminChannel interface {
	NotifyNewOrder(ctx context.Context, order *domain.Order) error
}

// webhookFailureThreshold consecutive failures open the breaker for webhookCooldown.
const (
	webhookFailureThreshold = 5
	webhookCooldown         = 30 * time.Second
)

type WebhookChannel struct {
	url     string
	client  *http.Client
	calc    *pricing.Calculator
	breaker *gobreaker.CircuitBreaker[struct{}]
}

type webhookPayload struct {
	Text    string `json:"text"`
	OrderID string `json:"order_id"`
}

// NewWebhookChannel posts to url. While the endpoint keeps failing the
// breaker short-circuits calls instead of holding up the consumer.
func NewWebhookChannel(url string, log zerolog.Logger) *WebhookChannel {
	return &WebhookChannel{
		url: url,
		client: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   5 * time.Second,
		},
		calc: pricing.New(),
		breaker: gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
			Name:        "admin-webhook",
			MaxRequests: 1,
			Timeout:     webhookCooldown,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= webhookFailureThreshold
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
					Msg("admin webhook breaker state changed")
			},
		}),
	}
}

func (w *WebhookChannel) NotifyNewOrder(ctx context.Context, order *domain.Order) error {
	_, err := w.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, w.post(ctx, order)
	})
	return err
}

func (w *WebhookChannel) post(ctx context.Context, order *domain.Order) error {
	body, err := json.Marshal(webhookPayload{
		Text:    receipt.OperatorMessage(order, w.calc),
		OrderID: order.OrderID,
	})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("webhook responded %d", resp.StatusCode)
	}
	return nil
}

type LogChannel struct {
	log zerolog.Logger
}

func NewLogChannel(log zerolog.Logger) *LogChannel {
	return &LogChannel{log: log}
}

func (l *LogChannel) NotifyNewOrder(ctx context.Context, order *domain.Order) error {
	l.log.Info().Ctx(ctx).
		Str("order_id", order.OrderID).
		Str("message", receipt.OperatorMessage(order, nil)).
		Msg("new order")
	return nil
}
