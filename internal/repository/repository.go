package repository

import (
	"context"
	"errors"
	"time"

	"github.com/swaadanna/storefront/internal/domain"
)

var (
	ErrOrderNotFound  = errors.New("order not found")
	ErrDuplicateOrder = errors.New("order with this id already exists")
)

// EventOrderCreated is written to the outbox in the same transaction as the order.
const EventOrderCreated = "order_created"

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

type OutboxEvent struct {
	ID          int64
	AggregateID string
	EventType   string
	Payload     []byte
	CreatedAt   time.Time
}

type OrderRepository interface {
	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrderByID(ctx context.Context, orderID string) (*domain.Order, error)
	ListOrders(ctx context.Context) ([]*domain.Order, error)
	// UpdateStatus returns the status the order had before the change.
	UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus) (domain.OrderStatus, error)
	// BulkUpdateStatus changes every order or none. It returns the previous
	// status of each order.
	BulkUpdateStatus(ctx context.Context, orderIDs []string, status domain.OrderStatus) (map[string]domain.OrderStatus, error)
	// MarkEmailSent reports whether the flag flipped on this call.
	MarkEmailSent(ctx context.Context, orderID string) (bool, error)
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int64) error
	RunMigrations(*Credentials) error
	Close() error
}
