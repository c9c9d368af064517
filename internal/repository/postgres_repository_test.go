package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/swaadanna/storefront/internal/domain"
)

func setupTestDB(t *testing.T) (*Repository, func()) {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)

	port, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	creds := &Credentials{
		Host:              host,
		Port:              port.Int(),
		User:              "testuser",
		Password:          "testpass",
		DBName:            "testdb",
		MigrationsDirPath: "./migrations",
	}

	repo, err := NewRepository(creds)
	require.NoError(t, err)

	err = repo.RunMigrations(creds)
	require.NoError(t, err)

	cleanup := func() {
		repo.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return repo, cleanup
}

func newTestOrder() *domain.Order {
	return &domain.Order{
		OrderID:       domain.NewOrderID(),
		CustomerName:  "Asha Rawat",
		CustomerEmail: "asha@example.com",
		Phone:         "9876543210",
		Address:       "12 Mall Road, Almora - 263601",
		Products: []domain.OrderItem{
			{ProductID: 1, Name: "Mango Pickle", Quantity: 2, Price: 200},
			{ProductID: 2, Name: "Wild Honey", Quantity: 1, Price: 150, Image: "honey.jpg"},
		},
		TotalAmount:   767,
		PaymentMethod: domain.PaymentMethodUPI,
		Status:        domain.OrderStatusPending,
	}
}

func TestCreateOrder_Success(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	order := newTestOrder()

	err := repo.CreateOrder(ctx, order)
	require.NoError(t, err)
	assert.False(t, order.Timestamp.IsZero())

	fetched, err := repo.GetOrderByID(ctx, order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, order.OrderID, fetched.OrderID)
	assert.Equal(t, order.CustomerEmail, fetched.CustomerEmail)
	assert.Equal(t, order.Address, fetched.Address)
	assert.Equal(t, int64(767), fetched.TotalAmount)
	assert.Equal(t, domain.OrderStatusPending, fetched.Status)
	assert.False(t, fetched.EmailSent)
	assert.Equal(t, order.Products, fetched.Products)
}

func TestCreateOrder_WritesOutboxEvent(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	order := newTestOrder()
	require.NoError(t, repo.CreateOrder(ctx, order))

	events, err := repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, order.OrderID, events[0].AggregateID)
	assert.Equal(t, EventOrderCreated, events[0].EventType)

	var payload domain.Order
	require.NoError(t, json.Unmarshal(events[0].Payload, &payload))
	assert.Equal(t, order.CustomerEmail, payload.CustomerEmail)

	require.NoError(t, repo.MarkEventAsProcessed(ctx, events[0].ID))
	events, err = repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestCreateOrder_Duplicate(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	order := newTestOrder()
	require.NoError(t, repo.CreateOrder(ctx, order))

	again := newTestOrder()
	again.OrderID = order.OrderID
	err := repo.CreateOrder(ctx, again)
	assert.ErrorIs(t, err, ErrDuplicateOrder)

	// the failed insert left no outbox row behind
	events, err := repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestGetOrderByID_NotFound(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := repo.GetOrderByID(context.Background(), "ORD-MISSING0")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestListOrders_NewestFirst(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	empty, err := repo.ListOrders(ctx)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	first := newTestOrder()
	require.NoError(t, repo.CreateOrder(ctx, first))

	// Small sleep to ensure different created_at timestamps
	time.Sleep(10 * time.Millisecond)

	second := newTestOrder()
	require.NoError(t, repo.CreateOrder(ctx, second))

	orders, err := repo.ListOrders(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, second.OrderID, orders[0].OrderID)
	assert.Equal(t, first.OrderID, orders[1].OrderID)
}

func TestUpdateStatus(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	order := newTestOrder()
	require.NoError(t, repo.CreateOrder(ctx, order))

	prev, err := repo.UpdateStatus(ctx, order.OrderID, domain.OrderStatusAccept)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPending, prev)

	fetched, err := repo.GetOrderByID(ctx, order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusAccept, fetched.Status)

	_, err = repo.UpdateStatus(ctx, "ORD-MISSING0", domain.OrderStatusAccept)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestBulkUpdateStatus_AllOrNothing(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	a, b := newTestOrder(), newTestOrder()
	require.NoError(t, repo.CreateOrder(ctx, a))
	require.NoError(t, repo.CreateOrder(ctx, b))

	_, err := repo.BulkUpdateStatus(ctx, []string{a.OrderID, "ORD-MISSING0"}, domain.OrderStatusReject)
	assert.ErrorIs(t, err, ErrOrderNotFound)

	fetched, err := repo.GetOrderByID(ctx, a.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPending, fetched.Status)

	prev, err := repo.BulkUpdateStatus(ctx, []string{a.OrderID, b.OrderID}, domain.OrderStatusDelivered)
	require.NoError(t, err)
	assert.Equal(t, map[string]domain.OrderStatus{
		a.OrderID: domain.OrderStatusPending,
		b.OrderID: domain.OrderStatusPending,
	}, prev)

	orders, err := repo.ListOrders(ctx)
	require.NoError(t, err)
	for _, o := range orders {
		assert.Equal(t, domain.OrderStatusDelivered, o.Status)
	}
}

func TestMarkEmailSent(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	order := newTestOrder()
	require.NoError(t, repo.CreateOrder(ctx, order))

	changed, err := repo.MarkEmailSent(ctx, order.OrderID)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.MarkEmailSent(ctx, order.OrderID)
	require.NoError(t, err)
	assert.False(t, changed)

	fetched, err := repo.GetOrderByID(ctx, order.OrderID)
	require.NoError(t, err)
	assert.True(t, fetched.EmailSent)

	_, err = repo.MarkEmailSent(ctx, "ORD-MISSING0")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}
