package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swaadanna/storefront/internal/domain"
)

// setupTestRedis creates a miniredis server and returns a RedisCache instance
func setupTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis, func()) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	cache := NewRedisCache(client)

	cleanup := func() {
		client.Close()
		mr.Close()
	}

	return cache, mr, cleanup
}

func testOrder(id string) *domain.Order {
	return &domain.Order{
		OrderID:       id,
		CustomerName:  "Asha",
		CustomerEmail: "asha@example.com",
		Products:      []domain.OrderItem{{ProductID: 1, Name: "Mango Pickle", Quantity: 2, Price: 200}},
		TotalAmount:   590,
		Status:        domain.OrderStatusPending,
		Timestamp:     time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestGet_Success(t *testing.T) {
	cache, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	order := testOrder("ORD-AAAA0001")
	orderJSON, _ := json.Marshal(order)
	mr.Set(cacheKey(order.OrderID), string(orderJSON))

	result, err := cache.Get(context.Background(), order.OrderID)
	require.NoError(t, err)
	assert.Equal(t, order, result)
}

func TestGet_CacheMiss(t *testing.T) {
	cache, _, cleanup := setupTestRedis(t)
	defer cleanup()

	result, err := cache.Get(context.Background(), "ORD-NOPE0000")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Nil(t, result)
}

func TestGet_InvalidJSON(t *testing.T) {
	cache, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	require.NoError(t, mr.Set(cacheKey("ORD-BAD00000"), `{"order_id":`))

	_, err := cache.Get(context.Background(), "ORD-BAD00000")
	require.ErrorContains(t, err, "unmarshal order failed")
}

func TestSet_WithTTL(t *testing.T) {
	cache, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	order := testOrder("ORD-AAAA0002")
	require.NoError(t, cache.Set(context.Background(), order, 0))

	stored, err := mr.Get(cacheKey(order.OrderID))
	require.NoError(t, err)
	var storedOrder domain.Order
	require.NoError(t, json.Unmarshal([]byte(stored), &storedOrder))
	assert.Equal(t, order.OrderID, storedOrder.OrderID)

	ttl := mr.TTL(cacheKey(order.OrderID))
	assert.True(t, ttl >= 5*time.Minute, "TTL should be at least base TTL")
	assert.True(t, ttl < 6*time.Minute, "TTL should be base + max jitter")
}

func TestDelete_Many(t *testing.T) {
	cache, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	ctx := context.Background()
	require.NoError(t, cache.Set(ctx, testOrder("ORD-1"), 0))
	require.NoError(t, cache.Set(ctx, testOrder("ORD-2"), 0))

	require.NoError(t, cache.Delete(ctx, "ORD-1", "ORD-2", "ORD-3"))
	assert.False(t, mr.Exists(cacheKey("ORD-1")))
	assert.False(t, mr.Exists(cacheKey("ORD-2")))

	assert.NoError(t, cache.Delete(ctx))
}

func TestDelete_BumpsVersion(t *testing.T) {
	cache, mr, cleanup := setupTestRedis(t)
	defer cleanup()
	ctx := context.Background()

	v, err := cache.Version(ctx, "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), v)

	require.NoError(t, cache.Delete(ctx, "ORD-1"))
	require.NoError(t, cache.Delete(ctx, "ORD-1"))

	v, err = cache.Version(ctx, "ORD-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), v)
	assert.True(t, mr.TTL(versionKey("ORD-1")) > 23*time.Hour)
}

func TestSet_FillAfterInvalidationIsDropped(t *testing.T) {
	cache, mr, cleanup := setupTestRedis(t)
	defer cleanup()
	ctx := context.Background()

	// A reader captures the version, then an update invalidates before the fill lands.
	v, err := cache.Version(ctx, "ORD-1")
	require.NoError(t, err)
	require.NoError(t, cache.Delete(ctx, "ORD-1"))

	err = cache.Set(ctx, testOrder("ORD-1"), v)
	assert.ErrorIs(t, err, ErrStaleFill)
	assert.False(t, mr.Exists(cacheKey("ORD-1")))

	_, err = cache.Get(ctx, "ORD-1")
	assert.ErrorIs(t, err, ErrCacheMiss)

	// A reader that started after the invalidation may fill.
	v, err = cache.Version(ctx, "ORD-1")
	require.NoError(t, err)
	require.NoError(t, cache.Set(ctx, testOrder("ORD-1"), v))
	assert.True(t, mr.Exists(cacheKey("ORD-1")))
}

func TestCacheKey_Format(t *testing.T) {
	assert.Equal(t, "order:ORD-12345678", cacheKey("ORD-12345678"))
	assert.Equal(t, "order:ORD-12345678:version", versionKey("ORD-12345678"))
}
