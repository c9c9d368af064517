package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/swaadanna/storefront/internal/domain"
)

// versionTTL outlives any entry; an expired version reads as 0 and refuses
// fills that captured a higher one.
const versionTTL = 24 * time.Hour

// setIfVersion stores KEYS[1] only while KEYS[2] still holds ARGV[2].
var setIfVersion = redis.NewScript(`
local current = redis.call('GET', KEYS[2]) or '0'
if current ~= ARGV[2] then
	return 0
end
redis.call('SET', KEYS[1], ARGV[1], 'PX', ARGV[3])
return 1
`)

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{
		client:  client,
		baseTTL: 5 * time.Minute,
	}
}

type RedisCache struct {
	client  *redis.Client
	baseTTL time.Duration
}

func (r RedisCache) Get(ctx context.Context, orderID string) (*domain.Order, error) {
	data, err := r.client.Get(ctx, cacheKey(orderID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var order domain.Order
	if err2 := json.Unmarshal(data, &order); err2 != nil {
		return nil, fmt.Errorf("unmarshal order failed: %w", err2)
	}

	return &order, nil
}

func (r RedisCache) Version(ctx context.Context, orderID string) (int64, error) {
	v, err := r.client.Get(ctx, versionKey(orderID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get version failed: %w", err)
	}
	return v, nil
}

// Set returns ErrStaleFill when the order was invalidated after version was read.
func (r RedisCache) Set(ctx context.Context, order *domain.Order, version int64) error {
	jsonOrder, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("marshal order failed: %w", err)
	}

	jitter := time.Duration(rand.Intn(60)) * time.Second
	ttl := r.baseTTL + jitter
	stored, err := setIfVersion.Run(ctx, r.client,
		[]string{cacheKey(order.OrderID), versionKey(order.OrderID)},
		jsonOrder, strconv.FormatInt(version, 10), ttl.Milliseconds(),
	).Int()
	if err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	if stored == 0 {
		return ErrStaleFill
	}
	return nil
}

func (r RedisCache) Delete(ctx context.Context, orderIDs ...string) error {
	if len(orderIDs) == 0 {
		return nil
	}
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range orderIDs {
			pipe.Incr(ctx, versionKey(id))
			pipe.Expire(ctx, versionKey(id), versionTTL)
			pipe.Del(ctx, cacheKey(id))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func cacheKey(orderID string) string {
	return fmt.Sprintf("order:%s", orderID)
}

func versionKey(orderID string) string {
	return fmt.Sprintf("order:%s:version", orderID)
}
