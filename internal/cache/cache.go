package cache

import (
	"context"
	"errors"

	"github.com/swaadanna/storefront/internal/domain"
)

// OrderCache is a read-through cache for orders. Every Delete bumps the
// order's version; Set only stores when the version it was given is still
// current, so a fill that raced an invalidation is dropped.
type OrderCache interface {
	Get(ctx context.Context, orderID string) (*domain.Order, error)
	Version(ctx context.Context, orderID string) (int64, error)
	Set(ctx context.Context, order *domain.Order, version int64) error
	Delete(ctx context.Context, orderIDs ...string) error
}

var (
	ErrCacheMiss = errors.New("cache miss")
	ErrStaleFill = errors.New("cache fill superseded by invalidation")
)
