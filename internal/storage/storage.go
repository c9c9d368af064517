// Package storage is the durable key/value store the storefront keeps client
// state in: the cart and the admin session flag.
package storage

import (
	"context"
	"errors"
)

var ErrKeyNotFound = errors.New("key not found")

type Storage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}
