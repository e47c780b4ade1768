package repository

import (
	"context"
	"errors"
)

var ErrCacheMiss = errors.New("cache miss")

// Cache is a JSON value cache. Get returns ErrCacheMiss for absent keys.
type Cache interface {
	Get(ctx context.Context, key string, dst interface{}) error
	Set(ctx context.Context, key string, v interface{}) error
	Delete(ctx context.Context, keys ...string) error
}
