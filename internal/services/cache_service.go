package services

import (
	"context"
	"time"
)

// CacheService is the slice of the Redis cache the dispatch core depends on.
// Implemented by pkg/cache.RedisCache.
type CacheService interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
}
