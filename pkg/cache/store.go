package cache

import (
	"context"
	"time"
)

// Store keeps opaque byte values with a TTL.
//
// TTL semantics for Set:
//   - positive: the entry expires after ttl
//   - zero: the store's default TTL
//   - negative: the entry never expires
type Store interface {
	// Get returns ErrNotFound for missing or expired keys.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}
