package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"golang.org/x/sync/singleflight"
)

// Typed stores JSON encoded values of type V in a Store.
type Typed[V any] struct {
	store  Store
	prefix string
	group  singleflight.Group
}

// NewTyped wraps store. Keys are prefixed with prefix when it is not empty,
// so several Typed views can share one store.
func NewTyped[V any](store Store, prefix string) *Typed[V] {
	return &Typed[V]{store: store, prefix: prefix}
}

// Get returns ErrNotFound on a miss.
func (t *Typed[V]) Get(ctx context.Context, key string) (V, error) {
	var v V
	data, err := t.store.Get(ctx, t.key(key))
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, errors.Join(ErrUnmarshal, err)
	}
	return v, nil
}

func (t *Typed[V]) Set(ctx context.Context, key string, v V, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Join(ErrMarshal, err)
	}
	return t.store.Set(ctx, t.key(key), data, ttl)
}

func (t *Typed[V]) Delete(ctx context.Context, key string) error {
	return t.store.Delete(ctx, t.key(key))
}

// GetOrSet returns the cached value or computes it with fn on a miss.
// Concurrent misses for one key share a single fn call. Errors from fn are
// returned and nothing is cached; a failed write to the store is ignored.
func (t *Typed[V]) GetOrSet(ctx context.Context, key string, ttl time.Duration, fn func(ctx context.Context) (V, error)) (V, error) {
	if v, err := t.Get(ctx, key); err == nil {
		return v, nil
	}

	res, err, _ := t.group.Do(key, func() (any, error) {
		v, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		_ = t.Set(ctx, key, v, ttl)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return res.(V), nil
}

func (t *Typed[V]) key(k string) string {
	if t.prefix == "" {
		return k
	}
	return t.prefix + ":" + k
}
