package cache

import (
	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/expanse/pkg/container"
)

// MemoryProvider binds an in-memory Store as a singleton.
func MemoryProvider(opts ...MemoryOption) container.ProviderFunc {
	return func(c *container.Container) error {
		container.Provide(c, container.Singleton, func(container.Resolver) (Store, error) {
			return NewMemory(opts...), nil
		})
		return nil
	}
}

// RedisProvider binds a Redis Store as a singleton. The redis.UniversalClient
// is resolved from the container, so register the pkg/redis provider too.
func RedisProvider(opts ...RedisOption) container.ProviderFunc {
	return func(c *container.Container) error {
		container.Provide(c, container.Singleton, func(r container.Resolver) (Store, error) {
			client, err := container.Resolve[redis.UniversalClient](r)
			if err != nil {
				return nil, err
			}
			return NewRedis(client, opts...), nil
		})
		return nil
	}
}
