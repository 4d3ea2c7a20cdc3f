package redis

import (
	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/expanse/pkg/container"
)

// Provider binds a lazily connected redis.UniversalClient as a singleton.
// The client is closed with the container.
type Provider struct {
	Config Config
}

// NewProvider returns a Provider for cfg.
func NewProvider(cfg Config) Provider {
	return Provider{Config: cfg}
}

// Register implements the application provider contract.
func (p Provider) Register(c *container.Container) error {
	if _, err := Options(p.Config); err != nil {
		return err
	}
	container.Provide(c, container.Singleton, func(r container.Resolver) (redis.UniversalClient, error) {
		return Open(r.Context(), p.Config)
	})
	return nil
}
