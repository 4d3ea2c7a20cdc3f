package db

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/expanse/pkg/container"
)

// Provider binds a lazily connected *pgxpool.Pool as a singleton, plus
// Querier, Beginner and TxBeginner resolving to the same pool. The pool is closed with
// the container.
//
//	app, err := expanse.New(
//	    expanse.WithProviders(db.Provider(cfg)),
//	)
type Provider struct {
	Config Config
}

// NewProvider returns a Provider for cfg.
func NewProvider(cfg Config) Provider {
	return Provider{Config: cfg}
}

// Register implements the application provider contract.
func (p Provider) Register(c *container.Container) error {
	if p.Config.ConnectionString == "" {
		return ErrMissingConnString
	}
	container.Provide(c, container.Singleton, func(r container.Resolver) (*pgxpool.Pool, error) {
		return Connect(r.Context(), p.Config)
	})
	container.Provide(c, container.Transient, func(r container.Resolver) (Querier, error) {
		return container.Resolve[*pgxpool.Pool](r)
	})
	container.Provide(c, container.Transient, func(r container.Resolver) (Beginner, error) {
		return container.Resolve[*pgxpool.Pool](r)
	})
	container.Provide(c, container.Transient, func(r container.Resolver) (TxBeginner, error) {
		return container.Resolve[*pgxpool.Pool](r)
	})
	return nil
}
