package container

// Provider registers a group of bindings, typically everything one
// infrastructure package offers (a pool, a client, a store).
type Provider interface {
	Register(c *Container) error
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(c *Container) error

// Register calls f(c).
func (f ProviderFunc) Register(c *Container) error { return f(c) }

// Register runs every provider against c, stopping at the first error.
func (c *Container) Register(providers ...Provider) error {
	for _, p := range providers {
		if err := p.Register(c); err != nil {
			return err
		}
	}
	return nil
}
