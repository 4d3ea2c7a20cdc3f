package container

import (
	"fmt"
	"reflect"
)

// KeyOf returns the binding key for type T.
func KeyOf[T any]() reflect.Type {
	return reflect.TypeFor[T]()
}

// Provide binds a typed factory under the key of T.
//
// Example:
//
//	container.Provide(c, container.Singleton, func(r container.Resolver) (*UserRepo, error) {
//	    pool, err := container.Resolve[*pgxpool.Pool](r)
//	    if err != nil {
//	        return nil, err
//	    }
//	    return NewUserRepo(pool), nil
//	})
func Provide[T any](c *Container, lifetime Lifetime, factory func(r Resolver) (T, error)) {
	c.Bind(KeyOf[T](), func(r Resolver) (any, error) {
		v, err := factory(r)
		if err != nil {
			return nil, err
		}
		return v, nil
	}, lifetime)
}

// ProvideValue binds v as the singleton instance for T.
func ProvideValue[T any](c *Container, v T) {
	c.Instance(KeyOf[T](), v)
}

// Resolve resolves T from r.
func Resolve[T any](r Resolver) (T, error) {
	var zero T
	v, err := r.Get(KeyOf[T]())
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s resolved to %T", ErrInvalidFactory, KeyOf[T](), v)
	}
	return t, nil
}

// ResolveNamed resolves a string-keyed binding and asserts it to T.
func ResolveNamed[T any](r Resolver, name string) (T, error) {
	var zero T
	v, err := r.Get(name)
	if err != nil {
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %q resolved to %T, want %s", ErrInvalidFactory, name, v, KeyOf[T]())
	}
	return t, nil
}

// MustResolve is like Resolve but panics on error.
func MustResolve[T any](r Resolver) T {
	v, err := Resolve[T](r)
	if err != nil {
		panic(err)
	}
	return v
}

// Provide registers a constructor: a function returning (T) or (T, error)
// whose parameters are resolved from the container. The binding key is T.
// The declared parameter types are remembered for Validate.
func (c *Container) Provide(ctor any, lifetime Lifetime) error {
	cl, err := Compile(ctor)
	if err != nil {
		return err
	}
	t := cl.Type()
	switch {
	case t.NumOut() == 1 && !cl.hasErr:
	case t.NumOut() == 2 && cl.hasErr:
	default:
		return fmt.Errorf("%w: got %s", ErrConstructorSignature, t)
	}

	deps := make([]any, len(cl.in))
	for i, in := range cl.in {
		deps[i] = in
	}

	c.bind(t.Out(0), func(r Resolver) (any, error) {
		out, err := cl.Invoke(r)
		if err != nil {
			return nil, err
		}
		return out[0], nil
	}, lifetime, deps)
	return nil
}

// MustProvide is like Provide but panics on an invalid constructor.
func (c *Container) MustProvide(ctor any, lifetime Lifetime) {
	if err := c.Provide(ctor, lifetime); err != nil {
		panic(err)
	}
}
