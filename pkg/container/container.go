package container

import (
	"context"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"sync"
)

// Lifetime controls how long a resolved instance lives.
type Lifetime uint8

const (
	// Transient bindings invoke the factory on every resolution.
	Transient Lifetime = iota
	// Singleton bindings build once per Container and share the instance.
	Singleton
	// Scoped bindings build once per Scope (one request).
	Scoped
)

func (l Lifetime) String() string {
	switch l {
	case Transient:
		return "transient"
	case Singleton:
		return "singleton"
	case Scoped:
		return "scoped"
	default:
		return "lifetime(" + strconv.Itoa(int(l)) + ")"
	}
}

// Factory builds an instance for a binding.
// The Resolver it receives tracks the current resolution path, so nested
// lookups made through it take part in cycle detection.
type Factory func(r Resolver) (any, error)

// Hook runs after a key has been resolved, once per resolution.
type Hook func(instance any, r Resolver)

// Resolver is the read side of the container shared by Container, Scope and
// the resolver handed to factories.
type Resolver interface {
	Get(key any) (any, error)
	Has(key any) bool
	Call(fn any, extra ...any) ([]any, error)
	Context() context.Context
}

type binding struct {
	key      any
	factory  Factory
	deps     []any
	instance any
	mu       sync.RWMutex
	lifetime Lifetime
	built    bool
	static   bool
}

func (b *binding) cached() (any, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.instance, b.built
}

// Container is the application-wide binding registry.
// Bindings are expected to be registered during bootstrap; resolution is safe
// for concurrent use afterwards.
type Container struct {
	bindings map[any]*binding
	aliases  map[string]any
	hooks    map[any][]Hook
	built    []*binding
	flights  flights
	mu       sync.RWMutex
}

// New creates an empty container.
func New() *Container {
	return &Container{
		bindings: make(map[any]*binding),
		aliases:  make(map[string]any),
		hooks:    make(map[any][]Hook),
	}
}

// Bind registers factory under key with the given lifetime.
// Key must be a reflect.Type or a string. A later Bind for the same key
// replaces the earlier one.
func (c *Container) Bind(key any, factory Factory, lifetime Lifetime) {
	c.bind(key, factory, lifetime, nil)
}

// Transient is shorthand for Bind(key, factory, Transient).
func (c *Container) Transient(key any, factory Factory) {
	c.Bind(key, factory, Transient)
}

// Singleton is shorthand for Bind(key, factory, Singleton).
func (c *Container) Singleton(key any, factory Factory) {
	c.Bind(key, factory, Singleton)
}

// Scoped is shorthand for Bind(key, factory, Scoped).
func (c *Container) Scoped(key any, factory Factory) {
	c.Bind(key, factory, Scoped)
}

// Instance binds an already constructed value as a singleton.
func (c *Container) Instance(key any, v any) {
	if isNil(v) {
		panic(fmt.Errorf("%w: %s", ErrNilInstance, KeyString(key)))
	}
	key = mustKey(key)
	b := &binding{
		key:      key,
		lifetime: Singleton,
		instance: v,
		built:    true,
		static:   true,
	}
	c.mu.Lock()
	c.bindings[key] = b
	c.mu.Unlock()
}

// Alias makes name resolve to target.
func (c *Container) Alias(name string, target any) {
	target = mustKey(target)
	c.mu.Lock()
	c.aliases[name] = target
	c.mu.Unlock()
}

// OnResolved registers a hook invoked every time key is successfully resolved,
// after construction and before the instance is returned.
func (c *Container) OnResolved(key any, hook Hook) {
	if hook == nil {
		return
	}
	key = c.canonical(mustKey(key))
	c.mu.Lock()
	c.hooks[key] = append(c.hooks[key], hook)
	c.mu.Unlock()
}

// Get resolves key from the root container. Scoped bindings fail with
// ErrScopeRequired here; use a Scope for those.
func (c *Container) Get(key any) (any, error) {
	return c.resolve(c.root(), key)
}

// Make is an alias of Get.
func (c *Container) Make(key any) (any, error) {
	return c.Get(key)
}

// Has reports whether key can be resolved (bound, aliased or auto-wirable).
func (c *Container) Has(key any) bool {
	return c.has(nil, key)
}

// Call invokes fn, resolving each parameter not satisfied by extra.
func (c *Container) Call(fn any, extra ...any) ([]any, error) {
	return call(c.root(), fn, extra)
}

// Context returns context.Background; the root container is not request bound.
func (c *Container) Context() context.Context {
	return context.Background()
}

// Reset drops cached singleton instances so they are rebuilt on next use.
// Values registered with Instance are kept. Intended for test fixtures.
func (c *Container) Reset() {
	c.mu.Lock()
	built := c.built
	c.built = nil
	c.mu.Unlock()

	for _, b := range built {
		b.mu.Lock()
		b.instance, b.built = nil, false
		b.mu.Unlock()
	}
}

// Close closes built singletons in reverse build order. Both io.Closer and
// the error-less Close() shape (pgxpool.Pool) are recognized.
func (c *Container) Close() error {
	c.mu.Lock()
	built := c.built
	c.built = nil
	c.mu.Unlock()

	var errs []error
	for i := len(built) - 1; i >= 0; i-- {
		v, ok := built[i].cached()
		if !ok {
			continue
		}
		switch closer := v.(type) {
		case io.Closer:
			if err := closer.Close(); err != nil {
				errs = append(errs, err)
			}
		case interface{ Close() }:
			closer.Close()
		}
	}
	return errors.Join(errs...)
}

// Keys returns the bound keys in no particular order.
func (c *Container) Keys() []any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]any, 0, len(c.bindings))
	for k := range c.bindings {
		keys = append(keys, k)
	}
	return keys
}

func (c *Container) bind(key any, factory Factory, lifetime Lifetime, deps []any) {
	if factory == nil {
		panic(fmt.Errorf("%w: nil factory for %s", ErrInvalidFactory, KeyString(key)))
	}
	key = mustKey(key)
	b := &binding{
		key:      key,
		factory:  factory,
		lifetime: lifetime,
		deps:     deps,
	}
	c.mu.Lock()
	c.bindings[key] = b
	c.mu.Unlock()
}

func (c *Container) root() *frame {
	return &frame{c: c, ctx: context.Background(), res: &resolution{}}
}

// canonical follows string aliases to the bound key.
func (c *Container) canonical(key any) any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for range len(c.aliases) + 1 {
		name, ok := key.(string)
		if !ok {
			return key
		}
		target, ok := c.aliases[name]
		if !ok {
			return key
		}
		key = target
	}
	return key
}

func (c *Container) lookup(key any) *binding {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.bindings[key]
}

func (c *Container) has(s *Scope, key any) bool {
	key = c.canonical(key)
	if s != nil && s.hasLocal(key) {
		return true
	}
	if c.lookup(key) != nil {
		return true
	}
	t, ok := key.(reflect.Type)
	return ok && autowirable(t)
}

func (c *Container) resolve(fr *frame, key any) (any, error) {
	if _, err := normalizeKey(key); err != nil {
		return nil, err
	}
	key = c.canonical(key)

	if fr.scope != nil {
		if fr.scope.isClosed() {
			return nil, ErrScopeClosed
		}
		if v, ok := fr.scope.local(key); ok {
			c.runHooks(fr, key, v)
			return v, nil
		}
	}

	if fr.onPath(key) {
		path := append(append([]any{}, fr.path...), key)
		return nil, &CircularDependencyError{Path: trimCycle(path)}
	}

	var (
		v   any
		err error
	)
	b := c.lookup(key)
	switch {
	case b == nil:
		t, ok := key.(reflect.Type)
		if !ok || !autowirable(t) {
			return nil, &UnresolvedBindingError{Key: key, Path: fr.path}
		}
		v, err = c.autowire(fr.push(key), t)
	case b.lifetime == Singleton:
		// singletons never see request-scoped values
		next := fr.push(key)
		next.scope = nil
		v, err = c.singleton(b, next)
	case b.lifetime == Scoped:
		if fr.scope == nil {
			return nil, &UnresolvedBindingError{Key: key, Path: fr.path, Reason: ErrScopeRequired}
		}
		v, err = fr.scope.scoped(b, fr.push(key))
	default:
		v, err = c.build(b, fr.push(key))
	}
	if err != nil {
		return nil, err
	}

	c.runHooks(fr, key, v)
	return v, nil
}

func (c *Container) singleton(b *binding, fr *frame) (any, error) {
	if v, ok := b.cached(); ok {
		return v, nil
	}
	return c.flights.do(b, fr, b.cached, func() (any, error) {
		v, err := c.build(b, fr)
		if err != nil {
			return nil, err
		}
		b.mu.Lock()
		b.instance, b.built = v, true
		b.mu.Unlock()

		c.mu.Lock()
		c.built = append(c.built, b)
		c.mu.Unlock()
		return v, nil
	})
}

func (c *Container) build(b *binding, fr *frame) (v any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			v = nil
			err = fmt.Errorf("%w: %s: %v", ErrFactoryPanic, KeyString(b.key), rec)
		}
	}()

	v, err = b.factory(fr)
	if err != nil {
		var (
			ce *CircularDependencyError
			ue *UnresolvedBindingError
		)
		if errors.As(err, &ce) || errors.As(err, &ue) {
			return nil, err
		}
		return nil, fmt.Errorf("container: resolve %s: %w", KeyString(b.key), err)
	}
	if isNil(v) {
		return nil, fmt.Errorf("%w: %s", ErrNilInstance, KeyString(b.key))
	}
	if t, ok := b.key.(reflect.Type); ok && !reflect.TypeOf(v).AssignableTo(t) {
		return nil, fmt.Errorf("%w: %s produced %T", ErrInvalidFactory, KeyString(b.key), v)
	}
	return v, nil
}

func (c *Container) runHooks(fr *frame, key, v any) {
	c.mu.RLock()
	hooks := c.hooks[key]
	c.mu.RUnlock()
	for _, h := range hooks {
		h(v, fr)
	}
}

func (c *Container) autowire(fr *frame, t reflect.Type) (any, error) {
	st := t.Elem()
	v := reflect.New(st)
	for i := range st.NumField() {
		f := st.Field(i)
		tag, ok := f.Tag.Lookup("inject")
		if !ok {
			continue
		}
		if !f.IsExported() {
			return nil, fmt.Errorf("%w: %s.%s", ErrInjectUnexported, st, f.Name)
		}
		var key any = f.Type
		if tag != "" {
			key = tag
		}
		dep, err := fr.Get(key)
		if err != nil {
			return nil, err
		}
		dv := reflect.ValueOf(dep)
		if !dv.Type().AssignableTo(f.Type) {
			return nil, fmt.Errorf("%w: %s.%s wants %s, got %T", ErrInvalidFactory, st, f.Name, f.Type, dep)
		}
		v.Elem().Field(i).Set(dv)
	}
	return v.Interface(), nil
}

func autowirable(t reflect.Type) bool {
	if t.Kind() != reflect.Pointer || t.Elem().Kind() != reflect.Struct {
		return false
	}
	st := t.Elem()
	for i := range st.NumField() {
		if _, ok := st.Field(i).Tag.Lookup("inject"); ok {
			return true
		}
	}
	return false
}

// frame is a Resolver bound to one resolution path.
type frame struct {
	c     *Container
	scope *Scope
	ctx   context.Context
	res   *resolution
	path  []any
}

func (f *frame) push(key any) *frame {
	path := make([]any, len(f.path), len(f.path)+1)
	copy(path, f.path)
	return &frame{c: f.c, scope: f.scope, ctx: f.ctx, res: f.res, path: append(path, key)}
}

func (f *frame) onPath(key any) bool {
	for _, k := range f.path {
		if k == key {
			return true
		}
	}
	return false
}

func (f *frame) Get(key any) (any, error) { return f.c.resolve(f, key) }
func (f *frame) Has(key any) bool         { return f.c.has(f.scope, key) }
func (f *frame) Context() context.Context { return f.ctx }

func (f *frame) Call(fn any, extra ...any) ([]any, error) {
	return call(f, fn, extra)
}

// trimCycle cuts the path so it starts at the first occurrence of the repeated key.
func trimCycle(path []any) []any {
	last := path[len(path)-1]
	for i, k := range path {
		if k == last {
			return path[i:]
		}
	}
	return path
}

func normalizeKey(key any) (any, error) {
	switch k := key.(type) {
	case reflect.Type:
		if k == nil {
			return nil, ErrUnsupportedKey
		}
		return k, nil
	case string:
		return k, nil
	default:
		return nil, fmt.Errorf("%w: got %T", ErrUnsupportedKey, key)
	}
}

func mustKey(key any) any {
	k, err := normalizeKey(key)
	if err != nil {
		panic(err)
	}
	return k
}

// KeyString renders a key for error messages.
func KeyString(key any) string {
	switch k := key.(type) {
	case reflect.Type:
		return k.String()
	case string:
		return strconv.Quote(k)
	default:
		return fmt.Sprintf("%v", key)
	}
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
