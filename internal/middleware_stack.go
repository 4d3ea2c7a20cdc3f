package internal

import (
	"fmt"
	"reflect"
	"slices"
	"sync"

	"github.com/dmitrymomot/expanse/pkg/container"
)

// MiddlewareStack holds the global middleware list and named groups.
// The chain for a route is global ++ expand(route groups) ++ route own.
type MiddlewareStack struct {
	groups map[string]*MiddlewareGroup
	global []Middleware
	mu     sync.RWMutex
	frozen bool
}

// NewMiddlewareStack creates an empty stack.
func NewMiddlewareStack() *MiddlewareStack {
	return &MiddlewareStack{groups: make(map[string]*MiddlewareGroup)}
}

// Use replaces the global list.
func (s *MiddlewareStack) Use(mw ...Middleware) {
	s.mutate(func() { s.global = slices.Clone(mw) })
}

// Append adds global middleware after the existing entries.
func (s *MiddlewareStack) Append(mw ...Middleware) {
	s.mutate(func() { s.global = append(s.global, mw...) })
}

// Prepend adds global middleware before the existing entries.
func (s *MiddlewareStack) Prepend(mw ...Middleware) {
	s.mutate(func() { s.global = append(slices.Clone(mw), s.global...) })
}

// Remove drops global entries matching target, which is a middleware
// name or a middleware value. Reports whether anything was removed.
func (s *MiddlewareStack) Remove(target any) bool {
	var removed bool
	s.mutate(func() { s.global, removed = removeMiddleware(s.global, target) })
	return removed
}

// Replace swaps the first global entry matching target for mw.
func (s *MiddlewareStack) Replace(target any, mw Middleware) bool {
	var replaced bool
	s.mutate(func() { replaced = replaceMiddleware(s.global, target, mw) })
	return replaced
}

// Global returns a copy of the global list.
func (s *MiddlewareStack) Global() []Middleware {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.global)
}

// Group returns the named group, creating it on first use.
func (s *MiddlewareStack) Group(name string) *MiddlewareGroup {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.groups[name]
	if !ok {
		if s.frozen {
			panic(ErrFrozen)
		}
		g = &MiddlewareGroup{name: name, stack: s}
		s.groups[name] = g
	}
	return g
}

// HasGroup reports whether a group exists.
func (s *MiddlewareStack) HasGroup(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.groups[name]
	return ok
}

// Snapshot returns the global list and a copy of every group.
func (s *MiddlewareStack) Snapshot() ([]Middleware, map[string][]Middleware) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	groups := make(map[string][]Middleware, len(s.groups))
	for name, g := range s.groups {
		groups[name] = slices.Clone(g.items)
	}
	return slices.Clone(s.global), groups
}

// Freeze rejects further mutation; mutations after Freeze panic with ErrFrozen.
func (s *MiddlewareStack) Freeze() {
	s.mu.Lock()
	s.frozen = true
	s.mu.Unlock()
}

func (s *MiddlewareStack) mutate(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frozen {
		panic(ErrFrozen)
	}
	fn()
}

// Build returns the de-duplicated chain for a route.
// A nil route yields the global list only.
func (s *MiddlewareStack) Build(r *Route) ([]Middleware, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	chain := slices.Clone(s.global)
	if r != nil {
		for _, name := range r.groups {
			items, err := s.expand(name, nil)
			if err != nil {
				return nil, err
			}
			chain = append(chain, items...)
		}
		chain = append(chain, r.middleware...)
	}

	var err error
	chain, err = s.flatten(chain)
	if err != nil {
		return nil, err
	}
	return dedupe(chain), nil
}

// Check verifies that every group referenced by routes exists.
func (s *MiddlewareStack) Check(routes []*Route) error {
	for _, r := range routes {
		if _, err := s.Build(r); err != nil {
			return fmt.Errorf("route %s: %w", r.path, err)
		}
	}
	return nil
}

// expand resolves a group name into its entries, following nested group
// references. Must be called with s.mu held.
func (s *MiddlewareStack) expand(name string, visiting []string) ([]Middleware, error) {
	if slices.Contains(visiting, name) {
		return nil, fmt.Errorf("%w: %q references itself", ErrUnknownGroup, name)
	}
	g, ok := s.groups[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownGroup, name)
	}
	visiting = append(visiting, name)

	out := make([]Middleware, 0, len(g.items))
	for _, mw := range g.items {
		ref, ok := mw.(groupRef)
		if !ok {
			out = append(out, mw)
			continue
		}
		nested, err := s.expand(string(ref), visiting)
		if err != nil {
			return nil, err
		}
		out = append(out, nested...)
	}
	return out, nil
}

// flatten expands group references placed directly in global or route lists.
func (s *MiddlewareStack) flatten(chain []Middleware) ([]Middleware, error) {
	if !slices.ContainsFunc(chain, isGroupRef) {
		return chain, nil
	}
	out := make([]Middleware, 0, len(chain))
	for _, mw := range chain {
		ref, ok := mw.(groupRef)
		if !ok {
			out = append(out, mw)
			continue
		}
		items, err := s.expand(string(ref), nil)
		if err != nil {
			return nil, err
		}
		out = append(out, items...)
	}
	return out, nil
}

// MiddlewareGroup is a named, ordered list of middleware.
type MiddlewareGroup struct {
	stack *MiddlewareStack
	name  string
	items []Middleware
}

// Name returns the group name.
func (g *MiddlewareGroup) Name() string { return g.name }

// Use replaces the group's entries.
func (g *MiddlewareGroup) Use(mw ...Middleware) *MiddlewareGroup {
	g.stack.mutate(func() { g.items = slices.Clone(mw) })
	return g
}

// Append adds entries at the end of the group.
func (g *MiddlewareGroup) Append(mw ...Middleware) *MiddlewareGroup {
	g.stack.mutate(func() { g.items = append(g.items, mw...) })
	return g
}

// Prepend adds entries at the start of the group.
func (g *MiddlewareGroup) Prepend(mw ...Middleware) *MiddlewareGroup {
	g.stack.mutate(func() { g.items = append(slices.Clone(mw), g.items...) })
	return g
}

// Remove drops entries matching target.
func (g *MiddlewareGroup) Remove(target any) bool {
	var removed bool
	g.stack.mutate(func() { g.items, removed = removeMiddleware(g.items, target) })
	return removed
}

// Replace swaps the first entry matching target for mw.
func (g *MiddlewareGroup) Replace(target any, mw Middleware) bool {
	var replaced bool
	g.stack.mutate(func() { replaced = replaceMiddleware(g.items, target, mw) })
	return replaced
}

// Items returns a copy of the group's entries.
func (g *MiddlewareGroup) Items() []Middleware {
	g.stack.mu.RLock()
	defer g.stack.mu.RUnlock()
	return slices.Clone(g.items)
}

// namedMiddleware gives a middleware a stable identity.
type namedMiddleware struct {
	Middleware
	name string
}

func (n namedMiddleware) MiddlewareName() string { return n.name }

// Named gives mw an identity used by Remove, Replace and de-duplication.
func Named(name string, mw Middleware) Middleware {
	return namedMiddleware{Middleware: mw, name: name}
}

// instanceMiddleware is identified by its address, so only the very same
// value collapses during de-duplication.
type instanceMiddleware struct {
	Middleware
	label string
}

func (m *instanceMiddleware) String() string { return m.label }

// Labeled wraps mw with a label shown in error messages. Unlike Named the
// label is not an identity: differently configured copies all run, while
// registering one value twice still runs it once.
func Labeled(label string, mw Middleware) Middleware {
	return &instanceMiddleware{Middleware: mw, label: label}
}

// lazyMiddleware is resolved through the request scope on every request.
type lazyMiddleware struct {
	key reflect.Type
}

func (l lazyMiddleware) MiddlewareName() string { return l.key.String() }

func (l lazyMiddleware) Handle(c Context, next Next) (*Response, error) {
	v, err := c.Scope().Get(l.key)
	if err != nil {
		return nil, err
	}
	mw, ok := v.(Middleware)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidMiddleware, l.key)
	}
	return mw.Handle(c, next)
}

// Lazy references a middleware bound in the container. The instance is
// resolved through the request scope, so it may depend on scoped services.
func Lazy[T Middleware]() Middleware {
	return lazyMiddleware{key: container.KeyOf[T]()}
}

// groupRef stands for a named MiddlewareGroup inside another list.
type groupRef string

func (g groupRef) Handle(c Context, next Next) (*Response, error) {
	return nil, fmt.Errorf("%w: %q was not expanded", ErrUnknownGroup, string(g))
}

func (g groupRef) MiddlewareName() string { return "group:" + string(g) }

// GroupRef references a named MiddlewareGroup. It is expanded in place
// when the chain is built.
func GroupRef(name string) Middleware {
	return groupRef(name)
}

func isGroupRef(mw Middleware) bool {
	_, ok := mw.(groupRef)
	return ok
}

// MiddlewareName returns the identity of mw, or "" for anonymous middleware.
func MiddlewareName(mw Middleware) string {
	if n, ok := mw.(interface{ MiddlewareName() string }); ok {
		return n.MiddlewareName()
	}
	return ""
}

func sameMiddleware(a, b Middleware) bool {
	if na, nb := MiddlewareName(a), MiddlewareName(b); na != "" || nb != "" {
		return na == nb
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta == nil || ta != tb || !ta.Comparable() {
		return false
	}
	return equalValues(a, b)
}

// equalValues compares interface values whose dynamic type is comparable
// but may hold non-comparable fields.
func equalValues(a, b any) (eq bool) {
	defer func() {
		if recover() != nil {
			eq = false
		}
	}()
	return a == b
}

func matchesTarget(mw Middleware, target any) bool {
	switch t := target.(type) {
	case string:
		return MiddlewareName(mw) == t
	case Middleware:
		return sameMiddleware(mw, t)
	}
	return false
}

func removeMiddleware(list []Middleware, target any) ([]Middleware, bool) {
	out := slices.DeleteFunc(slices.Clone(list), func(mw Middleware) bool {
		return matchesTarget(mw, target)
	})
	return out, len(out) != len(list)
}

func replaceMiddleware(list []Middleware, target any, mw Middleware) bool {
	for i, cur := range list {
		if matchesTarget(cur, target) {
			list[i] = mw
			return true
		}
	}
	return false
}

// dedupe keeps the first occurrence of each identity.
func dedupe(chain []Middleware) []Middleware {
	out := chain[:0:0]
	for _, mw := range chain {
		if !slices.ContainsFunc(out, func(seen Middleware) bool { return sameMiddleware(seen, mw) }) {
			out = append(out, mw)
		}
	}
	return out
}
