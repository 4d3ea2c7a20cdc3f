package internal

import (
	"fmt"
	"net/http"
	"slices"
)

// Router is the interface handlers use to declare routes.
//
// Handlers may be any func; see HandlerFunc. Registration errors such as
// malformed patterns or duplicate names panic and abort application
// bootstrap.
type Router interface {
	// GET registers a handler for GET requests. HEAD is answered implicitly.
	GET(path string, h any, opts ...RouteOption) *Route

	// POST registers a handler for POST requests.
	POST(path string, h any, opts ...RouteOption) *Route

	// PUT registers a handler for PUT requests.
	PUT(path string, h any, opts ...RouteOption) *Route

	// PATCH registers a handler for PATCH requests.
	PATCH(path string, h any, opts ...RouteOption) *Route

	// DELETE registers a handler for DELETE requests.
	DELETE(path string, h any, opts ...RouteOption) *Route

	// HEAD registers a handler for HEAD requests.
	HEAD(path string, h any, opts ...RouteOption) *Route

	// OPTIONS registers a handler for OPTIONS requests.
	OPTIONS(path string, h any, opts ...RouteOption) *Route

	// Handle registers a handler for several methods at once.
	Handle(methods []string, path string, h any, opts ...RouteOption) *Route

	// Group creates a named route group with a path prefix.
	// Route names inside are prefixed with "name."; an empty name leaves
	// the contained routes without composed names.
	Group(name, prefix string, fn func(r Router), opts ...GroupOption)

	// With returns a router that attaches mw to every route registered
	// through it. Names and prefixes are unchanged.
	With(mw ...Middleware) Router

	// Use attaches mw to routes registered afterwards through this router.
	Use(mw ...Middleware)

	// Mount attaches an http.Handler under prefix for all common methods.
	// The prefix is stripped before the handler runs.
	Mount(prefix string, h http.Handler)
}

// registrationError aborts bootstrap from inside route builders.
type registrationError struct {
	err error
}

// registrar implements Router over a RouteCollection.
type registrar struct {
	routes     *RouteCollection
	group      *RouteGroup
	middleware []Middleware
	groups     []string
	blocking   bool
}

func newRegistrar(rc *RouteCollection) *registrar {
	return &registrar{routes: rc}
}

func (r *registrar) GET(path string, h any, opts ...RouteOption) *Route {
	return r.Handle([]string{http.MethodGet}, path, h, opts...)
}

func (r *registrar) POST(path string, h any, opts ...RouteOption) *Route {
	return r.Handle([]string{http.MethodPost}, path, h, opts...)
}

func (r *registrar) PUT(path string, h any, opts ...RouteOption) *Route {
	return r.Handle([]string{http.MethodPut}, path, h, opts...)
}

func (r *registrar) PATCH(path string, h any, opts ...RouteOption) *Route {
	return r.Handle([]string{http.MethodPatch}, path, h, opts...)
}

func (r *registrar) DELETE(path string, h any, opts ...RouteOption) *Route {
	return r.Handle([]string{http.MethodDelete}, path, h, opts...)
}

func (r *registrar) HEAD(path string, h any, opts ...RouteOption) *Route {
	return r.Handle([]string{http.MethodHead}, path, h, opts...)
}

func (r *registrar) OPTIONS(path string, h any, opts ...RouteOption) *Route {
	return r.Handle([]string{http.MethodOptions}, path, h, opts...)
}

func (r *registrar) Handle(methods []string, path string, h any, opts ...RouteOption) *Route {
	prefix := ""
	if r.group != nil {
		prefix = r.group.prefix
	}
	full := path
	if prefix != "" {
		full = joinPath(prefix, path)
	}

	route, err := NewRoute(methods, full, h, opts...)
	if err != nil {
		panic(registrationError{fmt.Errorf("register %s: %w", full, err)})
	}
	if len(route.methods) == 0 {
		panic(registrationError{fmt.Errorf("register %s: %w: no methods", full, ErrInvalidHandler)})
	}

	route.group = r.group
	route.middleware = append(slices.Clone(r.middleware), route.middleware...)
	route.groups = append(slices.Clone(r.groups), route.groups...)
	route.blocking = route.blocking || r.blocking

	if err := r.routes.Add(route); err != nil {
		panic(registrationError{err})
	}
	return route
}

func (r *registrar) Group(name, prefix string, fn func(Router), opts ...GroupOption) {
	cfg := &groupConfig{}
	for _, opt := range opts {
		opt.applyGroup(cfg)
	}

	parentPrefix := ""
	if r.group != nil {
		parentPrefix = r.group.prefix
	}
	g := &RouteGroup{
		parent:     r.group,
		name:       name,
		prefix:     joinPath(parentPrefix, prefix),
		middleware: cfg.middleware,
		groups:     cfg.groups,
	}
	if g.prefix == "/" {
		g.prefix = ""
	}

	fn(&registrar{
		routes:     r.routes,
		group:      g,
		middleware: append(slices.Clone(r.middleware), cfg.middleware...),
		groups:     append(slices.Clone(r.groups), cfg.groups...),
		blocking:   r.blocking || cfg.blocking,
	})
}

func (r *registrar) With(mw ...Middleware) Router {
	return &registrar{
		routes:     r.routes,
		group:      r.group,
		middleware: append(slices.Clone(r.middleware), mw...),
		groups:     slices.Clone(r.groups),
		blocking:   r.blocking,
	}
}

func (r *registrar) Use(mw ...Middleware) {
	r.middleware = append(r.middleware, mw...)
}

func (r *registrar) Mount(prefix string, h http.Handler) {
	base := joinPath("", prefix)
	if r.group != nil {
		base = joinPath(r.group.prefix, prefix)
	}
	strip := http.StripPrefix(base, h)
	methods := []string{
		http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
		http.MethodPatch, http.MethodDelete, http.MethodOptions,
	}
	r.Handle(methods, joinPath(prefix, "{path:path}"), func(c Context) (*Response, error) {
		strip.ServeHTTP(c.Writer(), c.Request())
		return nil, nil
	})
}
