package internal

import (
	"net/http"
	"slices"
	"strings"
)

// Route is a registered endpoint. Routes are immutable once added to a
// RouteCollection.
type Route struct {
	handler    any
	invoker    *invoker
	pattern    *pattern
	group      *RouteGroup
	methods    []string
	path       string
	name       string
	middleware []Middleware
	groups     []string
	blocking   bool
}

// NewRoute builds a route. The handler is compiled immediately so signature
// errors surface at registration.
func NewRoute(methods []string, path string, handler any, opts ...RouteOption) (*Route, error) {
	inv, err := newInvoker(handler)
	if err != nil {
		return nil, err
	}

	cfg := &routeConfig{}
	for _, opt := range opts {
		opt.applyRoute(cfg)
	}

	r := &Route{
		handler:    handler,
		invoker:    inv,
		path:       path,
		name:       cfg.name,
		middleware: cfg.middleware,
		groups:     cfg.groups,
		blocking:   cfg.blocking,
	}
	for _, m := range methods {
		m = strings.ToUpper(strings.TrimSpace(m))
		if m != "" && !slices.Contains(r.methods, m) {
			r.methods = append(r.methods, m)
		}
	}
	return r, nil
}

// Methods returns the HTTP methods the route accepts.
func (r *Route) Methods() []string { return slices.Clone(r.methods) }

// Pattern returns the full path pattern.
func (r *Route) Pattern() string { return r.path }

// Name returns the composed route name, or "" if the route is unnamed.
// A route inside an unnamed group has no composed name.
func (r *Route) Name() string {
	if r.name == "" {
		return ""
	}
	prefix, ok := r.group.namePrefix()
	if !ok {
		return ""
	}
	return prefix + r.name
}

// Middleware returns the route's own middleware, group middleware first.
func (r *Route) Middleware() []Middleware { return slices.Clone(r.middleware) }

// MiddlewareGroups returns the named stack groups the route references.
func (r *Route) MiddlewareGroups() []string { return slices.Clone(r.groups) }

// Blocking reports whether the handler runs on the offload pool.
func (r *Route) Blocking() bool { return r.blocking }

// Handler returns the handler as registered.
func (r *Route) Handler() any { return r.handler }

// Group returns the innermost enclosing group, or nil.
func (r *Route) Group() *RouteGroup { return r.group }

// HasMethod reports whether the route answers method.
// GET routes answer HEAD implicitly.
func (r *Route) HasMethod(method string) bool {
	if slices.Contains(r.methods, method) {
		return true
	}
	return method == http.MethodHead && slices.Contains(r.methods, http.MethodGet)
}

func (r *Route) explicit(method string) bool {
	return slices.Contains(r.methods, method)
}

// RouteGroup is a named prefix scope for routes.
type RouteGroup struct {
	parent     *RouteGroup
	name       string
	prefix     string
	middleware []Middleware
	groups     []string
}

// Name returns the group's own name segment.
func (g *RouteGroup) Name() string { return g.name }

// Prefix returns the full path prefix including parents.
func (g *RouteGroup) Prefix() string { return g.prefix }

// Parent returns the enclosing group, or nil.
func (g *RouteGroup) Parent() *RouteGroup { return g.parent }

// namePrefix joins the names of g and its parents with dots.
// The second result is false if any group on the way is unnamed.
func (g *RouteGroup) namePrefix() (string, bool) {
	var names []string
	for cur := g; cur != nil; cur = cur.parent {
		if cur.name == "" {
			return "", false
		}
		names = append(names, cur.name)
	}
	slices.Reverse(names)
	var b strings.Builder
	for _, n := range names {
		b.WriteString(n)
		b.WriteByte('.')
	}
	return b.String(), true
}

// joinPath joins path pieces with a single slash.
func joinPath(prefix, path string) string {
	joined := strings.TrimRight(prefix, "/") + "/" + strings.TrimLeft(path, "/")
	if path == "" || (path == "/" && prefix != "") {
		joined = strings.TrimRight(joined, "/")
	}
	for strings.Contains(joined, "//") {
		joined = strings.ReplaceAll(joined, "//", "/")
	}
	if joined == "" {
		return "/"
	}
	if !strings.HasPrefix(joined, "/") {
		joined = "/" + joined
	}
	return joined
}

type routeConfig struct {
	name       string
	middleware []Middleware
	groups     []string
	blocking   bool
}

type groupConfig struct {
	middleware []Middleware
	groups     []string
	blocking   bool
}

// RouteOption configures a single route.
type RouteOption interface {
	applyRoute(*routeConfig)
}

// GroupOption configures a route group.
type GroupOption interface {
	applyGroup(*groupConfig)
}

// RouteGroupOption configures both routes and groups.
type RouteGroupOption interface {
	RouteOption
	GroupOption
}

type nameOption string

func (o nameOption) applyRoute(c *routeConfig) { c.name = string(o) }

// Name sets the route's own name segment. Enclosing group names are
// prepended with dots.
func Name(name string) RouteOption { return nameOption(name) }

type middlewareOption []Middleware

func (o middlewareOption) applyRoute(c *routeConfig) { c.middleware = append(c.middleware, o...) }
func (o middlewareOption) applyGroup(c *groupConfig) { c.middleware = append(c.middleware, o...) }

// Middlewares attaches middleware to a route or group.
func Middlewares(mw ...Middleware) RouteGroupOption { return middlewareOption(mw) }

type groupsOption []string

func (o groupsOption) applyRoute(c *routeConfig) { c.groups = append(c.groups, o...) }
func (o groupsOption) applyGroup(c *groupConfig) { c.groups = append(c.groups, o...) }

// MiddlewareGroups references named groups of the MiddlewareStack.
// They are expanded between global middleware and the route's own list.
func MiddlewareGroups(names ...string) RouteGroupOption { return groupsOption(names) }

type blockingOption struct{}

func (blockingOption) applyRoute(c *routeConfig) { c.blocking = true }
func (blockingOption) applyGroup(c *groupConfig) { c.blocking = true }

// Blocking runs the handler on the bounded offload pool instead of the
// request goroutine.
func Blocking() RouteGroupOption { return blockingOption{} }
