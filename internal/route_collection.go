package internal

import (
	"fmt"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"sync"
)

// canonicalMethods fixes the order of methods in Allow headers.
var canonicalMethods = []string{
	http.MethodGet,
	http.MethodHead,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
	http.MethodOptions,
	http.MethodConnect,
	http.MethodTrace,
}

// RouteMatch is the result of a successful lookup.
type RouteMatch struct {
	Route  *Route
	Params Params
}

// RouteCollection is the ordered set of registered routes.
// Lookups scan in registration order; the first route whose path and
// method both match wins.
type RouteCollection struct {
	names  map[string]*Route
	convs  map[string]*Converter
	routes []*Route
	mu     sync.RWMutex
	frozen bool
}

// NewRouteCollection creates an empty collection with the built-in converters.
func NewRouteCollection() *RouteCollection {
	return &RouteCollection{
		names: make(map[string]*Route),
		convs: defaultConverters(),
	}
}

// RegisterConverter adds or replaces a named path converter.
func (rc *RouteCollection) RegisterConverter(name string, conv Converter) error {
	if conv.Convert == nil {
		return fmt.Errorf("%w: converter %q has no Convert func", ErrUnknownConverter, name)
	}
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.frozen {
		return ErrFrozen
	}
	rc.convs[name] = &conv
	return nil
}

// Add compiles the route pattern and appends the route.
func (rc *RouteCollection) Add(r *Route) error {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	if rc.frozen {
		return ErrFrozen
	}

	p, err := compilePattern(r.path, rc.convs)
	if err != nil {
		return err
	}

	if name := r.Name(); name != "" {
		if existing, ok := rc.names[name]; ok {
			return &DuplicateRouteNameError{Name: name, Existing: existing.path, Pattern: r.path}
		}
		rc.names[name] = r
	}

	r.pattern = p
	rc.routes = append(rc.routes, r)
	return nil
}

// Freeze rejects further registration.
func (rc *RouteCollection) Freeze() {
	rc.mu.Lock()
	rc.frozen = true
	rc.mu.Unlock()
}

// Routes returns the routes in registration order.
func (rc *RouteCollection) Routes() []*Route {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	return slices.Clone(rc.routes)
}

// Find returns a route by its composed name.
func (rc *RouteCollection) Find(name string) (*Route, bool) {
	rc.mu.RLock()
	defer rc.mu.RUnlock()
	r, ok := rc.names[name]
	return r, ok
}

// Match finds the route for method and the escaped request path.
//
// Returns *RouteNotFoundError when no pattern matches and
// *MethodNotAllowedError when patterns matched but none accepts the method.
// An explicit HEAD route takes precedence over the implicit HEAD of an
// earlier GET route.
func (rc *RouteCollection) Match(method, path string) (RouteMatch, error) {
	rc.mu.RLock()
	defer rc.mu.RUnlock()

	parts := splitPath(path)
	var (
		implicit *RouteMatch
		allowed  = make(map[string]bool)
		matched  bool
	)
	for _, r := range rc.routes {
		params, ok := r.pattern.match(parts)
		if !ok {
			continue
		}
		matched = true

		if r.explicit(method) {
			return RouteMatch{Route: r, Params: params}, nil
		}
		if implicit == nil && r.HasMethod(method) {
			implicit = &RouteMatch{Route: r, Params: params}
		}
		for _, m := range r.methods {
			allowed[m] = true
		}
	}

	if implicit != nil {
		return *implicit, nil
	}
	if !matched {
		return RouteMatch{}, &RouteNotFoundError{Method: method, Path: path}
	}
	return RouteMatch{}, &MethodNotAllowedError{
		Method:  method,
		Path:    path,
		Allowed: sortMethods(allowed),
	}
}

// Allowed returns the methods registered for path, HEAD included when GET is.
func (rc *RouteCollection) Allowed(path string) []string {
	rc.mu.RLock()
	defer rc.mu.RUnlock()

	parts := splitPath(path)
	allowed := make(map[string]bool)
	for _, r := range rc.routes {
		if _, ok := r.pattern.match(parts); ok {
			for _, m := range r.methods {
				allowed[m] = true
			}
		}
	}
	return sortMethods(allowed)
}

// URL builds the path for a named route. Parameters not used by the
// pattern are appended as a query string sorted by key.
func (rc *RouteCollection) URL(name string, params map[string]any) (string, error) {
	r, ok := rc.Find(name)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownRoute, name)
	}

	rest := maps.Clone(params)
	if rest == nil {
		rest = map[string]any{}
	}
	path, err := r.pattern.build(rest)
	if err != nil {
		return "", err
	}
	if len(rest) == 0 {
		return path, nil
	}

	q := make(url.Values, len(rest))
	for k, v := range rest {
		q.Set(k, fmt.Sprint(v))
	}
	return path + "?" + q.Encode(), nil
}

func sortMethods(set map[string]bool) []string {
	if set[http.MethodGet] {
		set[http.MethodHead] = true
	}
	out := make([]string, 0, len(set))
	for _, m := range canonicalMethods {
		if set[m] {
			out = append(out, m)
			delete(set, m)
		}
	}
	return append(out, slices.Sorted(maps.Keys(set))...)
}
