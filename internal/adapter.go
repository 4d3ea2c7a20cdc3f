package internal

import (
	"fmt"
	"net/http"
	"reflect"
	"slices"
	"sync"

	"github.com/a-h/templ"
)

// AdapterFunc converts a handler result into a Response.
type AdapterFunc func(c Context, v any) (*Response, error)

type adapterEntry struct {
	id    reflect.Type
	match func(v any) bool
	fn    AdapterFunc
}

// AdapterRegistry maps handler results to responses. Adapters are tried in
// registration order; the first whose match accepts the value wins.
type AdapterRegistry struct {
	entries []adapterEntry
	mu      sync.RWMutex
}

// NewAdapterRegistry creates a registry with the built-in adapters:
// *Response, Responder, error, string, []byte, templ.Component,
// map[string]any, []any and JSONResult.
func NewAdapterRegistry() *AdapterRegistry {
	r := &AdapterRegistry{}
	registerBuiltinAdapters(r)
	return r
}

// Register adds an adapter identified by id. Registering an id again
// replaces the existing adapter in place, keeping its position.
func (r *AdapterRegistry) Register(id reflect.Type, match func(v any) bool, fn AdapterFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := adapterEntry{id: id, match: match, fn: fn}
	if i := slices.IndexFunc(r.entries, func(e adapterEntry) bool { return e.id == id }); i >= 0 {
		r.entries[i] = e
		return
	}
	r.entries = append(r.entries, e)
}

// RegisterAdapter registers fn for values of type T. Interface types match
// every implementation; concrete types match exactly.
func RegisterAdapter[T any](r *AdapterRegistry, fn func(c Context, v T) (*Response, error)) {
	r.Register(reflect.TypeFor[T](),
		func(v any) bool {
			_, ok := v.(T)
			return ok
		},
		func(c Context, v any) (*Response, error) {
			return fn(c, v.(T))
		},
	)
}

// Lookup returns the adapter for v.
func (r *AdapterRegistry) Lookup(v any) (AdapterFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if e.match(v) {
			return e.fn, true
		}
	}
	return nil, false
}

// Len returns the number of registered adapters.
func (r *AdapterRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Adapt converts a handler result. A nil result becomes 204 No Content.
// Values without an adapter fail with *UnadaptableResponseError.
func (r *AdapterRegistry) Adapt(c Context, v any) (*Response, error) {
	if isNilResult(v) {
		return NoContent(http.StatusNoContent), nil
	}
	fn, ok := r.Lookup(v)
	if !ok {
		return nil, &UnadaptableResponseError{Type: fmt.Sprintf("%T", v)}
	}
	resp, err := fn(c, v)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return NoContent(http.StatusNoContent), nil
	}
	return resp, nil
}

// JSONResult is a handler result rendered as JSON with an explicit status.
type JSONResult struct {
	Value  any
	Status int
}

// Created wraps v as a 201 JSON result.
func Created(v any) JSONResult {
	return JSONResult{Status: http.StatusCreated, Value: v}
}

func registerBuiltinAdapters(r *AdapterRegistry) {
	RegisterAdapter(r, func(_ Context, v *Response) (*Response, error) {
		return v, nil
	})
	RegisterAdapter(r, func(c Context, v Responder) (*Response, error) {
		return v.Respond(c)
	})
	RegisterAdapter(r, func(_ Context, v error) (*Response, error) {
		return nil, v
	})
	RegisterAdapter(r, func(c Context, v string) (*Response, error) {
		if c.Accepts("text/plain", "application/json") == "application/json" {
			return JSON(http.StatusOK, v), nil
		}
		return Text(http.StatusOK, v), nil
	})
	RegisterAdapter(r, func(_ Context, v []byte) (*Response, error) {
		return Blob(http.StatusOK, MIMEOctetStream, v), nil
	})
	RegisterAdapter(r, func(_ Context, v templ.Component) (*Response, error) {
		return Render(http.StatusOK, v), nil
	})
	RegisterAdapter(r, func(_ Context, v map[string]any) (*Response, error) {
		return JSON(http.StatusOK, v), nil
	})
	RegisterAdapter(r, func(_ Context, v []any) (*Response, error) {
		return JSON(http.StatusOK, v), nil
	})
	RegisterAdapter(r, func(_ Context, v JSONResult) (*Response, error) {
		status := v.Status
		if status == 0 {
			status = http.StatusOK
		}
		return JSON(status, v.Value), nil
	})
}

// jsonFallback adapts any remaining value as JSON. It is registered last.
func jsonFallback(r *AdapterRegistry) {
	RegisterAdapter(r, func(_ Context, v any) (*Response, error) {
		return JSON(http.StatusOK, v), nil
	})
}

func isNilResult(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}
