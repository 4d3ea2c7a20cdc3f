package internal

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"

	"github.com/dmitrymomot/expanse/pkg/container"
)

var (
	contextType        = reflect.TypeFor[Context]()
	stdContextType     = reflect.TypeFor[context.Context]()
	requestType        = reflect.TypeFor[*http.Request]()
	responseWriterType = reflect.TypeFor[http.ResponseWriter]()
	paramsType         = reflect.TypeFor[Params]()
	routeType          = reflect.TypeFor[*Route]()
	loggerType         = reflect.TypeFor[*slog.Logger]()
	errorType          = reflect.TypeFor[error]()
	binderType         = reflect.TypeFor[requestBinder]()
)

// requestBinder is implemented by the pointer types of Path, Query and Body.
type requestBinder interface {
	bindRequest(c Context) error
}

// invoker calls a compiled handler.
type invoker struct {
	fast     HandlerFunc
	callable *container.Callable
	location string // file:line of the handler function
}

// newInvoker validates the handler signature once, at registration.
// Accepted results: (), (error), (T), (T, error).
func newInvoker(h any) (*invoker, error) {
	switch fn := h.(type) {
	case nil:
		return nil, fmt.Errorf("%w: nil handler", ErrInvalidHandler)
	case HandlerFunc:
		return &invoker{fast: fn, location: funcLocation(h)}, nil
	case func(Context) (*Response, error):
		return &invoker{fast: fn, location: funcLocation(h)}, nil
	}

	cl, err := container.Compile(h)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidHandler, err)
	}

	t := cl.Type()
	switch t.NumOut() {
	case 0, 1:
	case 2:
		if t.Out(1) != errorType {
			return nil, fmt.Errorf("%w: second result of %s must be error", ErrInvalidHandler, t)
		}
	default:
		return nil, fmt.Errorf("%w: %s returns too many values", ErrInvalidHandler, t)
	}
	return &invoker{callable: cl, location: funcLocation(h)}, nil
}

// call runs the handler on the current goroutine.
func (inv *invoker) call(c *requestContext) (any, error) {
	if inv.fast != nil {
		resp, err := inv.fast(c)
		if resp == nil {
			return nil, err
		}
		return resp, err
	}

	out, err := inv.callable.Invoke(c.scope, c.argSource)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

// argSource supplies request-bound handler parameters. Anything else is
// resolved from the request scope.
func (c *requestContext) argSource(t reflect.Type) (reflect.Value, bool, error) {
	switch t {
	case contextType:
		return reflect.ValueOf(c), true, nil
	case stdContextType:
		return reflect.ValueOf(c.Context()), true, nil
	case requestType:
		return reflect.ValueOf(c.request), true, nil
	case responseWriterType:
		return reflect.ValueOf(c.Writer()), true, nil
	case paramsType:
		return reflect.ValueOf(c.params), true, nil
	case routeType:
		return reflect.ValueOf(c.route), true, nil
	case loggerType:
		return reflect.ValueOf(c.app.logger), true, nil
	}

	switch {
	case reflect.PointerTo(t).Implements(binderType):
		v := reflect.New(t)
		if err := v.Interface().(requestBinder).bindRequest(c); err != nil {
			return reflect.Value{}, true, err
		}
		return v.Elem(), true, nil
	case t.Kind() == reflect.Pointer && t.Implements(binderType):
		v := reflect.New(t.Elem())
		if err := v.Interface().(requestBinder).bindRequest(c); err != nil {
			return reflect.Value{}, true, err
		}
		return v, true, nil
	}
	return reflect.Value{}, false, nil
}
