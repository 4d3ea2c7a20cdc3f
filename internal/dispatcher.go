package internal

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dmitrymomot/expanse/pkg/container"
)

// Dispatcher serves one request: it opens the request scope, matches the
// route, runs the middleware chain and writes the resulting Response.
type Dispatcher struct {
	app        *App
	routes     *RouteCollection
	stack      *MiddlewareStack
	adapters   *AdapterRegistry
	exceptions ExceptionHandler
	offload    *offloader
	logger     *slog.Logger
}

func newDispatcher(a *App) *Dispatcher {
	return &Dispatcher{
		app:        a,
		routes:     a.routes,
		stack:      a.middleware,
		adapters:   a.adapters,
		exceptions: a.exceptions,
		offload:    a.offload,
		logger:     a.logger,
	}
}

// ServeHTTP implements http.Handler.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w)

	scope := d.app.container.NewScope(r.Context(), container.WithCloseErrorHandler(func(err error) {
		d.logger.ErrorContext(r.Context(), "request scope teardown failed", slog.Any("error", err))
	}))
	defer scope.Close()

	r = r.WithContext(container.WithScope(r.Context(), scope))

	m, matchErr := d.routes.Match(r.Method, r.URL.EscapedPath())
	c := newContext(d.app, rw, r, scope, m)
	seedScope(scope, c, m)

	resp, err := d.handle(c, matchErr)
	if err != nil {
		// HandleExceptions renders every error; this only happens when a
		// custom exception handler itself fails.
		d.logger.ErrorContext(r.Context(), "exception handler failed", slog.Any("error", err))
		resp = Text(http.StatusInternalServerError, serverErrorMessage)
	}

	if rw.Written() {
		return
	}
	resp.Prepare(c.Request())
	if err := resp.Write(c.Request().Context(), rw); err != nil {
		d.logger.WarnContext(r.Context(), "response write failed",
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
	}
}

func seedScope(s *container.Scope, c *requestContext, m RouteMatch) {
	s.Set(container.KeyOf[Context](), c)
	s.Set(container.KeyOf[*http.Request](), c.request)
	s.Set(container.KeyOf[Params](), m.Params)
	if m.Route != nil {
		s.Set(container.KeyOf[*Route](), m.Route)
	}
}

// handle runs the chain: HandleExceptions, then the route's middleware, then
// the handler. Unmatched requests still pass through global middleware.
func (d *Dispatcher) handle(c *requestContext, matchErr error) (*Response, error) {
	var (
		route = c.route
		final Next
	)
	if matchErr != nil {
		route = nil
		final = d.unmatched(matchErr)
	} else {
		final = d.terminal(route)
	}

	mws, err := d.stack.Build(route)
	if err != nil {
		buildErr := err
		mws = nil
		final = func(Context) (*Response, error) { return nil, buildErr }
	}

	chain := make([]Middleware, 0, len(mws)+1)
	chain = append(chain, HandleExceptions(d.exceptions))
	chain = append(chain, mws...)
	return compose(chain, final)(c)
}

// terminal invokes the route handler and adapts its result.
func (d *Dispatcher) terminal(route *Route) Next {
	return func(cc Context) (*Response, error) {
		c := requestContextOf(cc)

		var (
			v   any
			err error
		)
		if route.blocking {
			worker, abandon := c.detach()
			v, err = d.offload.run(c.Context(), c.scope, abandon, func() (any, error) {
				return route.invoker.call(worker)
			})
		} else {
			v, err = route.invoker.call(c)
		}
		if err != nil {
			if d.app.config.Debug {
				err = locate(err, route.invoker.location)
			}
			return nil, err
		}
		if v == nil && c.Written() {
			return nil, nil
		}
		return d.adapters.Adapt(c, v)
	}
}

// unmatched answers OPTIONS for known paths and fails everything else
// with the match error.
func (d *Dispatcher) unmatched(matchErr error) Next {
	return func(c Context) (*Response, error) {
		var mna *MethodNotAllowedError
		if c.Request().Method == http.MethodOptions && errors.As(matchErr, &mna) {
			resp := NoContent(http.StatusOK)
			resp.Header.Set("Allow", strings.Join(mna.Allowed, ", "))
			return resp, nil
		}
		return nil, matchErr
	}
}

// requestContextOf recovers the concrete context. Middleware may hand a
// wrapped Context down the chain; in that case the request is synced back.
func requestContextOf(c Context) *requestContext {
	if rc, ok := c.(*requestContext); ok {
		return rc
	}
	if v, err := c.Scope().Get(container.KeyOf[Context]()); err == nil {
		if inner, ok := v.(*requestContext); ok {
			inner.request = c.Request()
			return inner
		}
	}
	panic("expanse: unsupported Context implementation")
}
