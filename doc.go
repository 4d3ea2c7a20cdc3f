// Package expanse is a small web framework core: a dependency injection
// container with request scopes, a typed-pattern router, a two-level
// middleware stack, a response adapter registry and centralized exception
// handling.
//
// # Quick Start
//
// Create an application with expanse.New(), declare routes through handlers
// and call Run() to start the HTTP server:
//
//	app, err := expanse.New(
//	    expanse.WithLogger(logger),
//	    expanse.WithHandlers(handlers.NewUsers(repo)),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := app.Run(":8080"); err != nil {
//	    log.Fatal(err)
//	}
//
// # Handlers
//
// A handler is any func. Its parameters are resolved by type: the request
// Context, *http.Request, converted Params, binding wrappers (Path[T],
// Query[T], Body[T]) and anything bound in the container. Its result goes
// through the adapter registry:
//
//	func (h *Users) Routes(r expanse.Router) {
//	    r.Group("users", "/users", func(r expanse.Router) {
//	        r.GET("/{id:int}", h.show, expanse.Name("show"))
//	        r.POST("", h.create, expanse.Name("create"))
//	    })
//	}
//
//	func (h *Users) show(c expanse.Context, repo *UserRepo) (*User, error) {
//	    return repo.Find(c, expanse.Param[int](c, "id"))
//	}
//
//	func (h *Users) create(in expanse.Body[CreateUser]) (expanse.JSONResult, error) {
//	    ...
//	}
//
// # Routing
//
// Patterns use {name} and {name:converter} segments. Built-in converters are
// str, int, float, uuid, slug and path (greedy); {name:re:expr} matches a
// regular expression. A failed conversion is a non-match, so the next route
// is tried. Routes are tried in registration order. A path that matched with
// the wrong method yields 405 with Allow; OPTIONS is answered automatically.
//
// # Middleware
//
// Middleware receives the context and the continuation:
//
//	func Timing(log *slog.Logger) expanse.Middleware {
//	    return expanse.MiddlewareFunc(func(c expanse.Context, next expanse.Next) (*expanse.Response, error) {
//	        start := time.Now()
//	        resp, err := next(c)
//	        log.Info("request", "path", c.Request().URL.Path, "duration", time.Since(start))
//	        return resp, err
//	    })
//	}
//
// The chain for a route is global ++ groups ++ route-own middleware.
// Named groups are declared with WithMiddlewareGroup and attached with
// MiddlewareGroups(...). Lazy[T]() resolves middleware from the request
// scope.
//
// # Errors
//
// Errors escaping the chain are reported and rendered by the
// ExceptionHandler. HTTPError keeps its status; ValidationError renders 422
// with a list of field errors; anything else is 500 "Server error" unless
// debug mode is on.
//
// # Shutdown
//
// Run handles SIGINT/SIGTERM for graceful shutdown, runs shutdown hooks and
// closes container singletons implementing io.Closer.
package expanse
