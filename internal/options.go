package internal

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/expanse/pkg/container"
	"github.com/dmitrymomot/expanse/pkg/logger"
)

// Option configures the application.
type Option func(*App)

// Provider registers bindings in the application container.
// pkg/db, pkg/redis and pkg/cache ship providers for their clients.
type (
	Provider     = container.Provider
	ProviderFunc = container.ProviderFunc
)

// WithHandlers registers handlers that declare routes.
// Each handler's Routes method is called during setup.
func WithHandlers(h ...Handler) Option {
	return func(a *App) {
		a.handlers = append(a.handlers, h...)
	}
}

// WithRoutes registers routes with a plain function.
//
// Example:
//
//	expanse.WithRoutes(func(r expanse.Router) {
//	    r.GET("/ping", func() string { return "pong" })
//	})
func WithRoutes(fn func(r Router)) Option {
	return func(a *App) {
		if fn != nil {
			a.handlers = append(a.handlers, routesFunc(fn))
		}
	}
}

type routesFunc func(r Router)

func (f routesFunc) Routes(r Router) { f(r) }

// WithMiddleware appends global middleware. Global middleware runs for
// every request, including unmatched ones, in the order provided.
func WithMiddleware(mw ...Middleware) Option {
	return func(a *App) {
		a.middleware.Append(mw...)
	}
}

// WithMiddlewareGroup appends middleware to a named group. Routes opt in
// with MiddlewareGroups(name) and other groups can nest it with GroupRef(name).
//
// Example:
//
//	expanse.WithMiddlewareGroup("api",
//	    middlewares.CORS(),
//	    middlewares.JWT(secret),
//	)
func WithMiddlewareGroup(name string, mw ...Middleware) Option {
	return func(a *App) {
		a.middleware.Group(name).Append(mw...)
	}
}

// WithLogger sets the application logger.
// Defaults to a no-op logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *App) {
		if l != nil {
			a.logger = l
		}
	}
}

// WithDefaultLogger installs the JSON logger from pkg/logger with the given
// context extractors.
func WithDefaultLogger(extractors ...logger.ContextExtractor) Option {
	return func(a *App) {
		a.logger = logger.New(extractors...)
	}
}

// WithDebug exposes error details in error responses.
// Never enable in production.
func WithDebug(debug bool) Option {
	return func(a *App) {
		a.config.Debug = debug
	}
}

// WithConfig applies a loaded Config.
func WithConfig(cfg Config) Option {
	return func(a *App) {
		a.config = cfg
	}
}

// WithExceptionHandler replaces the default exception handler.
func WithExceptionHandler(h ExceptionHandler) Option {
	return func(a *App) {
		if h != nil {
			a.exceptions = h
		}
	}
}

// WithReporter adds a reporter invoked for every server error reported by
// the default exception handler.
//
// Example:
//
//	expanse.WithReporter(logger.SentryReporter())
func WithReporter(r Reporter) Option {
	return func(a *App) {
		if r != nil {
			a.reporters = append(a.reporters, r)
		}
	}
}

// WithRequestIDFunc sets how the default exception handler reads the request
// id it stamps on error payloads.
func WithRequestIDFunc(fn func(ctx context.Context) string) Option {
	return func(a *App) {
		a.requestID = fn
	}
}

// WithProviders registers container providers. They run in order before
// routes are registered.
func WithProviders(p ...Provider) Option {
	return func(a *App) {
		a.providers = append(a.providers, p...)
	}
}

// WithContainer configures the application container directly.
//
// Example:
//
//	expanse.WithContainer(func(c *container.Container) {
//	    container.Provide(c, container.Singleton, NewUserRepo)
//	})
func WithContainer(fn func(c *container.Container)) Option {
	return func(a *App) {
		if fn != nil {
			fn(a.container)
		}
	}
}

// WithAdapter registers a response adapter for results of type T.
// It is installed through an OnResolved hook on the adapter registry.
func WithAdapter[T any](fn func(c Context, v T) (*Response, error)) Option {
	return func(a *App) {
		a.container.OnResolved(container.KeyOf[*AdapterRegistry](), func(v any, _ container.Resolver) {
			RegisterAdapter(v.(*AdapterRegistry), fn)
		})
	}
}

// WithJSONFallback renders results without a dedicated adapter as JSON
// instead of failing with UnadaptableResponseError.
func WithJSONFallback() Option {
	return func(a *App) {
		a.config.JSONFallback = true
	}
}

// WithOffloadWorkers bounds the pool running Blocking() handlers.
func WithOffloadWorkers(n int) Option {
	return func(a *App) {
		a.config.OffloadWorkers = n
	}
}

// WithConverter registers a named path converter usable as {name:conv}.
func WithConverter(name string, conv Converter) Option {
	return func(a *App) {
		a.converters = append(a.converters, namedConverter{name: name, conv: conv})
	}
}

type namedConverter struct {
	name string
	conv Converter
}

// WithHealthChecks enables health check endpoints with optional configuration.
// Liveness (/health/live): always OK while the process runs.
// Readiness (/health/ready): runs all configured checks.
//
// Example:
//
//	expanse.WithHealthChecks(
//	    expanse.WithReadinessCheck("db", db.Healthcheck(pool)),
//	    expanse.WithReadinessCheck("redis", redis.Healthcheck(client)),
//	)
func WithHealthChecks(opts ...HealthOption) Option {
	return func(a *App) {
		if a.health == nil {
			a.health = newHealthConfig()
		}
		for _, opt := range opts {
			opt(a.health)
		}
	}
}

// WithRouteFile registers routes declared in a YAML file. Handler names in
// the file are looked up in handlers.
func WithRouteFile(path string, handlers HandlerMap) Option {
	return func(a *App) {
		a.handlers = append(a.handlers, routesFunc(func(r Router) {
			if err := LoadRouteFile(r, path, handlers); err != nil {
				panic(registrationError{err: err})
			}
		}))
	}
}

// WithShutdownHook registers a cleanup function run by Run during shutdown,
// after the server stops accepting requests.
func WithShutdownHook(fn func(context.Context) error) Option {
	return func(a *App) {
		if fn != nil {
			a.shutdownHooks = append(a.shutdownHooks, fn)
		}
	}
}
