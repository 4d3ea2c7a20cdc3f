package internal

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dmitrymomot/expanse/pkg/container"
	"github.com/dmitrymomot/expanse/pkg/logger"
)

// Default server timeouts (hardcoded, opinionated).
const (
	defaultReadTimeout       = 15 * time.Second
	defaultWriteTimeout      = 30 * time.Second
	defaultIdleTimeout       = 120 * time.Second
	defaultReadHeaderTimeout = 5 * time.Second
	defaultMaxHeaderBytes    = 1 << 20 // 1MB
	defaultShutdownTimeout   = 30 * time.Second
)

// App owns every registry of one application: the container, the routes,
// the middleware stack and the response adapters.
// App is immutable after creation - all configuration is done via New().
type App struct {
	container     *container.Container
	routes        *RouteCollection
	middleware    *MiddlewareStack
	adapters      *AdapterRegistry
	exceptions    ExceptionHandler
	dispatcher    *Dispatcher
	offload       *offloader
	logger        *slog.Logger
	health        *healthConfig
	requestID     func(ctx context.Context) string
	handlers      []Handler
	providers     []Provider
	reporters     []Reporter
	converters    []namedConverter
	shutdownHooks []func(context.Context) error
	config        Config
}

// New creates a new application with the given options.
// Routes, middleware and container bindings are validated and frozen
// before New returns.
//
// Example:
//
//	app, err := expanse.New(
//	    expanse.WithMiddleware(middlewares.RequestID()),
//	    expanse.WithHandlers(
//	        handlers.NewAuth(repo),
//	        handlers.NewPages(repo),
//	    ),
//	)
func New(opts ...Option) (*App, error) {
	a := &App{
		container:  container.New(),
		routes:     NewRouteCollection(),
		middleware: NewMiddlewareStack(),
		adapters:   NewAdapterRegistry(),
		logger:     logger.NewNope(), // Default: noop logger (before options)
		config:     DefaultConfig(),
	}

	for _, opt := range opts {
		opt(a)
	}

	if err := a.bootstrap(); err != nil {
		return nil, err
	}
	return a, nil
}

// MustNew is like New but panics on error.
func MustNew(opts ...Option) *App {
	a, err := New(opts...)
	if err != nil {
		panic(err)
	}
	return a
}

func (a *App) bootstrap() error {
	if a.config.Health.Enabled && a.health == nil {
		a.health = newHealthConfig()
	}
	// Paths from the config only win over options when they were changed.
	if a.health != nil {
		if p := a.config.Health.LivenessPath; p != defaultLivenessPath {
			WithLivenessPath(p)(a.health)
		}
		if p := a.config.Health.ReadinessPath; p != defaultReadinessPath {
			WithReadinessPath(p)(a.health)
		}
	}

	for _, nc := range a.converters {
		if err := a.routes.RegisterConverter(nc.name, nc.conv); err != nil {
			return err
		}
	}

	if a.exceptions == nil {
		a.exceptions = NewExceptionHandler(a.logger, a.config.Debug, a.reporters...).
			WithRequestIDFunc(a.requestID)
	}
	a.offload = newOffloader(a.config.OffloadWorkers)

	c := a.container
	container.ProvideValue(c, a)
	container.ProvideValue(c, a.logger)
	container.ProvideValue(c, a.routes)
	container.ProvideValue(c, a.middleware)
	container.ProvideValue(c, a.adapters)
	container.ProvideValue(c, a.exceptions)

	for _, p := range a.providers {
		if err := p.Register(c); err != nil {
			return fmt.Errorf("register provider %T: %w", p, err)
		}
	}

	// Resolving the registry once runs every OnResolved hook, which is how
	// WithAdapter and providers extend it.
	if _, err := container.Resolve[*AdapterRegistry](c); err != nil {
		return err
	}
	if a.config.JSONFallback {
		jsonFallback(a.adapters)
	}

	if err := a.registerRoutes(); err != nil {
		return err
	}
	if err := a.middleware.Check(a.routes.Routes()); err != nil {
		return err
	}
	if err := c.Validate(); err != nil {
		return err
	}

	a.routes.Freeze()
	a.middleware.Freeze()
	a.dispatcher = newDispatcher(a)
	return nil
}

// registerRoutes runs every route builder. Builders abort registration by
// panicking with a registrationError.
func (a *App) registerRoutes() (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			re, ok := rec.(registrationError)
			if !ok {
				panic(rec)
			}
			err = re.err
		}
	}()

	r := newRegistrar(a.routes)
	if a.health != nil {
		a.health.routes(r)
	}
	for _, h := range a.handlers {
		h.Routes(r)
	}
	return nil
}

// ServeHTTP implements http.Handler.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.dispatcher.ServeHTTP(w, r)
}

// Container returns the application container.
func (a *App) Container() *container.Container { return a.container }

// Routes returns the route collection.
func (a *App) Routes() *RouteCollection { return a.routes }

// Middleware returns the middleware stack.
func (a *App) Middleware() *MiddlewareStack { return a.middleware }

// Adapters returns the response adapter registry.
func (a *App) Adapters() *AdapterRegistry { return a.adapters }

// Logger returns the application logger.
func (a *App) Logger() *slog.Logger { return a.logger }

// Config returns the effective configuration.
func (a *App) Config() Config { return a.config }

// URL builds the path of a named route.
//
//	app.URL("users.show", map[string]any{"id": 42}) // "/users/42"
func (a *App) URL(name string, params map[string]any) (string, error) {
	return a.routes.URL(name, params)
}

// Reset drops cached singletons so test fixtures start from fresh state.
// Routes and middleware stay registered.
func (a *App) Reset() {
	a.container.Reset()
}

// Close releases container singletons that implement io.Closer.
func (a *App) Close() error {
	return a.container.Close()
}

// Run starts the HTTP server and blocks until shutdown.
// Shutdown hooks registered with WithShutdownHook run after the server
// stops; the container is closed last.
//
// Example:
//
//	app := expanse.MustNew(
//	    expanse.WithHandlers(handlers.NewLandingHandler()),
//	)
//	err := app.Run(":8080", expanse.Logger(slog))
func (a *App) Run(addr string, opts ...RunOption) error {
	cfg := a.newRunConfig(opts...)
	if addr == "" {
		addr = a.config.Address
	}

	hooks := append([]func(context.Context) error{}, a.shutdownHooks...)
	hooks = append(hooks, cfg.shutdownHooks...)
	hooks = append(hooks, func(context.Context) error {
		if err := a.Close(); err != nil {
			return fmt.Errorf("close container: %w", err)
		}
		return nil
	})

	return serve(addr, a, cfg, hooks)
}
