package internal

import (
	"context"
	"log/slog"
	"net"
	"time"
)

// RunOption configures App.Run.
type RunOption func(*runConfig)

type runConfig struct {
	logger          *slog.Logger
	listener        net.Listener
	baseCtx         context.Context
	shutdownHooks   []func(context.Context) error
	shutdownTimeout time.Duration
}

// newRunConfig starts from the application logger and configured shutdown
// timeout; opts override both.
func (a *App) newRunConfig(opts ...RunOption) *runConfig {
	cfg := &runConfig{
		logger:          a.logger,
		baseCtx:         context.Background(),
		shutdownTimeout: a.config.ShutdownTimeout,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.shutdownTimeout <= 0 {
		cfg.shutdownTimeout = defaultShutdownTimeout
	}
	return cfg
}

// Logger sets the server logger. Defaults to the application logger.
func Logger(l *slog.Logger) RunOption {
	return func(c *runConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// ShutdownTimeout bounds server shutdown and the hooks that follow it.
// Overrides Config.ShutdownTimeout.
func ShutdownTimeout(d time.Duration) RunOption {
	return func(c *runConfig) {
		if d > 0 {
			c.shutdownTimeout = d
		}
	}
}

// ShutdownHook adds a hook run after the server stops, following the hooks
// registered with WithShutdownHook.
//
//	app.Run(":8080", expanse.ShutdownHook(func(ctx context.Context) error {
//	    return queue.Drain(ctx)
//	}))
func ShutdownHook(fn func(context.Context) error) RunOption {
	return func(c *runConfig) {
		if fn != nil {
			c.shutdownHooks = append(c.shutdownHooks, fn)
		}
	}
}

// Listener serves on ln instead of binding the address.
func Listener(ln net.Listener) RunOption {
	return func(c *runConfig) {
		c.listener = ln
	}
}

// WithContext sets the context whose cancellation triggers shutdown.
// SIGINT and SIGTERM always do.
func WithContext(ctx context.Context) RunOption {
	return func(c *runConfig) {
		if ctx != nil {
			c.baseCtx = ctx
		}
	}
}
