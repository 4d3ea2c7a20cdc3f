// Command example runs a small contacts API on expanse.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/dmitrymomot/expanse"
	"github.com/dmitrymomot/expanse/example/handlers"
	"github.com/dmitrymomot/expanse/example/repository"
	"github.com/dmitrymomot/expanse/middlewares"
	"github.com/dmitrymomot/expanse/pkg/cache"
	"github.com/dmitrymomot/expanse/pkg/logger"
)

func main() {
	log, err := logger.NewFromConfig(logger.Config{
		Level:  os.Getenv("LOG_LEVEL"),
		Format: os.Getenv("LOG_FORMAT"),
	}, os.Stdout, middlewares.RequestIDExtractor())
	if err != nil {
		slog.Error("logger", "error", err)
		os.Exit(1)
	}

	cfg, err := expanse.LoadConfig(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Error("load config", "error", err)
		os.Exit(1)
	}
	cfg.JSONFallback = true
	cfg.Health.Enabled = true

	store := cache.NewMemory(cache.WithMaxEntries(1024))

	app, err := expanse.New(
		expanse.WithConfig(cfg),
		expanse.WithLogger(log),
		expanse.WithReporter(logger.SentryReporter()),
		expanse.WithRequestIDFunc(middlewares.RequestIDFromContext),
		expanse.WithMiddleware(
			middlewares.RequestID(),
			middlewares.AccessLog(middlewares.WithSlowThreshold(time.Second)),
			middlewares.CORS(),
		),
		expanse.WithMiddlewareGroup("api",
			middlewares.Timeout(5*time.Second),
			middlewares.ResponseCache(store, 10*time.Second),
		),
		expanse.WithHandlers(handlers.NewContacts(repository.New())),
		expanse.WithShutdownHook(logger.FlushSentry(2*time.Second)),
		expanse.WithShutdownHook(func(context.Context) error { return store.Close() }),
	)
	if err != nil {
		log.Error("bootstrap", "error", err)
		os.Exit(1)
	}

	if err := app.Run(""); err != nil {
		log.Error("server", "error", err)
		os.Exit(1)
	}
}
