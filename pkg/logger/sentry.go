package logger

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
	sentryslog "github.com/getsentry/sentry-go/slog"
)

// SentryConfig configures Sentry forwarding. An empty DSN disables it.
type SentryConfig struct {
	DSN         string `yaml:"dsn" env:"SENTRY_DSN"`
	Environment string `yaml:"environment" env:"SENTRY_ENVIRONMENT"`
	Release     string `yaml:"release" env:"SENTRY_RELEASE"`
	// ErrorsOnly stops forwarding warnings as Sentry logs.
	ErrorsOnly bool `yaml:"errors_only" env:"SENTRY_ERRORS_ONLY"`
}

func newSentryHandler(cfg SentryConfig) (slog.Handler, error) {
	env := cfg.Environment
	if env == "" {
		env = "production"
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: env,
		Release:     cfg.Release,
		EnableLogs:  true,
	}); err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}

	logLevel := []slog.Level{slog.LevelWarn, slog.LevelError}
	if cfg.ErrorsOnly {
		logLevel = []slog.Level{slog.LevelError}
	}
	return sentryslog.Option{
		EventLevel: []slog.Level{slog.LevelError}, // errors become issues
		LogLevel:   logLevel,
	}.NewSentryHandler(context.Background()), nil
}

// SentryReporter returns an exception reporter that captures err on the
// hub bound to ctx, or the current hub.
//
//	expanse.WithReporter(logger.SentryReporter())
func SentryReporter() func(ctx context.Context, err error) {
	return func(ctx context.Context, err error) {
		hub := sentry.GetHubFromContext(ctx)
		if hub == nil {
			hub = sentry.CurrentHub()
		}
		if hub.Client() == nil {
			return
		}
		hub.CaptureException(err)
	}
}

// FlushSentry waits up to timeout for buffered events. Use it as a shutdown
// hook.
func FlushSentry(timeout time.Duration) func(context.Context) error {
	return func(context.Context) error {
		sentry.Flush(timeout)
		return nil
	}
}
