// Package logger builds slog loggers for expanse applications.
//
// [New] returns a JSON logger on stdout. [NewFromConfig] selects level and
// format and, when a Sentry DSN is configured, fans records out to Sentry
// as well.
//
// Context extractors add request-scoped attributes to every record logged
// with a context:
//
//	log := logger.New(middlewares.RequestIDExtractor())
//	log.InfoContext(ctx, "order placed") // ... "request_id":"0190..."
//
// [SentryReporter] plugs into expanse.WithReporter so unhandled errors are
// captured as Sentry issues.
package logger
