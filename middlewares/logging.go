package middlewares

import (
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/dmitrymomot/expanse/internal"
)

// AccessLogConfig configures the AccessLog middleware.
type AccessLogConfig struct {
	// Skip excludes requests from logging, e.g. health probes.
	Skip func(c internal.Context) bool

	// LogHeaders adds request headers, with SensitiveHeaders redacted.
	LogHeaders       bool
	SensitiveHeaders []string

	// Requests slower than SlowThreshold are logged at warn level.
	SlowThreshold time.Duration
}

// AccessLogOption configures AccessLogConfig.
type AccessLogOption func(*AccessLogConfig)

// WithAccessLogSkip sets a predicate for requests that are not logged.
func WithAccessLogSkip(fn func(c internal.Context) bool) AccessLogOption {
	return func(cfg *AccessLogConfig) {
		cfg.Skip = fn
	}
}

// WithAccessLogHeaders logs request headers, redacting the sensitive ones.
func WithAccessLogHeaders(sensitive ...string) AccessLogOption {
	return func(cfg *AccessLogConfig) {
		cfg.LogHeaders = true
		if len(sensitive) > 0 {
			cfg.SensitiveHeaders = sensitive
		}
	}
}

// WithSlowThreshold sets the duration above which requests log at warn.
func WithSlowThreshold(d time.Duration) AccessLogOption {
	return func(cfg *AccessLogConfig) {
		cfg.SlowThreshold = d
	}
}

// AccessLog logs one line per request with method, path, route, status and
// duration through the application logger.
// 5xx responses log at error level, 4xx at info, slow requests at warn.
// Errors are logged with the status they will render as; rendering happens
// further out in the chain.
func AccessLog(opts ...AccessLogOption) internal.Middleware {
	cfg := &AccessLogConfig{
		SensitiveHeaders: []string{"Authorization", "Cookie", "X-Api-Key", "X-Csrf-Token"},
		SlowThreshold:    5 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	for i, h := range cfg.SensitiveHeaders {
		cfg.SensitiveHeaders[i] = http.CanonicalHeaderKey(h)
	}

	return internal.Labeled("access_log", internal.MiddlewareFunc(func(c internal.Context, next internal.Next) (*internal.Response, error) {
		if cfg.Skip != nil && cfg.Skip(c) {
			return next(c)
		}

		start := time.Now()
		resp, err := next(c)
		elapsed := time.Since(start)

		req := c.Request()
		status := responseStatus(c, resp, err)

		attrs := []any{
			slog.String("method", req.Method),
			slog.String("path", req.URL.Path),
			slog.Int("status", status),
			slog.Duration("duration", elapsed),
			slog.String("remote_addr", req.RemoteAddr),
		}
		if route := c.Route(); route != nil && route.Name() != "" {
			attrs = append(attrs, slog.String("route", route.Name()))
		}
		if id := GetRequestID(c); id != "" {
			attrs = append(attrs, slog.String("request_id", id))
		}
		if req.URL.RawQuery != "" {
			attrs = append(attrs, slog.String("query", req.URL.RawQuery))
		}
		if err != nil {
			attrs = append(attrs, slog.String("error", err.Error()))
		}
		if cfg.LogHeaders {
			attrs = append(attrs, slog.Any("headers", redact(req.Header, cfg.SensitiveHeaders)))
		}

		switch {
		case status >= http.StatusInternalServerError:
			c.LogError("request", attrs...)
		case cfg.SlowThreshold > 0 && elapsed > cfg.SlowThreshold:
			c.LogWarn("slow request", attrs...)
		default:
			c.LogInfo("request", attrs...)
		}
		return resp, err
	}))
}

func responseStatus(c internal.Context, resp *internal.Response, err error) int {
	switch {
	case err != nil:
		return internal.StatusOf(err)
	case resp != nil && resp.Status != 0:
		return resp.Status
	}
	if rw, ok := c.Writer().(interface{ Status() int }); ok && rw.Status() != 0 {
		return rw.Status()
	}
	return http.StatusOK
}

func redact(h http.Header, sensitive []string) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		if slices.Contains(sensitive, k) {
			out[k] = "[REDACTED]"
			continue
		}
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}
