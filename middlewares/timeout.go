package middlewares

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrymomot/expanse/internal"
)

// DefaultTimeout is used when Timeout receives a non-positive duration.
const DefaultTimeout = 30 * time.Second

// TimeoutConfig configures the timeout middleware.
type TimeoutConfig struct {
	Timeout time.Duration
}

// TimeoutOption configures TimeoutConfig.
type TimeoutOption func(*TimeoutConfig)

type timeoutResult struct {
	resp *internal.Response
	err  error
}

// Timeout bounds the rest of the chain. The request context passed down
// carries the deadline; when it expires the middleware returns *TimeoutError
// (503) without waiting for the handler.
//
// The abandoned handler keeps running until it observes ctx.Done(). It holds
// the request scope, so scoped services stay alive until it returns. Its
// writes, headers and cookies are discarded from then on.
func Timeout(timeout time.Duration, opts ...TimeoutOption) internal.Middleware {
	cfg := &TimeoutConfig{
		Timeout: timeout,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return internal.Labeled("timeout", internal.MiddlewareFunc(func(c internal.Context, next internal.Next) (*internal.Response, error) {
		ctx, cancel := context.WithTimeout(c.Context(), cfg.Timeout)
		defer cancel()

		c.SetRequest(c.Request().WithContext(ctx))
		release := c.Scope().Hold()
		worker, abandon := internal.Detach(c)

		done := make(chan timeoutResult, 1)
		go func() {
			defer release()
			defer func() {
				if rec := recover(); rec != nil {
					done <- timeoutResult{err: internal.NewPanicError(rec)}
				}
			}()
			resp, err := next(worker)
			done <- timeoutResult{resp: resp, err: err}
		}()

		select {
		case res := <-done:
			return res.resp, res.err
		case <-ctx.Done():
			abandon()
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				c.LogWarn("request timeout", "timeout", cfg.Timeout.String())
				return nil, &TimeoutError{Duration: cfg.Timeout}
			}
			return nil, ctx.Err()
		}
	}))
}
