package middlewares

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrymomot/expanse/internal"
)

// Sentinel errors for errors.Is checks.
var (
	ErrMissingToken = errors.New("middlewares: missing authentication token")
	ErrInvalidToken = errors.New("middlewares: invalid token")
	ErrExpiredToken = errors.New("middlewares: token expired")
	ErrNoTx         = errors.New("middlewares: no transaction in request scope")
)

// TimeoutError represents a request timeout. It renders as 503.
type TimeoutError struct {
	Duration time.Duration // The timeout that was exceeded
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("request timeout after %s", e.Duration)
}

// StatusCode reports 503 Service Unavailable.
func (e *TimeoutError) StatusCode() int { return http.StatusServiceUnavailable }

// Is matches expanse.ErrTimeout.
func (e *TimeoutError) Is(target error) bool { return target == internal.ErrTimeout }

// IsTimeoutError returns true if the error is a TimeoutError.
func IsTimeoutError(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// AsTimeoutError extracts the TimeoutError from an error if present.
func AsTimeoutError(err error) (*TimeoutError, bool) {
	var te *TimeoutError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}
