package internal

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"runtime"
	"strings"
)

// Sentinel errors for errors.Is checks.
var (
	ErrFrozen             = errors.New("expanse: registry is frozen")
	ErrInvalidPattern     = errors.New("expanse: invalid route pattern")
	ErrInvalidHandler     = errors.New("expanse: invalid handler")
	ErrUnknownConverter   = errors.New("expanse: unknown converter")
	ErrUnknownRoute       = errors.New("expanse: unknown route name")
	ErrMissingURLParam    = errors.New("expanse: missing url parameter")
	ErrInvalidURLParam    = errors.New("expanse: invalid url parameter")
	ErrUnknownGroup       = errors.New("expanse: unknown middleware group")
	ErrNextCalledTwice    = errors.New("expanse: next called more than once")
	ErrNoResponse         = errors.New("expanse: middleware returned no response")
	ErrInvalidMiddleware  = errors.New("expanse: resolved value is not a middleware")
	ErrResponseWritten    = errors.New("expanse: response already written")
	ErrRouteNotFound      = errors.New("expanse: route not found")
	ErrMethodNotAllowed   = errors.New("expanse: method not allowed")
	ErrDuplicateRouteName = errors.New("expanse: duplicate route name")
	ErrUnadaptable        = errors.New("expanse: unadaptable response")
	ErrValidation         = errors.New("expanse: validation failed")
	ErrPanic              = errors.New("expanse: handler panicked")
	ErrTimeout            = errors.New("expanse: request timed out")
)

// HTTPError represents an HTTP error with all data needed for rendering.
// Message and Detail are shown to clients; Err is kept for reporting only.
type HTTPError struct {
	// Err is the underlying error (for logging, not exposed to users).
	Err error

	// Headers are copied onto the rendered error response.
	Headers http.Header

	// Message is the user-facing error message.
	Message string

	// Detail is an optional extended description.
	Detail string

	// ErrorCode is an application-specific error code for client handling.
	ErrorCode string

	// RequestID is the request tracking ID.
	RequestID string

	location string

	// Code is the HTTP status code (e.g., 404, 500).
	Code int
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return http.StatusText(e.Code)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

func (e *HTTPError) StatusCode() int {
	return e.Code
}

func (e *HTTPError) StatusText() string {
	return http.StatusText(e.Code)
}

// Location is the file:line where the error was created.
func (e *HTTPError) Location() string {
	return e.location
}

// HTTPErrorOption configures an HTTPError.
type HTTPErrorOption func(*HTTPError)

// NewHTTPError creates a new HTTPError with the given status code and message.
// An empty message falls back to the status text.
func NewHTTPError(code int, message string, opts ...HTTPErrorOption) *HTTPError {
	if message == "" {
		message = http.StatusText(code)
	}
	e := &HTTPError{
		Code:     code,
		Message:  message,
		location: callerLocation(2),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Abort builds an HTTPError meant to be returned from a handler.
//
//	if !owner {
//	    return nil, expanse.Abort(http.StatusForbidden, "not yours")
//	}
func Abort(code int, message string, opts ...HTTPErrorOption) *HTTPError {
	e := NewHTTPError(code, message, opts...)
	e.location = callerLocation(2)
	return e
}

func WithDetail(detail string) HTTPErrorOption {
	return func(e *HTTPError) {
		e.Detail = detail
	}
}

func WithErrorCode(code string) HTTPErrorOption {
	return func(e *HTTPError) {
		e.ErrorCode = code
	}
}

func WithRequestID(id string) HTTPErrorOption {
	return func(e *HTTPError) {
		e.RequestID = id
	}
}

func WithError(err error) HTTPErrorOption {
	return func(e *HTTPError) {
		e.Err = err
	}
}

// WithHeader adds a header to the rendered error response.
func WithHeader(key, value string) HTTPErrorOption {
	return func(e *HTTPError) {
		if e.Headers == nil {
			e.Headers = make(http.Header)
		}
		e.Headers.Add(key, value)
	}
}

// Convenience constructors for common HTTP errors.

func ErrBadRequest(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusBadRequest, message, opts...)
}

func ErrUnauthorized(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusUnauthorized, message, opts...)
}

func ErrForbidden(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusForbidden, message, opts...)
}

func ErrNotFound(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusNotFound, message, opts...)
}

func ErrConflict(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusConflict, message, opts...)
}

func ErrUnprocessable(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusUnprocessableEntity, message, opts...)
}

func ErrInternal(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusInternalServerError, message, opts...)
}

func ErrServiceUnavailable(message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(http.StatusServiceUnavailable, message, opts...)
}

// IsHTTPError reports whether err wraps an HTTPError.
func IsHTTPError(err error) bool {
	var he *HTTPError
	return errors.As(err, &he)
}

// AsHTTPError extracts the HTTPError from an error if present.
// Returns nil if the error is not an HTTPError.
func AsHTTPError(err error) *HTTPError {
	var he *HTTPError
	if errors.As(err, &he) {
		return he
	}
	return nil
}

// RouteNotFoundError is returned when no route pattern matches the path.
type RouteNotFoundError struct {
	Method string
	Path   string
}

func (e *RouteNotFoundError) Error() string {
	return fmt.Sprintf("expanse: no route for %s %s", e.Method, e.Path)
}

func (e *RouteNotFoundError) Is(target error) bool { return target == ErrRouteNotFound }

func (e *RouteNotFoundError) StatusCode() int { return http.StatusNotFound }

// MethodNotAllowedError is returned when the path matched but no route
// accepts the method. Allowed lists the acceptable methods in canonical order.
type MethodNotAllowedError struct {
	Method  string
	Path    string
	Allowed []string
}

func (e *MethodNotAllowedError) Error() string {
	return fmt.Sprintf("expanse: method %s not allowed for %s (allow: %s)",
		e.Method, e.Path, strings.Join(e.Allowed, ", "))
}

func (e *MethodNotAllowedError) Is(target error) bool { return target == ErrMethodNotAllowed }

func (e *MethodNotAllowedError) StatusCode() int { return http.StatusMethodNotAllowed }

// DuplicateRouteNameError is raised at registration when two routes share a name.
type DuplicateRouteNameError struct {
	Name     string
	Existing string
	Pattern  string
}

func (e *DuplicateRouteNameError) Error() string {
	return fmt.Sprintf("expanse: route name %q already used by %s, cannot assign to %s",
		e.Name, e.Existing, e.Pattern)
}

func (e *DuplicateRouteNameError) Is(target error) bool { return target == ErrDuplicateRouteName }

// UnadaptableResponseError is returned when no adapter accepts a handler result.
type UnadaptableResponseError struct {
	Type string
}

func (e *UnadaptableResponseError) Error() string {
	return fmt.Sprintf("expanse: no response adapter for %s", e.Type)
}

func (e *UnadaptableResponseError) Is(target error) bool { return target == ErrUnadaptable }

// PanicError represents a recovered panic.
type PanicError struct {
	Value any    // The panic value
	Stack []byte // Stack trace
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

func (e *PanicError) Is(target error) bool { return target == ErrPanic }

// Unwrap exposes the panic value when it is an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// Location is the first stack frame outside the runtime.
func (e *PanicError) Location() string {
	for _, line := range strings.Split(string(e.Stack), "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "/") || strings.Contains(line, "/runtime/") {
			continue
		}
		if i := strings.LastIndex(line, " +0x"); i > 0 {
			line = line[:i]
		}
		return line
	}
	return ""
}

// NewPanicError wraps a recovered value together with the current stack.
func NewPanicError(v any) *PanicError {
	buf := make([]byte, 64<<10)
	buf = buf[:runtime.Stack(buf, false)]
	return &PanicError{Value: v, Stack: buf}
}

// IsPanicError returns true if the error is a PanicError.
func IsPanicError(err error) bool {
	var pe *PanicError
	return errors.As(err, &pe)
}

// AsPanicError extracts the PanicError from an error if present.
func AsPanicError(err error) (*PanicError, bool) {
	var pe *PanicError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// handlerError carries the location of the handler that returned a plain
// error, for debug rendering.
type handlerError struct {
	err      error
	location string
}

func (e *handlerError) Error() string    { return e.err.Error() }
func (e *handlerError) Unwrap() error    { return e.err }
func (e *handlerError) Location() string { return e.location }

// locate attaches the handler location to err unless err already knows
// where it came from.
func locate(err error, location string) error {
	var located interface{ Location() string }
	if location == "" || errors.As(err, &located) {
		return err
	}
	return &handlerError{err: err, location: location}
}

// funcLocation returns the file:line where fn is defined.
func funcLocation(fn any) string {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return ""
	}
	f := runtime.FuncForPC(v.Pointer())
	if f == nil {
		return ""
	}
	file, line := f.FileLine(f.Entry())
	return fmt.Sprintf("%s:%d", file, line)
}

func callerLocation(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return ""
	}
	return fmt.Sprintf("%s:%d", file, line)
}
