package expanse

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/a-h/templ"
	"github.com/go-playground/validator/v10"

	"github.com/dmitrymomot/expanse/internal"
	"github.com/dmitrymomot/expanse/pkg/container"
	"github.com/dmitrymomot/expanse/pkg/logger"
)

// Type aliases - public API
type (
	// App owns the container, routes, middleware stack and adapters.
	App = internal.App

	// Config is the file- and environment-driven application setup.
	Config = internal.Config

	// HealthConfig configures the health endpoints.
	HealthConfig = internal.HealthConfig

	// Router is the interface handlers use to declare routes.
	Router = internal.Router

	// Context provides request access, the request scope and response helpers.
	Context = internal.Context

	// Handler declares routes on a router.
	Handler = internal.Handler

	// HandlerFunc is the fast-path handler signature.
	HandlerFunc = internal.HandlerFunc

	// Next continues the middleware chain.
	Next = internal.Next

	// Middleware intercepts a request with Handle(c, next).
	Middleware = internal.Middleware

	// MiddlewareFunc adapts a func to Middleware.
	MiddlewareFunc = internal.MiddlewareFunc

	// MiddlewareStack holds global middleware and named groups.
	MiddlewareStack = internal.MiddlewareStack

	// MiddlewareGroup is a named, ordered list of middleware.
	MiddlewareGroup = internal.MiddlewareGroup

	// Responder is implemented by results that build their own response.
	Responder = internal.Responder

	// Response is the response passed back through the middleware chain.
	Response = internal.Response

	// ResponseWriter wraps http.ResponseWriter with before-write hooks.
	ResponseWriter = internal.ResponseWriter

	// Route is a registered endpoint.
	Route = internal.Route

	// RouteGroup is a named prefix for nested routes.
	RouteGroup = internal.RouteGroup

	// RouteCollection is the ordered set of registered routes.
	RouteCollection = internal.RouteCollection

	// RouteMatch is the result of a successful route lookup.
	RouteMatch = internal.RouteMatch

	// RouteOption configures a single route.
	RouteOption = internal.RouteOption

	// GroupOption configures a route group.
	GroupOption = internal.GroupOption

	// RouteGroupOption applies to both routes and groups.
	RouteGroupOption = internal.RouteGroupOption

	// RouteDefinition is one declarative route in a YAML route file.
	RouteDefinition = internal.RouteDefinition

	// HandlerMap names the handlers a route file may reference.
	HandlerMap = internal.HandlerMap

	// Params holds converted path parameters.
	Params = internal.Params

	// Converter converts a path segment into a typed value.
	Converter = internal.Converter

	// AdapterRegistry maps handler results to responses.
	AdapterRegistry = internal.AdapterRegistry

	// AdapterFunc converts a handler result into a Response.
	AdapterFunc = internal.AdapterFunc

	// JSONResult is a result rendered as JSON with an explicit status.
	JSONResult = internal.JSONResult

	// ExceptionHandler turns errors into responses.
	ExceptionHandler = internal.ExceptionHandler

	// DefaultExceptionHandler reports through slog and renders JSON or HTML.
	DefaultExceptionHandler = internal.DefaultExceptionHandler

	// Reporter receives reported server errors.
	Reporter = internal.Reporter

	// ErrorPayload is the body of an error response.
	ErrorPayload = internal.ErrorPayload

	// Dispatcher serves one request end to end.
	Dispatcher = internal.Dispatcher

	// Provider registers container bindings.
	Provider = internal.Provider

	// ProviderFunc adapts a function to Provider.
	ProviderFunc = internal.ProviderFunc

	// Option configures the application.
	Option = internal.Option

	// RunOption configures the server runtime.
	RunOption = internal.RunOption

	// HealthOption configures health check endpoints.
	HealthOption = internal.HealthOption

	// CheckFunc is a readiness probe.
	CheckFunc = internal.CheckFunc

	// HTTPError is an error carrying an HTTP status.
	HTTPError = internal.HTTPError

	// HTTPErrorOption configures an HTTPError.
	HTTPErrorOption = internal.HTTPErrorOption

	// ValidationError aggregates invalid inputs; renders as 422.
	ValidationError = internal.ValidationError

	// FieldError describes one invalid input.
	FieldError = internal.FieldError

	// RouteNotFoundError is returned when no route matches the path.
	RouteNotFoundError = internal.RouteNotFoundError

	// MethodNotAllowedError is returned when the path matched but the method did not.
	MethodNotAllowedError = internal.MethodNotAllowedError

	// DuplicateRouteNameError is returned when two routes share a name.
	DuplicateRouteNameError = internal.DuplicateRouteNameError

	// UnadaptableResponseError is returned for results without an adapter.
	UnadaptableResponseError = internal.UnadaptableResponseError

	// PanicError wraps a recovered panic.
	PanicError = internal.PanicError

	// Extractor tries request sources in order.
	Extractor = internal.Extractor

	// ExtractorSource reads one value from the request.
	ExtractorSource = internal.ExtractorSource

	// ContextExtractor extracts a slog attribute from context.
	ContextExtractor = logger.ContextExtractor
)

// Body is a handler parameter decoded from the request body.
type Body[T any] = internal.Body[T]

// Query is a handler parameter decoded from the query string.
type Query[T any] = internal.Query[T]

// Path is a handler parameter decoded from the path parameters.
type Path[T any] = internal.Path[T]

// Sentinel errors for errors.Is checks.
var (
	ErrFrozen             = internal.ErrFrozen
	ErrInvalidPattern     = internal.ErrInvalidPattern
	ErrInvalidHandler     = internal.ErrInvalidHandler
	ErrUnknownConverter   = internal.ErrUnknownConverter
	ErrUnknownRoute       = internal.ErrUnknownRoute
	ErrMissingURLParam    = internal.ErrMissingURLParam
	ErrInvalidURLParam    = internal.ErrInvalidURLParam
	ErrUnknownGroup       = internal.ErrUnknownGroup
	ErrNextCalledTwice    = internal.ErrNextCalledTwice
	ErrNoResponse         = internal.ErrNoResponse
	ErrInvalidMiddleware  = internal.ErrInvalidMiddleware
	ErrRouteNotFound      = internal.ErrRouteNotFound
	ErrMethodNotAllowed   = internal.ErrMethodNotAllowed
	ErrDuplicateRouteName = internal.ErrDuplicateRouteName
	ErrUnadaptable        = internal.ErrUnadaptable
	ErrValidation         = internal.ErrValidation
	ErrPanic              = internal.ErrPanic
	ErrTimeout            = internal.ErrTimeout
	ErrInvalidConfig      = internal.ErrInvalidConfig
	ErrInvalidRouteFile   = internal.ErrInvalidRouteFile
)

// Content types used by the built-in responses.
const (
	MIMEApplicationJSON = internal.MIMEApplicationJSON
	MIMETextPlain       = internal.MIMETextPlain
	MIMETextHTML        = internal.MIMETextHTML
	MIMEOctetStream     = internal.MIMEOctetStream
)

// Constructors

// New creates a new application. Registration errors (bad patterns,
// duplicate route names, unknown middleware groups, dependency cycles)
// are returned here.
//
// Example:
//
//	app, err := expanse.New(
//	    expanse.WithMiddleware(middlewares.RequestID()),
//	    expanse.WithHandlers(handlers.NewUsers()),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = app.Run(":8080")
func New(opts ...Option) (*App, error) {
	return internal.New(opts...)
}

// MustNew is like New but panics on error.
func MustNew(opts ...Option) *App {
	return internal.MustNew(opts...)
}

// LoadConfig reads a YAML config file (optional when path is empty) and
// applies environment overrides.
func LoadConfig(path string) (Config, error) {
	return internal.LoadConfig(path)
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	return internal.DefaultConfig()
}

// App options

// WithHandlers registers handlers that declare routes.
func WithHandlers(h ...Handler) Option {
	return internal.WithHandlers(h...)
}

// WithRoutes registers routes with a plain function.
func WithRoutes(fn func(r Router)) Option {
	return internal.WithRoutes(fn)
}

// WithRouteFile registers routes declared in a YAML file.
func WithRouteFile(path string, handlers HandlerMap) Option {
	return internal.WithRouteFile(path, handlers)
}

// WithMiddleware appends global middleware.
func WithMiddleware(mw ...Middleware) Option {
	return internal.WithMiddleware(mw...)
}

// WithMiddlewareGroup appends middleware to a named group.
func WithMiddlewareGroup(name string, mw ...Middleware) Option {
	return internal.WithMiddlewareGroup(name, mw...)
}

// WithLogger sets the application logger.
func WithLogger(l *slog.Logger) Option {
	return internal.WithLogger(l)
}

// WithDefaultLogger installs the JSON logger with context extractors.
func WithDefaultLogger(extractors ...ContextExtractor) Option {
	return internal.WithDefaultLogger(extractors...)
}

// WithDebug exposes error details in error responses.
func WithDebug(debug bool) Option {
	return internal.WithDebug(debug)
}

// WithConfig applies a loaded Config.
func WithConfig(cfg Config) Option {
	return internal.WithConfig(cfg)
}

// WithExceptionHandler replaces the default exception handler.
func WithExceptionHandler(h ExceptionHandler) Option {
	return internal.WithExceptionHandler(h)
}

// WithReporter adds a server error reporter.
func WithReporter(r Reporter) Option {
	return internal.WithReporter(r)
}

// WithRequestIDFunc sets how error payloads get their request id.
func WithRequestIDFunc(fn func(ctx context.Context) string) Option {
	return internal.WithRequestIDFunc(fn)
}

// WithProviders registers container providers.
func WithProviders(p ...Provider) Option {
	return internal.WithProviders(p...)
}

// WithContainer configures the application container directly.
func WithContainer(fn func(c *container.Container)) Option {
	return internal.WithContainer(fn)
}

// WithAdapter registers a response adapter for results of type T.
func WithAdapter[T any](fn func(c Context, v T) (*Response, error)) Option {
	return internal.WithAdapter(fn)
}

// WithJSONFallback renders results without a dedicated adapter as JSON.
func WithJSONFallback() Option {
	return internal.WithJSONFallback()
}

// WithOffloadWorkers bounds the pool running Blocking() handlers.
func WithOffloadWorkers(n int) Option {
	return internal.WithOffloadWorkers(n)
}

// WithConverter registers a named path converter.
func WithConverter(name string, conv Converter) Option {
	return internal.WithConverter(name, conv)
}

// WithHealthChecks enables /health/live and /health/ready.
func WithHealthChecks(opts ...HealthOption) Option {
	return internal.WithHealthChecks(opts...)
}

// WithShutdownHook registers a cleanup function run during shutdown.
func WithShutdownHook(fn func(context.Context) error) Option {
	return internal.WithShutdownHook(fn)
}

// Health options

// WithLivenessPath sets a custom liveness endpoint path.
func WithLivenessPath(path string) HealthOption {
	return internal.WithLivenessPath(path)
}

// WithReadinessPath sets a custom readiness endpoint path.
func WithReadinessPath(path string) HealthOption {
	return internal.WithReadinessPath(path)
}

// WithReadinessCheck adds a named readiness check.
func WithReadinessCheck(name string, fn CheckFunc) HealthOption {
	return internal.WithReadinessCheck(name, fn)
}

// WithHealthTimeout bounds the duration of all readiness checks.
func WithHealthTimeout(d time.Duration) HealthOption {
	return internal.WithHealthTimeout(d)
}

// Run options

// Logger sets the server logger.
func Logger(l *slog.Logger) RunOption {
	return internal.Logger(l)
}

// ShutdownTimeout sets the graceful shutdown timeout.
func ShutdownTimeout(d time.Duration) RunOption {
	return internal.ShutdownTimeout(d)
}

// ShutdownHook registers a cleanup function for this run.
func ShutdownHook(fn func(context.Context) error) RunOption {
	return internal.ShutdownHook(fn)
}

// WithContext sets the base context; cancelling it shuts the server down.
func WithContext(ctx context.Context) RunOption {
	return internal.WithContext(ctx)
}

// Route options

// Name names a route. Names compose with group names as "group.name".
func Name(name string) RouteOption {
	return internal.Name(name)
}

// Middlewares attaches middleware to a route or group.
func Middlewares(mw ...Middleware) RouteGroupOption {
	return internal.Middlewares(mw...)
}

// MiddlewareGroups attaches named stack groups to a route or group.
func MiddlewareGroups(names ...string) RouteGroupOption {
	return internal.MiddlewareGroups(names...)
}

// Blocking runs the handler on the offload pool.
func Blocking() RouteGroupOption {
	return internal.Blocking()
}

// Middleware identity

// Named gives mw a name used for de-duplication, Remove and Replace.
func Named(name string, mw Middleware) Middleware {
	return internal.Named(name, mw)
}

// Lazy resolves the middleware T from the request scope on every request.
func Lazy[T Middleware]() Middleware {
	return internal.Lazy[T]()
}

// GroupRef nests a named middleware group inside another list.
func GroupRef(name string) Middleware {
	return internal.GroupRef(name)
}

// MiddlewareName returns the identity name of mw, or "".
func MiddlewareName(mw Middleware) string {
	return internal.MiddlewareName(mw)
}

// HandleExceptions is the outermost middleware the Dispatcher installs.
func HandleExceptions(h ExceptionHandler) Middleware {
	return internal.HandleExceptions(h)
}

// NewExceptionHandler creates the default exception handler.
func NewExceptionHandler(l *slog.Logger, debug bool, reporters ...Reporter) *DefaultExceptionHandler {
	return internal.NewExceptionHandler(l, debug, reporters...)
}

// StatusOf maps an error to its HTTP status.
func StatusOf(err error) int {
	return internal.StatusOf(err)
}

// Responses

// NewResponse creates an empty response.
func NewResponse(status int) *Response { return internal.NewResponse(status) }

// JSON builds a JSON response.
func JSON(status int, v any) *Response { return internal.JSON(status, v) }

// Text builds a plain text response.
func Text(status int, s string) *Response { return internal.Text(status, s) }

// HTML builds an HTML response.
func HTML(status int, s string) *Response { return internal.HTML(status, s) }

// Blob builds a response from bytes.
func Blob(status int, contentType string, b []byte) *Response {
	return internal.Blob(status, contentType, b)
}

// Render builds an HTML response from a templ component.
func Render(status int, c templ.Component) *Response { return internal.Render(status, c) }

// Redirect builds a redirect response.
func Redirect(status int, url string) *Response { return internal.Redirect(status, url) }

// NoContent builds an empty response.
func NoContent(status int) *Response { return internal.NoContent(status) }

// Created wraps v as a 201 JSON result.
func Created(v any) JSONResult { return internal.Created(v) }

// NewResponseWriter wraps w.
func NewResponseWriter(w http.ResponseWriter) *ResponseWriter {
	return internal.NewResponseWriter(w)
}

// RegisterAdapter registers fn for results of type T on r.
func RegisterAdapter[T any](r *AdapterRegistry, fn func(c Context, v T) (*Response, error)) {
	internal.RegisterAdapter(r, fn)
}

// Errors

// NewHTTPError creates an HTTPError.
func NewHTTPError(code int, message string, opts ...HTTPErrorOption) *HTTPError {
	return internal.NewHTTPError(code, message, opts...)
}

// Abort creates an HTTPError to return from a handler or middleware.
func Abort(code int, message string, opts ...HTTPErrorOption) *HTTPError {
	return internal.Abort(code, message, opts...)
}

// WithDetail sets client-facing error detail.
func WithDetail(detail string) HTTPErrorOption { return internal.WithDetail(detail) }

// WithErrorCode sets a machine-readable error code.
func WithErrorCode(code string) HTTPErrorOption { return internal.WithErrorCode(code) }

// WithRequestID stamps a request id on the error.
func WithRequestID(id string) HTTPErrorOption { return internal.WithRequestID(id) }

// WithError wraps the underlying cause.
func WithError(err error) HTTPErrorOption { return internal.WithError(err) }

// WithHeader adds a response header to the error response.
func WithHeader(key, value string) HTTPErrorOption { return internal.WithHeader(key, value) }

// ErrBadRequest creates a 400 error.
func ErrBadRequest(message string, opts ...HTTPErrorOption) *HTTPError {
	return internal.ErrBadRequest(message, opts...)
}

// ErrUnauthorized creates a 401 error.
func ErrUnauthorized(message string, opts ...HTTPErrorOption) *HTTPError {
	return internal.ErrUnauthorized(message, opts...)
}

// ErrForbidden creates a 403 error.
func ErrForbidden(message string, opts ...HTTPErrorOption) *HTTPError {
	return internal.ErrForbidden(message, opts...)
}

// ErrNotFound creates a 404 error.
func ErrNotFound(message string, opts ...HTTPErrorOption) *HTTPError {
	return internal.ErrNotFound(message, opts...)
}

// ErrConflict creates a 409 error.
func ErrConflict(message string, opts ...HTTPErrorOption) *HTTPError {
	return internal.ErrConflict(message, opts...)
}

// ErrUnprocessable creates a 422 error.
func ErrUnprocessable(message string, opts ...HTTPErrorOption) *HTTPError {
	return internal.ErrUnprocessable(message, opts...)
}

// ErrInternal creates a 500 error.
func ErrInternal(message string, opts ...HTTPErrorOption) *HTTPError {
	return internal.ErrInternal(message, opts...)
}

// ErrServiceUnavailable creates a 503 error.
func ErrServiceUnavailable(message string, opts ...HTTPErrorOption) *HTTPError {
	return internal.ErrServiceUnavailable(message, opts...)
}

// IsHTTPError reports whether err wraps an HTTPError.
func IsHTTPError(err error) bool { return internal.IsHTTPError(err) }

// AsHTTPError extracts the HTTPError from err, or nil.
func AsHTTPError(err error) *HTTPError { return internal.AsHTTPError(err) }

// NewValidationError creates a ValidationError from field errors.
func NewValidationError(errs ...FieldError) *ValidationError {
	return internal.NewValidationError(errs...)
}

// IsValidationError reports whether err wraps a ValidationError.
func IsValidationError(err error) bool { return internal.IsValidationError(err) }

// AsValidationError extracts the ValidationError from err.
func AsValidationError(err error) (*ValidationError, bool) { return internal.AsValidationError(err) }

// IsPanicError reports whether err wraps a PanicError.
func IsPanicError(err error) bool { return internal.IsPanicError(err) }

// Request helpers

// Param returns the path parameter as T.
func Param[T ~string | ~int | ~int64 | ~float64 | ~bool](c Context, name string) T {
	return internal.Param[T](c, name)
}

// QueryParam returns the query parameter as T.
func QueryParam[T ~string | ~int | ~int64 | ~float64 | ~bool](c Context, name string) T {
	return internal.QueryParam[T](c, name)
}

// QueryParamDefault returns the query parameter as T or defaultValue.
func QueryParamDefault[T ~string | ~int | ~int64 | ~float64 | ~bool](c Context, name string, defaultValue T) T {
	return internal.QueryParamDefault(c, name, defaultValue)
}

// ContextValue returns the request context value under key as T.
func ContextValue[T any](c Context, key any) T {
	return internal.ContextValue[T](c, key)
}

// Extractors

// NewExtractor creates an Extractor over sources.
func NewExtractor(sources ...ExtractorSource) Extractor {
	return internal.NewExtractor(sources...)
}

// FromHeader reads a request header.
func FromHeader(name string) ExtractorSource { return internal.FromHeader(name) }

// FromQuery reads a query parameter.
func FromQuery(name string) ExtractorSource { return internal.FromQuery(name) }

// FromCookie reads a cookie.
func FromCookie(name string) ExtractorSource { return internal.FromCookie(name) }

// FromParam reads a raw path parameter.
func FromParam(name string) ExtractorSource { return internal.FromParam(name) }

// FromForm reads a form field.
func FromForm(name string) ExtractorSource { return internal.FromForm(name) }

// FromBearerToken reads a bearer token from Authorization.
func FromBearerToken() ExtractorSource { return internal.FromBearerToken() }

// FromScope resolves a value from the request scope.
func FromScope(key any) ExtractorSource { return internal.FromScope(key) }

// RegisterValidation adds a custom `validate` tag for request models.
func RegisterValidation(tag string, fn validator.Func) error {
	return internal.RegisterValidation(tag, fn)
}

// LoadRoutes registers routes declared in YAML read from rd.
func LoadRoutes(r Router, rd io.Reader, handlers HandlerMap) error {
	return internal.LoadRoutes(r, rd, handlers)
}
