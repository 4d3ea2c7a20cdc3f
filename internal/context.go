package internal

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/a-h/templ"

	"github.com/dmitrymomot/expanse/pkg/container"
	"github.com/dmitrymomot/expanse/pkg/negotiate"
)

// Context provides request access, the request scope and response helpers.
// It also implements context.Context by delegating to the underlying request context.
//
// Response helpers build a *Response; nothing is written until the
// Dispatcher finishes the chain.
type Context interface {
	context.Context

	// Request returns the underlying *http.Request.
	Request() *http.Request

	// SetRequest replaces the request seen by the rest of the chain.
	SetRequest(r *http.Request)

	// Writer returns the raw response writer for handlers that stream or
	// write directly. Once written, the Dispatcher skips its own write.
	Writer() http.ResponseWriter

	// Context returns the request's context.Context.
	Context() context.Context

	// Route returns the matched route, or nil when no route matched.
	Route() *Route

	// Params returns the converted path parameters.
	Params() Params

	// Param returns the raw path parameter value by name.
	// Returns empty string if the parameter doesn't exist.
	Param(name string) string

	// Query returns the query parameter value by name.
	// Returns empty string if the parameter doesn't exist.
	Query(name string) string

	// QueryDefault returns the query parameter value or a default.
	QueryDefault(name, defaultValue string) string

	// Header returns the request header value by name.
	Header(name string) string

	// SetHeader stages a response header. Headers set on the final
	// Response take precedence.
	SetHeader(name, value string)

	// Cookie returns the value of a request cookie.
	Cookie(name string) (string, error)

	// SetCookie stages a response cookie.
	SetCookie(cookie *http.Cookie)

	// Accepts returns the offer preferred by the Accept header, or "".
	Accepts(offers ...string) string

	// Scope returns the request-scoped container.
	Scope() *container.Scope

	// Resolve resolves a key through the request scope.
	Resolve(key any) (any, error)

	// URL builds the path of a named route.
	URL(name string, params map[string]any) (string, error)

	// JSON builds a JSON response.
	JSON(code int, v any) *Response

	// Text builds a plain text response.
	Text(code int, s string) *Response

	// HTML builds an HTML response from a string.
	HTML(code int, s string) *Response

	// Render builds an HTML response from a templ component.
	Render(code int, component templ.Component) *Response

	// Redirect builds a redirect response.
	Redirect(code int, url string) *Response

	// NoContent builds an empty response.
	NoContent(code int) *Response

	// Error creates an HTTPError to return from a handler.
	Error(code int, message string, opts ...HTTPErrorOption) *HTTPError

	// Bind decodes the request body (JSON or form) into v, sanitizes and
	// validates it. Validation failures are returned as *ValidationError.
	Bind(v any) error

	// BindQuery decodes the query string into v, sanitizes and validates it.
	BindQuery(v any) error

	// Written returns true if the handler wrote to Writer directly.
	Written() bool

	// Logger returns the application logger.
	Logger() *slog.Logger

	// LogDebug logs at debug level with the request context.
	LogDebug(msg string, attrs ...any)

	// LogInfo logs at info level with the request context.
	LogInfo(msg string, attrs ...any)

	// LogWarn logs at warn level with the request context.
	LogWarn(msg string, attrs ...any)

	// LogError logs at error level with the request context.
	LogError(msg string, attrs ...any)

	// Set stores a value in the request context.
	Set(key, value any)

	// Get retrieves a value from the request context.
	Get(key any) any
}

// requestContext implements the Context interface.
type requestContext struct {
	app     *App
	request *http.Request
	writer  *ResponseWriter
	scope   *container.Scope
	route   *Route
	staged  *staged
	gate    *gate // nil unless the context was detached for a worker
	params  Params
}

// staged holds headers and cookies set before the response is written.
type staged struct {
	headers http.Header
	cookies []*http.Cookie
	mu      sync.Mutex
}

// newContext creates the request context and registers the hook that
// flushes staged headers and cookies before the first write.
func newContext(app *App, w *ResponseWriter, r *http.Request, scope *container.Scope, m RouteMatch) *requestContext {
	c := &requestContext{
		app:     app,
		request: r,
		writer:  w,
		scope:   scope,
		route:   m.Route,
		staged:  &staged{},
		params:  m.Params,
	}
	w.OnBeforeWrite(c.flushStaged)
	return c
}

func (c *requestContext) flushStaged() {
	c.staged.mu.Lock()
	defer c.staged.mu.Unlock()

	h := c.writer.Header()
	for k, v := range c.staged.headers {
		if _, ok := h[k]; !ok {
			h[k] = v
		}
	}
	for _, ck := range c.staged.cookies {
		if v := ck.String(); v != "" {
			h.Add("Set-Cookie", v)
		}
	}
}

func (c *requestContext) Request() *http.Request {
	return c.request
}

func (c *requestContext) SetRequest(r *http.Request) {
	c.request = r
}

func (c *requestContext) Writer() http.ResponseWriter {
	if c.gate != nil {
		return &gatedWriter{w: c.writer, gate: c.gate}
	}
	return c.writer
}

func (c *requestContext) Context() context.Context {
	return c.request.Context()
}

func (c *requestContext) Deadline() (time.Time, bool) {
	return c.request.Context().Deadline()
}

func (c *requestContext) Done() <-chan struct{} {
	return c.request.Context().Done()
}

func (c *requestContext) Err() error {
	return c.request.Context().Err()
}

func (c *requestContext) Value(key any) any {
	return c.request.Context().Value(key)
}

func (c *requestContext) Route() *Route {
	return c.route
}

func (c *requestContext) Params() Params {
	return c.params
}

func (c *requestContext) Param(name string) string {
	return c.params.Raw(name)
}

func (c *requestContext) Query(name string) string {
	return c.request.URL.Query().Get(name)
}

func (c *requestContext) QueryDefault(name, defaultValue string) string {
	v := c.request.URL.Query().Get(name)
	if v == "" {
		return defaultValue
	}
	return v
}

func (c *requestContext) Header(name string) string {
	return c.request.Header.Get(name)
}

func (c *requestContext) SetHeader(name, value string) {
	c.gate.do(func() {
		c.staged.mu.Lock()
		defer c.staged.mu.Unlock()
		if c.staged.headers == nil {
			c.staged.headers = make(http.Header)
		}
		c.staged.headers.Set(name, value)
	})
}

func (c *requestContext) Cookie(name string) (string, error) {
	ck, err := c.request.Cookie(name)
	if err != nil {
		return "", err
	}
	return ck.Value, nil
}

func (c *requestContext) SetCookie(cookie *http.Cookie) {
	if isHTTPS(c.request) {
		cookie.Secure = true
	}
	c.gate.do(func() {
		c.staged.mu.Lock()
		c.staged.cookies = append(c.staged.cookies, cookie)
		c.staged.mu.Unlock()
	})
}

func (c *requestContext) Accepts(offers ...string) string {
	return negotiate.Negotiate(c.request.Header.Get("Accept"), offers...)
}

func (c *requestContext) Scope() *container.Scope {
	return c.scope
}

func (c *requestContext) Resolve(key any) (any, error) {
	return c.scope.Get(key)
}

func (c *requestContext) URL(name string, params map[string]any) (string, error) {
	return c.app.routes.URL(name, params)
}

func (c *requestContext) JSON(code int, v any) *Response {
	return JSON(code, v)
}

func (c *requestContext) Text(code int, s string) *Response {
	return Text(code, s)
}

func (c *requestContext) HTML(code int, s string) *Response {
	return HTML(code, s)
}

func (c *requestContext) Render(code int, component templ.Component) *Response {
	return Render(code, component)
}

func (c *requestContext) Redirect(code int, url string) *Response {
	return Redirect(code, url)
}

func (c *requestContext) NoContent(code int) *Response {
	return NoContent(code)
}

func (c *requestContext) Error(code int, message string, opts ...HTTPErrorOption) *HTTPError {
	e := NewHTTPError(code, message, opts...)
	e.location = callerLocation(2)
	return e
}

func (c *requestContext) Bind(v any) error {
	return bindBody(c, v)
}

func (c *requestContext) BindQuery(v any) error {
	return bindQuery(c, v)
}

func (c *requestContext) Written() bool {
	return c.writer.Written()
}

func (c *requestContext) Logger() *slog.Logger {
	return c.app.logger
}

func (c *requestContext) LogDebug(msg string, attrs ...any) {
	c.app.logger.DebugContext(c.request.Context(), msg, attrs...)
}

func (c *requestContext) LogInfo(msg string, attrs ...any) {
	c.app.logger.InfoContext(c.request.Context(), msg, attrs...)
}

func (c *requestContext) LogWarn(msg string, attrs ...any) {
	c.app.logger.WarnContext(c.request.Context(), msg, attrs...)
}

func (c *requestContext) LogError(msg string, attrs ...any) {
	c.app.logger.ErrorContext(c.request.Context(), msg, attrs...)
}

func (c *requestContext) Set(key, value any) {
	ctx := context.WithValue(c.request.Context(), key, value)
	c.request = c.request.WithContext(ctx)
}

func (c *requestContext) Get(key any) any {
	return c.request.Context().Value(key)
}
