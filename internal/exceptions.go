package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

const serverErrorMessage = "Server error"

// ExceptionHandler turns errors escaping the chain into responses.
// Report runs before Render for every error.
type ExceptionHandler interface {
	Report(ctx context.Context, err error)
	Render(c Context, err error) *Response
}

// Reporter receives every reported error, e.g. to forward it to Sentry.
type Reporter func(ctx context.Context, err error)

// ErrorPayload is the JSON body of an error response.
type ErrorPayload struct {
	Debug     *ErrorDebug  `json:"debug,omitempty"`
	Message   string       `json:"message"`
	Detail    string       `json:"detail,omitempty"`
	Code      string       `json:"code,omitempty"`
	RequestID string       `json:"request_id,omitempty"`
	Errors    []FieldError `json:"errors,omitempty"`
	Status    int          `json:"status"`
}

// ErrorDebug carries details only exposed in debug mode.
type ErrorDebug struct {
	Type     string   `json:"type"`
	Error    string   `json:"error"`
	Location string   `json:"location,omitempty"`
	Trace    []string `json:"trace,omitempty"`
}

// DefaultExceptionHandler reports through slog and renders JSON or HTML
// according to the Accept header.
type DefaultExceptionHandler struct {
	logger    *slog.Logger
	reporters []Reporter
	requestID func(ctx context.Context) string
	debug     bool
}

// NewExceptionHandler creates the default handler.
func NewExceptionHandler(logger *slog.Logger, debug bool, reporters ...Reporter) *DefaultExceptionHandler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &DefaultExceptionHandler{logger: logger, debug: debug, reporters: reporters}
}

// WithRequestIDFunc sets the function used to stamp request ids on payloads.
func (h *DefaultExceptionHandler) WithRequestIDFunc(fn func(ctx context.Context) string) *DefaultExceptionHandler {
	h.requestID = fn
	return h
}

// Report logs err: client errors at debug level, everything else at error level.
func (h *DefaultExceptionHandler) Report(ctx context.Context, err error) {
	status := StatusOf(err)
	attrs := []any{
		slog.Int("status", status),
		slog.String("error", err.Error()),
		slog.String("type", errorTypeName(err)),
	}
	if pe, ok := AsPanicError(err); ok {
		attrs = append(attrs, slog.String("stack", string(pe.Stack)))
	}

	if status < http.StatusInternalServerError {
		h.logger.DebugContext(ctx, "request failed", attrs...)
		return
	}
	h.logger.ErrorContext(ctx, "unhandled error", attrs...)
	for _, report := range h.reporters {
		report(ctx, err)
	}
}

// Render builds the error response for err.
func (h *DefaultExceptionHandler) Render(c Context, err error) *Response {
	p := h.payload(c.Context(), err)

	var resp *Response
	if c.Accepts("application/json", "text/html") == "text/html" {
		resp = Render(p.Status, errorPage(p))
	} else {
		resp = JSON(p.Status, p)
	}

	if he := AsHTTPError(err); he != nil {
		for k, v := range he.Headers {
			resp.Header[k] = append(resp.Header[k], v...)
		}
	}
	var mna *MethodNotAllowedError
	if errors.As(err, &mna) {
		resp.Header.Set("Allow", strings.Join(mna.Allowed, ", "))
	}
	return resp
}

func (h *DefaultExceptionHandler) payload(ctx context.Context, err error) ErrorPayload {
	p := ErrorPayload{Status: StatusOf(err)}
	if h.requestID != nil {
		p.RequestID = h.requestID(ctx)
	}

	var (
		he  *HTTPError
		ve  *ValidationError
		mna *MethodNotAllowedError
	)
	switch {
	case errors.As(err, &ve):
		p.Message = "Validation failed"
		p.Errors = ve.Errors
	case errors.As(err, &he):
		p.Message = he.Error()
		p.Detail = he.Detail
		p.Code = he.ErrorCode
		if he.RequestID != "" {
			p.RequestID = he.RequestID
		}
	case errors.As(err, &mna):
		p.Message = http.StatusText(http.StatusMethodNotAllowed)
	case p.Status != http.StatusInternalServerError:
		p.Message = http.StatusText(p.Status)
	default:
		p.Message = serverErrorMessage
	}

	if h.debug && p.Status >= http.StatusInternalServerError {
		p.Message = err.Error()
		p.Debug = debugInfo(err)
	}
	return p
}

func debugInfo(err error) *ErrorDebug {
	d := &ErrorDebug{Type: errorTypeName(err), Error: err.Error()}
	if pe, ok := AsPanicError(err); ok {
		d.Location = pe.Location()
		d.Trace = strings.Split(strings.TrimSpace(string(pe.Stack)), "\n")
	} else if he := AsHTTPError(err); he != nil {
		d.Location = he.Location()
	} else {
		var located interface{ Location() string }
		if errors.As(err, &located) {
			d.Location = located.Location()
		}
	}
	return d
}

// errorTypeName names the innermost concrete error type.
func errorTypeName(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return fmt.Sprintf("%T", err)
		}
		err = next
	}
}

// StatusOf maps an error to its HTTP status. Errors exposing
// StatusCode() int keep their status; everything else is 500.
func StatusOf(err error) int {
	var sc interface{ StatusCode() int }
	if errors.As(err, &sc) {
		if code := sc.StatusCode(); code >= 400 && code <= 599 {
			return code
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// HandleExceptions is the outermost middleware. It recovers panics into
// *PanicError, reports every error and renders it as a response.
func HandleExceptions(h ExceptionHandler) Middleware {
	return Named("handle_exceptions", MiddlewareFunc(func(c Context, next Next) (resp *Response, err error) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				resp, err = renderException(h, c, NewPanicError(rec)), nil
			}
		}()

		resp, err = next(c)
		if err != nil {
			return renderException(h, c, err), nil
		}
		if resp == nil {
			return NoContent(http.StatusNoContent), nil
		}
		if rerr := resp.Err(); rerr != nil {
			return renderException(h, c, rerr), nil
		}
		return resp, nil
	}))
}

func renderException(h ExceptionHandler, c Context, err error) *Response {
	h.Report(c.Context(), err)
	resp := h.Render(c, err)
	if resp == nil {
		resp = Text(http.StatusInternalServerError, serverErrorMessage)
	}
	return resp
}
