package internal_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/expanse/internal"
	"github.com/dmitrymomot/expanse/pkg/container"
)

func errorApp(t *testing.T, opts ...internal.Option) *internal.App {
	t.Helper()

	opts = append(opts, internal.WithRoutes(func(r internal.Router) {
		r.GET("/boom", func() error { return errors.New("db password is hunter2") })
		r.GET("/panic", func() string { panic("nil map") })
		r.GET("/teapot", func() error {
			return internal.NewHTTPError(http.StatusTeapot, "short and stout",
				internal.WithDetail("tip me over"),
				internal.WithErrorCode("TEA_01"),
				internal.WithHeader("Retry-After", "120"),
				internal.WithError(errors.New("kettle offline")),
			)
		})
		r.GET("/invalid", func() error {
			ve := internal.NewValidationError()
			ve.Add([]string{"body", "email"}, "email", "must be a valid email address")
			return ve
		})
		r.GET("/unadaptable", func() chan int { return make(chan int) })
	}))
	return newApp(t, opts...)
}

func TestExceptionRendering(t *testing.T) {
	t.Parallel()

	t.Run("unexpected errors hide details", func(t *testing.T) {
		t.Parallel()

		w := do(errorApp(t), http.MethodGet, "/boom")
		require.Equal(t, http.StatusInternalServerError, w.Code)
		require.Equal(t, internal.MIMEApplicationJSON, w.Header().Get("Content-Type"))
		require.NotContains(t, w.Body.String(), "hunter2")

		p := decodePayload(t, w)
		require.Equal(t, "Server error", p.Message)
		require.Nil(t, p.Debug)
	})

	t.Run("debug mode exposes details", func(t *testing.T) {
		t.Parallel()

		w := do(errorApp(t, internal.WithDebug(true)), http.MethodGet, "/boom")
		require.Equal(t, http.StatusInternalServerError, w.Code)

		p := decodePayload(t, w)
		require.Equal(t, "db password is hunter2", p.Message)
		require.NotNil(t, p.Debug)
		require.Equal(t, "*errors.errorString", p.Debug.Type)
		require.Contains(t, p.Debug.Location, "exceptions_test.go:")
	})

	t.Run("panics are rendered with a trace in debug mode", func(t *testing.T) {
		t.Parallel()

		w := do(errorApp(t, internal.WithDebug(true)), http.MethodGet, "/panic")
		require.Equal(t, http.StatusInternalServerError, w.Code)

		p := decodePayload(t, w)
		require.Equal(t, "panic: nil map", p.Message)
		require.Equal(t, "*internal.PanicError", p.Debug.Type)
		require.NotEmpty(t, p.Debug.Trace)
	})

	t.Run("http errors keep status detail and headers", func(t *testing.T) {
		t.Parallel()

		w := do(errorApp(t), http.MethodGet, "/teapot")
		require.Equal(t, http.StatusTeapot, w.Code)
		require.Equal(t, "120", w.Header().Get("Retry-After"))

		p := decodePayload(t, w)
		require.Equal(t, "short and stout", p.Message)
		require.Equal(t, "tip me over", p.Detail)
		require.Equal(t, "TEA_01", p.Code)
		require.NotContains(t, w.Body.String(), "kettle")
	})

	t.Run("validation errors are 422", func(t *testing.T) {
		t.Parallel()

		w := do(errorApp(t), http.MethodGet, "/invalid")
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)

		p := decodePayload(t, w)
		require.Equal(t, "Validation failed", p.Message)
		require.Equal(t, []internal.FieldError{{
			Location: []string{"body", "email"},
			Message:  "must be a valid email address",
			Type:     "email",
		}}, p.Errors)
	})

	t.Run("unadaptable results are server errors", func(t *testing.T) {
		t.Parallel()

		w := do(errorApp(t, internal.WithDebug(true)), http.MethodGet, "/unadaptable")
		require.Equal(t, http.StatusInternalServerError, w.Code)
		require.Contains(t, decodePayload(t, w).Message, "chan int")
	})

	t.Run("html when the client prefers it", func(t *testing.T) {
		t.Parallel()

		w := do(errorApp(t), http.MethodGet, "/teapot", "Accept", "text/html,application/xhtml+xml")
		require.Equal(t, http.StatusTeapot, w.Code)
		require.Equal(t, internal.MIMETextHTML, w.Header().Get("Content-Type"))
		require.Contains(t, w.Body.String(), "<title>418 I&#39;m a teapot</title>")
		require.Contains(t, w.Body.String(), "short and stout")
	})

	t.Run("html escapes validation messages", func(t *testing.T) {
		t.Parallel()

		w := do(errorApp(t), http.MethodGet, "/invalid", "Accept", "text/html")
		require.Contains(t, w.Body.String(), "<code>body.email</code>")
	})
}

func TestExceptionReporting(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	rec := &errorRecorder{}
	app := errorApp(t,
		internal.WithLogger(slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))),
		internal.WithReporter(rec.report),
	)

	do(app, http.MethodGet, "/teapot")
	do(app, http.MethodGet, "/invalid")
	require.Empty(t, rec.all(), "client errors are not forwarded to reporters")

	do(app, http.MethodGet, "/boom")
	do(app, http.MethodGet, "/panic")
	errs := rec.all()
	require.Len(t, errs, 2)
	require.EqualError(t, errs[0], "db password is hunter2")
	require.True(t, internal.IsPanicError(errs[1]))

	var levels []string
	dec := json.NewDecoder(&logs)
	for dec.More() {
		var entry map[string]any
		require.NoError(t, dec.Decode(&entry))
		levels = append(levels, entry["level"].(string))
	}
	require.Equal(t, []string{"DEBUG", "DEBUG", "ERROR", "ERROR"}, levels)
}

func TestRequestIDOnErrors(t *testing.T) {
	t.Parallel()

	app := errorApp(t, internal.WithRequestIDFunc(func(context.Context) string { return "req-123" }))

	p := decodePayload(t, do(app, http.MethodGet, "/boom"))
	require.Equal(t, "req-123", p.RequestID)
}

// plainExceptions renders every error as a one-line text body.
type plainExceptions struct {
	reported []error
}

func (h *plainExceptions) Report(_ context.Context, err error) {
	h.reported = append(h.reported, err)
}

func (h *plainExceptions) Render(_ internal.Context, err error) *internal.Response {
	return internal.Text(internal.StatusOf(err), "oops: "+err.Error())
}

func TestCustomExceptionHandler(t *testing.T) {
	t.Parallel()

	h := &plainExceptions{}
	app := errorApp(t, internal.WithExceptionHandler(h))

	w := do(app, http.MethodGet, "/teapot")
	require.Equal(t, http.StatusTeapot, w.Code)
	require.Equal(t, "oops: short and stout", w.Body.String())

	w = do(app, http.MethodGet, "/missing")
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Len(t, h.reported, 2)
}

func TestExceptionHandlerInContainer(t *testing.T) {
	t.Parallel()

	app := errorApp(t)
	h, err := container.Resolve[internal.ExceptionHandler](app.Container())
	require.NoError(t, err)
	require.IsType(t, &internal.DefaultExceptionHandler{}, h)
}
