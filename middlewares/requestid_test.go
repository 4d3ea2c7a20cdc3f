package middlewares_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/expanse/internal"
	"github.com/dmitrymomot/expanse/middlewares"
)

func TestRequestID(t *testing.T) {
	t.Parallel()

	echo := func(c internal.Context) (*internal.Response, error) {
		return c.Text(http.StatusOK, middlewares.GetRequestID(c)), nil
	}

	t.Run("generates a UUIDv7", func(t *testing.T) {
		t.Parallel()

		app := newTestApp(t, func(r internal.Router) { r.GET("/", echo) },
			internal.WithMiddleware(middlewares.RequestID()))

		rec := get(app, "/")
		require.Equal(t, http.StatusOK, rec.Code)

		id := rec.Header().Get("X-Request-ID")
		require.Equal(t, id, body(t, rec))
		parsed, err := uuid.Parse(id)
		require.NoError(t, err)
		require.Equal(t, uuid.Version(7), parsed.Version())
	})

	t.Run("keeps incoming id", func(t *testing.T) {
		t.Parallel()

		app := newTestApp(t, func(r internal.Router) { r.GET("/", echo) },
			internal.WithMiddleware(middlewares.RequestID()))

		rec := get(app, "/", "X-Correlation-ID", "upstream-1")
		require.Equal(t, "upstream-1", rec.Header().Get("X-Request-ID"))
		require.Equal(t, "upstream-1", body(t, rec))
	})

	t.Run("custom headers and generator", func(t *testing.T) {
		t.Parallel()

		app := newTestApp(t, func(r internal.Router) { r.GET("/", echo) },
			internal.WithMiddleware(middlewares.RequestID(
				middlewares.WithRequestIDHeaders("X-Trace"),
				middlewares.WithRequestIDGenerator(func() string { return "fixed" }),
				middlewares.WithRequestIDResponseHeader("X-Trace"),
			)))

		require.Equal(t, "fixed", get(app, "/", "X-Request-ID", "ignored").Header().Get("X-Trace"))
		require.Equal(t, "t-9", get(app, "/", "X-Trace", "t-9").Header().Get("X-Trace"))
	})

	t.Run("header is present on error responses", func(t *testing.T) {
		t.Parallel()

		app := newTestApp(t, func(r internal.Router) {
			r.GET("/", func() error { return internal.ErrForbidden("no") })
		}, internal.WithMiddleware(middlewares.RequestID()))

		rec := get(app, "/")
		require.Equal(t, http.StatusForbidden, rec.Code)
		require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	})

	t.Run("error payload carries the id", func(t *testing.T) {
		t.Parallel()

		app := newTestApp(t, func(r internal.Router) {
			r.GET("/", func() error { return internal.ErrNotFound("gone") })
		},
			internal.WithMiddleware(middlewares.RequestID()),
			internal.WithRequestIDFunc(middlewares.RequestIDFromContext),
		)

		rec := get(app, "/", "X-Request-ID", "rid-42")
		require.Contains(t, body(t, rec), `"request_id":"rid-42"`)
	})
}

func TestRequestIDExtractor(t *testing.T) {
	t.Parallel()

	ex := middlewares.RequestIDExtractor()

	_, ok := ex(context.Background())
	require.False(t, ok)
}
