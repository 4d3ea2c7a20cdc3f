package middlewares_test

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/expanse/internal"
	"github.com/dmitrymomot/expanse/middlewares"
	"github.com/dmitrymomot/expanse/pkg/cache"
)

func TestResponseCache(t *testing.T) {
	t.Parallel()

	newApp := func(t *testing.T, calls *atomic.Int32, opts ...middlewares.ResponseCacheOption) *internal.App {
		store := cache.NewMemory(cache.WithCleanupInterval(0))
		t.Cleanup(func() { _ = store.Close() })

		return newTestApp(t, func(r internal.Router) {
			r.GET("/items", func(c internal.Context) *internal.Response {
				n := calls.Add(1)
				return c.JSON(http.StatusOK, map[string]any{"n": n, "lang": c.Header("Accept-Language")})
			})
			r.POST("/items", func() *internal.Response {
				calls.Add(1)
				return internal.NoContent(http.StatusCreated)
			})
			r.GET("/private", func() *internal.Response {
				calls.Add(1)
				return internal.Text(http.StatusOK, "me").WithHeader("Cache-Control", "private")
			})
			r.GET("/missing", func() error {
				calls.Add(1)
				return internal.ErrNotFound("nope")
			})
		}, internal.WithMiddleware(middlewares.ResponseCache(store, time.Minute, opts...)))
	}

	t.Run("second GET is a hit", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		app := newApp(t, &calls)

		first := get(app, "/items")
		require.Equal(t, "MISS", first.Header().Get("X-Cache"))
		second := get(app, "/items")
		require.Equal(t, "HIT", second.Header().Get("X-Cache"))

		require.Equal(t, int32(1), calls.Load())
		require.Equal(t, body(t, first), body(t, second))
		require.Equal(t, first.Header().Get("Content-Type"), second.Header().Get("Content-Type"))
	})

	t.Run("query string is part of the key", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		app := newApp(t, &calls)
		get(app, "/items?page=1")
		get(app, "/items?page=2")
		require.Equal(t, int32(2), calls.Load())
	})

	t.Run("vary headers split entries", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		app := newApp(t, &calls, middlewares.WithCacheVary("Accept-Language"))
		get(app, "/items", "Accept-Language", "en")
		get(app, "/items", "Accept-Language", "de")
		get(app, "/items", "Accept-Language", "en")
		require.Equal(t, int32(2), calls.Load())
	})

	t.Run("skips non-GET, errors, private and authorized requests", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int32
		app := newApp(t, &calls)

		for range 2 {
			serve(app, httptest.NewRequest(http.MethodPost, "/items", nil))
			get(app, "/private")
			get(app, "/missing")
			get(app, "/items", "Authorization", "Bearer x")
		}
		require.Equal(t, int32(8), calls.Load())
	})
}
