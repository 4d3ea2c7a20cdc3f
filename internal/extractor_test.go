package internal_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/expanse/internal"
	"github.com/dmitrymomot/expanse/pkg/container"
)

func TestExtractor(t *testing.T) {
	t.Parallel()

	t.Run("empty sources returns false", func(t *testing.T) {
		t.Parallel()

		ext := internal.NewExtractor()
		within(t, httptest.NewRequest(http.MethodGet, "/", nil), func(c internal.Context) {
			v, ok := ext.Extract(c)
			require.False(t, ok)
			require.Empty(t, v)
		})
	})

	t.Run("first hit wins", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/?token=from-query", nil)
		req.Header.Set("X-Token", "from-header")

		ext := internal.NewExtractor(
			internal.FromHeader("X-Token"),
			internal.FromQuery("token"),
		)
		within(t, req, func(c internal.Context) {
			v, ok := ext.Extract(c)
			require.True(t, ok)
			require.Equal(t, "from-header", v)
		})
	})

	t.Run("falls through misses", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodGet, "/?token=from-query", nil)
		ext := internal.NewExtractor(
			internal.FromHeader("X-Token"),
			internal.FromCookie("token"),
			internal.FromQuery("token"),
		)
		within(t, req, func(c internal.Context) {
			v, ok := ext.Extract(c)
			require.True(t, ok)
			require.Equal(t, "from-query", v)
		})
	})
}

func TestExtractorSources(t *testing.T) {
	t.Parallel()

	form := url.Values{"email": {"a@b.c"}}

	tests := []struct {
		name   string
		req    func() *http.Request
		source internal.ExtractorSource
		want   string
		ok     bool
	}{
		{
			name:   "header",
			req:    func() *http.Request { return withHeader(http.MethodGet, "/", "X-Api-Key", "k1") },
			source: internal.FromHeader("X-Api-Key"),
			want:   "k1", ok: true,
		},
		{
			name:   "missing header",
			req:    func() *http.Request { return httptest.NewRequest(http.MethodGet, "/", nil) },
			source: internal.FromHeader("X-Api-Key"),
		},
		{
			name:   "query",
			req:    func() *http.Request { return httptest.NewRequest(http.MethodGet, "/?lang=de", nil) },
			source: internal.FromQuery("lang"),
			want:   "de", ok: true,
		},
		{
			name:   "empty query value",
			req:    func() *http.Request { return httptest.NewRequest(http.MethodGet, "/?lang=", nil) },
			source: internal.FromQuery("lang"),
		},
		{
			name: "cookie",
			req: func() *http.Request {
				r := httptest.NewRequest(http.MethodGet, "/", nil)
				r.AddCookie(&http.Cookie{Name: "sid", Value: "abc"})
				return r
			},
			source: internal.FromCookie("sid"),
			want:   "abc", ok: true,
		},
		{
			name:   "missing cookie",
			req:    func() *http.Request { return httptest.NewRequest(http.MethodGet, "/", nil) },
			source: internal.FromCookie("sid"),
		},
		{
			name:   "path param",
			req:    func() *http.Request { return httptest.NewRequest(http.MethodGet, "/items/42", nil) },
			source: internal.FromParam("id"),
			want:   "42", ok: true,
		},
		{
			name:   "unknown path param",
			req:    func() *http.Request { return httptest.NewRequest(http.MethodGet, "/items/42", nil) },
			source: internal.FromParam("slug"),
		},
		{
			name: "form field",
			req: func() *http.Request {
				r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
				r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
				return r
			},
			source: internal.FromForm("email"),
			want:   "a@b.c", ok: true,
		},
		{
			name:   "bearer token",
			req:    func() *http.Request { return withHeader(http.MethodGet, "/", "Authorization", "Bearer t0k3n") },
			source: internal.FromBearerToken(),
			want:   "t0k3n", ok: true,
		},
		{
			name:   "bearer prefix is case-insensitive",
			req:    func() *http.Request { return withHeader(http.MethodGet, "/", "Authorization", "bearer t0k3n") },
			source: internal.FromBearerToken(),
			want:   "t0k3n", ok: true,
		},
		{
			name:   "basic auth is not a bearer token",
			req:    func() *http.Request { return withHeader(http.MethodGet, "/", "Authorization", "Basic dXNlcjpwYXNz") },
			source: internal.FromBearerToken(),
		},
		{
			name:   "bearer without token",
			req:    func() *http.Request { return withHeader(http.MethodGet, "/", "Authorization", "Bearer ") },
			source: internal.FromBearerToken(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			within(t, tt.req(), func(c internal.Context) {
				v, ok := tt.source(c)
				require.Equal(t, tt.ok, ok)
				require.Equal(t, tt.want, v)
			})
		})
	}
}

type tenantID string

func (id tenantID) String() string { return string(id) }

func TestFromScope(t *testing.T) {
	t.Parallel()

	seed := internal.MiddlewareFunc(func(c internal.Context, next internal.Next) (*internal.Response, error) {
		c.Scope().Set("tenant", tenantID("acme"))
		c.Scope().Set("plain", "value")
		c.Scope().Set("number", 42)
		return next(c)
	})

	within(t, httptest.NewRequest(http.MethodGet, "/", nil), func(c internal.Context) {
		v, ok := internal.FromScope("tenant")(c)
		require.True(t, ok)
		require.Equal(t, "acme", v)

		v, ok = internal.FromScope("plain")(c)
		require.True(t, ok)
		require.Equal(t, "value", v)

		_, ok = internal.FromScope("number")(c)
		require.False(t, ok)

		_, ok = internal.FromScope(container.KeyOf[*tenantID]())(c)
		require.False(t, ok)
	}, internal.WithMiddleware(seed))
}

func withHeader(method, target, key, value string) *http.Request {
	r := httptest.NewRequest(method, target, nil)
	r.Header.Set(key, value)
	return r
}
