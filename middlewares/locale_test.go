package middlewares_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/expanse/internal"
	"github.com/dmitrymomot/expanse/middlewares"
)

func TestLocale(t *testing.T) {
	t.Parallel()

	app := newTestApp(t, func(r internal.Router) {
		r.GET("/", func(c internal.Context) string { return middlewares.GetLocale(c) })
	}, internal.WithMiddleware(middlewares.Locale([]string{"en", "de", "pt-BR"})))

	tests := []struct {
		name   string
		target string
		header map[string]string
		cookie string
		want   string
	}{
		{name: "default is first supported", target: "/", want: "en"},
		{name: "accept-language", target: "/", header: map[string]string{"Accept-Language": "de-CH, en;q=0.5"}, want: "de"},
		{name: "query wins", target: "/?lang=pt-BR", header: map[string]string{"Accept-Language": "de"}, want: "pt-BR"},
		{name: "cookie", target: "/", cookie: "de", want: "de"},
		{name: "unsupported query falls back to header", target: "/?lang=ja", header: map[string]string{"Accept-Language": "de"}, want: "de"},
		{name: "regional variant normalizes", target: "/?lang=en-US", want: "en"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "lang", Value: tt.cookie})
			}

			rec := serve(app, req)
			require.Equal(t, http.StatusOK, rec.Code)
			require.Equal(t, tt.want, body(t, rec))
			require.Equal(t, tt.want, rec.Header().Get("Content-Language"))
		})
	}
}

func TestLocale_PanicsWithoutLanguages(t *testing.T) {
	t.Parallel()

	require.Panics(t, func() { middlewares.Locale(nil) })
}
