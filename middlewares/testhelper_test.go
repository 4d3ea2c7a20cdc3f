package middlewares_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/expanse/internal"
)

// newTestApp builds an application with routes and options.
func newTestApp(t *testing.T, routes func(r internal.Router), opts ...internal.Option) *internal.App {
	t.Helper()

	opts = append(opts, internal.WithRoutes(routes))
	app, err := internal.New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func serve(app http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)
	return rec
}

func get(app http.Handler, path string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	return serve(app, req)
}

func body(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	b, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	return string(b)
}

func ok(c internal.Context) (*internal.Response, error) {
	return c.Text(http.StatusOK, "ok"), nil
}

func newRequest(method, target string) *http.Request {
	return httptest.NewRequest(method, target, nil)
}
