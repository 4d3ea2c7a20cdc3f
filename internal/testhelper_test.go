package internal_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/expanse/internal"
)

func newApp(t *testing.T, opts ...internal.Option) *internal.App {
	t.Helper()

	app, err := internal.New(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// do sends a bodyless request; headers are passed as key, value pairs.
func do(h http.Handler, method, target string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	return serve(h, req)
}

// within runs fn inside a matched handler. /items/{id} and a catch-all
// route are registered for GET and POST.
func within(t *testing.T, req *http.Request, fn func(c internal.Context), opts ...internal.Option) *httptest.ResponseRecorder {
	t.Helper()

	called := false
	h := func(c internal.Context) (*internal.Response, error) {
		called = true
		fn(c)
		return internal.NoContent(http.StatusNoContent), nil
	}
	methods := []string{http.MethodGet, http.MethodPost}
	opts = append(opts, internal.WithRoutes(func(r internal.Router) {
		r.Handle(methods, "/items/{id}", h)
		r.Handle(methods, "/{rest:path}", h)
	}))

	w := serve(newApp(t, opts...), req)
	require.True(t, called, "handler was not called, status %d: %s", w.Code, w.Body.String())
	return w
}

func decodePayload(t *testing.T, w *httptest.ResponseRecorder) internal.ErrorPayload {
	t.Helper()

	var p internal.ErrorPayload
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p), w.Body.String())
	return p
}

// trace records middleware and handler steps. Middleware made by mw records
// its name on the way in and name+":out" once next returns.
type trace struct {
	mu    sync.Mutex
	steps []string
}

func (tr *trace) add(step string) {
	tr.mu.Lock()
	tr.steps = append(tr.steps, step)
	tr.mu.Unlock()
}

func (tr *trace) all() []string {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	return append([]string(nil), tr.steps...)
}

func (tr *trace) mw(name string) internal.Middleware {
	return internal.MiddlewareFunc(func(c internal.Context, next internal.Next) (*internal.Response, error) {
		tr.add(name)
		resp, err := next(c)
		tr.add(name + ":out")
		return resp, err
	})
}

// errorRecorder is a Reporter that keeps every reported error.
type errorRecorder struct {
	mu   sync.Mutex
	errs []error
}

func (r *errorRecorder) report(_ context.Context, err error) {
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()
}

func (r *errorRecorder) all() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errs...)
}
