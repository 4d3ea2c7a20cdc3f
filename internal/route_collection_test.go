package internal_test

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/expanse/internal"
)

func addRoute(t *testing.T, rc *internal.RouteCollection, methods []string, path string, opts ...internal.RouteOption) *internal.Route {
	t.Helper()

	r, err := internal.NewRoute(methods, path, func() {}, opts...)
	require.NoError(t, err)
	require.NoError(t, rc.Add(r))
	return r
}

var (
	get  = []string{http.MethodGet}
	post = []string{http.MethodPost}
)

func TestRouteCollectionMatch(t *testing.T) {
	t.Parallel()

	t.Run("typed parameter converts", func(t *testing.T) {
		t.Parallel()

		rc := internal.NewRouteCollection()
		show := addRoute(t, rc, get, "/users/{id:int}")

		m, err := rc.Match(http.MethodGet, "/users/42")
		require.NoError(t, err)
		require.Same(t, show, m.Route)
		v, ok := m.Params.Get("id")
		require.True(t, ok)
		require.Equal(t, 42, v)
		require.Equal(t, "42", m.Params.Raw("id"))
	})

	t.Run("failed conversion is a non-match", func(t *testing.T) {
		t.Parallel()

		rc := internal.NewRouteCollection()
		addRoute(t, rc, get, "/users/{id:int}")

		_, err := rc.Match(http.MethodGet, "/users/abc")
		var nf *internal.RouteNotFoundError
		require.ErrorAs(t, err, &nf)
		require.Equal(t, "/users/abc", nf.Path)
	})

	t.Run("failed conversion falls through to later routes", func(t *testing.T) {
		t.Parallel()

		rc := internal.NewRouteCollection()
		byID := addRoute(t, rc, get, "/users/{id:int}")
		byName := addRoute(t, rc, get, "/users/{name}")

		m, err := rc.Match(http.MethodGet, "/users/alice")
		require.NoError(t, err)
		require.Same(t, byName, m.Route)

		m, err = rc.Match(http.MethodGet, "/users/7")
		require.NoError(t, err)
		require.Same(t, byID, m.Route)
	})

	t.Run("first registered route wins", func(t *testing.T) {
		t.Parallel()

		rc := internal.NewRouteCollection()
		first := addRoute(t, rc, get, "/pages/{slug}")
		addRoute(t, rc, get, "/pages/about")

		m, err := rc.Match(http.MethodGet, "/pages/about")
		require.NoError(t, err)
		require.Same(t, first, m.Route)
	})

	t.Run("method mismatch is 405 with allowed methods", func(t *testing.T) {
		t.Parallel()

		rc := internal.NewRouteCollection()
		addRoute(t, rc, post, "/items")
		addRoute(t, rc, get, "/items")
		addRoute(t, rc, []string{http.MethodDelete}, "/items/{id:int}")

		_, err := rc.Match(http.MethodPut, "/items")
		var mna *internal.MethodNotAllowedError
		require.ErrorAs(t, err, &mna)
		require.Equal(t, []string{"GET", "HEAD", "POST"}, mna.Allowed)
		require.Equal(t, http.StatusMethodNotAllowed, mna.StatusCode())
	})

	t.Run("path known only under a different converter is 404", func(t *testing.T) {
		t.Parallel()

		rc := internal.NewRouteCollection()
		addRoute(t, rc, []string{http.MethodDelete}, "/items/{id:int}")

		_, err := rc.Match(http.MethodGet, "/items/abc")
		require.ErrorIs(t, err, internal.ErrRouteNotFound)
	})

	t.Run("HEAD falls back to GET", func(t *testing.T) {
		t.Parallel()

		rc := internal.NewRouteCollection()
		list := addRoute(t, rc, get, "/items")

		m, err := rc.Match(http.MethodHead, "/items")
		require.NoError(t, err)
		require.Same(t, list, m.Route)
	})

	t.Run("explicit HEAD beats implicit HEAD", func(t *testing.T) {
		t.Parallel()

		rc := internal.NewRouteCollection()
		addRoute(t, rc, get, "/items")
		head := addRoute(t, rc, []string{http.MethodHead}, "/items")

		m, err := rc.Match(http.MethodHead, "/items")
		require.NoError(t, err)
		require.Same(t, head, m.Route)
	})

	t.Run("escaped segments are decoded", func(t *testing.T) {
		t.Parallel()

		rc := internal.NewRouteCollection()
		addRoute(t, rc, get, "/say/{word}")

		m, err := rc.Match(http.MethodGet, "/say/hello%20world")
		require.NoError(t, err)
		require.Equal(t, "hello world", m.Params.Raw("word"))
	})

	t.Run("empty segment does not match a parameter", func(t *testing.T) {
		t.Parallel()

		rc := internal.NewRouteCollection()
		addRoute(t, rc, get, "/users/{id}")

		_, err := rc.Match(http.MethodGet, "/users/")
		require.ErrorIs(t, err, internal.ErrRouteNotFound)
	})
}

func TestConverters(t *testing.T) {
	t.Parallel()

	id := uuid.New()

	tests := []struct {
		name    string
		pattern string
		path    string
		want    any
		match   bool
	}{
		{"str", "/p/{v}", "/p/hello", "hello", true},
		{"int", "/p/{v:int}", "/p/123", 123, true},
		{"int rejects sign", "/p/{v:int}", "/p/-1", nil, false},
		{"int rejects letters", "/p/{v:int}", "/p/12a", nil, false},
		{"float", "/p/{v:float}", "/p/1.5", 1.5, true},
		{"float rejects sign", "/p/{v:float}", "/p/-1.5", nil, false},
		{"uuid", "/p/{v:uuid}", "/p/" + id.String(), id, true},
		{"uuid rejects garbage", "/p/{v:uuid}", "/p/not-a-uuid", nil, false},
		{"slug", "/p/{v:slug}", "/p/hello-world_2", "hello-world_2", true},
		{"slug rejects dots", "/p/{v:slug}", "/p/a.b", nil, false},
		{"path is greedy", "/p/{v:path}", "/p/a/b/c.txt", "a/b/c.txt", true},
		{"inline regexp", "/p/{v:re:[0-9]{4}}", "/p/2024", "2024", true},
		{"inline regexp is anchored", "/p/{v:re:[0-9]{4}}", "/p/20245", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rc := internal.NewRouteCollection()
			addRoute(t, rc, get, tt.pattern)

			m, err := rc.Match(http.MethodGet, tt.path)
			if !tt.match {
				require.ErrorIs(t, err, internal.ErrRouteNotFound)
				return
			}
			require.NoError(t, err)
			v, _ := m.Params.Get("v")
			require.Equal(t, tt.want, v)
		})
	}
}

func TestCustomConverter(t *testing.T) {
	t.Parallel()

	rc := internal.NewRouteCollection()
	require.NoError(t, rc.RegisterConverter("even", internal.Converter{
		Convert: func(raw string) (any, error) {
			n, err := strconv.Atoi(raw)
			if err != nil || n%2 != 0 {
				return nil, fmt.Errorf("not even: %q", raw)
			}
			return n, nil
		},
	}))
	addRoute(t, rc, get, "/n/{v:even}", internal.Name("even"))

	_, err := rc.Match(http.MethodGet, "/n/4")
	require.NoError(t, err)
	_, err = rc.Match(http.MethodGet, "/n/5")
	require.ErrorIs(t, err, internal.ErrRouteNotFound)

	_, err = rc.URL("even", map[string]any{"v": 3})
	require.ErrorIs(t, err, internal.ErrInvalidURLParam)

	require.Error(t, rc.RegisterConverter("broken", internal.Converter{}))
}

func TestInvalidPatterns(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		pattern string
		target  error
	}{
		{"no leading slash", "users", internal.ErrInvalidPattern},
		{"partial segment", "/users/{id}.json", internal.ErrInvalidPattern},
		{"empty name", "/users/{}", internal.ErrInvalidPattern},
		{"duplicate name", "/a/{id}/b/{id}", internal.ErrInvalidPattern},
		{"unknown converter", "/a/{id:nope}", internal.ErrUnknownConverter},
		{"greedy not last", "/a/{rest:path}/b", internal.ErrInvalidPattern},
		{"bad regexp", "/a/{v:re:[}", internal.ErrInvalidPattern},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rc := internal.NewRouteCollection()
			r, err := internal.NewRoute(get, tt.pattern, func() {})
			require.NoError(t, err)
			require.ErrorIs(t, rc.Add(r), tt.target)
			require.Empty(t, rc.Routes())
		})
	}
}

func TestRouteNames(t *testing.T) {
	t.Parallel()

	t.Run("duplicate name is rejected", func(t *testing.T) {
		t.Parallel()

		rc := internal.NewRouteCollection()
		addRoute(t, rc, get, "/a", internal.Name("show"))

		r, err := internal.NewRoute(get, "/b", func() {}, internal.Name("show"))
		require.NoError(t, err)
		err = rc.Add(r)

		var dup *internal.DuplicateRouteNameError
		require.ErrorAs(t, err, &dup)
		require.Equal(t, "show", dup.Name)
		require.Equal(t, "/a", dup.Existing)
		require.Equal(t, "/b", dup.Pattern)
		require.Len(t, rc.Routes(), 1)
	})

	t.Run("find by name", func(t *testing.T) {
		t.Parallel()

		rc := internal.NewRouteCollection()
		r := addRoute(t, rc, get, "/a", internal.Name("a"))

		got, ok := rc.Find("a")
		require.True(t, ok)
		require.Same(t, r, got)

		_, ok = rc.Find("b")
		require.False(t, ok)
	})
}

func TestRouteCollectionURL(t *testing.T) {
	t.Parallel()

	rc := internal.NewRouteCollection()
	addRoute(t, rc, get, "/users/{id:int}", internal.Name("users.show"))
	addRoute(t, rc, get, "/files/{rest:path}", internal.Name("files"))
	addRoute(t, rc, get, "/", internal.Name("home"))

	tests := []struct {
		name   string
		route  string
		params map[string]any
		want   string
		err    error
	}{
		{"simple", "users.show", map[string]any{"id": 42}, "/users/42", nil},
		{"extra params become query", "users.show", map[string]any{"id": 42, "tab": "posts", "page": 2}, "/users/42?page=2&tab=posts", nil},
		{"greedy keeps slashes", "files", map[string]any{"rest": "docs/a b.txt"}, "/files/docs/a%20b.txt", nil},
		{"root", "home", nil, "/", nil},
		{"missing param", "users.show", nil, "", internal.ErrMissingURLParam},
		{"param fails converter", "users.show", map[string]any{"id": "abc"}, "", internal.ErrInvalidURLParam},
		{"unknown route", "nope", nil, "", internal.ErrUnknownRoute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := rc.URL(tt.route, tt.params)
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestRouteCollectionFreeze(t *testing.T) {
	t.Parallel()

	rc := internal.NewRouteCollection()
	addRoute(t, rc, get, "/a")
	addRoute(t, rc, []string{http.MethodPatch}, "/a")
	rc.Freeze()

	r, err := internal.NewRoute(get, "/b", func() {})
	require.NoError(t, err)
	require.True(t, errors.Is(rc.Add(r), internal.ErrFrozen))
	require.ErrorIs(t, rc.RegisterConverter("x", internal.Converter{Convert: func(s string) (any, error) { return s, nil }}), internal.ErrFrozen)

	require.Equal(t, []string{"GET", "HEAD", "PATCH"}, rc.Allowed("/a"))
	require.Empty(t, rc.Allowed("/b"))
}

func TestNewRoute(t *testing.T) {
	t.Parallel()

	r, err := internal.NewRoute([]string{"get", " post ", "GET"}, "/x", func() {})
	require.NoError(t, err)
	require.Equal(t, []string{"GET", "POST"}, r.Methods())
	require.True(t, r.HasMethod(http.MethodHead))
	require.False(t, r.HasMethod(http.MethodPut))

	_, err = internal.NewRoute(get, "/x", nil)
	require.ErrorIs(t, err, internal.ErrInvalidHandler)

	_, err = internal.NewRoute(get, "/x", "not a func")
	require.ErrorIs(t, err, internal.ErrInvalidHandler)

	_, err = internal.NewRoute(get, "/x", func() (int, string) { return 0, "" })
	require.ErrorIs(t, err, internal.ErrInvalidHandler)

	_, err = internal.NewRoute(get, "/x", func() (int, error, bool) { return 0, nil, false })
	require.ErrorIs(t, err, internal.ErrInvalidHandler)
}
