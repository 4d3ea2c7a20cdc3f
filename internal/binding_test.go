package internal_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/expanse/internal"
)

type createUser struct {
	Email string   `json:"email" form:"email" validate:"required,email" sanitize:"trim,lower"`
	Name  string   `json:"name" form:"name" validate:"required,min=2" sanitize:"trim,space"`
	Bio   string   `json:"bio" form:"bio" sanitize:"strip"`
	Age   int      `json:"age" form:"age" validate:"gte=0,lte=150"`
	Tags  []string `json:"tags" form:"tags"`
}

type listUsers struct {
	Page    int           `query:"page" validate:"gte=1"`
	PerPage int           `query:"per_page" validate:"omitempty,lte=100"`
	Sort    string        `query:"sort" validate:"omitempty,oneof=name created_at"`
	Active  *bool         `query:"active"`
	Within  time.Duration `query:"within"`
	IDs     []int64       `query:"id"`
}

type userPath struct {
	ID   int    `param:"id" validate:"gte=1"`
	Slug string `param:"slug"`
}

func bindingApp(t *testing.T) *internal.App {
	t.Helper()

	return newApp(t, internal.WithRoutes(func(r internal.Router) {
		r.POST("/users", func(in internal.Body[createUser]) (internal.JSONResult, error) {
			return internal.Created(in.Value), nil
		})
		r.GET("/users", func(q internal.Query[listUsers]) map[string]any {
			return map[string]any{
				"page":     q.Value.Page,
				"per_page": q.Value.PerPage,
				"active":   q.Value.Active != nil && *q.Value.Active,
				"within":   q.Value.Within.String(),
				"ids":      q.Value.IDs,
			}
		})
		r.GET("/users/{id:int}/{slug}", func(p *internal.Path[userPath]) map[string]any {
			return map[string]any{"id": p.Value.ID, "slug": p.Value.Slug}
		})
		r.POST("/bind", func(c internal.Context) (map[string]any, error) {
			var in createUser
			if err := c.Bind(&in); err != nil {
				return nil, err
			}
			return map[string]any{"email": in.Email}, nil
		})
		r.GET("/bind-query", func(c internal.Context) (map[string]any, error) {
			var q listUsers
			if err := c.BindQuery(&q); err != nil {
				return nil, err
			}
			return map[string]any{"page": q.Page}, nil
		})
	}))
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestBodyBinding(t *testing.T) {
	t.Parallel()

	app := bindingApp(t)

	t.Run("json is decoded sanitized and validated", func(t *testing.T) {
		t.Parallel()

		w := serve(app, jsonRequest(http.MethodPost, "/users",
			`{"email":"  Alice@Example.COM ","name":"  Alice   Liddell ","bio":"<b>hi</b>","age":30}`))
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		require.JSONEq(t,
			`{"email":"alice@example.com","name":"Alice Liddell","bio":"hi","age":30,"tags":null}`,
			w.Body.String())
	})

	t.Run("validation failures are collected", func(t *testing.T) {
		t.Parallel()

		w := serve(app, jsonRequest(http.MethodPost, "/users", `{"email":"nope","age":200}`))
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)

		p := decodePayload(t, w)
		require.Equal(t, []internal.FieldError{
			{Location: []string{"body", "email"}, Message: "must be a valid email address", Type: "email"},
			{Location: []string{"body", "name"}, Message: "field required", Type: "required"},
			{Location: []string{"body", "age"}, Message: "must be less than or equal to 150", Type: "lte"},
		}, p.Errors)
	})

	t.Run("type mismatch", func(t *testing.T) {
		t.Parallel()

		w := serve(app, jsonRequest(http.MethodPost, "/users", `{"email":"a@b.co","name":"Al","age":"old"}`))
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)

		p := decodePayload(t, w)
		require.Len(t, p.Errors, 1)
		require.Equal(t, []string{"body", "age"}, p.Errors[0].Location)
		require.Equal(t, "type_error.integer", p.Errors[0].Type)
	})

	t.Run("malformed json", func(t *testing.T) {
		t.Parallel()

		w := serve(app, jsonRequest(http.MethodPost, "/users", `{"email":`))
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		require.Equal(t, "json_invalid", decodePayload(t, w).Errors[0].Type)
	})

	t.Run("form body", func(t *testing.T) {
		t.Parallel()

		form := url.Values{"email": {"bob@example.com"}, "name": {"Bob"}, "age": {"41"}, "tags": {"a", "b"}}
		req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		w := serve(app, req)
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		require.JSONEq(t,
			`{"email":"bob@example.com","name":"Bob","bio":"","age":41,"tags":["a","b"]}`,
			w.Body.String())
	})

	t.Run("form conversion errors", func(t *testing.T) {
		t.Parallel()

		form := url.Values{"email": {"bob@example.com"}, "name": {"Bob"}, "age": {"forty"}}
		req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		w := serve(app, req)
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		fe := decodePayload(t, w).Errors[0]
		require.Equal(t, []string{"body", "age"}, fe.Location)
		require.Equal(t, `invalid integer "forty"`, fe.Message)
	})

	t.Run("unsupported content type", func(t *testing.T) {
		t.Parallel()

		req := httptest.NewRequest(http.MethodPost, "/users", strings.NewReader("<user/>"))
		req.Header.Set("Content-Type", "application/xml")

		w := serve(app, req)
		require.Equal(t, http.StatusUnsupportedMediaType, w.Code)
	})

	t.Run("context bind", func(t *testing.T) {
		t.Parallel()

		w := serve(app, jsonRequest(http.MethodPost, "/bind", `{"email":"X@Y.io","name":"Xi"}`))
		require.Equal(t, http.StatusOK, w.Code)
		require.JSONEq(t, `{"email":"x@y.io"}`, w.Body.String())
	})
}

func TestQueryBinding(t *testing.T) {
	t.Parallel()

	app := bindingApp(t)

	t.Run("decodes scalars pointers durations and slices", func(t *testing.T) {
		t.Parallel()

		w := do(app, http.MethodGet, "/users?page=2&per_page=50&active=true&within=90m&id=3&id=5")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		require.JSONEq(t,
			`{"page":2,"per_page":50,"active":true,"within":"1h30m0s","ids":[3,5]}`,
			w.Body.String())
	})

	t.Run("conversion and validation errors", func(t *testing.T) {
		t.Parallel()

		w := do(app, http.MethodGet, "/users?page=x")
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		fe := decodePayload(t, w).Errors[0]
		require.Equal(t, []string{"query", "page"}, fe.Location)
		require.Equal(t, "type_error.integer", fe.Type)

		w = do(app, http.MethodGet, "/users?page=1&sort=age")
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		fe = decodePayload(t, w).Errors[0]
		require.Equal(t, []string{"query", "sort"}, fe.Location)
		require.Equal(t, "must be one of: name, created_at", fe.Message)
	})

	t.Run("missing required value", func(t *testing.T) {
		t.Parallel()

		w := do(app, http.MethodGet, "/bind-query")
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)
		require.Equal(t, "gte", decodePayload(t, w).Errors[0].Type)

		w = do(app, http.MethodGet, "/bind-query?page=4")
		require.JSONEq(t, `{"page":4}`, w.Body.String())
	})
}

func TestPathBinding(t *testing.T) {
	t.Parallel()

	app := bindingApp(t)

	w := do(app, http.MethodGet, "/users/12/alice")
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"id":12,"slug":"alice"}`, w.Body.String())

	w = do(app, http.MethodGet, "/users/0/alice")
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.Equal(t, []string{"path", "id"}, decodePayload(t, w).Errors[0].Location)
}

func TestRegisterValidation(t *testing.T) {
	t.Parallel()

	require.NoError(t, internal.RegisterValidation("even_number", func(fl validator.FieldLevel) bool {
		return fl.Field().Int()%2 == 0
	}))

	type pair struct {
		N int `query:"n" validate:"even_number"`
	}
	app := newApp(t, internal.WithRoutes(func(r internal.Router) {
		r.GET("/pair", func(q internal.Query[pair]) int64 { return int64(q.Value.N) })
	}), internal.WithJSONFallback())

	require.Equal(t, http.StatusOK, do(app, http.MethodGet, "/pair?n=4").Code)

	w := do(app, http.MethodGet, "/pair?n=3")
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.Equal(t, "failed even_number validation", decodePayload(t, w).Errors[0].Message)
}
