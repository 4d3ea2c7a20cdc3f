package container_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/expanse/pkg/container"
)

type requestID string

type tx struct {
	closed atomic.Bool
}

func (t *tx) Close() error {
	t.closed.Store(true)
	return nil
}

func TestScopeLocals(t *testing.T) {
	t.Parallel()

	c := container.New()
	container.Provide(c, container.Scoped, func(r container.Resolver) (*repo, error) {
		id, err := container.Resolve[requestID](r)
		if err != nil {
			return nil, err
		}
		return &repo{name: string(id)}, nil
	})

	s := c.NewScope(context.Background())
	defer s.Close()
	s.Set(container.KeyOf[requestID](), requestID("req-1"))

	r, err := container.Resolve[*repo](s)
	require.NoError(t, err)
	require.Equal(t, "req-1", r.name)
	require.True(t, s.Has(container.KeyOf[requestID]()))
	require.False(t, c.Has(container.KeyOf[requestID]()))

	t.Run("rejects values of the wrong type", func(t *testing.T) {
		t.Parallel()

		s := container.New().NewScope(context.Background())
		defer s.Close()

		require.PanicsWithError(t,
			`container: invalid factory: scope value int for container_test.requestID`,
			func() { s.Set(container.KeyOf[requestID](), 42) })
		require.Panics(t, func() { s.Set(container.KeyOf[requestID](), nil) })
		require.NotPanics(t, func() { s.Set("anything", 42) })
		require.False(t, s.Has(container.KeyOf[requestID]()))
	})
}

func TestScopeClose(t *testing.T) {
	t.Parallel()

	t.Run("closes scoped closers and rejects further use", func(t *testing.T) {
		t.Parallel()

		c := container.New()
		container.Provide(c, container.Scoped, func(container.Resolver) (*tx, error) {
			return &tx{}, nil
		})

		s := c.NewScope(context.Background())
		v := container.MustResolve[*tx](s)
		require.False(t, v.closed.Load())

		require.NoError(t, s.Close())
		require.True(t, v.closed.Load())
		require.True(t, s.Closed())

		_, err := s.Get(container.KeyOf[*tx]())
		require.ErrorIs(t, err, container.ErrScopeClosed)
		require.NoError(t, s.Close())
	})

	t.Run("closers run in reverse creation order", func(t *testing.T) {
		t.Parallel()

		var (
			closed atomic.Int32
			order  []string
			mu     sync.Mutex
		)
		c := container.New()
		c.Scoped("outer", func(r container.Resolver) (any, error) {
			if _, err := r.Get("inner"); err != nil {
				return nil, err
			}
			return &closer{closed: &closed, order: &order, name: "outer", mu: &mu}, nil
		})
		c.Scoped("inner", func(container.Resolver) (any, error) {
			return &closer{closed: &closed, order: &order, name: "inner", mu: &mu}, nil
		})

		s := c.NewScope(context.Background())
		_, err := s.Get("outer")
		require.NoError(t, err)
		require.NoError(t, s.Close())
		require.Equal(t, []string{"outer", "inner"}, order)
	})

	t.Run("hold postpones teardown", func(t *testing.T) {
		t.Parallel()

		c := container.New()
		container.Provide(c, container.Scoped, func(container.Resolver) (*tx, error) {
			return &tx{}, nil
		})

		s := c.NewScope(context.Background())
		v := container.MustResolve[*tx](s)

		release := s.Hold()
		require.NoError(t, s.Close())
		require.False(t, s.Closed())
		require.False(t, v.closed.Load())

		// still usable by the holder
		same := container.MustResolve[*tx](s)
		require.Same(t, v, same)

		release()
		release()
		require.True(t, s.Closed())
		require.True(t, v.closed.Load())
	})

	t.Run("teardown errors after release go to the handler", func(t *testing.T) {
		t.Parallel()

		boom := errors.New("close failed")
		c := container.New()
		c.Scoped("res", func(container.Resolver) (any, error) {
			return failingCloser{err: boom}, nil
		})

		var got error
		s := c.NewScope(context.Background(), container.WithCloseErrorHandler(func(err error) {
			got = err
		}))
		_, err := s.Get("res")
		require.NoError(t, err)

		release := s.Hold()
		require.NoError(t, s.Close())
		release()
		require.ErrorIs(t, got, boom)
	})
}

type failingCloser struct{ err error }

func (f failingCloser) Close() error { return f.err }

func TestScopeCall(t *testing.T) {
	t.Parallel()

	c := container.New()
	require.NoError(t, c.Provide(newRepo, container.Singleton))

	s := c.NewScope(context.Background())
	defer s.Close()
	s.Set(container.KeyOf[requestID](), requestID("abc"))

	out, err := s.Call(func(r *repo, id requestID) string {
		return r.name + ":" + string(id)
	})
	require.NoError(t, err)
	require.Equal(t, []any{"users:abc"}, out)
}

func TestScopeContext(t *testing.T) {
	t.Parallel()

	type ctxKey struct{}
	c := container.New()
	base := context.WithValue(context.Background(), ctxKey{}, "v")
	s := c.NewScope(base)
	defer s.Close()

	ctx := container.WithScope(base, s)
	got, ok := container.FromContext(ctx)
	require.True(t, ok)
	require.Same(t, s, got)
	require.Equal(t, "v", s.Context().Value(ctxKey{}))
	require.Same(t, c, s.Container())

	_, ok = container.FromContext(context.Background())
	require.False(t, ok)

	c.Scoped("ctx", func(r container.Resolver) (any, error) {
		return r.Context().Value(ctxKey{}), nil
	})
	v, err := s.Get("ctx")
	require.NoError(t, err)
	require.Equal(t, "v", v)
}
