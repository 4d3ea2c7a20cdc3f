package container

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"sync"
)

// Scope is a child of a Container that lives for one unit of work (one request).
// Scoped bindings resolve to one instance per Scope; singletons come from the
// parent Container; transient bindings behave as they do on the parent.
//
// A Scope is a scoped acquisition: create it, use it, Close it on every exit path.
type Scope struct {
	c         *Container
	ctx       context.Context
	instances map[*binding]any
	locals    map[any]any
	onError   func(error)
	closers   []io.Closer
	mu        sync.Mutex
	holds     int
	closing   bool
	closed    bool
}

// ScopeOption configures a Scope.
type ScopeOption func(*Scope)

// WithCloseErrorHandler sets the handler for teardown errors that happen after
// Close has already returned (when the last Hold is released).
// Defaults to logging with slog.
func WithCloseErrorHandler(fn func(error)) ScopeOption {
	return func(s *Scope) {
		if fn != nil {
			s.onError = fn
		}
	}
}

// NewScope forks a Scope from the container.
func (c *Container) NewScope(ctx context.Context, opts ...ScopeOption) *Scope {
	if ctx == nil {
		ctx = context.Background()
	}
	s := &Scope{
		c:         c,
		ctx:       ctx,
		instances: make(map[*binding]any),
		locals:    make(map[any]any),
		onError: func(err error) {
			slog.Error("container: scope teardown failed", slog.Any("error", err))
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Container returns the parent container.
func (s *Scope) Container() *Container { return s.c }

// Context returns the context the scope was created with.
func (s *Scope) Context() context.Context { return s.ctx }

// Set seeds a value visible only inside this scope. Seeded values take
// precedence over container bindings for the same key.
// Set panics when key is a type and v is not assignable to it.
func (s *Scope) Set(key any, v any) {
	key = mustKey(key)
	if t, ok := key.(reflect.Type); ok && (v == nil || !reflect.TypeOf(v).AssignableTo(t)) {
		panic(fmt.Errorf("%w: scope value %T for %s", ErrInvalidFactory, v, KeyString(key)))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.locals[key] = v
}

// Get resolves key within this scope.
func (s *Scope) Get(key any) (any, error) {
	return s.c.resolve(s.frame(), key)
}

// Make is an alias of Get.
func (s *Scope) Make(key any) (any, error) {
	return s.Get(key)
}

// Has reports whether key resolves within this scope.
func (s *Scope) Has(key any) bool {
	return s.c.has(s, key)
}

// Call invokes fn, resolving its parameters within this scope.
func (s *Scope) Call(fn any, extra ...any) ([]any, error) {
	return call(s.frame(), fn, extra)
}

// Hold keeps the scope alive until the returned release func is called,
// even if Close runs first. Used when work borrowed from the request outlives
// the request goroutine (for example an offloaded handler after cancellation).
func (s *Scope) Hold() (release func()) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return func() {}
	}
	s.holds++
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			s.holds--
			last := s.holds == 0 && s.closing
			s.mu.Unlock()
			if last {
				if err := s.teardown(); err != nil {
					s.onError(err)
				}
			}
		})
	}
}

// Close discards scoped instances and closes those implementing io.Closer in
// reverse creation order. If holds are outstanding, teardown is postponed
// until the last one is released. Close is idempotent.
func (s *Scope) Close() error {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		return nil
	}
	s.closing = true
	if s.holds > 0 {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()
	return s.teardown()
}

// Closed reports whether the scope has been torn down.
func (s *Scope) Closed() bool {
	return s.isClosed()
}

func (s *Scope) frame() *frame {
	return &frame{c: s.c, scope: s, ctx: s.ctx, res: &resolution{}}
}

func (s *Scope) teardown() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	closers := s.closers
	s.closers = nil
	s.instances = nil
	s.locals = nil
	s.mu.Unlock()

	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Scope) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Scope) local(key any) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.locals[key]
	return v, ok
}

func (s *Scope) hasLocal(key any) bool {
	_, ok := s.local(key)
	return ok
}

func (s *Scope) cachedScoped(b *binding) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.instances[b]
	return v, ok
}

func (s *Scope) scoped(b *binding, fr *frame) (any, error) {
	if v, ok := s.cachedScoped(b); ok {
		return v, nil
	}
	id := scopedID{scope: s, binding: b}
	return s.c.flights.do(id, fr, func() (any, bool) { return s.cachedScoped(b) }, func() (any, error) {
		v, err := s.c.build(b, fr)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed {
			if closer, ok := v.(io.Closer); ok {
				_ = closer.Close()
			}
			return nil, ErrScopeClosed
		}
		s.instances[b] = v
		if closer, ok := v.(io.Closer); ok {
			s.closers = append(s.closers, closer)
		}
		return v, nil
	})
}

// scopedID keys a scoped build in the container's flights.
type scopedID struct {
	scope   *Scope
	binding *binding
}

type scopeContextKey struct{}

// WithScope returns a copy of ctx carrying s.
func WithScope(ctx context.Context, s *Scope) context.Context {
	return context.WithValue(ctx, scopeContextKey{}, s)
}

// FromContext returns the Scope stored in ctx by WithScope.
func FromContext(ctx context.Context) (*Scope, bool) {
	if ctx == nil {
		return nil, false
	}
	s, ok := ctx.Value(scopeContextKey{}).(*Scope)
	return s, ok && s != nil
}
