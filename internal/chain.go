package internal

import "fmt"

// compose wraps final with mws so that mws[0] runs first.
func compose(mws []Middleware, final Next) Next {
	next := final
	for i := len(mws) - 1; i >= 0; i-- {
		next = link(mws[i], next)
	}
	return next
}

// link binds one middleware to its continuation. The continuation may be
// called at most once per request, and the middleware must produce a
// response or an error.
func link(mw Middleware, next Next) Next {
	return func(c Context) (*Response, error) {
		called := false
		guarded := func(c Context) (*Response, error) {
			if called {
				return nil, ErrNextCalledTwice
			}
			called = true
			return next(c)
		}

		resp, err := mw.Handle(c, guarded)
		if err == nil && resp == nil && !c.Written() {
			return nil, fmt.Errorf("%w: %s", ErrNoResponse, describeMiddleware(mw))
		}
		return resp, err
	}
}

func describeMiddleware(mw Middleware) string {
	if name := MiddlewareName(mw); name != "" {
		return name
	}
	if s, ok := mw.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", mw)
}
