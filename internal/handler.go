package internal

// Handler declares routes on a router.
//
// Example:
//
//	type UserHandler struct{}
//
//	func (h *UserHandler) Routes(r expanse.Router) {
//	    r.GET("/users/{id:int}", h.show, expanse.Name("show"))
//	    r.POST("/users", h.create)
//	}
type Handler interface {
	Routes(r Router)
}

// HandlerFunc is the fast-path handler signature. Any other func is
// accepted as a handler too; its parameters are resolved by type.
type HandlerFunc func(c Context) (*Response, error)

// Next continues the middleware chain.
type Next func(c Context) (*Response, error)

// Middleware intercepts a request. It may short-circuit by returning a
// response without calling next, or post-process the response next returns.
//
// Example:
//
//	type Auth struct{}
//
//	func (Auth) Handle(c expanse.Context, next expanse.Next) (*expanse.Response, error) {
//	    if c.Header("Authorization") == "" {
//	        return nil, expanse.ErrUnauthorized("")
//	    }
//	    return next(c)
//	}
type Middleware interface {
	Handle(c Context, next Next) (*Response, error)
}

// MiddlewareFunc adapts a func to the Middleware interface.
type MiddlewareFunc func(c Context, next Next) (*Response, error)

// Handle calls f.
func (f MiddlewareFunc) Handle(c Context, next Next) (*Response, error) {
	return f(c, next)
}

// Responder is implemented by handler results that build their own response.
type Responder interface {
	Respond(c Context) (*Response, error)
}
