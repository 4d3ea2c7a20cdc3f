// Package container provides a dependency injection registry with transient,
// singleton and scoped lifetimes.
//
// # Bindings
//
// A binding maps a key to a factory. Keys are either a reflect.Type (use
// [KeyOf] or the generic helpers) or a string name:
//
//	c := container.New()
//
//	container.Provide(c, container.Singleton, func(r container.Resolver) (*Config, error) {
//	    return LoadConfig()
//	})
//	c.Scoped("tx", func(r container.Resolver) (any, error) {
//	    return beginTx(r.Context())
//	})
//
// Constructors can be registered directly; their parameters are resolved
// recursively:
//
//	c.MustProvide(NewUserService, container.Singleton) // func(*UserRepo, *slog.Logger) *UserService
//
// Pointers to structs with `inject` tagged fields resolve without a binding:
//
//	type Handler struct {
//	    Users  *UserService `inject:""`
//	    Mailer Mailer       `inject:"mailer"`
//	}
//
// # Scopes
//
// [Container.NewScope] forks a Scope for one unit of work. Scoped bindings
// build once per Scope, singletons come from the parent, transient bindings
// build every time. Close the Scope on every exit path:
//
//	scope := c.NewScope(r.Context())
//	defer scope.Close()
//	scope.Set(container.KeyOf[*http.Request](), r)
//
// Singletons are resolved without access to the Scope, so a singleton that
// depends on a scoped binding fails with [ErrScopeRequired] instead of
// capturing per-request state.
//
// # Cycles
//
// Each resolution carries its own path. Resolving a key already on the path
// fails with [*CircularDependencyError] naming the cycle. [Container.Validate]
// checks constructor bindings for cycles up front.
//
// # Hooks
//
// [Container.OnResolved] registers a callback run after every successful
// resolution of a key, before the instance reaches the caller:
//
//	c.OnResolved(container.KeyOf[*Registry](), func(v any, r container.Resolver) {
//	    v.(*Registry).Add(extra)
//	})
//
// # Concurrency
//
// Resolution is safe for concurrent use. First resolutions of a singleton are
// collapsed into one factory call; concurrent callers wait for its result.
// Resolving a cyclic graph of singletons from several goroutines at once can
// block; run [Container.Validate] at bootstrap to rule that out.
package container
