// Package internal provides the core types and implementation for expanse.
//
// This package is internal and should not be used directly. Import
// "github.com/dmitrymomot/expanse" instead, which re-exports the public API.
//
// # Core Types
//
//   - App: owns the container, routes, middleware stack and adapters
//   - RouteCollection: ordered routes with typed patterns and reverse URLs
//   - MiddlewareStack: global middleware plus named groups
//   - Dispatcher: per-request scope, chain composition and response writing
//   - AdapterRegistry: converts handler results into a Response
//   - ExceptionHandler: reports and renders errors escaping the chain
//
// # Request Lifecycle
//
// For every request the Dispatcher:
//
//  1. opens a container scope and stores it in the request context
//  2. matches the route (404 and 405 are errors, not special handlers)
//  3. builds the chain HandleExceptions ++ global ++ groups ++ route-own
//  4. invokes the handler, resolving its parameters by type, directly or
//     on the offload pool for Blocking() routes
//  5. adapts the result and writes it, unless the handler wrote directly
//  6. closes the scope
//
// # Context as context.Context
//
// Context embeds context.Context, so it can be passed directly to any function
// that expects a standard library context:
//
//	func (h *Handler) getUser(c expanse.Context, repo *Repo) (*User, error) {
//	    return repo.GetUser(c, expanse.Param[int](c, "id"))
//	}
package internal
