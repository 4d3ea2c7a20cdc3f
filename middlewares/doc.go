// Package middlewares provides ready-made middleware for expanse applications.
//
// Every call to a constructor returns a distinct instance. Registering one
// instance globally and on a route runs it once; two instances with different
// settings both run. Wrap a middleware with expanse.Named to give it an
// identity for Remove, Replace and de-duplication.
//
//	app, err := expanse.New(
//	    expanse.WithMiddleware(
//	        middlewares.RequestID(),
//	        middlewares.AccessLog(),
//	        middlewares.CORS(middlewares.WithAllowOrigins("https://app.example.com")),
//	    ),
//	    expanse.WithMiddlewareGroup("api",
//	        middlewares.Timeout(10*time.Second),
//	        middlewares.JWT[UserClaims](middlewares.HS256(secret)),
//	    ),
//	)
//
// Available middleware:
//
//   - RequestID: assigns or propagates X-Request-ID (UUIDv7)
//   - AccessLog: one structured log line per request
//   - CORS: preflight handling and CORS response headers
//   - Timeout: bounds handler time, renders 503 on expiry
//   - JWT: verifies HS256/RS256 bearer tokens into typed claims
//   - Locale: resolves the request language from query, cookie or Accept-Language
//   - ResponseCache: caches successful GET responses in a cache.Store
//   - Transaction: runs the request in a pgx transaction bound to db.Querier
//
// Panics are not handled here; the framework's exception layer recovers them.
package middlewares
