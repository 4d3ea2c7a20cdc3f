// Package db provides PostgreSQL helpers built on [github.com/jackc/pgx/v5/pgxpool].
//
// # Configuration
//
// [Config] can be decoded from YAML or read from the environment with
// [LoadConfig]:
//
//	DATABASE_CONN_URL           - PostgreSQL connection URL (required)
//	DATABASE_MAX_OPEN_CONNS     - Maximum open connections (default: 10)
//	DATABASE_MIN_CONNS          - Minimum idle connections (default: 2)
//	DATABASE_HEALTHCHECK_PERIOD - Pool health check interval (default: 1m)
//	DATABASE_MAX_CONN_IDLE_TIME - Maximum connection idle time (default: 10m)
//	DATABASE_MAX_CONN_LIFETIME  - Maximum connection lifetime (default: 30m)
//	DATABASE_RETRY_ATTEMPTS     - Connection attempts (default: 3)
//	DATABASE_RETRY_INTERVAL     - Base retry interval (default: 5s)
//
// # Container
//
// [Provider] registers the pool in the application container. Handlers and
// repositories depend on [Querier]; the Transaction middleware rebinds
// Querier to a pgx.Tx for the duration of one request:
//
//	func (h *Orders) create(c expanse.Context, q db.Querier, in expanse.Body[NewOrder]) (*Order, error) {
//	    return insertOrder(c, q, in.Value)
//	}
//
// # Transactions
//
// [WithTx] commits when fn succeeds and rolls back on error or panic:
//
//	err := db.WithTx(ctx, pool, func(tx pgx.Tx) error {
//		return tx.QueryRow(ctx, "SELECT 1").Scan(&result)
//	})
package db
