package middlewares

import (
	"context"
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/expanse/internal"
	"github.com/dmitrymomot/expanse/pkg/container"
	"github.com/dmitrymomot/expanse/pkg/db"
)

type txKey struct{}

// TransactionConfig configures the Transaction middleware.
type TransactionConfig struct {
	// RollbackStatus is the lowest response status that rolls back.
	// Default: 400.
	RollbackStatus int
	TxOptions      pgx.TxOptions
}

// TransactionOption configures TransactionConfig.
type TransactionOption func(*TransactionConfig)

// WithRollbackStatus sets the lowest status that rolls the transaction back.
func WithRollbackStatus(status int) TransactionOption {
	return func(cfg *TransactionConfig) {
		cfg.RollbackStatus = status
	}
}

// WithTxOptions sets the isolation level and access mode.
func WithTxOptions(opts pgx.TxOptions) TransactionOption {
	return func(cfg *TransactionConfig) {
		cfg.TxOptions = opts
	}
}

// Transaction wraps the rest of the chain in a database transaction.
//
// db.TxBeginner is resolved from the request scope (register db.Provider).
// Inside the transaction db.Querier and pgx.Tx resolve to the transaction,
// so handlers and repositories that depend on db.Querier join it without
// changes. The transaction commits when the chain returns a response below
// RollbackStatus and rolls back on errors, panics and error statuses.
func Transaction(opts ...TransactionOption) internal.Middleware {
	cfg := &TransactionConfig{RollbackStatus: http.StatusBadRequest}
	for _, opt := range opts {
		opt(cfg)
	}

	return internal.Labeled("transaction", internal.MiddlewareFunc(func(c internal.Context, next internal.Next) (resp *internal.Response, err error) {
		pool, err := container.Resolve[db.TxBeginner](c.Scope())
		if err != nil {
			return nil, err
		}

		tx, err := pool.BeginTx(c, cfg.TxOptions)
		if err != nil {
			return nil, err
		}

		// Rollback is a no-op after a successful commit.
		defer func() {
			if rec := recover(); rec != nil {
				_ = tx.Rollback(context.WithoutCancel(c))
				panic(rec)
			}
		}()

		scope := c.Scope()
		scope.Set(container.KeyOf[pgx.Tx](), tx)
		scope.Set(container.KeyOf[db.Querier](), tx)
		c.Set(txKey{}, tx)

		resp, err = next(c)
		if err != nil || (resp != nil && resp.Status >= cfg.RollbackStatus) {
			if rbErr := tx.Rollback(context.WithoutCancel(c)); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				c.LogError("transaction rollback failed", "error", rbErr)
			}
			return resp, err
		}

		if err := tx.Commit(c); err != nil {
			return nil, err
		}
		return resp, nil
	}))
}

// GetTx returns the request transaction or ErrNoTx.
func GetTx(c internal.Context) (pgx.Tx, error) {
	return TxFromContext(c)
}

// TxFromContext is GetTx for code holding only a context.Context.
func TxFromContext(ctx context.Context) (pgx.Tx, error) {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx, nil
	}
	return nil, ErrNoTx
}
