package db_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/expanse/pkg/container"
	"github.com/dmitrymomot/expanse/pkg/db"
)

func TestLoadConfig(t *testing.T) {
	t.Run("requires connection string", func(t *testing.T) {
		t.Setenv("DATABASE_CONN_URL", "")

		_, err := db.LoadConfig()
		require.ErrorIs(t, err, db.ErrMissingConnString)
	})

	t.Run("reads env with defaults", func(t *testing.T) {
		t.Setenv("DATABASE_CONN_URL", "postgres://u:p@localhost:5432/app")
		t.Setenv("DATABASE_MAX_OPEN_CONNS", "25")

		cfg, err := db.LoadConfig()
		require.NoError(t, err)
		require.Equal(t, int32(25), cfg.MaxOpenConns)
		require.Equal(t, 3, cfg.RetryAttempts)
		require.Equal(t, 10*time.Minute, cfg.MaxConnIdleTime)
	})
}

func TestConnect_InvalidConfig(t *testing.T) {
	t.Parallel()

	_, err := db.Connect(context.Background(), db.Config{})
	require.ErrorIs(t, err, db.ErrMissingConnString)

	_, err = db.Connect(context.Background(), db.Config{ConnectionString: "::not a url::"})
	require.ErrorIs(t, err, db.ErrFailedToParseDBConfig)
}

func TestHealthcheck_NilPool(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, db.Healthcheck(nil)(context.Background()), db.ErrHealthcheckFailed)
}

func TestProvider_Register(t *testing.T) {
	t.Parallel()

	c := container.New()
	require.ErrorIs(t, db.NewProvider(db.Config{}).Register(c), db.ErrMissingConnString)

	require.NoError(t, db.NewProvider(db.Config{ConnectionString: "postgres://localhost/app"}).Register(c))
	require.True(t, c.Has(container.KeyOf[*pgxpool.Pool]()))
	require.True(t, c.Has(container.KeyOf[db.Querier]()))
	require.True(t, c.Has(container.KeyOf[db.TxBeginner]()))
}

type fakeTx struct {
	pgx.Tx
	committed, rolledBack bool
}

func (t *fakeTx) Commit(context.Context) error   { t.committed = true; return nil }
func (t *fakeTx) Rollback(context.Context) error { t.rolledBack = true; return nil }

type fakeBeginner struct{ tx *fakeTx }

func (b fakeBeginner) Begin(context.Context) (pgx.Tx, error) { return b.tx, nil }

func TestWithTx(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("commits on success", func(t *testing.T) {
		t.Parallel()

		tx := &fakeTx{}
		require.NoError(t, db.WithTx(ctx, fakeBeginner{tx}, func(pgx.Tx) error { return nil }))
		require.True(t, tx.committed)
		require.False(t, tx.rolledBack)
	})

	t.Run("rolls back on error", func(t *testing.T) {
		t.Parallel()

		tx := &fakeTx{}
		boom := errors.New("boom")
		require.ErrorIs(t, db.WithTx(ctx, fakeBeginner{tx}, func(pgx.Tx) error { return boom }), boom)
		require.True(t, tx.rolledBack)
		require.False(t, tx.committed)
	})

	t.Run("rolls back and re-panics", func(t *testing.T) {
		t.Parallel()

		tx := &fakeTx{}
		require.PanicsWithValue(t, "kaboom", func() {
			_ = db.WithTx(ctx, fakeBeginner{tx}, func(pgx.Tx) error { panic("kaboom") })
		})
		require.True(t, tx.rolledBack)
	})
}
