package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/expanse/pkg/container"
)

func TestOptions(t *testing.T) {
	t.Parallel()

	t.Run("empty URL", func(t *testing.T) {
		t.Parallel()

		_, err := Options(Config{})
		require.ErrorIs(t, err, ErrEmptyConnectionURL)
	})

	t.Run("rejects foreign schemes", func(t *testing.T) {
		t.Parallel()

		for _, url := range []string{
			"http://localhost:6379",
			"localhost:6379",
			"postgresql://localhost:6379",
		} {
			_, err := Options(Config{URL: url})
			require.ErrorIs(t, err, ErrFailedToParseURL, url)
		}
	})

	t.Run("applies non-zero settings", func(t *testing.T) {
		t.Parallel()

		opts, err := Options(Config{
			URL:          "redis://localhost:6379/2",
			PoolSize:     20,
			ReadTimeout:  time.Second,
			WriteTimeout: 2 * time.Second,
		})
		require.NoError(t, err)
		require.Equal(t, 2, opts.DB)
		require.Equal(t, 20, opts.PoolSize)
		require.Equal(t, time.Second, opts.ReadTimeout)
		require.Equal(t, 2*time.Second, opts.WriteTimeout)
	})

	t.Run("TLS scheme", func(t *testing.T) {
		t.Parallel()

		opts, err := Options(Config{URL: "rediss://localhost:6380"})
		require.NoError(t, err)
		require.NotNil(t, opts.TLSConfig)
	})
}

func TestOpen_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client, err := Open(ctx, Config{
		URL:           "redis://127.0.0.1:1",
		RetryAttempts: 3,
		RetryInterval: time.Second,
	})
	require.ErrorIs(t, err, ErrConnectionFailed)
	require.Nil(t, client)
}

func TestHealthcheck_NilClient(t *testing.T) {
	t.Parallel()

	err := Healthcheck(nil)(context.Background())
	require.ErrorIs(t, err, ErrHealthcheckFailed)
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("REDIS_URL", "redis://cache:6379/1")
	t.Setenv("REDIS_POOL_SIZE", "42")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "redis://cache:6379/1", cfg.URL)
	require.Equal(t, 42, cfg.PoolSize)
	require.Equal(t, 3*time.Second, cfg.ReadTimeout)
}

func TestProvider_Register(t *testing.T) {
	t.Parallel()

	c := container.New()
	require.ErrorIs(t, NewProvider(Config{}).Register(c), ErrEmptyConnectionURL)

	require.NoError(t, NewProvider(Config{URL: "redis://localhost:6379"}).Register(c))
	require.True(t, c.Has(container.KeyOf[redis.UniversalClient]()))
}
