// Package redis opens go-redis clients from a [Config] and registers them in
// the application container.
//
//	cfg, err := redis.LoadConfig() // REDIS_URL, REDIS_POOL_SIZE, ...
//	if err != nil {
//	    log.Fatal(err)
//	}
//	app, err := expanse.New(
//	    expanse.WithProviders(redis.NewProvider(cfg)),
//	)
//
// Services then take redis.UniversalClient as a constructor parameter.
// [Healthcheck] plugs into expanse.WithReadinessCheck.
package redis
