// Package cache provides byte stores with TTL and a typed JSON layer on top.
//
// Two stores are included: [Memory], an in-process LRU, and [Redis], backed
// by a go-redis client. Both satisfy [Store], which is what the response
// cache middleware consumes.
//
//	store := cache.NewMemory(cache.WithMaxEntries(10_000))
//	users := cache.NewTyped[User](store, "users")
//
//	u, err := users.GetOrSet(ctx, id, time.Minute, func(ctx context.Context) (User, error) {
//	    return repo.Find(ctx, id)
//	})
//
// [MemoryProvider] and [RedisProvider] bind a Store in the application
// container.
package cache
