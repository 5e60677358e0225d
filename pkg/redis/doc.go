// Package redis wraps github.com/redis/go-redis/v9 with the pieces the
// service needs at startup and for coordination:
//
//   - Connect retries until the server answers PING.
//   - Healthcheck returns a readiness check.
//   - Locker provides token-checked SET NX PX locks so only one replica runs
//     a periodic job at a time.
//
// Configuration comes from environment variables via Config.
//
//	var cfg redis.Config
//	config.MustLoad(&cfg)
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	locker := redis.NewLocker(client, "clubkit:lock:")
package redis
