package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hackgods/hospital-management-system/internal/config"
)

// Connect opens the client used for cross-process slot locks. Callers check
// cfg.RedisAddr first; Redis is optional.
func Connect(ctx context.Context, cfg config.Config) (*redis.Client, error) {
	if cfg.RedisAddr == "" {
		return nil, fmt.Errorf("connect redis: no address configured")
	}

	// Lock traffic is one SETNX and one script per transition, a tiny pool
	// is enough.
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Username:     cfg.RedisUsername,
		Password:     cfg.RedisPassword,
		ClientName:   "hms-" + cfg.Env,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     2,
		MinIdleConns: 1,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", cfg.RedisAddr, err)
	}

	return rdb, nil
}
