package health

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// DepsChecker probes the Postgres pool and Redis client the API runs on.
type DepsChecker struct {
	Pool  *pgxpool.Pool
	Redis *redis.Client
}

func (c DepsChecker) PingDB(ctx context.Context, timeout time.Duration) error {
	if c.Pool == nil {
		return errNoDependency("db")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.Pool.Ping(ctx)
}

func (c DepsChecker) PingRedis(ctx context.Context, timeout time.Duration) error {
	if c.Redis == nil {
		return errNoDependency("redis")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.Redis.Ping(ctx).Err()
}

type errNoDependency string

func (e errNoDependency) Error() string { return string(e) + " not configured" }
