// Package db connects the optional Postgres mirror for audit events.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hackgods/hospital-management-system/internal/config"
)

// ConnectPostgres opens a small pool for cfg.PostgresDSN and pings it. The
// CSV tables stay the system of record, so the pool only ever serves audit
// inserts and readiness checks.
func ConnectPostgres(ctx context.Context, cfg config.Config) (*pgxpool.Pool, error) {
	if cfg.PostgresDSN == "" {
		return nil, fmt.Errorf("connect postgres: POSTGRES_DSN is empty")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	poolCfg.MaxConns = 2
	poolCfg.MinConns = 0
	poolCfg.HealthCheckPeriod = time.Minute
	poolCfg.MaxConnIdleTime = 15 * time.Minute
	poolCfg.ConnConfig.RuntimeParams["application_name"] = "hms-" + cfg.Env

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(connectCtx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	if err := pool.Ping(connectCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return pool, nil
}
