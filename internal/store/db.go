// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ping Auth Contributors

package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// DB is the subset of *pgxpool.Pool used by repositories.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Pinger reports database reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

var (
	_ DB     = (*pgxpool.Pool)(nil)
	_ Pinger = (*pgxpool.Pool)(nil)
)

// PoolConfig tunes the connection pool and the startup retry loop.
type PoolConfig struct {
	URL          string
	MaxConns     int32
	MinConns     int32
	ConnectRetry time.Duration // total time allowed for the first successful ping
}

// Connect opens a pool and pings it, retrying with exponential backoff
// until cfg.ConnectRetry elapses. A zero ConnectRetry tries once.
func Connect(ctx context.Context, cfg PoolConfig, logger *slog.Logger) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, oops.Code("DB_CONFIG_INVALID").Wrap(err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").Wrap(err)
	}

	if err := pingWithRetry(ctx, pool, cfg.ConnectRetry, logger); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

// ConnectBackoff paces attempts to reach a database that may still be
// starting. A zero budget allows exactly one attempt.
func ConnectBackoff(budget time.Duration) retry.Backoff {
	backoff := retry.NewExponential(100 * time.Millisecond)
	backoff = retry.WithCappedDuration(5*time.Second, backoff)
	if budget > 0 {
		return retry.WithMaxDuration(budget, backoff)
	}
	return retry.WithMaxRetries(0, backoff)
}

func pingWithRetry(ctx context.Context, p Pinger, budget time.Duration, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	attempt := 0
	err := retry.Do(ctx, ConnectBackoff(budget), func(ctx context.Context) error {
		attempt++
		if err := p.Ping(ctx); err != nil {
			logger.WarnContext(ctx, "database not ready", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("attempts", attempt).Wrap(err)
	}
	return nil
}
