// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ping Auth Contributors

package main

import (
	"context"
	"log/slog"
	"net"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/pflag"

	"github.com/pinghq/ping-auth/internal/config"
	"github.com/pinghq/ping-auth/internal/mail"
	"github.com/pinghq/ping-auth/internal/observability"
	"github.com/pinghq/ping-auth/internal/store"
)

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// ConfigLoader builds the configuration from a file path and flags.
	// Default: config.Load
	ConfigLoader func(path string, flags *pflag.FlagSet) (*config.Config, error)

	// PoolFactory opens the database pool.
	// Default: store.Connect
	PoolFactory func(ctx context.Context, cfg store.PoolConfig, logger *slog.Logger) (Pool, error)

	// MigratorFactory creates a migrator for auto-migration.
	// Default: store.NewMigrator
	MigratorFactory func(databaseURL string) (AutoMigrator, error)

	// SenderFactory builds the outbound mail sender.
	// Default: newSender
	SenderFactory func(cfg *config.Config, logger *slog.Logger) (mail.Sender, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, readinessChecker observability.ReadinessChecker, logger *slog.Logger) ObservabilityServer

	// ListenerFactory creates the API listener.
	// Default: net.Listen
	ListenerFactory func(network, address string) (net.Listener, error)
}

func (d *ServeDeps) withDefaults() *ServeDeps {
	if d == nil {
		d = &ServeDeps{}
	}
	if d.ConfigLoader == nil {
		d.ConfigLoader = config.Load
	}
	if d.PoolFactory == nil {
		d.PoolFactory = func(ctx context.Context, cfg store.PoolConfig, logger *slog.Logger) (Pool, error) {
			return store.Connect(ctx, cfg, logger)
		}
	}
	if d.MigratorFactory == nil {
		d.MigratorFactory = func(databaseURL string) (AutoMigrator, error) {
			return store.NewMigrator(databaseURL)
		}
	}
	if d.SenderFactory == nil {
		d.SenderFactory = newSender
	}
	if d.ObservabilityServerFactory == nil {
		d.ObservabilityServerFactory = func(addr string, readinessChecker observability.ReadinessChecker, logger *slog.Logger) ObservabilityServer {
			return observability.NewServer(addr, readinessChecker, logger)
		}
	}
	if d.ListenerFactory == nil {
		d.ListenerFactory = net.Listen
	}
	return d
}

// Pool is the subset of *pgxpool.Pool the service depends on.
type Pool interface {
	store.DB
	store.Pinger
	Close()
}

var _ Pool = (*pgxpool.Pool)(nil)

// AutoMigrator wraps the migrator methods used at startup.
type AutoMigrator interface {
	Up() error
	Close() error
}

// ObservabilityServer interface wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
	Metrics() *observability.Metrics
}
