// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ping Auth Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
	"github.com/spf13/cobra"

	"github.com/pinghq/ping-auth/internal/auth"
	authpg "github.com/pinghq/ping-auth/internal/auth/postgres"
	"github.com/pinghq/ping-auth/internal/config"
	"github.com/pinghq/ping-auth/internal/httpapi"
	"github.com/pinghq/ping-auth/internal/logging"
	"github.com/pinghq/ping-auth/internal/mail"
	"github.com/pinghq/ping-auth/internal/observability"
	"github.com/pinghq/ping-auth/internal/profile"
	profilepg "github.com/pinghq/ping-auth/internal/profile/postgres"
	"github.com/pinghq/ping-auth/internal/store"
)

// HTTP server timeouts.
const (
	readHeaderTimeout = 10 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 30 * time.Second
	idleTimeout       = 2 * time.Minute
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the account API",
		Long: `Start the HTTP API, the expired session janitor and the
metrics/health listener. Pending migrations are applied first unless
database.auto_migrate is false.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServeWithDeps(cmd.Context(), cmd, nil)
		},
	}

	cmd.Flags().String("addr", "", "API listen address (overrides server.addr)")
	cmd.Flags().String("metrics-addr", "", "metrics/health HTTP address, empty disables (overrides observability.addr)")
	cmd.Flags().String("database-url", "", "PostgreSQL URL (overrides database.url)")
	cmd.Flags().String("client-url", "", "front-end URL used in email links (overrides server.client_url)")
	cmd.Flags().String("log-level", "", "log level: debug, info, warn or error")
	cmd.Flags().String("log-format", "", "log format: json or text")

	return cmd
}

// runServeWithDeps starts the service with injectable dependencies.
// If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cmd *cobra.Command, deps *ServeDeps) error {
	deps = deps.withDefaults()

	cfg, err := deps.ConfigLoader(configFile, cmd.Flags())
	if err != nil {
		return err
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logger := logging.SetDefault(logging.Options{
		Service: "pingauth",
		Version: version,
		Format:  cfg.Log.Format,
		Level:   level,
		Writer:  cmd.ErrOrStderr(),
	})

	observability.InstallTracePropagation()

	logger.Info("starting pingauth",
		"addr", cfg.Server.Addr,
		"metrics_addr", cfg.Observability.Addr,
		"mail_enabled", cfg.MailEnabled(),
	)

	if cfg.Database.AutoMigrate {
		if err := autoMigrate(ctx, deps.MigratorFactory, cfg.Database.URL, cfg.Database.ConnectRetry, logger); err != nil {
			return err
		}
	}

	pool, err := deps.PoolFactory(ctx, store.PoolConfig{
		URL:          cfg.Database.URL,
		MaxConns:     cfg.Database.MaxConns,
		MinConns:     cfg.Database.MinConns,
		ConnectRetry: cfg.Database.ConnectRetry,
	}, logger)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").With("operation", "connect to database").Wrap(err)
	}
	defer pool.Close()

	logger.Info("connected to database")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var obsServer ObservabilityServer
	var metrics *observability.Metrics
	if cfg.Observability.Addr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Observability.Addr, observability.PingReadiness(pool), logger)
		metrics = obsServer.Metrics()
	} else {
		metrics = observability.NewMetrics(prometheus.NewRegistry())
	}

	sender, err := deps.SenderFactory(cfg, logger)
	if err != nil {
		return err
	}

	app, err := buildApplication(cfg, pool, sender, metrics, logger)
	if err != nil {
		return err
	}
	defer app.api.Close()

	listener, err := deps.ListenerFactory("tcp", cfg.Server.Addr)
	if err != nil {
		return oops.Code("LISTEN_FAILED").With("addr", cfg.Server.Addr).Wrap(err)
	}

	if obsServer != nil {
		obsErrChan, err := obsServer.Start()
		if err != nil {
			_ = listener.Close() //nolint:errcheck // startup error takes precedence
			return oops.Code("OBSERVABILITY_START_FAILED").Wrap(err)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
		logger.Info("observability server started", "addr", obsServer.Addr())
	}

	app.janitor.Start(ctx)

	httpServer := &http.Server{
		Handler:           app.api,
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	apiErrChan := make(chan error, 1)
	go func() {
		defer close(apiErrChan)
		if serveErr := httpServer.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			apiErrChan <- serveErr
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("pingauth started")
	logger.Info("pingauth ready", "addr", listener.Addr().String())

	var runErr error
	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig.String())
	case err, ok := <-apiErrChan:
		if ok && err != nil {
			runErr = oops.Code("API_SERVER_FAILED").Wrap(err)
		}
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("error stopping API server", "error", err)
	}
	cancel()
	app.janitor.Stop()

	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			logger.Warn("error stopping observability server", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return runErr
}

type application struct {
	api     *httpapi.API
	janitor *auth.Janitor
}

// buildApplication wires repositories, services and the HTTP API.
func buildApplication(cfg *config.Config, db store.DB, sender mail.Sender, metrics *observability.Metrics, logger *slog.Logger) (*application, error) {
	users := authpg.NewUserRepository(db)
	sessions := authpg.NewSessionRepository(db)
	resets := authpg.NewPasswordResetRepository(db)
	profiles := profilepg.NewProfileRepository(db)

	tokens, err := auth.NewTokenIssuer(auth.TokenConfig{
		Secret:          cfg.Auth.JWTSecret,
		Issuer:          cfg.Auth.Issuer,
		Audience:        cfg.Auth.Audience,
		AccessTTL:       cfg.Auth.AccessTTL,
		RefreshTTL:      cfg.Auth.RefreshTTL,
		VerificationTTL: cfg.Auth.VerificationTTL,
	})
	if err != nil {
		return nil, err
	}

	notifier, err := mail.NewNotifier(sender, mail.NotifierConfig{
		ClientURL:       cfg.Server.ClientURL,
		Signature:       cfg.Mail.Signature,
		VerificationTTL: cfg.Auth.VerificationTTL,
	}, mail.WithSendRecorder(metrics), mail.WithNotifierLogger(logger))
	if err != nil {
		return nil, err
	}

	hasher := auth.NewArgon2idHasher()

	authService, err := auth.NewAuthService(users, sessions, hasher, tokens, notifier,
		auth.WithLogger(logger),
		auth.WithEventRecorder(metrics),
		auth.WithRequireVerifiedEmail(cfg.Auth.RequireVerifiedEmail),
	)
	if err != nil {
		return nil, err
	}

	resetService, err := auth.NewPasswordResetService(users, resets, sessions, hasher, notifier,
		auth.WithLogger(logger),
		auth.WithEventRecorder(metrics),
	)
	if err != nil {
		return nil, err
	}

	profileService, err := profile.NewService(profiles, users, profile.WithLogger(logger))
	if err != nil {
		return nil, err
	}

	api, err := httpapi.New(httpapi.Config{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
		RateLimit: httpapi.RateLimiterConfig{
			BurstCapacity: cfg.Server.RateLimit.Burst,
			SustainedRate: cfg.Server.RateLimit.Rate,
			OnSize:        metrics.SetRateLimitBuckets,
		},
		TrustProxyHeaders: cfg.Server.TrustProxy,
	}, httpapi.Deps{
		Auth:     authService,
		Resets:   resetService,
		Profiles: profileService,
		Logger:   logger,
		Metrics:  metrics,
	})
	if err != nil {
		return nil, err
	}

	janitor := auth.NewJanitor(sessions, resets, cfg.Janitor.Interval, logger, auth.WithPurgeRecorder(metrics))

	return &application{api: api, janitor: janitor}, nil
}

// newSender returns an SMTP sender with retries, or a log sender when no
// mail host is configured.
func newSender(cfg *config.Config, logger *slog.Logger) (mail.Sender, error) {
	if !cfg.MailEnabled() {
		logger.Warn("no mail host configured, emails will be logged instead of sent")
		return mail.NewLogSender(logger), nil
	}
	smtp, err := mail.NewSMTPSender(mail.SMTPConfig{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
		From:     cfg.Mail.From,
		FromName: cfg.Mail.FromName,
	})
	if err != nil {
		return nil, err
	}
	return mail.NewRetryingSender(smtp, mail.RetryConfig{MaxRetries: cfg.Mail.MaxRetries}, logger), nil
}

// autoMigrate applies pending migrations. Opening the migrator dials the
// database, so it is retried within the connect budget; Up is not.
func autoMigrate(ctx context.Context, factory func(string) (AutoMigrator, error), databaseURL string, budget time.Duration, logger *slog.Logger) error {
	var migrator AutoMigrator
	attempt := 0
	err := retry.Do(ctx, store.ConnectBackoff(budget), func(ctx context.Context) error {
		attempt++
		m, err := factory(databaseURL)
		if err != nil {
			logger.WarnContext(ctx, "database not ready for migrations", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		migrator = m
		return nil
	})
	if err != nil {
		return oops.Code("MIGRATION_FAILED").
			With("operation", "create migrator").
			With("attempts", attempt).
			Wrap(err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			logger.Warn("failed to close migrator", "error", closeErr)
		}
	}()

	if err := migrator.Up(); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "run migrations").Wrap(err)
	}
	logger.Info("database migrations applied")
	return nil
}

// monitorServerErrors cancels ctx when a server reports a failure.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
