// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ping Auth Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// DefaultCleanupInterval is how often the Janitor purges expired records.
const DefaultCleanupInterval = 15 * time.Minute

// Janitor periodically removes expired sessions and password reset tokens.
type Janitor struct {
	sessions SessionRepository
	resets   PasswordResetRepository
	interval time.Duration
	logger   *slog.Logger
	recorder PurgeRecorder

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// PurgeRecorder counts purged rows per kind.
type PurgeRecorder interface {
	RecordPurged(kind string, n int64)
}

type noopPurgeRecorder struct{}

func (noopPurgeRecorder) RecordPurged(string, int64) {}

// JanitorOption configures a Janitor.
type JanitorOption func(*Janitor)

// WithPurgeRecorder reports purge counts to r.
func WithPurgeRecorder(r PurgeRecorder) JanitorOption {
	return func(j *Janitor) {
		if r != nil {
			j.recorder = r
		}
	}
}

// NewJanitor creates a Janitor. A non-positive interval uses DefaultCleanupInterval.
func NewJanitor(sessions SessionRepository, resets PasswordResetRepository, interval time.Duration, logger *slog.Logger, opts ...JanitorOption) *Janitor {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	j := &Janitor{
		sessions: sessions,
		resets:   resets,
		interval: interval,
		logger:   logger,
		recorder: noopPurgeRecorder{},
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// RunOnce executes a single cleanup cycle. Both purges are attempted
// even if the first fails; errors are combined.
func (j *Janitor) RunOnce(ctx context.Context) error {
	var errs []error

	n, err := j.sessions.DeleteExpired(ctx)
	if err != nil {
		j.logger.ErrorContext(ctx, "purge expired sessions failed", "error", err)
		errs = append(errs, err)
	} else if n > 0 {
		j.recorder.RecordPurged("sessions", n)
		j.logger.InfoContext(ctx, "purged expired sessions", "count", n)
	}

	n, err = j.resets.DeleteExpired(ctx)
	if err != nil {
		j.logger.ErrorContext(ctx, "purge expired reset tokens failed", "error", err)
		errs = append(errs, err)
	} else if n > 0 {
		j.recorder.RecordPurged("password_resets", n)
		j.logger.InfoContext(ctx, "purged expired reset tokens", "count", n)
	}

	return errors.Join(errs...)
}

// Start begins periodic cleanup in a background goroutine.
func (j *Janitor) Start(ctx context.Context) {
	ctx, j.cancel = context.WithCancel(ctx)
	j.wg.Add(1)
	go j.run(ctx)
}

// Stop stops the janitor and waits for the current cycle to finish.
func (j *Janitor) Stop() {
	if j.cancel != nil {
		j.cancel()
	}
	j.wg.Wait()
}

func (j *Janitor) run(ctx context.Context) {
	defer j.wg.Done()

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	// Run once immediately
	_ = j.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = j.RunOnce(ctx)
		}
	}
}
