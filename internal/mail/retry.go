// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ping Auth Contributors

package mail

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/pinghq/ping-auth/pkg/errutil"
)

// Default retry settings.
const (
	DefaultMaxRetries  = 3
	DefaultRetryBase   = 500 * time.Millisecond
	DefaultRetryMaxGap = 10 * time.Second
)

// RetryConfig bounds the retry loop.
type RetryConfig struct {
	MaxRetries uint64
	Base       time.Duration
	MaxGap     time.Duration
}

// RetryingSender retries transient send failures with exponential backoff.
// Invalid messages are not retried.
type RetryingSender struct {
	next   Sender
	cfg    RetryConfig
	logger *slog.Logger
}

// NewRetryingSender wraps next. Zero durations use the defaults.
func NewRetryingSender(next Sender, cfg RetryConfig, logger *slog.Logger) *RetryingSender {
	if cfg.Base <= 0 {
		cfg.Base = DefaultRetryBase
	}
	if cfg.MaxGap <= 0 {
		cfg.MaxGap = DefaultRetryMaxGap
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RetryingSender{next: next, cfg: cfg, logger: logger}
}

// Send delivers msg, retrying up to MaxRetries times.
func (s *RetryingSender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	backoff := retry.NewExponential(s.cfg.Base)
	backoff = retry.WithCappedDuration(s.cfg.MaxGap, backoff)
	backoff = retry.WithMaxRetries(s.cfg.MaxRetries, backoff)

	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := s.next.Send(ctx, msg)
		if err == nil {
			return nil
		}
		if errutil.HasCode(err, "MAIL_INVALID_MESSAGE") {
			return err
		}
		s.logger.WarnContext(ctx, "email send failed",
			"attempt", attempt,
			"subject", msg.Subject,
			"error", err)
		return retry.RetryableError(err)
	})
	if err != nil {
		return oops.Code("MAIL_SEND_FAILED").
			With("attempts", attempt).
			Wrap(err)
	}
	return nil
}

var _ Sender = (*RetryingSender)(nil)
