// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ping Auth Contributors

// Package mail delivers account emails over SMTP.
package mail

import (
	"context"
	"log/slog"
	"strings"

	"github.com/samber/oops"
)

// Message is a single outgoing email with an HTML body and a plain-text alternative.
type Message struct {
	To       string
	Subject  string
	HTMLBody string
	TextBody string
}

// Validate checks that the message can be delivered.
func (m Message) Validate() error {
	if strings.TrimSpace(m.To) == "" {
		return oops.Code("MAIL_INVALID_MESSAGE").Errorf("no recipient specified")
	}
	if m.Subject == "" {
		return oops.Code("MAIL_INVALID_MESSAGE").Errorf("subject is required")
	}
	if m.HTMLBody == "" && m.TextBody == "" {
		return oops.Code("MAIL_INVALID_MESSAGE").Errorf("message body is empty")
	}
	return nil
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender writes messages to the log instead of sending them.
// It is used when no SMTP host is configured.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

// Send logs the recipient, subject and text body.
func (s *LogSender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "email not sent, smtp disabled",
		"to", msg.To,
		"subject", msg.Subject,
		"body", msg.TextBody)
	return nil
}

var _ Sender = (*LogSender)(nil)
