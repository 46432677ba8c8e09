// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ping Auth Contributors

package mail

import (
	"bytes"
	"context"
	"embed"
	htmltemplate "html/template"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/samber/oops"

	"github.com/pinghq/ping-auth/internal/auth"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Template names, also used as the metrics label.
const (
	TemplateVerifyEmail   = "verify_email"
	TemplateResetPassword = "reset_password"
)

// Subjects of the account emails.
const (
	SubjectVerifyEmail   = "[URGENT]: Verify email address"
	SubjectResetPassword = "[URGENT]: Reset password"
)

// DefaultSignature closes every email.
const DefaultSignature = "The Ping Team"

// SendRecorder counts delivery outcomes per template.
type SendRecorder interface {
	RecordEmailSent(template, outcome string)
}

type noopSendRecorder struct{}

func (noopSendRecorder) RecordEmailSent(string, string) {}

// NotifierConfig configures a Notifier.
type NotifierConfig struct {
	// ClientURL is the front-end origin the links point at.
	ClientURL       string
	Signature       string
	VerificationTTL time.Duration
	ResetTTL        time.Duration
}

type templateData struct {
	FullName  string
	Link      string
	ExpiresIn string
	Signature string
}

// Notifier renders account emails and hands them to a Sender.
type Notifier struct {
	sender    Sender
	cfg       NotifierConfig
	html      *htmltemplate.Template
	text      *texttemplate.Template
	logger    *slog.Logger
	recorder  SendRecorder
	clientURL string
}

// NotifierOption configures a Notifier.
type NotifierOption func(*Notifier)

// WithSendRecorder sets the delivery metrics recorder.
func WithSendRecorder(r SendRecorder) NotifierOption {
	return func(n *Notifier) {
		if r != nil {
			n.recorder = r
		}
	}
}

// WithNotifierLogger sets the logger.
func WithNotifierLogger(logger *slog.Logger) NotifierOption {
	return func(n *Notifier) {
		if logger != nil {
			n.logger = logger
		}
	}
}

// NewNotifier parses the embedded templates and validates cfg.
func NewNotifier(sender Sender, cfg NotifierConfig, opts ...NotifierOption) (*Notifier, error) {
	if sender == nil {
		return nil, oops.Code("MAIL_CONFIG_INVALID").Errorf("sender is required")
	}
	u, err := url.Parse(cfg.ClientURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, oops.Code("MAIL_CONFIG_INVALID").
			With("client_url", cfg.ClientURL).
			Errorf("client URL must be an absolute URL")
	}
	if cfg.Signature == "" {
		cfg.Signature = DefaultSignature
	}
	if cfg.VerificationTTL <= 0 {
		cfg.VerificationTTL = auth.DefaultVerificationTokenTTL
	}
	if cfg.ResetTTL <= 0 {
		cfg.ResetTTL = auth.ResetTokenExpiry
	}

	html, err := htmltemplate.ParseFS(templateFS, "templates/*.html.tmpl")
	if err != nil {
		return nil, oops.Code("MAIL_TEMPLATE_INVALID").Wrap(err)
	}
	text, err := texttemplate.ParseFS(templateFS, "templates/*.txt.tmpl")
	if err != nil {
		return nil, oops.Code("MAIL_TEMPLATE_INVALID").Wrap(err)
	}

	n := &Notifier{
		sender:    sender,
		cfg:       cfg,
		html:      html,
		text:      text,
		logger:    slog.Default(),
		recorder:  noopSendRecorder{},
		clientURL: strings.TrimRight(cfg.ClientURL, "/"),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// SendVerification emails the email-verification link.
func (n *Notifier) SendVerification(ctx context.Context, user *auth.User, token string) error {
	return n.send(ctx, TemplateVerifyEmail, SubjectVerifyEmail, user,
		n.link("/verify-email", token), n.cfg.VerificationTTL)
}

// SendPasswordReset emails the password-reset link.
func (n *Notifier) SendPasswordReset(ctx context.Context, user *auth.User, token string) error {
	return n.send(ctx, TemplateResetPassword, SubjectResetPassword, user,
		n.link("/reset-password", token), n.cfg.ResetTTL)
}

func (n *Notifier) link(path, token string) string {
	return n.clientURL + path + "?" + url.Values{"token": {token}}.Encode()
}

func (n *Notifier) send(ctx context.Context, name, subject string, user *auth.User, link string, ttl time.Duration) error {
	data := templateData{
		FullName:  user.FullName,
		Link:      link,
		ExpiresIn: humanDuration(ttl),
		Signature: n.cfg.Signature,
	}

	var html, text bytes.Buffer
	if err := n.html.ExecuteTemplate(&html, name+".html.tmpl", data); err != nil {
		return oops.Code("MAIL_RENDER_FAILED").With("template", name).Wrap(err)
	}
	if err := n.text.ExecuteTemplate(&text, name+".txt.tmpl", data); err != nil {
		return oops.Code("MAIL_RENDER_FAILED").With("template", name).Wrap(err)
	}

	err := n.sender.Send(ctx, Message{
		To:       user.Email,
		Subject:  subject,
		HTMLBody: html.String(),
		TextBody: text.String(),
	})
	if err != nil {
		n.recorder.RecordEmailSent(name, "failure")
		return oops.Code("MAIL_SEND_FAILED").
			With("template", name).
			With("user_id", user.ID.String()).
			Wrap(err)
	}

	n.recorder.RecordEmailSent(name, "success")
	n.logger.InfoContext(ctx, "email sent", "template", name, "user_id", user.ID.String())
	return nil
}

// humanDuration renders whole hours or minutes, e.g. "1 hour" or "30 minutes".
func humanDuration(d time.Duration) string {
	plural := func(n int, unit string) string {
		if n == 1 {
			return "1 " + unit
		}
		return strconv.Itoa(n) + " " + unit + "s"
	}
	if d >= time.Hour && d%time.Hour == 0 {
		return plural(int(d/time.Hour), "hour")
	}
	return plural(int(d.Round(time.Minute)/time.Minute), "minute")
}

var _ auth.Notifier = (*Notifier)(nil)
