// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Ping Auth Contributors

package mail

import (
	"context"

	"github.com/samber/oops"
	"gopkg.in/gomail.v2"
)

// SMTPConfig holds the SMTP relay settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

// Validate checks the settings needed to dial the relay.
func (c SMTPConfig) Validate() error {
	if c.Host == "" {
		return oops.Code("MAIL_CONFIG_INVALID").Errorf("smtp host is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return oops.Code("MAIL_CONFIG_INVALID").With("port", c.Port).Errorf("smtp port must be between 1 and 65535")
	}
	if c.From == "" {
		return oops.Code("MAIL_CONFIG_INVALID").Errorf("sender address is required")
	}
	return nil
}

type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPSender sends messages through an SMTP relay. A connection is opened per message.
type SMTPSender struct {
	cfg    SMTPConfig
	dialer dialer
}

// NewSMTPSender creates an SMTPSender.
func NewSMTPSender(cfg SMTPConfig) (*SMTPSender, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &SMTPSender{
		cfg:    cfg,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
	}, nil
}

// Send delivers msg. gomail has no context support, so ctx is only
// checked before dialing.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return oops.Code("MAIL_SEND_FAILED").Wrap(err)
	}

	if err := s.dialer.DialAndSend(s.build(msg)); err != nil {
		return oops.Code("MAIL_SEND_FAILED").
			With("host", s.cfg.Host).
			With("subject", msg.Subject).
			Wrap(err)
	}
	return nil
}

func (s *SMTPSender) build(msg Message) *gomail.Message {
	m := gomail.NewMessage()
	if s.cfg.FromName != "" {
		m.SetAddressHeader("From", s.cfg.From, s.cfg.FromName)
	} else {
		m.SetHeader("From", s.cfg.From)
	}
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)

	switch {
	case msg.HTMLBody != "" && msg.TextBody != "":
		m.SetBody("text/plain", msg.TextBody)
		m.AddAlternative("text/html", msg.HTMLBody)
	case msg.HTMLBody != "":
		m.SetBody("text/html", msg.HTMLBody)
	default:
		m.SetBody("text/plain", msg.TextBody)
	}
	return m
}

var _ Sender = (*SMTPSender)(nil)
