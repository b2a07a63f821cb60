// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package mailer delivers transactional email.

Senders:

  - SMTPSender: gomail over SMTP (STARTTLS, or implicit TLS on port 465).
  - LogSender: writes the message to the logger instead of sending it.
  - DevSender: logs, then tries SMTP and swallows failures.

Pick one with [New].
*/
package mailer

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"

	"github.com/taibuivan/shiftsphere/internal/platform/ctxutil"
)

// ErrNoRecipient is returned when a message has no To address.
var ErrNoRecipient = errors.New("mailer: no recipient")

// Message is a single outbound email with an HTML body and a text alternative.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Sender delivers a message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Config holds SMTP settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// New returns the sender appropriate for the environment.
// Without an SMTP host every message is logged. In development SMTP is
// attempted but never fails the caller.
func New(cfg Config, development bool) Sender {
	if cfg.Host == "" {
		return LogSender{}
	}

	smtp := NewSMTPSender(cfg)
	if development {
		return DevSender{Next: smtp}
	}
	return smtp
}

// # SMTP

// SMTPSender sends mail through an SMTP relay.
type SMTPSender struct {
	from   string
	dialer *gomail.Dialer
}

// NewSMTPSender creates a sender bound to one relay.
func NewSMTPSender(cfg Config) *SMTPSender {
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	dialer.SSL = cfg.Port == 465

	return &SMTPSender{from: cfg.From, dialer: dialer}
}

// Send dials the relay and delivers msg. gomail has no context support, so a
// cancelled ctx only prevents the dial from starting.
func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return ErrNoRecipient
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.dialer.DialAndSend(s.build(msg)); err != nil {
		return fmt.Errorf("mailer: send to smtp relay: %w", err)
	}
	return nil
}

func (s *SMTPSender) build(msg Message) *gomail.Message {
	out := gomail.NewMessage()
	out.SetHeader("From", s.from)
	out.SetHeader("To", msg.To)
	out.SetHeader("Subject", msg.Subject)

	if msg.HTML != "" {
		out.SetBody("text/html", msg.HTML)
		if msg.Text != "" {
			out.AddAlternative("text/plain", msg.Text)
		}
	} else {
		out.SetBody("text/plain", msg.Text)
	}
	return out
}

// # Logging

// LogSender writes messages to the request logger.
type LogSender struct{}

// Send logs msg and never fails for a message with a recipient.
func (LogSender) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return ErrNoRecipient
	}
	logMessage(ctxutil.GetLogger(ctx), msg)
	return nil
}

// DevSender logs every message and then tries Next, ignoring its errors.
type DevSender struct {
	Next Sender
}

// Send implements Sender.
func (d DevSender) Send(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return ErrNoRecipient
	}

	logger := ctxutil.GetLogger(ctx)
	logMessage(logger, msg)

	if err := d.Next.Send(ctx, msg); err != nil {
		logger.Warn().Err(err).Msg("mailer_dev_send_failed")
	}
	return nil
}

func logMessage(logger *zerolog.Logger, msg Message) {
	logger.Info().
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Str("body", msg.Text).
		Msg("mailer_message_logged")
}
