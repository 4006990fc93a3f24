// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package email

import (
	"context"
	"errors"
	"fmt"
	"time"

	"codeberg.org/oliverandrich/sampletrack/internal/config"
	"github.com/wneessen/go-mail"
)

// DialTimeout bounds connecting to the SMTP server.
const DialTimeout = 15 * time.Second

// ErrNotConfigured is returned by Disabled senders.
var ErrNotConfigured = errors.New("email sending is not configured")

// Service sends plain text email via SMTP.
type Service struct {
	cfg *config.SMTPConfig
}

// NewService creates a new email service.
func NewService(cfg *config.SMTPConfig) (*Service, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("SMTP host is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("SMTP from address is required")
	}

	return &Service{cfg: cfg}, nil
}

// Send delivers body with subject to a single recipient.
func (s *Service) Send(ctx context.Context, body, subject, to string) error {
	msg, err := s.Message(body, subject, to)
	if err != nil {
		return err
	}

	client, err := mail.NewClient(s.cfg.Host, s.clientOptions()...)
	if err != nil {
		return fmt.Errorf("creating mail client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}

	return nil
}

// Message builds the message Send would deliver.
func (s *Service) Message(body, subject, to string) (*mail.Msg, error) {
	msg := mail.NewMsg()

	if s.cfg.FromName != "" {
		if err := msg.FromFormat(s.cfg.FromName, s.cfg.From); err != nil {
			return nil, fmt.Errorf("setting from address: %w", err)
		}
	} else {
		if err := msg.From(s.cfg.From); err != nil {
			return nil, fmt.Errorf("setting from address: %w", err)
		}
	}

	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("setting to address: %w", err)
	}

	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	return msg, nil
}

func (s *Service) clientOptions() []mail.Option {
	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithTimeout(DialTimeout),
	}

	// Implicit TLS on 465, STARTTLS otherwise
	if s.cfg.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
		if s.cfg.Port == 465 {
			opts = append(opts, mail.WithSSL())
		}
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	if s.cfg.Username != "" && s.cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}

	return opts
}

// Disabled is used when no SMTP server is configured. Every send fails with
// ErrNotConfigured so callers take their fallback path.
type Disabled struct{}

// Send implements the sender contract.
func (Disabled) Send(context.Context, string, string, string) error {
	return ErrNotConfigured
}
