// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package passreset issues kit password reset codes, mails them and
// completes resets.
package passreset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"codeberg.org/oliverandrich/sampletrack/internal/i18n"
	"codeberg.org/oliverandrich/sampletrack/internal/metrics"
	"codeberg.org/oliverandrich/sampletrack/internal/repository"
)

// Mailer delivers a plain text message to one address.
type Mailer interface {
	Send(ctx context.Context, body, subject, to string) error
}

// Store is the persistence the reset flow needs.
type Store interface {
	GetKitIDsByEmail(ctx context.Context, email string) ([]string, error)
	SetPassChangeCode(ctx context.Context, email, suppliedKitID, code string) error
	ResetKitPassword(ctx context.Context, email, suppliedKitID, code, newPassword string) (bool, error)
}

// Outcome is the result of a reset request.
type Outcome string

const (
	// OutcomeSent means the code was stored and mailed.
	OutcomeSent Outcome = "sent"
	// OutcomeEmailFailed means the code was stored but could not be mailed.
	// Result carries the message so the caller can show it instead.
	OutcomeEmailFailed Outcome = "email_failed"
	// OutcomeNoMatch means the kit is not registered to the email. Nothing
	// was stored or sent.
	OutcomeNoMatch Outcome = "no_match"
)

// Result describes what happened to a reset request.
type Result struct {
	Outcome Outcome
	// Subject and Body are set when Outcome is OutcomeEmailFailed.
	Subject string
	Body    string
	// EmailErr is the delivery error for OutcomeEmailFailed.
	EmailErr error
}

// Service runs the password reset flow.
type Service struct {
	store     Store
	mailer    Mailer
	logger    *slog.Logger
	siteName  string
	baseURL   string
	generate  func() (string, error)
	validator *PasswordValidator
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSite sets the site name and base URL used in reset emails.
func WithSite(name, baseURL string) Option {
	return func(s *Service) {
		s.siteName = name
		s.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithCodeGenerator replaces GenerateCode.
func WithCodeGenerator(fn func() (string, error)) Option {
	return func(s *Service) {
		s.generate = fn
	}
}

// WithPasswordValidator replaces the default password validator.
func WithPasswordValidator(v *PasswordValidator) Option {
	return func(s *Service) {
		s.validator = v
	}
}

// NewService creates a reset service.
func NewService(store Store, mailer Mailer, opts ...Option) *Service {
	s := &Service{
		store:     store,
		mailer:    mailer,
		logger:    slog.Default(),
		siteName:  "Sample Tracker",
		generate:  GenerateCode,
		validator: DefaultPasswordValidator(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Request issues a new reset code for the kit and mails it to email. Any
// earlier code for the kit stops working. Delivery failures are reported
// through the Result, not as an error.
func (s *Service) Request(ctx context.Context, email, suppliedKitID string) (Result, error) {
	email = repository.NormalizeEmail(email)

	kits, err := s.store.GetKitIDsByEmail(ctx, email)
	if err != nil {
		return Result{}, fmt.Errorf("look up kits: %w", err)
	}
	if !slices.Contains(kits, suppliedKitID) {
		metrics.ObserveResetRequest(string(OutcomeNoMatch))
		s.logger.Info("password reset for unknown kit", "kit_id", suppliedKitID)
		return Result{Outcome: OutcomeNoMatch}, nil
	}

	code, err := s.generate()
	if err != nil {
		return Result{}, fmt.Errorf("generate reset code: %w", err)
	}

	if err := s.store.SetPassChangeCode(ctx, email, suppliedKitID, code); err != nil {
		if errors.Is(err, repository.ErrKitNotOwned) {
			s.logger.Error("reset code issued for kit not owned by email", "kit_id", suppliedKitID, "error", err)
		}
		return Result{}, fmt.Errorf("store reset code: %w", err)
	}

	subject, body := s.message(ctx, suppliedKitID, code)

	if err := s.mailer.Send(ctx, body, subject, email); err != nil {
		metrics.ObserveEmailFailure()
		metrics.ObserveResetRequest(string(OutcomeEmailFailed))
		s.logger.Warn("failed to send password reset email", "kit_id", suppliedKitID, "error", err)
		return Result{
			Outcome:  OutcomeEmailFailed,
			Subject:  subject,
			Body:     body,
			EmailErr: err,
		}, nil
	}

	metrics.ObserveResetRequest(string(OutcomeSent))
	s.logger.Info("password reset code sent", "kit_id", suppliedKitID)
	return Result{Outcome: OutcomeSent}, nil
}

func (s *Service) message(ctx context.Context, suppliedKitID, code string) (string, string) {
	data := map[string]any{
		"SiteName":   s.siteName,
		"KitID":      suppliedKitID,
		"Code":       code,
		"ResetURL":   s.baseURL + "/change_pass_verify/",
		"ValidHours": int(repository.ResetCodeValidity.Hours()),
	}
	return i18n.Mail(ctx, "reset_password", data)
}

// Complete sets a new kit password when code is the valid reset code of the
// kit. It returns false for wrong, expired or used codes. A password that
// fails validation is returned as *PasswordValidationError before the code
// is checked, so the code stays usable.
func (s *Service) Complete(ctx context.Context, email, suppliedKitID, code, newPassword string) (bool, error) {
	if err := s.validator.Validate(ctx, newPassword, email, suppliedKitID); err != nil {
		return false, err
	}

	ok, err := s.store.ResetKitPassword(ctx, email, suppliedKitID, code, newPassword)
	if err != nil {
		return false, fmt.Errorf("reset kit password: %w", err)
	}

	metrics.ObserveResetCompletion(ok)
	if ok {
		s.logger.Info("kit password reset", "kit_id", suppliedKitID)
	}
	return ok, nil
}
