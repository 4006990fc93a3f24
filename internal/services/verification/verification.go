// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package verification mails kit verification codes and confirms them.
package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"codeberg.org/oliverandrich/sampletrack/internal/i18n"
	"codeberg.org/oliverandrich/sampletrack/internal/metrics"
	"codeberg.org/oliverandrich/sampletrack/internal/models"
)

// ErrNoCode is returned by SendCode for kits created without a verification code.
var ErrNoCode = errors.New("kit has no verification code")

// Mailer delivers a plain text message to one address.
type Mailer interface {
	Send(ctx context.Context, body, subject, to string) error
}

// Store is the persistence the verification flow needs.
type Store interface {
	GetKit(ctx context.Context, suppliedKitID string) (*models.Kit, error)
	GetLoginInfo(ctx context.Context, loginID string) (*models.Login, error)
	MarkVerificationEmailSent(ctx context.Context, suppliedKitID string) error
	VerifyKit(ctx context.Context, suppliedKitID, code string) (bool, error)
}

// Service sends and checks kit verification codes.
type Service struct {
	store    Store
	mailer   Mailer
	logger   *slog.Logger
	siteName string
}

// NewService creates a verification service. A nil logger means slog.Default().
func NewService(store Store, mailer Mailer, logger *slog.Logger, siteName string) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, mailer: mailer, logger: logger, siteName: siteName}
}

// SendCode mails the kit's verification code to its owner and records that
// it was sent. Already verified kits are skipped.
func (s *Service) SendCode(ctx context.Context, suppliedKitID string) error {
	kit, err := s.store.GetKit(ctx, suppliedKitID)
	if err != nil {
		return fmt.Errorf("get kit: %w", err)
	}
	if kit.IsVerified() {
		return nil
	}
	if kit.KitVerificationCode == "" {
		return fmt.Errorf("%w: %s", ErrNoCode, suppliedKitID)
	}

	login, err := s.store.GetLoginInfo(ctx, kit.LoginID)
	if err != nil {
		return fmt.Errorf("get login: %w", err)
	}

	data := map[string]any{
		"SiteName": s.siteName,
		"KitID":    kit.SuppliedKitID,
		"Code":     kit.KitVerificationCode,
	}
	subject, body := i18n.Mail(ctx, "kit_verification", data)

	if err := s.mailer.Send(ctx, body, subject, login.Email); err != nil {
		metrics.ObserveEmailFailure()
		s.logger.Warn("failed to send kit verification email", "kit_id", suppliedKitID, "error", err)
		return fmt.Errorf("send verification email: %w", err)
	}

	return s.store.MarkVerificationEmailSent(ctx, suppliedKitID)
}

// Verify confirms a kit with code. Unknown kits and wrong codes yield false.
func (s *Service) Verify(ctx context.Context, suppliedKitID, code string) (bool, error) {
	ok, err := s.store.VerifyKit(ctx, suppliedKitID, code)
	if err != nil {
		return false, err
	}
	metrics.ObserveKitVerification(ok)
	if ok {
		s.logger.Info("kit verified", "kit_id", suppliedKitID)
	}
	return ok, nil
}
