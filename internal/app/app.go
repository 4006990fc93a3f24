// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package app wires configuration, storage and services into the
// sampletrack command line.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"codeberg.org/oliverandrich/sampletrack/internal/config"
	"codeberg.org/oliverandrich/sampletrack/internal/database"
	"codeberg.org/oliverandrich/sampletrack/internal/i18n"
	"codeberg.org/oliverandrich/sampletrack/internal/logging"
	"codeberg.org/oliverandrich/sampletrack/internal/metrics"
	"codeberg.org/oliverandrich/sampletrack/internal/repository"
	"codeberg.org/oliverandrich/sampletrack/internal/services/email"
	"codeberg.org/oliverandrich/sampletrack/internal/services/passreset"
	"codeberg.org/oliverandrich/sampletrack/internal/services/samples"
	"codeberg.org/oliverandrich/sampletrack/internal/services/verification"
	"github.com/urfave/cli/v3"
	"github.com/vinovest/sqlx"
)

// Version information (set via ldflags during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// Mailer is the sender contract shared by the services.
type Mailer interface {
	Send(ctx context.Context, body, subject, to string) error
}

// Option configures the command.
type Option func(*runtime)

// WithMailer replaces the mailer built from the SMTP configuration.
func WithMailer(m Mailer) Option {
	return func(r *runtime) {
		r.mailer = m
	}
}

// WithOutput sets where command output and logs are written.
func WithOutput(w io.Writer) Option {
	return func(r *runtime) {
		r.out = w
	}
}

// runtime holds what the subcommands share during one invocation.
type runtime struct {
	cfg    *config.Config
	logger *slog.Logger
	out    io.Writer
	mailer Mailer
	db     *sqlx.DB
	repo   *repository.Repository
}

// New builds the root command.
func New(opts ...Option) *cli.Command {
	rt := &runtime{}
	for _, opt := range opts {
		opt(rt)
	}

	cmd := &cli.Command{
		Name:    "sampletrack",
		Usage:   "Manage logins, kits, samples and password resets",
		Version: fmt.Sprintf("%s (built %s)", Version, BuildTime),
		Flags:   config.Flags(),
		Before:  rt.before,
		After:   rt.after,
		Commands: []*cli.Command{
			migrateCommand(rt),
			addLoginCommand(rt),
			addKitCommand(rt),
			resetPasswordCommand(rt),
			verifyKitCommand(rt),
			sampleCommand(rt),
			cleanupCommand(rt),
		},
	}
	if rt.out != nil {
		cmd.Writer = rt.out
		cmd.ErrWriter = rt.out
	}
	return cmd
}

func (rt *runtime) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	rt.cfg = config.NewFromCLI(cmd)
	if err := rt.cfg.Validate(); err != nil {
		return ctx, err
	}

	if rt.out != nil {
		rt.logger = logging.New(rt.out, rt.cfg.Log.Level, rt.cfg.Log.Format)
		slog.SetDefault(rt.logger)
	} else {
		rt.logger = logging.Setup(rt.cfg.Log.Level, rt.cfg.Log.Format)
	}

	if err := i18n.Init(); err != nil {
		return ctx, fmt.Errorf("failed to initialize i18n: %w", err)
	}

	if rt.mailer == nil {
		rt.mailer = email.Disabled{}
		if rt.cfg.SMTP.Enabled() {
			svc, err := email.NewService(&rt.cfg.SMTP)
			if err != nil {
				return ctx, fmt.Errorf("failed to configure email: %w", err)
			}
			rt.mailer = svc
		}
	}

	return i18n.ForLanguage(ctx, rt.cfg.Site.Language), nil
}

func (rt *runtime) after(context.Context, *cli.Command) error {
	var errs []error
	if rt.db != nil {
		errs = append(errs, rt.db.Close())
		rt.db, rt.repo = nil, nil
	}
	if rt.cfg != nil && rt.cfg.Metrics.Textfile != "" {
		if err := metrics.WriteTextfile(rt.cfg.Metrics.Textfile); err != nil {
			errs = append(errs, fmt.Errorf("write metrics: %w", err))
		}
	}
	return errors.Join(errs...)
}

// repository opens the database on first use. Opening applies migrations.
func (rt *runtime) repository() (*repository.Repository, error) {
	if rt.repo != nil {
		return rt.repo, nil
	}

	db, err := database.Open(rt.cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	rt.db = db
	rt.repo = repository.New(db, repository.WithBcryptCost(rt.cfg.Security.BcryptCost))
	return rt.repo, nil
}

func (rt *runtime) passreset(repo *repository.Repository) *passreset.Service {
	return passreset.NewService(repo, rt.mailer,
		passreset.WithLogger(rt.logger),
		passreset.WithSite(rt.cfg.Site.Name, rt.cfg.Site.BaseURL),
	)
}

func (rt *runtime) verification(repo *repository.Repository) *verification.Service {
	return verification.NewService(repo, rt.mailer, rt.logger, rt.cfg.Site.Name)
}

func (rt *runtime) samples(repo *repository.Repository) *samples.Service {
	return samples.NewService(repo)
}

func (rt *runtime) printf(cmd *cli.Command, format string, args ...any) {
	_, _ = fmt.Fprintf(cmd.Root().Writer, format, args...)
}
