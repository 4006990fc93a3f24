// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package config

import (
	"fmt"
	"strings"

	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"
	"golang.org/x/crypto/bcrypt"
)

var (
	configPath = "config.toml"
	configFile = altsrc.NewStringPtrSourcer(&configPath)
)

type Config struct { //nolint:govet // fieldalignment not critical for config structs
	Log      LogConfig
	Database DatabaseConfig
	SMTP     SMTPConfig
	Site     SiteConfig
	Security SecurityConfig
	Metrics  MetricsConfig
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text, json
}

type DatabaseConfig struct {
	DSN string // sqlite path, :memory: or postgres:// URL
}

type SMTPConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	TLS      bool
}

// Enabled reports whether enough is configured to send mail.
func (c SMTPConfig) Enabled() bool {
	return c.Host != "" && c.From != ""
}

type SiteConfig struct {
	Name     string // shown in email subjects
	BaseURL  string // used to build links in emails
	Language string // language of participant emails
}

type SecurityConfig struct {
	BcryptCost int
}

type MetricsConfig struct {
	Textfile string // written on exit when set
}

func NewFromCLI(cmd *cli.Command) *Config {
	cfg := &Config{
		Log: LogConfig{
			Level:  cmd.String("log-level"),
			Format: cmd.String("log-format"),
		},
		Database: DatabaseConfig{
			DSN: cmd.String("database-dsn"),
		},
		SMTP: SMTPConfig{
			Host:     cmd.String("smtp-host"),
			Port:     int(cmd.Int("smtp-port")),
			Username: cmd.String("smtp-username"),
			Password: cmd.String("smtp-password"),
			From:     cmd.String("smtp-from"),
			FromName: cmd.String("smtp-from-name"),
			TLS:      cmd.Bool("smtp-tls"),
		},
		Site: SiteConfig{
			Name:     cmd.String("site-name"),
			BaseURL:  strings.TrimSuffix(cmd.String("base-url"), "/"),
			Language: cmd.String("language"),
		},
		Security: SecurityConfig{
			BcryptCost: int(cmd.Int("bcrypt-cost")),
		},
		Metrics: MetricsConfig{
			Textfile: cmd.String("metrics-textfile"),
		},
	}

	if cfg.SMTP.FromName == "" {
		cfg.SMTP.FromName = cfg.Site.Name
	}

	return cfg
}

// Validate checks values that cannot be expressed as flag defaults.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q", c.Log.Format)
	}
	if c.Security.BcryptCost < bcrypt.MinCost || c.Security.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("bcrypt cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.Site.BaseURL != "" && !strings.HasPrefix(c.Site.BaseURL, "http://") && !strings.HasPrefix(c.Site.BaseURL, "https://") {
		return fmt.Errorf("base url must start with http:// or https://")
	}
	return nil
}

func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Value:       "config.toml",
			Usage:       "Path to configuration file",
			Destination: &configPath,
			Sources:     cli.EnvVars("CONFIG"),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Value:   "info",
			Usage:   "Log level (debug, info, warn, error)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_LEVEL"), toml.TOML("log.level", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Value:   "text",
			Usage:   "Log format (text, json)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_FORMAT"), toml.TOML("log.format", configFile)),
		},
		&cli.StringFlag{
			Name:    "database-dsn",
			Value:   "./data/sampletrack.db",
			Usage:   "Database DSN (SQLite path or postgres:// URL)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("DATABASE_DSN"), toml.TOML("database.dsn", configFile)),
		},
		// SMTP flags
		&cli.StringFlag{
			Name:    "smtp-host",
			Usage:   "SMTP server host",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_HOST"), toml.TOML("smtp.host", configFile)),
		},
		&cli.IntFlag{
			Name:    "smtp-port",
			Value:   587,
			Usage:   "SMTP server port",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_PORT"), toml.TOML("smtp.port", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-username",
			Usage:   "SMTP username",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_USERNAME"), toml.TOML("smtp.username", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-password",
			Usage:   "SMTP password",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_PASSWORD"), toml.TOML("smtp.password", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-from",
			Usage:   "Sender address",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_FROM"), toml.TOML("smtp.from", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-from-name",
			Usage:   "Sender display name (defaults to site name)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_FROM_NAME"), toml.TOML("smtp.from_name", configFile)),
		},
		&cli.BoolFlag{
			Name:    "smtp-tls",
			Value:   true,
			Usage:   "Require TLS for SMTP (implicit TLS on port 465)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_TLS"), toml.TOML("smtp.tls", configFile)),
		},
		// Site flags
		&cli.StringFlag{
			Name:    "base-url",
			Value:   "http://localhost:8080",
			Usage:   "Base URL used in links sent by email",
			Sources: cli.NewValueSourceChain(cli.EnvVar("BASE_URL"), toml.TOML("site.base_url", configFile)),
		},
		&cli.StringFlag{
			Name:    "site-name",
			Value:   "Sample Tracker",
			Usage:   "Site name shown in emails",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SITE_NAME"), toml.TOML("site.name", configFile)),
		},
		&cli.StringFlag{
			Name:    "language",
			Value:   "en",
			Usage:   "Language of participant emails (en, de)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("MAIL_LANGUAGE"), toml.TOML("site.language", configFile)),
		},
		&cli.IntFlag{
			Name:    "bcrypt-cost",
			Value:   bcrypt.DefaultCost,
			Usage:   "bcrypt cost for kit passwords",
			Sources: cli.NewValueSourceChain(cli.EnvVar("BCRYPT_COST"), toml.TOML("security.bcrypt_cost", configFile)),
		},
		&cli.StringFlag{
			Name:    "metrics-textfile",
			Usage:   "Write metrics to this file on exit (node exporter textfile collector)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("METRICS_TEXTFILE"), toml.TOML("metrics.textfile", configFile)),
		},
	}
}
