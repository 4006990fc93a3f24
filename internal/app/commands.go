// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"codeberg.org/oliverandrich/sampletrack/internal/database"
	"codeberg.org/oliverandrich/sampletrack/internal/metrics"
	"codeberg.org/oliverandrich/sampletrack/internal/models"
	"codeberg.org/oliverandrich/sampletrack/internal/repository"
	"codeberg.org/oliverandrich/sampletrack/internal/services/passreset"
	"github.com/urfave/cli/v3"
)

var errUsage = errors.New("wrong number of arguments")

func migrateCommand(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Manage the database schema",
		Commands: []*cli.Command{
			{
				Name:  "up",
				Usage: "Apply all pending migrations",
				Action: func(_ context.Context, cmd *cli.Command) error {
					if _, err := rt.repository(); err != nil {
						return err
					}
					rt.printf(cmd, "database is up to date\n")
					return nil
				},
			},
			{
				Name:  "down",
				Usage: "Roll back the most recent migration",
				Action: func(_ context.Context, cmd *cli.Command) error {
					if _, err := rt.repository(); err != nil {
						return err
					}
					if err := database.MigrateDown(rt.db.DB, database.DriverFor(rt.cfg.Database.DSN)); err != nil {
						return err
					}
					rt.printf(cmd, "rolled back one migration\n")
					return nil
				},
			},
			{
				Name:  "reset",
				Usage: "Roll back all migrations",
				Action: func(_ context.Context, cmd *cli.Command) error {
					if _, err := rt.repository(); err != nil {
						return err
					}
					if err := database.MigrateReset(rt.db.DB, database.DriverFor(rt.cfg.Database.DSN)); err != nil {
						return err
					}
					rt.printf(cmd, "rolled back all migrations\n")
					return nil
				},
			},
		},
	}
}

func addLoginCommand(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:      "add-login",
		Usage:     "Register a login, or print the existing one for the email",
		ArgsUsage: "<email>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "name", Usage: "Participant name"},
			&cli.StringFlag{Name: "address"},
			&cli.StringFlag{Name: "city"},
			&cli.StringFlag{Name: "state"},
			&cli.StringFlag{Name: "zip"},
			&cli.StringFlag{Name: "country"},
			&cli.FloatFlag{Name: "latitude"},
			&cli.FloatFlag{Name: "longitude"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 1 {
				return errUsage
			}
			repo, err := rt.repository()
			if err != nil {
				return err
			}

			loginID, err := repo.AddLogin(ctx, models.NewLogin{
				Email:   cmd.Args().First(),
				Name:    cmd.String("name"),
				Address: cmd.String("address"),
				City:    cmd.String("city"),
				State:   cmd.String("state"),
				Zip:     cmd.String("zip"),
				Country: cmd.String("country"),
			})
			if err != nil {
				return err
			}

			if cmd.IsSet("latitude") || cmd.IsSet("longitude") {
				if err := repo.SetLoginCoordinates(ctx, loginID, cmd.Float("latitude"), cmd.Float("longitude")); err != nil {
					return err
				}
			}

			rt.printf(cmd, "%s\n", loginID)
			return nil
		},
	}
}

func addKitCommand(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:      "add-kit",
		Usage:     "Register a kit and its barcodes to a login",
		ArgsUsage: "<email> <kit-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "password", Required: true, Usage: "Kit password"},
			&cli.StringFlag{Name: "verification-code", Usage: "Code mailed to confirm the kit"},
			&cli.IntFlag{Name: "swabs", Value: 1, Usage: "Swabs in the kit"},
			&cli.StringSliceFlag{Name: "barcode", Aliases: []string{"b"}, Usage: "Barcode of a swab (repeatable)"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 2 {
				return errUsage
			}
			repo, err := rt.repository()
			if err != nil {
				return err
			}

			loginID, ok, err := repo.CheckLoginExists(ctx, cmd.Args().Get(0))
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no login for %s", cmd.Args().Get(0))
			}

			kitID, err := repo.AddKit(ctx, loginID, models.NewKit{
				SuppliedKitID:    cmd.Args().Get(1),
				Password:         cmd.String("password"),
				VerificationCode: cmd.String("verification-code"),
				SwabsPerKit:      int(cmd.Int("swabs")),
				Barcodes:         cmd.StringSlice("barcode"),
			})
			if err != nil {
				return err
			}

			rt.printf(cmd, "%s\n", kitID)
			return nil
		},
	}
}

func resetPasswordCommand(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "reset-password",
		Usage: "Run the kit password reset flow",
		Commands: []*cli.Command{
			{
				Name:      "request",
				Usage:     "Issue a reset code and mail it to the kit owner",
				ArgsUsage: "<email> <kit-id>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if cmd.NArg() != 2 {
						return errUsage
					}
					repo, err := rt.repository()
					if err != nil {
						return err
					}

					res, err := rt.passreset(repo).Request(ctx, cmd.Args().Get(0), cmd.Args().Get(1))
					if err != nil {
						return err
					}

					switch res.Outcome {
					case passreset.OutcomeSent:
						rt.printf(cmd, "reset code sent\n")
					case passreset.OutcomeEmailFailed:
						rt.printf(cmd, "email could not be sent (%v), message follows\n\n%s\n\n%s\n", res.EmailErr, res.Subject, res.Body)
					case passreset.OutcomeNoMatch:
						rt.printf(cmd, "kit is not registered to this email\n")
					}
					return nil
				},
			},
			{
				Name:      "complete",
				Usage:     "Set a new kit password with a reset code",
				ArgsUsage: "<email> <kit-id> <code> <new-password>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if cmd.NArg() != 4 {
						return errUsage
					}
					repo, err := rt.repository()
					if err != nil {
						return err
					}

					args := cmd.Args()
					ok, err := rt.passreset(repo).Complete(ctx, args.Get(0), args.Get(1), args.Get(2), args.Get(3))
					if err != nil {
						return err
					}
					if !ok {
						return errors.New("reset code is invalid or expired")
					}
					rt.printf(cmd, "password changed\n")
					return nil
				},
			},
		},
	}
}

func verifyKitCommand(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "verify-kit",
		Usage: "Send or check kit verification codes",
		Commands: []*cli.Command{
			{
				Name:      "send",
				Usage:     "Mail the verification code to the kit owner",
				ArgsUsage: "<kit-id>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if cmd.NArg() != 1 {
						return errUsage
					}
					repo, err := rt.repository()
					if err != nil {
						return err
					}
					if err := rt.verification(repo).SendCode(ctx, cmd.Args().First()); err != nil {
						return err
					}
					rt.printf(cmd, "verification code sent\n")
					return nil
				},
			},
			{
				Name:      "check",
				Usage:     "Confirm a kit with its verification code",
				ArgsUsage: "<kit-id> <code>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if cmd.NArg() != 2 {
						return errUsage
					}
					repo, err := rt.repository()
					if err != nil {
						return err
					}
					ok, err := rt.verification(repo).Verify(ctx, cmd.Args().Get(0), cmd.Args().Get(1))
					if err != nil {
						return err
					}
					if !ok {
						return errors.New("verification code does not match")
					}
					rt.printf(cmd, "kit verified\n")
					return nil
				},
			},
		},
	}
}

func sampleCommand(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "sample",
		Usage: "Inspect and update samples",
		Commands: []*cli.Command{
			{
				Name:      "overview",
				Usage:     "Print the overview of a barcode as JSON",
				ArgsUsage: "<barcode>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if cmd.NArg() != 1 {
						return errUsage
					}
					repo, err := rt.repository()
					if err != nil {
						return err
					}
					overview, err := rt.samples(repo).Overview(ctx, cmd.Args().First())
					if err != nil {
						return err
					}
					if overview == nil {
						return fmt.Errorf("barcode %s: %w", cmd.Args().First(), repository.ErrNotFound)
					}
					return writeJSON(cmd, overview)
				},
			},
			{
				Name:      "status",
				Usage:     "Set the lab status of a barcode (empty clears it)",
				ArgsUsage: "<barcode> <status>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "mark-emailed", Usage: "Record that the participant was notified"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					if cmd.NArg() != 2 {
						return errUsage
					}
					repo, err := rt.repository()
					if err != nil {
						return err
					}
					barcode := cmd.Args().Get(0)
					if err := repo.UpdateBarcodeStatus(ctx, barcode, cmd.Args().Get(1)); err != nil {
						return err
					}
					if cmd.Bool("mark-emailed") {
						if err := repo.MarkStatusEmailSent(ctx, barcode); err != nil {
							return err
						}
					}
					rt.printf(cmd, "status updated\n")
					return nil
				},
			},
			{
				Name:  "markers",
				Usage: "Print the public map markers as JSON",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					repo, err := rt.repository()
					if err != nil {
						return err
					}
					markers, err := rt.samples(repo).MapMarkers(ctx)
					if err != nil {
						return err
					}
					return writeJSON(cmd, markers)
				},
			},
		},
	}
}

func cleanupCommand(rt *runtime) *cli.Command {
	return &cli.Command{
		Name:  "cleanup-codes",
		Usage: "Delete expired and used password reset codes",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			repo, err := rt.repository()
			if err != nil {
				return err
			}
			n, err := repo.DeleteExpiredResetCodes(ctx)
			if err != nil {
				return err
			}
			metrics.ObserveExpiredCodesDeleted(n)
			rt.logger.Info("deleted reset codes", "count", n)
			rt.printf(cmd, "deleted %d reset codes\n", n)
			return nil
		},
	}
}

func writeJSON(cmd *cli.Command, v any) error {
	enc := json.NewEncoder(cmd.Root().Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
