// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"codeberg.org/oliverandrich/sampletrack/internal/database"
	"codeberg.org/oliverandrich/sampletrack/internal/models"
	"github.com/google/uuid"
	"github.com/vinovest/sqlx"
)

// AddHandoutKit stores a kit that was handed out before registration.
func (r *Repository) AddHandoutKit(ctx context.Context, kit models.HandoutKit) error {
	for _, bc := range kit.Barcodes {
		if !ValidBarcode(bc) {
			return fmt.Errorf("%w: %q", ErrInvalidBarcode, bc)
		}
	}

	hash, err := r.hashPassword(kit.Password)
	if err != nil {
		return fmt.Errorf("hash kit password: %w", err)
	}

	swabs := kit.SwabsPerKit
	if swabs <= 0 {
		swabs = 1
	}

	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, r.rebind(
			`INSERT INTO handout_kits (supplied_kit_id, kit_password, verification_code, swabs_per_kit)
			 VALUES (?, ?, ?, ?)`),
			kit.SuppliedKitID, hash, kit.VerificationCode, swabs); err != nil {
			return fmt.Errorf("insert handout kit: %w", err)
		}
		for _, bc := range kit.Barcodes {
			if _, err := tx.ExecContext(ctx, r.rebind(
				`INSERT INTO barcodes (barcode) VALUES (?) ON CONFLICT (barcode) DO NOTHING`), bc); err != nil {
				return fmt.Errorf("register barcode %s: %w", bc, err)
			}
			if _, err := tx.ExecContext(ctx, r.rebind(
				`INSERT INTO handout_barcodes (supplied_kit_id, barcode) VALUES (?, ?)`),
				kit.SuppliedKitID, bc); err != nil {
				return fmt.Errorf("insert handout barcode %s: %w", bc, err)
			}
		}
		return nil
	})
}

// HandoutCheck reports whether a handout kit exists with the given password.
func (r *Repository) HandoutCheck(ctx context.Context, suppliedKitID, password string) (bool, error) {
	var hash string
	err := r.db.GetContext(ctx, &hash, r.rebind(
		`SELECT kit_password FROM handout_kits WHERE supplied_kit_id = ?`), suppliedKitID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return false, err
	}
	return checkPassword(hash, password), nil
}

type handoutRow struct {
	SuppliedKitID    string `db:"supplied_kit_id"`
	KitPassword      string `db:"kit_password"`
	VerificationCode string `db:"verification_code"`
	SwabsPerKit      int    `db:"swabs_per_kit"`
}

// RegisterHandoutKit moves a handout kit and its barcodes to loginID and
// returns the new kit id. The handout entry is removed in the same transaction.
func (r *Repository) RegisterHandoutKit(ctx context.Context, loginID, suppliedKitID string) (string, error) {
	kitID := uuid.NewString()

	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var h handoutRow
		err := tx.GetContext(ctx, &h, r.rebind(
			`SELECT supplied_kit_id, kit_password, verification_code, swabs_per_kit
			 FROM handout_kits WHERE supplied_kit_id = ?`), suppliedKitID)
		if err != nil {
			return wrapError(err)
		}

		var barcodes []string
		if err := tx.SelectContext(ctx, &barcodes, r.rebind(
			`SELECT barcode FROM handout_barcodes WHERE supplied_kit_id = ? ORDER BY barcode`), suppliedKitID); err != nil {
			return err
		}

		if err := r.insertKit(ctx, tx, kitID, loginID, h.SuppliedKitID, h.KitPassword, h.VerificationCode, h.SwabsPerKit); err != nil {
			return err
		}
		if err := r.linkBarcodes(ctx, tx, kitID, barcodes); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, r.rebind(
			`DELETE FROM handout_barcodes WHERE supplied_kit_id = ?`), suppliedKitID); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, r.rebind(`DELETE FROM handout_kits WHERE supplied_kit_id = ?`), suppliedKitID)
		return err
	})
	if err != nil {
		return "", err
	}
	return kitID, nil
}
