// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"

	"codeberg.org/oliverandrich/sampletrack/internal/database"
	"codeberg.org/oliverandrich/sampletrack/internal/models"
	"github.com/google/uuid"
	"github.com/vinovest/sqlx"
)

const kitCols = `kit_id, login_id, supplied_kit_id, swabs_per_kit, kit_password, kit_verification_code,
	verification_email_sent, kit_verified, created_at`

// AddKit creates a kit for a login together with its pre-allocated barcodes.
func (r *Repository) AddKit(ctx context.Context, loginID string, kit models.NewKit) (string, error) {
	for _, bc := range kit.Barcodes {
		if !ValidBarcode(bc) {
			return "", fmt.Errorf("%w: %q", ErrInvalidBarcode, bc)
		}
	}

	hash, err := r.hashPassword(kit.Password)
	if err != nil {
		return "", fmt.Errorf("hash kit password: %w", err)
	}

	kitID := uuid.NewString()
	err = database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := r.insertKit(ctx, tx, kitID, loginID, kit.SuppliedKitID, hash, kit.VerificationCode, kit.SwabsPerKit); err != nil {
			return err
		}
		return r.linkBarcodes(ctx, tx, kitID, kit.Barcodes)
	})
	if err != nil {
		return "", err
	}
	return kitID, nil
}

func (r *Repository) insertKit(ctx context.Context, tx *sqlx.Tx, kitID, loginID, suppliedKitID, hash, verificationCode string, swabs int) error {
	if swabs <= 0 {
		swabs = 1
	}
	_, err := tx.ExecContext(ctx, r.rebind(
		`INSERT INTO kits (kit_id, login_id, supplied_kit_id, swabs_per_kit, kit_password, kit_verification_code)
		 VALUES (?, ?, ?, ?, ?, ?)`),
		kitID, loginID, suppliedKitID, swabs, hash, verificationCode)
	if err != nil {
		return fmt.Errorf("insert kit: %w", err)
	}
	return nil
}

// linkBarcodes registers barcodes and scopes them to kitID.
func (r *Repository) linkBarcodes(ctx context.Context, tx *sqlx.Tx, kitID string, barcodes []string) error {
	for _, bc := range barcodes {
		if _, err := tx.ExecContext(ctx, r.rebind(
			`INSERT INTO barcodes (barcode) VALUES (?) ON CONFLICT (barcode) DO NOTHING`), bc); err != nil {
			return fmt.Errorf("register barcode %s: %w", bc, err)
		}
		if _, err := tx.ExecContext(ctx, r.rebind(
			`INSERT INTO kit_barcodes (kit_barcode_id, kit_id, barcode) VALUES (?, ?, ?)`),
			uuid.NewString(), kitID, bc); err != nil {
			return fmt.Errorf("link barcode %s: %w", bc, err)
		}
	}
	return nil
}

// GetKit retrieves a kit by its supplied kit id.
func (r *Repository) GetKit(ctx context.Context, suppliedKitID string) (*models.Kit, error) {
	var kit models.Kit
	err := r.db.GetContext(ctx, &kit, r.rebind(`SELECT `+kitCols+` FROM kits WHERE supplied_kit_id = ?`), suppliedKitID)
	if err != nil {
		return nil, wrapError(err)
	}
	return &kit, nil
}

// GetKitDetails returns the kit row as a record, or an empty record when the
// kit does not exist.
func (r *Repository) GetKitDetails(ctx context.Context, suppliedKitID string) (database.Record, error) {
	return database.MapRow(ctx, r.db, r.rebind(
		`SELECT kit_id, supplied_kit_id, swabs_per_kit, verification_email_sent,
		        kit_verification_code, kit_password, kit_verified
		 FROM kits WHERE supplied_kit_id = ?`), suppliedKitID)
}

// AuthenticateKit checks a kit password. Unknown kits and wrong passwords
// both yield false.
func (r *Repository) AuthenticateKit(ctx context.Context, suppliedKitID, password string) (bool, error) {
	var hash string
	err := r.db.GetContext(ctx, &hash, r.rebind(`SELECT kit_password FROM kits WHERE supplied_kit_id = ?`), suppliedKitID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return false, err
	}
	return checkPassword(hash, password), nil
}

// VerifyKit marks the kit verified when code matches its verification code.
// Unknown kits and mismatched codes both yield false.
func (r *Repository) VerifyKit(ctx context.Context, suppliedKitID, code string) (bool, error) {
	verified := false
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var stored string
		err := tx.GetContext(ctx, &stored, r.rebind(
			`SELECT kit_verification_code FROM kits WHERE supplied_kit_id = ?`), suppliedKitID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		if stored == "" || subtle.ConstantTimeCompare([]byte(stored), []byte(code)) != 1 {
			return nil
		}

		if _, err := tx.ExecContext(ctx, r.rebind(
			`UPDATE kits SET kit_verified = ? WHERE supplied_kit_id = ?`), models.FlagYes, suppliedKitID); err != nil {
			return err
		}
		verified = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return verified, nil
}

// MarkVerificationEmailSent records that the verification code was mailed.
func (r *Repository) MarkVerificationEmailSent(ctx context.Context, suppliedKitID string) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, r.rebind(
			`UPDATE kits SET verification_email_sent = ? WHERE supplied_kit_id = ?`), models.FlagYes, suppliedKitID)
		if err != nil {
			return err
		}
		return requireAffected(res)
	})
}

// GetUserForKit resolves the login owning a supplied kit id.
func (r *Repository) GetUserForKit(ctx context.Context, suppliedKitID string) (string, error) {
	var loginID string
	err := r.db.GetContext(ctx, &loginID, r.rebind(`SELECT login_id FROM kits WHERE supplied_kit_id = ?`), suppliedKitID)
	if err != nil {
		return "", wrapError(err)
	}
	return loginID, nil
}

// GetBarcodesByKit lists the barcodes linked to a kit.
func (r *Repository) GetBarcodesByKit(ctx context.Context, suppliedKitID string) ([]string, error) {
	barcodes := []string{}
	err := r.db.SelectContext(ctx, &barcodes, r.rebind(
		`SELECT kb.barcode
		 FROM kit_barcodes kb
		 JOIN kits k ON k.kit_id = kb.kit_id
		 WHERE k.supplied_kit_id = ?
		 ORDER BY kb.barcode`), suppliedKitID)
	if err != nil {
		return nil, err
	}
	return barcodes, nil
}
