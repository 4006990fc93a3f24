// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"codeberg.org/oliverandrich/sampletrack/internal/database"
	"codeberg.org/oliverandrich/sampletrack/internal/models"
	"github.com/vinovest/sqlx"
)

// ResetCodeValidity is how long a password reset code stays usable.
const ResetCodeValidity = 2 * time.Hour

// SetPassChangeCode stores code as the only reset code of the kit. The kit
// must be registered to email; otherwise ErrKitNotOwned is returned and
// nothing is written. Any earlier code for the kit stops verifying at once.
func (r *Repository) SetPassChangeCode(ctx context.Context, email, suppliedKitID, code string) error {
	if code == "" {
		return errors.New("reset code must not be empty")
	}
	email = NormalizeEmail(email)

	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var kitID string
		err := tx.GetContext(ctx, &kitID, r.rebind(
			`SELECT k.kit_id
			 FROM kits k
			 JOIN logins l ON l.login_id = k.login_id
			 WHERE l.email = ? AND k.supplied_kit_id = ?`), email, suppliedKitID)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", ErrKitNotOwned, suppliedKitID)
		}
		if err != nil {
			return err
		}

		// The primary key on kit_id keeps a single row per kit.
		_, err = tx.ExecContext(ctx, r.rebind(
			`INSERT INTO reset_codes (kit_id, email, code, created_at, consumed_at)
			 VALUES (?, ?, ?, ?, NULL)
			 ON CONFLICT (kit_id) DO UPDATE
			 SET email = excluded.email, code = excluded.code,
			     created_at = excluded.created_at, consumed_at = NULL`),
			kitID, email, code, r.clock())
		if err != nil {
			return fmt.Errorf("store reset code: %w", err)
		}
		return nil
	})
}

// GetPassChangeCode returns the current reset code row of a kit.
func (r *Repository) GetPassChangeCode(ctx context.Context, suppliedKitID string) (*models.PassResetCode, error) {
	return r.getPassChangeCode(ctx, r.db, suppliedKitID)
}

func (r *Repository) getPassChangeCode(ctx context.Context, q sqlx.QueryerContext, suppliedKitID string) (*models.PassResetCode, error) {
	var rc models.PassResetCode
	err := sqlx.GetContext(ctx, q, &rc, r.rebind(
		`SELECT rc.kit_id, rc.email, rc.code, rc.created_at, rc.consumed_at
		 FROM reset_codes rc
		 JOIN kits k ON k.kit_id = rc.kit_id
		 WHERE k.supplied_kit_id = ?`), suppliedKitID)
	if err != nil {
		return nil, wrapError(err)
	}
	return &rc, nil
}

// codeMatches checks email, code and validity window. Wrong and expired
// codes are not told apart.
func (r *Repository) codeMatches(rc *models.PassResetCode, email, code string) bool {
	if rc == nil {
		return false
	}
	emailOK := subtle.ConstantTimeCompare([]byte(rc.Email), []byte(NormalizeEmail(email))) == 1
	codeOK := subtle.ConstantTimeCompare([]byte(rc.Code), []byte(code)) == 1
	return emailOK && codeOK && rc.ValidAt(r.clock(), ResetCodeValidity)
}

// VerifyPassChangeCode reports whether code is the current, unconsumed and
// unexpired reset code of the kit issued to email.
func (r *Repository) VerifyPassChangeCode(ctx context.Context, email, suppliedKitID, code string) (bool, error) {
	rc, err := r.GetPassChangeCode(ctx, suppliedKitID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return r.codeMatches(rc, email, code), nil
}

// UpdateKitPassword stores a new password hash for the kit and consumes its
// reset code, so the code never verifies again.
func (r *Repository) UpdateKitPassword(ctx context.Context, suppliedKitID, newPassword string) error {
	hash, err := r.hashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash kit password: %w", err)
	}

	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := r.setKitPassword(ctx, tx, suppliedKitID, hash); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, r.rebind(
			`UPDATE reset_codes SET consumed_at = ?
			 WHERE consumed_at IS NULL
			   AND kit_id = (SELECT kit_id FROM kits WHERE supplied_kit_id = ?)`),
			r.clock(), suppliedKitID)
		return err
	})
}

// ResetKitPassword verifies the code and, when it is valid, consumes it and
// stores the new password in one transaction. It returns false without
// writing anything when the code does not verify.
func (r *Repository) ResetKitPassword(ctx context.Context, email, suppliedKitID, code, newPassword string) (bool, error) {
	hash, err := r.hashPassword(newPassword)
	if err != nil {
		return false, fmt.Errorf("hash kit password: %w", err)
	}

	ok := false
	err = database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		rc, err := r.getPassChangeCode(ctx, tx, suppliedKitID)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if !r.codeMatches(rc, email, code) {
			return nil
		}

		// Guarded on the code so a concurrent reissue or reset wins cleanly.
		res, err := tx.ExecContext(ctx, r.rebind(
			`UPDATE reset_codes SET consumed_at = ?
			 WHERE kit_id = ? AND code = ? AND consumed_at IS NULL`),
			r.clock(), rc.KitID, rc.Code)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}

		if err := r.setKitPassword(ctx, tx, suppliedKitID, hash); err != nil {
			return err
		}
		ok = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return ok, nil
}

func (r *Repository) setKitPassword(ctx context.Context, tx *sqlx.Tx, suppliedKitID, hash string) error {
	res, err := tx.ExecContext(ctx, r.rebind(
		`UPDATE kits SET kit_password = ? WHERE supplied_kit_id = ?`), hash, suppliedKitID)
	if err != nil {
		return fmt.Errorf("update kit password: %w", err)
	}
	return requireAffected(res)
}

// DeleteExpiredResetCodes removes consumed codes and codes past their
// validity window. It returns the number of removed rows.
func (r *Repository) DeleteExpiredResetCodes(ctx context.Context) (int64, error) {
	now := r.clock()
	var deleted int64

	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		var codes []models.PassResetCode
		if err := tx.SelectContext(ctx, &codes,
			`SELECT kit_id, email, code, created_at, consumed_at FROM reset_codes`); err != nil {
			return err
		}

		for i := range codes {
			if codes[i].ValidAt(now, ResetCodeValidity) {
				continue
			}
			res, err := tx.ExecContext(ctx, r.rebind(
				`DELETE FROM reset_codes WHERE kit_id = ? AND code = ?`), codes[i].KitID, codes[i].Code)
			if err != nil {
				return err
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			deleted += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}
