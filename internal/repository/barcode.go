// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"codeberg.org/oliverandrich/sampletrack/internal/database"
	"codeberg.org/oliverandrich/sampletrack/internal/models"
	"github.com/vinovest/sqlx"
)

// BarcodeLength is the width of a zero-padded barcode.
const BarcodeLength = 9

// ValidBarcode reports whether s is a 9 digit barcode.
func ValidBarcode(s string) bool {
	if len(s) != BarcodeLength {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

const kitBarcodeCols = `kb.kit_barcode_id, kb.kit_id, kb.barcode, b.status, kb.participant_name,
	kb.site_sampled, kb.environment_sampled, kb.sample_date, kb.sample_time, kb.notes`

// GetBarcodeDetails returns the barcode joined with its kit and login. The
// record carries the internal kit_id and the human-facing supplied_kit_id. A
// barcode that does not exist and one that is not linked to a kit of this
// application both yield an empty record.
func (r *Repository) GetBarcodeDetails(ctx context.Context, barcode string) (database.Record, error) {
	return database.MapRow(ctx, r.db, r.rebind(
		`SELECT b.barcode, b.status, k.kit_id, k.supplied_kit_id, l.name, kb.participant_name,
		        l.email, kb.site_sampled, kb.environment_sampled, kb.sample_date, kb.sample_time,
		        kb.notes, kb.overloaded, kb.withdrawn, kb.other, kb.moldy, kb.refunded,
		        kb.kit_barcode_id, kb.date_of_last_email, kb.other_text
		 FROM barcodes b
		 JOIN kit_barcodes kb ON kb.barcode = b.barcode
		 JOIN kits k ON k.kit_id = kb.kit_id
		 JOIN logins l ON l.login_id = k.login_id
		 WHERE b.barcode = ?`), barcode)
}

// DeleteSample removes the barcode from the kit that holds it, provided that
// kit belongs to loginID. Barcodes owned by someone else are left untouched
// and no error tells the two cases apart.
func (r *Repository) DeleteSample(ctx context.Context, barcode, loginID string) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, r.rebind(
			`DELETE FROM kit_barcodes
			 WHERE barcode = ?
			   AND kit_id IN (SELECT kit_id FROM kits WHERE login_id = ?)`), barcode, loginID)
		return err
	})
}

// GetAvailableBarcodes lists the barcodes of loginID's kits that carry no
// logged sample yet.
func (r *Repository) GetAvailableBarcodes(ctx context.Context, loginID string) ([]string, error) {
	barcodes := []string{}
	err := r.db.SelectContext(ctx, &barcodes, r.rebind(
		`SELECT kb.barcode
		 FROM kit_barcodes kb
		 JOIN kits k ON k.kit_id = kb.kit_id
		 WHERE k.login_id = ?
		   AND kb.site_sampled IS NULL
		   AND kb.environment_sampled IS NULL
		 ORDER BY kb.barcode`), loginID)
	if err != nil {
		return nil, err
	}
	return barcodes, nil
}

// CheckAccess reports whether barcode belongs to the kit suppliedKitID.
func (r *Repository) CheckAccess(ctx context.Context, suppliedKitID, barcode string) (bool, error) {
	var one int
	err := r.db.GetContext(ctx, &one, r.rebind(
		`SELECT 1
		 FROM kit_barcodes kb
		 JOIN kits k ON k.kit_id = kb.kit_id
		 WHERE k.supplied_kit_id = ? AND kb.barcode = ?`), suppliedKitID, barcode)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// LogParticipantSample records a sample against a free barcode of loginID.
// Exactly one of SiteSampled and EnvironmentSampled must be set.
func (r *Repository) LogParticipantSample(ctx context.Context, loginID, barcode string, s models.SampleLog) error {
	site := strings.TrimSpace(s.SiteSampled)
	env := strings.TrimSpace(s.EnvironmentSampled)
	if (site == "") == (env == "") {
		return errors.New("sample needs either a site or an environment")
	}
	if s.SampleDate.IsZero() {
		return errors.New("sample date is required")
	}

	y, m, d := s.SampleDate.Date()
	date := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, r.rebind(
			`UPDATE kit_barcodes
			 SET participant_name = ?, site_sampled = ?, environment_sampled = ?,
			     sample_date = ?, sample_time = ?, notes = ?
			 WHERE barcode = ?
			   AND site_sampled IS NULL
			   AND environment_sampled IS NULL
			   AND kit_id IN (SELECT kit_id FROM kits WHERE login_id = ?)`),
			nullString(s.ParticipantName), nullString(site), nullString(env),
			date, nullString(s.SampleTime), nullString(s.Notes),
			barcode, loginID)
		if err != nil {
			return fmt.Errorf("log sample: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrBarcodeNotAvailable
		}
		return nil
	})
}

// GetParticipantSamples lists the samples logged for one participant of loginID.
func (r *Repository) GetParticipantSamples(ctx context.Context, loginID, participantName string) ([]models.KitBarcode, error) {
	samples := []models.KitBarcode{}
	err := r.db.SelectContext(ctx, &samples, r.rebind(
		`SELECT `+kitBarcodeCols+`
		 FROM kit_barcodes kb
		 JOIN barcodes b ON b.barcode = kb.barcode
		 JOIN kits k ON k.kit_id = kb.kit_id
		 WHERE k.login_id = ? AND kb.participant_name = ?
		 ORDER BY kb.barcode`), loginID, participantName)
	if err != nil {
		return nil, err
	}
	return samples, nil
}

// GetEnvironmentalSamples lists the environmental samples logged by loginID.
func (r *Repository) GetEnvironmentalSamples(ctx context.Context, loginID string) ([]models.KitBarcode, error) {
	samples := []models.KitBarcode{}
	err := r.db.SelectContext(ctx, &samples, r.rebind(
		`SELECT `+kitBarcodeCols+`
		 FROM kit_barcodes kb
		 JOIN barcodes b ON b.barcode = kb.barcode
		 JOIN kits k ON k.kit_id = kb.kit_id
		 WHERE k.login_id = ? AND kb.environment_sampled IS NOT NULL
		 ORDER BY kb.barcode`), loginID)
	if err != nil {
		return nil, err
	}
	return samples, nil
}

// UpdateBarcodeStatus sets the processing status of a barcode linked to
// this application. An empty status clears it back to submitted.
func (r *Repository) UpdateBarcodeStatus(ctx context.Context, barcode, status string) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, r.rebind(
			`UPDATE barcodes SET status = ?
			 WHERE barcode = ?
			   AND barcode IN (SELECT barcode FROM kit_barcodes)`), nullString(status), barcode)
		if err != nil {
			return err
		}
		return requireAffected(res)
	})
}

// MarkStatusEmailSent stamps the time the last status email went out.
func (r *Repository) MarkStatusEmailSent(ctx context.Context, barcode string) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, r.rebind(
			`UPDATE kit_barcodes SET date_of_last_email = ? WHERE barcode = ?`), r.clock(), barcode)
		if err != nil {
			return err
		}
		return requireAffected(res)
	})
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
