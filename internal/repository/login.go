// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"

	"codeberg.org/oliverandrich/sampletrack/internal/database"
	"codeberg.org/oliverandrich/sampletrack/internal/models"
	"github.com/google/uuid"
	"github.com/vinovest/sqlx"
)

// NormalizeEmail lower-cases and trims an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// AddLogin registers a login and returns its id. If a login with the same
// normalized email exists, its id is returned and nothing is written.
func (r *Repository) AddLogin(ctx context.Context, l models.NewLogin) (string, error) {
	email := NormalizeEmail(l.Email)
	if email == "" {
		return "", ErrInvalidEmail
	}

	var loginID string
	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		// The unique index on email settles concurrent registrations.
		_, err := tx.ExecContext(ctx, r.rebind(
			`INSERT INTO logins (login_id, email, name, address, city, state, zip, country)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT (email) DO NOTHING`),
			uuid.NewString(), email, l.Name, l.Address, l.City, l.State, l.Zip, l.Country)
		if err != nil {
			return fmt.Errorf("insert login: %w", err)
		}
		return tx.GetContext(ctx, &loginID, r.rebind(`SELECT login_id FROM logins WHERE email = ?`), email)
	})
	if err != nil {
		return "", err
	}
	return loginID, nil
}

// CheckLoginExists returns the login id registered for email, if any.
func (r *Repository) CheckLoginExists(ctx context.Context, email string) (string, bool, error) {
	var loginID string
	err := r.db.GetContext(ctx, &loginID, r.rebind(`SELECT login_id FROM logins WHERE email = ?`), NormalizeEmail(email))
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return loginID, true, nil
}

// GetLoginInfo retrieves a login by id.
func (r *Repository) GetLoginInfo(ctx context.Context, loginID string) (*models.Login, error) {
	var login models.Login
	err := r.db.GetContext(ctx, &login, r.rebind(
		`SELECT login_id, email, name, address, city, state, zip, country, latitude, longitude, created_at
		 FROM logins WHERE login_id = ?`), loginID)
	if err != nil {
		return nil, wrapError(err)
	}
	return &login, nil
}

// SetLoginCoordinates stores the geocoded location of a login.
func (r *Repository) SetLoginCoordinates(ctx context.Context, loginID string, latitude, longitude float64) error {
	if math.IsNaN(latitude) || math.IsNaN(longitude) || math.Abs(latitude) > 90 || math.Abs(longitude) > 180 {
		return fmt.Errorf("coordinates out of range: %f, %f", latitude, longitude)
	}

	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, r.rebind(
			`UPDATE logins SET latitude = ?, longitude = ? WHERE login_id = ?`),
			latitude, longitude, loginID)
		if err != nil {
			return err
		}
		return requireAffected(res)
	})
}

// GetKitIDsByEmail returns the supplied kit ids registered under email.
// An unknown email yields an empty slice.
func (r *Repository) GetKitIDsByEmail(ctx context.Context, email string) ([]string, error) {
	kitIDs := []string{}
	err := r.db.SelectContext(ctx, &kitIDs, r.rebind(
		`SELECT k.supplied_kit_id
		 FROM kits k
		 JOIN logins l ON l.login_id = k.login_id
		 WHERE l.email = ?
		 ORDER BY k.supplied_kit_id`), NormalizeEmail(email))
	if err != nil {
		return nil, err
	}
	return kitIDs, nil
}
