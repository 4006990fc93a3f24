// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"codeberg.org/oliverandrich/sampletrack/internal/database"
	"codeberg.org/oliverandrich/sampletrack/internal/models"
	"github.com/vinovest/sqlx"
)

// AddConsent stores a participant's consent and returns its survey id. A
// survey id is generated when c.SurveyID is empty.
func (r *Repository) AddConsent(ctx context.Context, c models.Consent) (string, error) {
	name := strings.TrimSpace(c.ParticipantName)
	if name == "" {
		return "", errors.New("participant name is required")
	}

	surveyID := c.SurveyID
	if surveyID == "" {
		b := make([]byte, 8)
		if _, err := rand.Read(b); err != nil {
			return "", fmt.Errorf("generate survey id: %w", err)
		}
		surveyID = hex.EncodeToString(b)
	}

	signed := c.DateSigned
	if signed.IsZero() {
		signed = r.clock()
	}

	err := database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, r.rebind(
			`INSERT INTO consents (login_id, participant_name, participant_email, survey_id, date_signed)
			 VALUES (?, ?, ?, ?, ?)`),
			c.LoginID, name, NormalizeEmail(c.ParticipantEmail), surveyID, signed)
		if err != nil {
			return fmt.Errorf("insert consent: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return surveyID, nil
}

// CheckConsentExists reports whether participantName of loginID has consented.
func (r *Repository) CheckConsentExists(ctx context.Context, loginID, participantName string) (bool, error) {
	_, err := r.GetSurveyID(ctx, loginID, participantName)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetConsent retrieves a consent by survey id.
func (r *Repository) GetConsent(ctx context.Context, surveyID string) (*models.Consent, error) {
	var c models.Consent
	err := r.db.GetContext(ctx, &c, r.rebind(
		`SELECT login_id, participant_name, participant_email, survey_id, date_signed
		 FROM consents WHERE survey_id = ?`), surveyID)
	if err != nil {
		return nil, wrapError(err)
	}
	return &c, nil
}

// GetSurveyID returns the survey id of a participant.
func (r *Repository) GetSurveyID(ctx context.Context, loginID, participantName string) (string, error) {
	var surveyID string
	err := r.db.GetContext(ctx, &surveyID, r.rebind(
		`SELECT survey_id FROM consents WHERE login_id = ? AND participant_name = ?`),
		loginID, strings.TrimSpace(participantName))
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return surveyID, nil
}

// DeleteParticipantConsent removes a participant's consent. Deleting a
// consent that does not exist is not an error.
func (r *Repository) DeleteParticipantConsent(ctx context.Context, loginID, participantName string) error {
	return database.WithTx(ctx, r.db, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, r.rebind(
			`DELETE FROM consents WHERE login_id = ? AND participant_name = ?`),
			loginID, strings.TrimSpace(participantName))
		return err
	})
}
