// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// Consent links a participant of a login to the survey they consented to.
type Consent struct { //nolint:govet // fieldalignment: readability over optimization
	LoginID          string    `db:"login_id" json:"login_id"`
	ParticipantName  string    `db:"participant_name" json:"participant_name"`
	ParticipantEmail string    `db:"participant_email" json:"participant_email"`
	SurveyID         string    `db:"survey_id" json:"survey_id"`
	DateSigned       time.Time `db:"date_signed" json:"date_signed"`
}
