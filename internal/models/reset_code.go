// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// PassResetCode is the latest password reset code issued for a kit.
type PassResetCode struct { //nolint:govet // fieldalignment: readability over optimization
	KitID      string     `db:"kit_id" json:"kit_id"`
	Email      string     `db:"email" json:"email"`
	Code       string     `db:"code" json:"-"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	ConsumedAt *time.Time `db:"consumed_at" json:"consumed_at,omitempty"`
}

// ValidAt reports whether the code is unconsumed and inside the validity window at now.
func (c *PassResetCode) ValidAt(now time.Time, window time.Duration) bool {
	if c.ConsumedAt != nil {
		return false
	}
	age := now.Sub(c.CreatedAt)
	return age >= 0 && age <= window
}
