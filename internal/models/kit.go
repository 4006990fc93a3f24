// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// Flag values used by the y/n text columns.
const (
	FlagYes = "y"
	FlagNo  = "n"
)

// Kit is a sampling kit owned by one login.
type Kit struct { //nolint:govet // fieldalignment: readability over optimization
	KitID                 string    `db:"kit_id" json:"kit_id"`
	LoginID               string    `db:"login_id" json:"login_id"`
	SuppliedKitID         string    `db:"supplied_kit_id" json:"supplied_kit_id"`
	SwabsPerKit           int       `db:"swabs_per_kit" json:"swabs_per_kit"`
	KitPassword           string    `db:"kit_password" json:"-"` // bcrypt hash
	KitVerificationCode   string    `db:"kit_verification_code" json:"-"`
	VerificationEmailSent string    `db:"verification_email_sent" json:"verification_email_sent"`
	KitVerified           string    `db:"kit_verified" json:"kit_verified"`
	CreatedAt             time.Time `db:"created_at" json:"created_at"`
}

// IsVerified reports whether the kit verification code has been confirmed.
func (k *Kit) IsVerified() bool {
	return k.KitVerified == FlagYes
}

// NewKit holds the fields for creating a kit together with its barcodes.
type NewKit struct {
	SuppliedKitID    string
	Password         string // plaintext, hashed before storage
	VerificationCode string
	SwabsPerKit      int
	Barcodes         []string
}

// HandoutKit is a kit printed and handed out before anyone registered it.
type HandoutKit struct {
	SuppliedKitID    string
	Password         string // plaintext, hashed before storage
	VerificationCode string
	SwabsPerKit      int
	Barcodes         []string
}
