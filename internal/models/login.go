// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// Login is a participant account. Email is stored lower-cased and unique.
type Login struct { //nolint:govet // fieldalignment: readability over optimization
	LoginID   string    `db:"login_id" json:"login_id"`
	Email     string    `db:"email" json:"email"`
	Name      string    `db:"name" json:"name"`
	Address   string    `db:"address" json:"address"`
	City      string    `db:"city" json:"city"`
	State     string    `db:"state" json:"state"`
	Zip       string    `db:"zip" json:"zip"`
	Country   string    `db:"country" json:"country"`
	Latitude  *float64  `db:"latitude" json:"latitude,omitempty"`
	Longitude *float64  `db:"longitude" json:"longitude,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// NewLogin holds the registration fields for AddLogin.
type NewLogin struct {
	Email   string
	Name    string
	Address string
	City    string
	State   string
	Zip     string
	Country string
}
