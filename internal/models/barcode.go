// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// KitBarcode is a barcode linked to a kit, with the sample logged against it.
type KitBarcode struct { //nolint:govet // fieldalignment: readability over optimization
	KitBarcodeID       string     `db:"kit_barcode_id" json:"kit_barcode_id"`
	KitID              string     `db:"kit_id" json:"kit_id"`
	Barcode            string     `db:"barcode" json:"barcode"`
	Status             *string    `db:"status" json:"status"`
	ParticipantName    *string    `db:"participant_name" json:"participant_name"`
	SiteSampled        *string    `db:"site_sampled" json:"site_sampled"`
	EnvironmentSampled *string    `db:"environment_sampled" json:"environment_sampled"`
	SampleDate         *time.Time `db:"sample_date" json:"sample_date"`
	SampleTime         *string    `db:"sample_time" json:"sample_time"`
	Notes              *string    `db:"notes" json:"notes"`
}

// Logged reports whether a sample has been logged against the barcode.
func (b *KitBarcode) Logged() bool {
	return b.SiteSampled != nil || b.EnvironmentSampled != nil
}

// SampleLog is the information recorded when a participant logs a sample.
// Exactly one of SiteSampled and EnvironmentSampled is expected.
type SampleLog struct {
	ParticipantName    string
	SiteSampled        string
	EnvironmentSampled string
	SampleDate         time.Time
	SampleTime         string // HH:MM
	Notes              string
}
