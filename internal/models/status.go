// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

const (
	// StatusSubmitted is shown for barcodes without a stored status.
	StatusSubmitted = "Submitted"
	// StatusReceived is the stored status of samples that reached the lab.
	StatusReceived = "Received"

	ColorHighlight = "#AFA"
	ColorNeutral   = "#FFF"
)

// StatusDisplay is how a stored barcode status is presented.
type StatusDisplay struct {
	Label       string
	Highlighted bool
	Color       string
}

// DisplayStatus maps a stored status to its display: NULL shows as
// "Submitted", "Received" is highlighted, anything else is neutral.
func DisplayStatus(status *string) StatusDisplay {
	switch {
	case status == nil:
		return StatusDisplay{Label: StatusSubmitted, Color: ColorNeutral}
	case *status == StatusReceived:
		return StatusDisplay{Label: *status, Highlighted: true, Color: ColorHighlight}
	default:
		return StatusDisplay{Label: *status, Color: ColorNeutral}
	}
}

// SampleOrigin prefers the body site and falls back to the environment.
// Both missing yields "".
func SampleOrigin(siteSampled, environmentSampled *string) string {
	if siteSampled != nil {
		return *siteSampled
	}
	if environmentSampled != nil {
		return *environmentSampled
	}
	return ""
}

// SampleOverview is the composite view of a single barcode.
type SampleOverview struct { //nolint:govet // fieldalignment: readability over optimization
	Barcode    string
	KitID      string
	Status     StatusDisplay
	Origin     string
	SampleDate *time.Time
	SampleTime string
	Notes      string
}

// Marker colors for the public map.
const (
	MarkerReceived   = "00FF00"
	MarkerVerified   = "FFFF00"
	MarkerRegistered = "FF0000"
)

// MapMarker is an approximate participant location for public display.
type MapMarker struct {
	Latitude  float64 `db:"latitude" json:"latitude"`
	Longitude float64 `db:"longitude" json:"longitude"`
	Color     string  `db:"color" json:"color"`
}
