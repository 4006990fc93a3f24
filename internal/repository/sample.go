// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"math"

	"codeberg.org/oliverandrich/sampletrack/internal/models"
)

// GetMapMarkers returns one marker per located login. The color reflects how
// far the login got: a received sample, a verified kit, or registration only.
// Coordinates are rounded to two decimals.
func (r *Repository) GetMapMarkers(ctx context.Context) ([]models.MapMarker, error) {
	markers := []models.MapMarker{}
	err := r.db.SelectContext(ctx, &markers, r.rebind(
		`SELECT l.latitude, l.longitude,
		        CASE
		          WHEN EXISTS (
		            SELECT 1 FROM kit_barcodes kb
		            JOIN kits k ON k.kit_id = kb.kit_id
		            JOIN barcodes b ON b.barcode = kb.barcode
		            WHERE k.login_id = l.login_id AND b.status = ?) THEN ?
		          WHEN EXISTS (
		            SELECT 1 FROM kits k
		            WHERE k.login_id = l.login_id AND k.kit_verified = ?) THEN ?
		          ELSE ?
		        END AS color
		 FROM logins l
		 WHERE l.latitude IS NOT NULL AND l.longitude IS NOT NULL
		 ORDER BY l.created_at, l.login_id`),
		models.StatusReceived, models.MarkerReceived,
		models.FlagYes, models.MarkerVerified,
		models.MarkerRegistered)
	if err != nil {
		return nil, err
	}

	for i := range markers {
		markers[i].Latitude = round2(markers[i].Latitude)
		markers[i].Longitude = round2(markers[i].Longitude)
	}
	return markers, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
