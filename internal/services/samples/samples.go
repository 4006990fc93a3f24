// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package samples assembles the per-barcode views shown to participants.
package samples

import (
	"context"
	"time"

	"codeberg.org/oliverandrich/sampletrack/internal/database"
	"codeberg.org/oliverandrich/sampletrack/internal/models"
)

// Store is the persistence the sample views need.
type Store interface {
	GetBarcodeDetails(ctx context.Context, barcode string) (database.Record, error)
	GetMapMarkers(ctx context.Context) ([]models.MapMarker, error)
}

// Service builds sample overviews and map markers.
type Service struct {
	store Store
}

// NewService creates a samples service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Overview returns the composite view of a barcode, or nil when the barcode
// is unknown or not part of this application.
func (s *Service) Overview(ctx context.Context, barcode string) (*models.SampleOverview, error) {
	rec, err := s.store.GetBarcodeDetails(ctx, barcode)
	if err != nil {
		return nil, err
	}
	if len(rec) == 0 {
		return nil, nil
	}

	return &models.SampleOverview{
		Barcode:    rec.String("barcode"),
		KitID:      rec.String("supplied_kit_id"),
		Status:     models.DisplayStatus(rec.NullableString("status")),
		Origin:     models.SampleOrigin(rec.NullableString("site_sampled"), rec.NullableString("environment_sampled")),
		SampleDate: sampleDate(rec["sample_date"]),
		SampleTime: rec.String("sample_time"),
		Notes:      rec.String("notes"),
	}, nil
}

// MapMarkers returns the approximate participant locations for the map.
func (s *Service) MapMarkers(ctx context.Context) ([]models.MapMarker, error) {
	return s.store.GetMapMarkers(ctx)
}

// sampleDate accepts the representations drivers use for DATE columns.
func sampleDate(v any) *time.Time {
	switch d := v.(type) {
	case time.Time:
		return &d
	case string:
		for _, layout := range []string{time.DateOnly, time.RFC3339Nano, "2006-01-02 15:04:05.999999999-07:00", time.DateTime} {
			if t, err := time.Parse(layout, d); err == nil {
				return &t
			}
		}
	}
	return nil
}
