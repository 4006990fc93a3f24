// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package database

import (
	"context"

	"github.com/vinovest/sqlx"
)

// Record is a single result row keyed by column name.
type Record map[string]any

// String returns the column as a string, or "" when it is NULL or not text.
func (r Record) String(column string) string {
	s, _ := r[column].(string)
	return s
}

// NullableString returns the column value, or nil when it is NULL.
func (r Record) NullableString(column string) *string {
	s, ok := r[column].(string)
	if !ok {
		return nil
	}
	return &s
}

// MapRows converts every remaining row into a Record using the column names
// reported by the cursor. The rows are closed on return.
func MapRows(rows *sqlx.Rows) ([]Record, error) {
	defer func() { _ = rows.Close() }()

	var records []Record
	for rows.Next() {
		rec := Record{}
		if err := rows.MapScan(rec); err != nil {
			return nil, err
		}
		normalize(rec)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// MapRow runs query and maps the first row. A query without rows yields an
// empty, non-nil Record.
func MapRow(ctx context.Context, q sqlx.QueryerContext, query string, args ...any) (Record, error) {
	rows, err := q.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	records, err := MapRows(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return Record{}, nil
	}
	return records[0], nil
}

// normalize turns driver byte slices into strings so callers see the same
// types regardless of driver.
func normalize(rec Record) {
	for k, v := range rec {
		if b, ok := v.([]byte); ok {
			rec[k] = string(b)
		}
	}
}
