package storage

import (
	"database/sql"

	"rentalsearch-ai/internal/listing"
)

// ListingRecord is a stored listing row. Seq preserves import order.
type ListingRecord struct {
	Seq int64
	listing.Record
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
