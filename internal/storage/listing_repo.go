package storage

import (
	"context"
	"database/sql"
	"fmt"

	"rentalsearch-ai/internal/contextutil"
	"rentalsearch-ai/internal/listing"
)

const listingColumns = "seq, listing_id, formatted_address, property_type, price, bedrooms, bathrooms, city, state, status"

// ListingRepo stores the rental corpus in SQLite and serves it as a corpus source.
type ListingRepo struct {
	db   *sql.DB
	name string
}

// NewListingRepo creates a new ListingRepo. name identifies the database in load errors.
func NewListingRepo(db *sql.DB, name string) *ListingRepo {
	return &ListingRepo{db: db, name: name}
}

func (r *ListingRepo) String() string {
	return "sqlite:" + r.name
}

// ReplaceAll swaps the stored corpus for records in one transaction.
func (r *ListingRepo) ReplaceAll(ctx context.Context, records []listing.Record) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, "DELETE FROM listings"); err != nil {
		return fmt.Errorf("failed to clear listings: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO listings (listing_id, formatted_address, property_type, price, bedrooms, bathrooms, city, state, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	for i, rec := range records {
		_, err := stmt.ExecContext(ctx,
			rec.ID, rec.FormattedAddress, rec.PropertyType,
			nullFloat(rec.Price), nullFloat(rec.Bedrooms), nullFloat(rec.Bathrooms),
			rec.City, rec.State, rec.Status,
		)
		if err != nil {
			return fmt.Errorf("failed to insert listing %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit listings: %w", err)
	}
	return nil
}

// ListAll returns every stored listing in import order.
func (r *ListingRepo) ListAll(ctx context.Context) ([]ListingRecord, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+listingColumns+" FROM listings ORDER BY seq")
	if err != nil {
		return nil, fmt.Errorf("failed to query listings: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	records := []ListingRecord{}
	for rows.Next() {
		rec, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return records, nil
}

// Count returns the number of stored listings.
func (r *ListingRepo) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM listings").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count listings: %w", err)
	}
	return count, nil
}

// Load returns the stored corpus as listing records.
func (r *ListingRepo) Load(ctx context.Context) ([]listing.Record, error) {
	rows, err := r.ListAll(ctx)
	if err != nil {
		return nil, &listing.LoadError{Source: r.String(), Err: err}
	}

	records := make([]listing.Record, len(rows))
	for i, row := range rows {
		records[i] = row.Record
	}

	contextutil.LoggerFromContext(ctx).InfoContext(ctx, "loaded listings from database", "source", r.String(), "count", len(records))
	return records, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanListing(s scanner) (ListingRecord, error) {
	var rec ListingRecord
	var price, bedrooms, bathrooms sql.NullFloat64
	err := s.Scan(&rec.Seq, &rec.ID, &rec.FormattedAddress, &rec.PropertyType,
		&price, &bedrooms, &bathrooms, &rec.City, &rec.State, &rec.Status)
	if err != nil {
		return rec, fmt.Errorf("failed to scan listing: %w", err)
	}
	rec.Price = floatPtr(price)
	rec.Bedrooms = floatPtr(bedrooms)
	rec.Bathrooms = floatPtr(bathrooms)
	return rec, nil
}
