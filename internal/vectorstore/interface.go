package vectorstore

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_index.go -package=mocks rentalsearch-ai/internal/vectorstore Index

import (
	"context"

	"rentalsearch-ai/internal/listing"
)

// Entry is an indexed segment: its text, the parent listing metadata and its embedding.
type Entry struct {
	ID       string
	Text     string
	Metadata listing.Metadata
	Vector   []float32
}

// Result is an entry returned from a similarity query.
type Result struct {
	Entry Entry
	Score float32
}

// Index stores entries and answers k-nearest-neighbor queries by cosine similarity.
type Index interface {
	// Build replaces the whole index with entries.
	Build(ctx context.Context, entries []Entry) error

	// Query returns up to k entries ordered by descending similarity to vector.
	// Equal scores keep insertion order.
	Query(ctx context.Context, vector []float32, k int) ([]Result, error)

	// Count returns the number of entries in the index.
	Count(ctx context.Context) (int, error)
}
