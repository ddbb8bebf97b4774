package indexer

import "rentalsearch-ai/internal/listing"

// Segment is a contiguous piece of a listing document's text.
type Segment struct {
	ID       string           // Deterministic per (document ordinal, listing ID, segment index)
	Index    int              // Segment index within the document (starts at 0)
	Text     string           // Segment text content
	Metadata listing.Metadata // Copied unchanged from the parent document
}
