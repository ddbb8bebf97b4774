package rag

import (
	"fmt"
	"strings"

	"rentalsearch-ai/internal/listing"
	"rentalsearch-ai/internal/vectorstore"
)

// Deduplicate keeps the first occurrence of each listing identifier, preserving order.
func Deduplicate(results []vectorstore.Result) []vectorstore.Result {
	seen := make(map[string]bool, len(results))
	unique := make([]vectorstore.Result, 0, len(results))
	for _, r := range results {
		id := r.Entry.Metadata.ID
		if seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, r)
	}
	return unique
}

// FormatContext renders results as numbered listing entries separated by blank lines.
// Each entry keeps the literal "Address:" label that answer consumers scan for.
func FormatContext(results []vectorstore.Result) string {
	entries := make([]string, len(results))
	for i, r := range results {
		m := r.Entry.Metadata
		entries[i] = fmt.Sprintf("%d. Address: %s\n   Type: %s\n   Price: $%s\n   Bedrooms: %s\n   Bathrooms: %s\n",
			i+1,
			listing.TextOrPlaceholder(m.Address),
			listing.TextOrPlaceholder(m.PropertyType),
			listing.NumberOrPlaceholder(m.Price),
			listing.NumberOrPlaceholder(m.Bedrooms),
			listing.NumberOrPlaceholder(m.Bathrooms),
		)
	}
	return strings.Join(entries, "\n\n")
}
