package listing

import (
	"fmt"
	"strconv"
	"strings"
)

// Placeholder is rendered in place of any missing listing field.
const Placeholder = "N/A"

// Record is a raw rental listing as it appears in the corpus.
// Field names follow the cleaned listings dataset.
type Record struct {
	ID               string   `json:"id,omitempty"`
	FormattedAddress string   `json:"formattedAddress,omitempty"`
	PropertyType     string   `json:"propertyType,omitempty"`
	Price            *float64 `json:"price,omitempty"`
	Bedrooms         *float64 `json:"bedrooms,omitempty"`
	Bathrooms        *float64 `json:"bathrooms,omitempty"`
	City             string   `json:"city,omitempty"`
	State            string   `json:"state,omitempty"`
	Status           string   `json:"status,omitempty"`
}

// Identifier returns the listing identifier used for deduplication.
// Records without an explicit id fall back to "{address}_{price}", which
// collides for distinct listings sharing both values.
func (r Record) Identifier() string {
	if id := strings.TrimSpace(r.ID); id != "" {
		return id
	}
	return fmt.Sprintf("%s_%s", TextOrPlaceholder(r.FormattedAddress), NumberOrPlaceholder(r.Price))
}

// Metadata is the structured part of a Document carried by every segment.
type Metadata struct {
	ID           string
	Price        *float64
	Bedrooms     *float64
	Bathrooms    *float64
	PropertyType string
	Address      string
}

// Document is a listing rendered as text plus its metadata.
type Document struct {
	Text     string
	Metadata Metadata
}

// NewDocument renders a record into a Document.
func NewDocument(r Record) Document {
	var b strings.Builder
	fmt.Fprintf(&b, "Address: %s\n", TextOrPlaceholder(r.FormattedAddress))
	fmt.Fprintf(&b, "Type: %s\n", TextOrPlaceholder(r.PropertyType))
	fmt.Fprintf(&b, "Price: $%s\n", NumberOrPlaceholder(r.Price))
	fmt.Fprintf(&b, "Bedrooms: %s\n", NumberOrPlaceholder(r.Bedrooms))
	fmt.Fprintf(&b, "Bathrooms: %s\n", NumberOrPlaceholder(r.Bathrooms))
	fmt.Fprintf(&b, "City: %s\n", TextOrPlaceholder(r.City))
	fmt.Fprintf(&b, "State: %s\n", TextOrPlaceholder(r.State))
	fmt.Fprintf(&b, "Status: %s", TextOrPlaceholder(r.Status))

	return Document{
		Text: b.String(),
		Metadata: Metadata{
			ID:           r.Identifier(),
			Price:        r.Price,
			Bedrooms:     r.Bedrooms,
			Bathrooms:    r.Bathrooms,
			PropertyType: r.PropertyType,
			Address:      r.FormattedAddress,
		},
	}
}

// NewDocuments renders one Document per record, preserving order.
func NewDocuments(records []Record) []Document {
	docs := make([]Document, len(records))
	for i, r := range records {
		docs[i] = NewDocument(r)
	}
	return docs
}

// TextOrPlaceholder returns s, or Placeholder when s is blank.
func TextOrPlaceholder(s string) string {
	if strings.TrimSpace(s) == "" {
		return Placeholder
	}
	return s
}

// NumberOrPlaceholder formats v without trailing zeros, or returns Placeholder when v is nil.
func NumberOrPlaceholder(v *float64) string {
	if v == nil {
		return Placeholder
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
