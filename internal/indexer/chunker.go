package indexer

import (
	"fmt"

	"github.com/google/uuid"

	"rentalsearch-ai/internal/listing"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 50
)

// separators are tried in order; a cut lands right after the last match in the window.
var separators = [][]rune{
	[]rune("\n\n"),
	[]rune("\n"),
	[]rune(". "),
	[]rune(" "),
}

// Chunker splits text into overlapping segments of at most size runes.
// Consecutive segments share exactly overlap runes, so dropping the first
// overlap runes of every segment after the first reconstructs the input.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker creates a chunker. It requires 0 <= overlap < size.
func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", size, overlap)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Size returns the maximum segment length in runes.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the number of runes shared by consecutive segments.
func (c *Chunker) Overlap() int { return c.overlap }

// Split returns the segment texts for text. Empty text yields no segments.
func (c *Chunker) Split(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	var parts []string
	start := 0
	for {
		if len(runes)-start <= c.size {
			parts = append(parts, string(runes[start:]))
			return parts
		}

		end := c.cutPoint(runes, start)
		parts = append(parts, string(runes[start:end]))
		// end > start+overlap, so start always advances.
		start = end - c.overlap
	}
}

// cutPoint picks the end of the segment starting at start. The result is in
// (start+overlap, start+size] so the next segment makes progress.
func (c *Chunker) cutPoint(runes []rune, start int) int {
	lo := start + c.overlap
	hi := start + c.size
	for _, sep := range separators {
		if cut := lastCutAfter(runes, start, lo, hi, sep); cut > 0 {
			return cut
		}
	}
	return hi
}

// lastCutAfter returns the largest cut in (lo, hi] such that runes[cut-len(sep):cut]
// equals sep and the separator starts at or after start, or 0 if none exists.
func lastCutAfter(runes []rune, start, lo, hi int, sep []rune) int {
	for cut := hi; cut > lo; cut-- {
		from := cut - len(sep)
		if from < start {
			return 0
		}
		if matchAt(runes, from, sep) {
			return cut
		}
	}
	return 0
}

func matchAt(runes []rune, at int, sep []rune) bool {
	for i, r := range sep {
		if runes[at+i] != r {
			return false
		}
	}
	return true
}

// ChunkDocuments splits every document and tags each segment with its parent's metadata.
// Segment order follows document order, then position within the document.
func (c *Chunker) ChunkDocuments(docs []listing.Document) []Segment {
	var segments []Segment
	for ordinal, doc := range docs {
		for i, text := range c.Split(doc.Text) {
			segments = append(segments, Segment{
				ID:       segmentID(ordinal, doc.Metadata.ID, i),
				Index:    i,
				Text:     text,
				Metadata: doc.Metadata,
			})
		}
	}
	return segments
}

// segmentID is stable across rebuilds of the same corpus.
func segmentID(ordinal int, listingID string, index int) string {
	name := fmt.Sprintf("%d#%s#%d", ordinal, listingID, index)
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}
