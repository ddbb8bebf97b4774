package indexer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"sort"
	"time"
	"unicode/utf8"

	"rentalsearch-ai/internal/listing"
)

// ChunkerVersion is the version identifier for the chunker implementation.
// Update this when chunking logic changes significantly.
const ChunkerVersion = "v2.0"

// BuildStats describes one index build.
type BuildStats struct {
	// Documents is the number of listing documents chunked.
	Documents int `json:"documents"`
	// DocsWith0Segments is the number of documents that produced no segments.
	DocsWith0Segments int `json:"docs_with_0_segments"`
	// Segments is the number of segments embedded into the index.
	Segments int `json:"segments"`
	// SegmentRuneStats summarizes segment lengths in runes.
	SegmentRuneStats SegmentRuneStats `json:"segment_rune_stats"`
	// ChunkerVersion is the version of the chunker used.
	ChunkerVersion string `json:"chunker_version"`
	// IndexVersion is a hash identifying the build parameters (chunker + embedding model + params).
	IndexVersion string `json:"index_version"`
	// Duration is the wall time spent chunking and embedding.
	Duration time.Duration `json:"duration_ns"`
}

// SegmentRuneStats contains statistics about segment lengths.
type SegmentRuneStats struct {
	Min  int     `json:"min"`
	Max  int     `json:"max"`
	Mean float64 `json:"mean"`
	P95  int     `json:"p95"`
}

// ComputeBuildStats derives build statistics from the chunked corpus.
func ComputeBuildStats(docs []listing.Document, segments []Segment, chunker *Chunker, embeddingModel string) *BuildStats {
	stats := &BuildStats{
		Documents:      len(docs),
		Segments:       len(segments),
		ChunkerVersion: ChunkerVersion,
		IndexVersion:   IndexVersion(chunker.Size(), chunker.Overlap(), embeddingModel),
	}

	for _, doc := range docs {
		if doc.Text == "" {
			stats.DocsWith0Segments++
		}
	}

	lengths := make([]int, len(segments))
	for i, s := range segments {
		lengths[i] = utf8.RuneCountInString(s.Text)
	}
	stats.SegmentRuneStats = computeRuneStats(lengths)

	return stats
}

// IndexVersion hashes chunker_version + embedding_model + chunking params into 16 hex chars.
func IndexVersion(chunkSize, chunkOverlap int, embeddingModel string) string {
	input := fmt.Sprintf("%s|%s|chunkSize=%d|chunkOverlap=%d",
		ChunkerVersion, embeddingModel, chunkSize, chunkOverlap)
	hash := sha256.Sum256([]byte(input))
	return hex.EncodeToString(hash[:])[:16]
}

// computeRuneStats computes min, max, mean, and p95 from segment lengths.
func computeRuneStats(lengths []int) SegmentRuneStats {
	if len(lengths) == 0 {
		return SegmentRuneStats{}
	}

	sorted := make([]int, len(lengths))
	copy(sorted, lengths)
	sort.Ints(sorted)

	sum := 0
	for _, n := range lengths {
		sum += n
	}
	mean := float64(sum) / float64(len(lengths))

	p95Index := int(math.Ceil(float64(len(sorted)) * 0.95))
	if p95Index >= len(sorted) {
		p95Index = len(sorted) - 1
	}

	return SegmentRuneStats{
		Min:  sorted[0],
		Max:  sorted[len(sorted)-1],
		Mean: math.Round(mean*100) / 100, // Round to 2 decimal places
		P95:  sorted[p95Index],
	}
}
