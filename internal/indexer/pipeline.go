package indexer

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_embedder.go -package=mocks rentalsearch-ai/internal/indexer Embedder

import (
	"context"
	"fmt"
	"time"

	"rentalsearch-ai/internal/contextutil"
	"rentalsearch-ai/internal/listing"
	"rentalsearch-ai/internal/vectorstore"
)

// DefaultBatchSize is the number of segment texts sent per embedding request.
const DefaultBatchSize = 100

// Embedder turns texts into vectors, one per input, in input order.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Pipeline chunks listing documents and embeds the segments into index entries.
type Pipeline struct {
	chunker        *Chunker
	embedder       Embedder
	batchSize      int
	embeddingModel string
}

// NewPipeline creates a new indexing pipeline. A non-positive batchSize uses DefaultBatchSize.
func NewPipeline(chunker *Chunker, embedder Embedder, batchSize int, embeddingModel string) *Pipeline {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Pipeline{
		chunker:        chunker,
		embedder:       embedder,
		batchSize:      batchSize,
		embeddingModel: embeddingModel,
	}
}

// Run chunks docs and embeds every segment. Either every segment gets a vector
// or an error is returned and no entries are produced.
func (p *Pipeline) Run(ctx context.Context, docs []listing.Document) ([]vectorstore.Entry, *BuildStats, error) {
	logger := contextutil.LoggerFromContext(ctx)
	started := time.Now()

	segments := p.chunker.ChunkDocuments(docs)
	logger.InfoContext(ctx, "chunked documents", "documents", len(docs), "segments", len(segments))

	entries := make([]vectorstore.Entry, 0, len(segments))
	for start := 0; start < len(segments); start += p.batchSize {
		// Check for context cancellation
		select {
		case <-ctx.Done():
			return nil, nil, ctx.Err()
		default:
		}

		end := min(start+p.batchSize, len(segments))
		texts := make([]string, end-start)
		for i, s := range segments[start:end] {
			texts[i] = s.Text
		}

		vectors, err := p.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			logger.ErrorContext(ctx, "failed to embed batch", "from", start, "to", end, "error", err)
			return nil, nil, fmt.Errorf("failed to embed segments %d-%d: %w", start, end, err)
		}
		if len(vectors) != len(texts) {
			return nil, nil, fmt.Errorf("embedding count mismatch: expected %d, got %d", len(texts), len(vectors))
		}

		for i, s := range segments[start:end] {
			entries = append(entries, vectorstore.Entry{
				ID:       s.ID,
				Text:     s.Text,
				Metadata: s.Metadata,
				Vector:   vectors[i],
			})
		}
		logger.DebugContext(ctx, "embedded batch", "from", start, "to", end)
	}

	stats := ComputeBuildStats(docs, segments, p.chunker, p.embeddingModel)
	stats.Duration = time.Since(started)

	logger.InfoContext(ctx, "embedded segments", "entries", len(entries), "index_version", stats.IndexVersion)
	return entries, stats, nil
}
