package rag

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"rentalsearch-ai/internal/contextutil"
	"rentalsearch-ai/internal/vectorstore"
)

// Retriever embeds a query and runs a k-nearest-neighbor search against the index.
type Retriever struct {
	embedder Embedder
	index    vectorstore.Index
	cache    *lru.Cache[string, []float32]
}

// NewRetriever creates a retriever. cacheSize > 0 enables an LRU of query embeddings.
func NewRetriever(embedder Embedder, index vectorstore.Index, cacheSize int) (*Retriever, error) {
	r := &Retriever{embedder: embedder, index: index}
	if cacheSize > 0 {
		cache, err := lru.New[string, []float32](cacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create query cache: %w", err)
		}
		r.cache = cache
	}
	return r, nil
}

// Retrieve returns up to k results ordered by descending similarity to query.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]vectorstore.Result, error) {
	logger := contextutil.LoggerFromContext(ctx)

	vector, err := r.embed(ctx, query)
	if err != nil {
		logger.ErrorContext(ctx, "failed to embed query", "error", err)
		return nil, &EmbeddingError{Op: "query", Err: err}
	}

	results, err := r.index.Query(ctx, vector, k)
	if err != nil {
		return nil, fmt.Errorf("failed to query index: %w", err)
	}

	logger.InfoContext(ctx, "retrieval completed", "k", k, "results", len(results))
	if len(results) > 0 {
		logger.DebugContext(ctx, "top result", "score", results[0].Score, "listing_id", results[0].Entry.Metadata.ID)
	}
	return results, nil
}

func (r *Retriever) embed(ctx context.Context, query string) ([]float32, error) {
	if r.cache != nil {
		if v, ok := r.cache.Get(query); ok {
			contextutil.LoggerFromContext(ctx).DebugContext(ctx, "query embedding cache hit")
			return v, nil
		}
	}

	vectors, err := r.embedder.EmbedTexts(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("expected 1 query embedding, got %d", len(vectors))
	}

	if r.cache != nil {
		r.cache.Add(query, vectors[0])
	}
	return vectors[0], nil
}
