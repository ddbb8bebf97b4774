package rag

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_embedder.go -package=mocks rentalsearch-ai/internal/rag Embedder
//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_completer.go -package=mocks rentalsearch-ai/internal/rag Completer
//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_corpus_source.go -package=mocks rentalsearch-ai/internal/rag CorpusSource

import (
	"context"
	"time"

	"rentalsearch-ai/internal/indexer"
	"rentalsearch-ai/internal/listing"
	"rentalsearch-ai/internal/llm"
)

// Embedder turns texts into vectors.
// This interface is defined from the engine's perspective (consumer-first).
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Completer produces a completion for a single prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string, params llm.ChatParams) (string, error)
}

// CorpusSource yields the listing records the index is built from.
type CorpusSource interface {
	Load(ctx context.Context) ([]listing.Record, error)
}

// Status is the lifecycle state of an Engine.
type Status int

const (
	// StatusUninitialized means no index has been built yet, or the last build failed.
	StatusUninitialized Status = iota
	// StatusReady means the index is built and queries are served.
	StatusReady
)

func (s Status) String() string {
	switch s {
	case StatusReady:
		return "ready"
	default:
		return "uninitialized"
	}
}

const (
	DefaultK              = 30
	DefaultMaxTokens      = 700
	DefaultTimeout        = 60 * time.Second
	DefaultQueryCacheSize = 256
)

// Options tunes the pipeline. Zero values fall back to the defaults.
type Options struct {
	ChunkSize      int
	ChunkOverlap   int
	BatchSize      int
	EmbeddingModel string
	K              int
	QueryCacheSize int // 0 uses the default, negative disables the cache
	MaxTokens      int
	Temperature    float32
	Timeout        time.Duration
	PromptTemplate string
}

func (o Options) withDefaults() Options {
	if o.ChunkSize == 0 {
		o.ChunkSize = indexer.DefaultChunkSize
		if o.ChunkOverlap == 0 {
			o.ChunkOverlap = indexer.DefaultChunkOverlap
		}
	}
	if o.K <= 0 {
		o.K = DefaultK
	}
	if o.QueryCacheSize == 0 {
		o.QueryCacheSize = DefaultQueryCacheSize
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = DefaultMaxTokens
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.PromptTemplate == "" {
		o.PromptTemplate = DefaultPromptTemplate
	}
	return o
}
