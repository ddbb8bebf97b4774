package rag

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"rentalsearch-ai/internal/contextutil"
	"rentalsearch-ai/internal/indexer"
	"rentalsearch-ai/internal/listing"
	"rentalsearch-ai/internal/vectorstore"
)

// Engine answers rental search queries over a lazily built listing index.
type Engine interface {
	// Build loads the corpus and builds the index. It is a no-op once the engine is ready.
	// Concurrent callers share a single build.
	Build(ctx context.Context) error
	// Answer builds the index if needed, retrieves matching listings and generates an answer.
	Answer(ctx context.Context, query string) (string, error)
	// Status reports the lifecycle state.
	Status() Status
	// Stats returns the statistics of the last successful build, or nil.
	Stats() *indexer.BuildStats
	// Count returns the number of indexed segments.
	Count(ctx context.Context) (int, error)
}

// Deps are the external collaborators of the engine.
type Deps struct {
	Source    CorpusSource
	Embedder  Embedder
	Completer Completer
	Index     vectorstore.Index
}

// ragEngine implements the Engine interface.
type ragEngine struct {
	source    CorpusSource
	index     vectorstore.Index
	pipeline  *indexer.Pipeline
	retriever *Retriever
	generator *Generator
	k         int

	build singleflight.Group

	mu     sync.RWMutex
	status Status
	stats  *indexer.BuildStats
}

// NewEngine creates a new engine in the uninitialized state.
func NewEngine(deps Deps, opts Options) (Engine, error) {
	if deps.Source == nil || deps.Embedder == nil || deps.Completer == nil || deps.Index == nil {
		return nil, fmt.Errorf("engine requires a corpus source, embedder, completer and index")
	}
	opts = opts.withDefaults()

	chunker, err := indexer.NewChunker(opts.ChunkSize, opts.ChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("failed to create chunker: %w", err)
	}

	retriever, err := NewRetriever(deps.Embedder, deps.Index, opts.QueryCacheSize)
	if err != nil {
		return nil, err
	}

	generator, err := NewGenerator(deps.Completer, opts.PromptTemplate, opts.MaxTokens, opts.Temperature, opts.Timeout)
	if err != nil {
		return nil, err
	}

	return &ragEngine{
		source:    deps.Source,
		index:     deps.Index,
		pipeline:  indexer.NewPipeline(chunker, deps.Embedder, opts.BatchSize, opts.EmbeddingModel),
		retriever: retriever,
		generator: generator,
		k:         opts.K,
		status:    StatusUninitialized,
	}, nil
}

func (e *ragEngine) Status() Status {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.status
}

func (e *ragEngine) Stats() *indexer.BuildStats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.stats == nil {
		return nil
	}
	stats := *e.stats
	return &stats
}

func (e *ragEngine) Count(ctx context.Context) (int, error) {
	return e.index.Count(ctx)
}

// Build runs the shared build on a context detached from the caller's cancellation.
// A caller that gives up returns its context error while the build carries on.
func (e *ragEngine) Build(ctx context.Context) error {
	if e.Status() == StatusReady {
		return nil
	}

	buildCtx := context.WithoutCancel(ctx)
	ch := e.build.DoChan("build", func() (any, error) {
		return nil, e.runBuild(buildCtx)
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *ragEngine) runBuild(ctx context.Context) error {
	logger := contextutil.LoggerFromContext(ctx)

	// A build that finished between the status check and joining the group.
	if e.Status() == StatusReady {
		return nil
	}

	logger.InfoContext(ctx, "building listing index")

	records, err := e.source.Load(ctx)
	if err != nil {
		var loadErr *listing.LoadError
		if !errors.As(err, &loadErr) {
			err = &listing.LoadError{Source: sourceName(e.source), Err: err}
		}
		logger.ErrorContext(ctx, "failed to load corpus", "error", err)
		return err
	}

	docs := listing.NewDocuments(records)
	entries, stats, err := e.pipeline.Run(ctx, docs)
	if err != nil {
		return &EmbeddingError{Op: "build", Err: err}
	}

	if err := e.index.Build(ctx, entries); err != nil {
		logger.ErrorContext(ctx, "failed to build index", "error", err)
		return fmt.Errorf("failed to build index: %w", err)
	}

	e.mu.Lock()
	e.status = StatusReady
	e.stats = stats
	e.mu.Unlock()

	logger.InfoContext(ctx, "listing index ready",
		"listings", len(records),
		"segments", len(entries),
		"index_version", stats.IndexVersion,
		"duration", stats.Duration,
	)
	return nil
}

func (e *ragEngine) Answer(ctx context.Context, query string) (string, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if err := e.Build(ctx); err != nil {
		return "", &IndexNotReadyError{Cause: err}
	}

	logger.InfoContext(ctx, "rental query started", "query_length", len(query), "k", e.k)

	results, err := e.retriever.Retrieve(ctx, query, e.k)
	if err != nil {
		return "", err
	}

	unique := Deduplicate(results)
	contextText := FormatContext(unique)
	logger.InfoContext(ctx, "context formatted", "retrieved", len(results), "listings", len(unique))

	return e.generator.Generate(ctx, query, contextText)
}

func sourceName(src CorpusSource) string {
	if s, ok := src.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", src)
}
