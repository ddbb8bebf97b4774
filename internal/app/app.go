// Package app wires configuration into a ready-to-use rental search pipeline.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"rentalsearch-ai/internal/config"
	"rentalsearch-ai/internal/contextutil"
	"rentalsearch-ai/internal/listing"
	"rentalsearch-ai/internal/llm"
	"rentalsearch-ai/internal/rag"
	"rentalsearch-ai/internal/service"
	"rentalsearch-ai/internal/storage"
	"rentalsearch-ai/internal/vectorstore"
)

// embeddingBurst allows a short burst of batches before the rate limit applies.
const embeddingBurst = 2

// App holds the long-lived components built from a Config.
type App struct {
	Engine    rag.Engine
	Assistant service.AssistantService

	closers []func() error
}

// New builds the corpus source, providers, vector index and engine described by cfg.
// Nothing is indexed until the engine is first built or queried.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	logger := contextutil.LoggerFromContext(ctx)
	a := &App{}

	source, err := a.corpusSource(cfg)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	logger.InfoContext(ctx, "corpus source configured", "source", fmt.Sprint(source))

	index, err := a.vectorIndex(cfg)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	logger.InfoContext(ctx, "vector index configured", "store", cfg.VectorStore, "vector_size", cfg.EmbeddingVectorSize)

	embedder := llm.NewEmbeddingsClient(cfg.EmbeddingBaseURL, cfg.LLMAPIKey, cfg.EmbeddingModelName, cfg.EmbeddingVectorSize).
		WithRateLimit(cfg.EmbeddingRateLimit, embeddingBurst)
	completer := llm.NewClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModelName)

	engine, err := rag.NewEngine(rag.Deps{
		Source:    source,
		Embedder:  embedder,
		Completer: completer,
		Index:     index,
	}, Options(cfg))
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	a.Engine = engine
	a.Assistant = service.NewAssistantService(engine)
	return a, nil
}

// Options maps configuration onto engine options.
func Options(cfg *config.Config) rag.Options {
	return rag.Options{
		ChunkSize:      cfg.ChunkSize,
		ChunkOverlap:   cfg.ChunkOverlap,
		BatchSize:      cfg.EmbeddingBatchSize,
		EmbeddingModel: cfg.EmbeddingModelName,
		K:              cfg.RetrievalK,
		QueryCacheSize: cfg.QueryCacheSize,
		MaxTokens:      cfg.LLMMaxTokens,
		Temperature:    cfg.LLMTemperature,
		Timeout:        cfg.LLMTimeout,
		PromptTemplate: cfg.PromptTemplate,
	}
}

// Close releases database and index connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) corpusSource(cfg *config.Config) (rag.CorpusSource, error) {
	if cfg.CorpusDBPath == "" {
		return listing.NewFileSource(cfg.CorpusPath), nil
	}

	db, err := OpenListingsDB(cfg.CorpusDBPath)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, db.Close)
	return storage.NewListingRepo(db, cfg.CorpusDBPath), nil
}

func (a *App) vectorIndex(cfg *config.Config) (vectorstore.Index, error) {
	if cfg.VectorStore != "qdrant" {
		return vectorstore.NewMemoryIndex(), nil
	}

	index, err := vectorstore.NewQdrantIndex(cfg.QdrantURL, cfg.QdrantCollection, cfg.EmbeddingVectorSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create Qdrant index: %w", err)
	}
	a.closers = append(a.closers, index.Close)
	return index, nil
}

// OpenListingsDB opens the SQLite listings database and applies migrations.
func OpenListingsDB(path string) (*sql.DB, error) {
	db, err := storage.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := storage.Migrate(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}
