package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rentalsearch-ai/internal/app"
	"rentalsearch-ai/internal/config"
	"rentalsearch-ai/internal/http"
)

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	ctx := context.Background()

	application, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize rental search pipeline: %v", err)
	}
	defer func() {
		_ = application.Close()
	}()
	slog.Info("Rental search pipeline initialized",
		"llm_model", cfg.LLMModelName,
		"embedding_model", cfg.EmbeddingModelName,
		"vector_store", cfg.VectorStore,
	)

	router := http.NewRouter(&http.Deps{
		Assistant: application.Assistant,
		Pipeline:  application.Engine,
	})

	// Warm the index in background; queries arriving first join the same build
	go func() {
		start := time.Now()
		slog.Info("Starting background index build")
		if err := application.Engine.Build(ctx); err != nil {
			slog.Error("Background index build failed, the next query will retry", "error", err)
			return
		}
		attrs := []any{"duration", time.Since(start)}
		if stats := application.Engine.Stats(); stats != nil {
			attrs = append(attrs, "documents", stats.Documents, "segments", stats.Segments, "index_version", stats.IndexVersion)
		}
		slog.Info("Index build completed", attrs...)
	}()

	server := &nethttp.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Starting API server", "addr", server.Addr)
		slog.Debug("LLM configuration", "base_url", cfg.LLMBaseURL, "model", cfg.LLMModelName, "timeout", cfg.LLMTimeout)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			log.Fatalf("API server failed to start: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	slog.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("API server shutdown error", "error", err)
	}
	slog.Info("Server stopped gracefully")
}
