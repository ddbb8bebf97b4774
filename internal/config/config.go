package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"rentalsearch-ai/internal/rag"
)

// Config holds all configuration for the application.
type Config struct {
	LLMBaseURL     string
	LLMAPIKey      string
	LLMModelName   string
	LLMMaxTokens   int
	LLMTemperature float32
	LLMTimeout     time.Duration

	EmbeddingBaseURL    string
	EmbeddingModelName  string
	EmbeddingVectorSize int
	EmbeddingBatchSize  int
	EmbeddingRateLimit  float64 // requests per second, 0 disables throttling

	CorpusPath   string
	CorpusDBPath string // SQLite listings database, takes precedence over CorpusPath

	ChunkSize      int
	ChunkOverlap   int
	RetrievalK     int
	QueryCacheSize int
	PromptTemplate string

	VectorStore      string
	QdrantURL        string
	QdrantCollection string

	APIPort   string
	LogLevel  slog.Level
	LogFormat string
}

// PipelineFile is the optional YAML overlay named by RAG_CONFIG_FILE.
// Environment variables take precedence over its values.
type PipelineFile struct {
	Pipeline struct {
		ChunkSize      *int     `yaml:"chunk_size"`
		ChunkOverlap   *int     `yaml:"chunk_overlap"`
		K              *int     `yaml:"k"`
		MaxTokens      *int     `yaml:"max_tokens"`
		Temperature    *float32 `yaml:"temperature"`
		PromptTemplate string   `yaml:"prompt_template"`
	} `yaml:"pipeline"`
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates required fields.
// If a .env file exists in the current directory or project root, it will be loaded automatically.
// Environment variables already set take precedence over .env file values.
func Load() (*Config, error) {
	loadDotEnv()

	file, err := loadPipelineFile(getEnv("RAG_CONFIG_FILE", ""))
	if err != nil {
		return nil, err
	}
	p := file.Pipeline

	llmBaseURL := strings.TrimRight(getEnv("LLM_BASE_URL", "https://api.openai.com"), "/")

	cfg := &Config{
		LLMBaseURL:       llmBaseURL,
		LLMAPIKey:        getEnv("LLM_API_KEY", os.Getenv("OPENAI_API_KEY")),
		LLMModelName:     getEnv("LLM_MODEL", "gpt-3.5-turbo"),
		EmbeddingBaseURL: strings.TrimRight(getEnv("EMBEDDING_BASE_URL", llmBaseURL), "/"),
		// text-embedding-ada-002 returns 1536-dimensional vectors; keep EMBEDDING_VECTOR_SIZE in sync when changing models.
		EmbeddingModelName: getEnv("EMBEDDING_MODEL_NAME", "text-embedding-ada-002"),
		CorpusPath:         getEnv("CORPUS_PATH", "./data/cleaned_rental_listings.json"),
		CorpusDBPath:       getEnv("CORPUS_DB_PATH", ""),
		PromptTemplate:     getEnv("PROMPT_TEMPLATE", p.PromptTemplate),
		VectorStore:        strings.ToLower(getEnv("VECTOR_STORE", "memory")),
		QdrantURL:          getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantCollection:   getEnv("QDRANT_COLLECTION", "rentals"),
		APIPort:            getEnv("API_PORT", "9000"),
		LogFormat:          strings.ToLower(getEnv("LOG_FORMAT", "text")),
	}

	var errs []error
	intVar := func(dst *int, key string, def int) {
		v, err := getEnvInt(key, def)
		errs = append(errs, err)
		*dst = v
	}

	intVar(&cfg.LLMMaxTokens, "LLM_MAX_TOKENS", orDefault(p.MaxTokens, rag.DefaultMaxTokens))
	intVar(&cfg.EmbeddingVectorSize, "EMBEDDING_VECTOR_SIZE", 1536)
	intVar(&cfg.EmbeddingBatchSize, "EMBEDDING_BATCH_SIZE", 100)
	intVar(&cfg.ChunkSize, "CHUNK_SIZE", orDefault(p.ChunkSize, 1000))
	intVar(&cfg.ChunkOverlap, "CHUNK_OVERLAP", orDefault(p.ChunkOverlap, 50))
	intVar(&cfg.RetrievalK, "RETRIEVAL_K", orDefault(p.K, rag.DefaultK))
	intVar(&cfg.QueryCacheSize, "QUERY_CACHE_SIZE", rag.DefaultQueryCacheSize)

	temperature, err := getEnvFloat("LLM_TEMPERATURE", float64(orDefault(p.Temperature, 0)))
	errs = append(errs, err)
	cfg.LLMTemperature = float32(temperature)

	cfg.EmbeddingRateLimit, err = getEnvFloat("EMBEDDING_RATE_LIMIT", 0)
	errs = append(errs, err)

	cfg.LLMTimeout, err = getEnvDuration("LLM_TIMEOUT", rag.DefaultTimeout)
	errs = append(errs, err)

	if err := cfg.LogLevel.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	// Create the directory for the SQLite corpus if one is configured
	if cfg.CorpusDBPath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.CorpusDBPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.LLMAPIKey == "" && !isLocalURL(c.LLMBaseURL) {
		return fmt.Errorf("LLM_API_KEY (or OPENAI_API_KEY) is required for %s", c.LLMBaseURL)
	}
	if c.LLMMaxTokens <= 0 {
		return fmt.Errorf("LLM_MAX_TOKENS must be greater than 0")
	}
	if c.LLMTemperature < 0 || c.LLMTemperature > 2 {
		return fmt.Errorf("LLM_TEMPERATURE must be between 0 and 2")
	}
	if c.LLMTimeout <= 0 {
		return fmt.Errorf("LLM_TIMEOUT must be greater than 0")
	}
	if c.EmbeddingVectorSize <= 0 {
		return fmt.Errorf("EMBEDDING_VECTOR_SIZE must be greater than 0")
	}
	if c.EmbeddingBatchSize <= 0 {
		return fmt.Errorf("EMBEDDING_BATCH_SIZE must be greater than 0")
	}
	if c.EmbeddingRateLimit < 0 {
		return fmt.Errorf("EMBEDDING_RATE_LIMIT must not be negative")
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("CHUNK_SIZE must be greater than 0")
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("CHUNK_OVERLAP must be in [0, CHUNK_SIZE)")
	}
	if c.RetrievalK <= 0 {
		return fmt.Errorf("RETRIEVAL_K must be greater than 0")
	}
	if c.PromptTemplate != "" {
		if err := rag.ValidatePromptTemplate(c.PromptTemplate); err != nil {
			return fmt.Errorf("prompt template: %w", err)
		}
	}
	if c.CorpusPath == "" && c.CorpusDBPath == "" {
		return fmt.Errorf("CORPUS_PATH or CORPUS_DB_PATH is required")
	}
	switch c.VectorStore {
	case "memory":
	case "qdrant":
		if c.QdrantCollection == "" {
			return fmt.Errorf("QDRANT_COLLECTION is required when VECTOR_STORE=qdrant")
		}
	default:
		return fmt.Errorf("VECTOR_STORE must be memory or qdrant, got %q", c.VectorStore)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	return nil
}

// loadDotEnv loads .env from the current directory, then the first one found walking up.
func loadDotEnv() {
	_ = godotenv.Load() // Try current directory

	wd, err := os.Getwd()
	if err != nil {
		return
	}
	dir := wd
	for i := 0; i < 5; i++ { // Limit search depth
		envPath := filepath.Join(dir, ".env")
		if _, err := os.Stat(envPath); err == nil {
			_ = godotenv.Load(envPath)
			return
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return // Reached filesystem root
		}
		dir = parent
	}
}

// loadPipelineFile reads the YAML overlay. An empty path yields an empty overlay.
func loadPipelineFile(path string) (*PipelineFile, error) {
	var file PipelineFile
	if path == "" {
		return &file, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return &file, nil
}

// isLocalURL reports whether rawURL points at a loopback host, where no API key is needed.
func isLocalURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	switch u.Hostname() {
	case "localhost", "127.0.0.1", "::1", "0.0.0.0":
		return true
	}
	return false
}

func orDefault[T any](v *T, def T) T {
	if v != nil {
		return *v
	}
	return def
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	return n, nil
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid number: %w", key, err)
	}
	return f, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid duration: %w", key, err)
	}
	return d, nil
}
