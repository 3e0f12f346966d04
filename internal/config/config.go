package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Corpus source kinds.
const (
	SourceFile   = "file"
	SourceSQLite = "sqlite"
	SourceQdrant = "qdrant"
)

// Config holds all configuration for the application.
type Config struct {
	APIPort   string
	LogLevel  slog.Level
	LogFormat string

	CorpusSource     string
	CorpusPath       string
	DBPath           string
	QdrantURL        string
	QdrantCollection string
	EmbeddingDim     int
	CorpusTTL        time.Duration

	Retrieval Retrieval
}

// maxTopK is the fixed upper bound on topK. The accepted topK and year ranges
// are part of the API contract and are not tunable.
const maxTopK = 10

// Retrieval holds ranking tuning. It can be overridden by the YAML file named
// in TUNING_FILE.
type Retrieval struct {
	Lambda      float64 `yaml:"lambda"`
	DefaultTopK int     `yaml:"default_top_k"`
}

// tuningFile is the on-disk layout of TUNING_FILE.
type tuningFile struct {
	Retrieval Retrieval `yaml:"retrieval"`
	Corpus    struct {
		CacheTTL string `yaml:"cache_ttl"`
	} `yaml:"corpus"`
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates the result.
// If a .env file exists in the current directory or project root, it will be loaded automatically.
// Environment variables already set take precedence over .env file values.
func Load() (*Config, error) {
	loadDotEnv()

	cfg := &Config{
		APIPort:          getEnv("API_PORT", "9000"),
		LogFormat:        strings.ToLower(getEnv("LOG_FORMAT", "text")),
		CorpusSource:     strings.ToLower(getEnv("CORPUS_SOURCE", SourceFile)),
		CorpusPath:       getEnv("CORPUS_PATH", "./data/papers.json"),
		DBPath:           getEnv("DB_PATH", "./data/corpus.db"),
		QdrantURL:        getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantCollection: getEnv("QDRANT_COLLECTION", "papers"),
		Retrieval: Retrieval{
			DefaultTopK: 5,
		},
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("LOG_LEVEL is invalid: %w", err)
	}

	dim, err := strconv.Atoi(getEnv("EMBEDDING_DIM", "384"))
	if err != nil {
		return nil, fmt.Errorf("EMBEDDING_DIM must be a valid integer: %w", err)
	}
	cfg.EmbeddingDim = dim

	cfg.CorpusTTL, err = time.ParseDuration(getEnv("CORPUS_TTL", "5m"))
	if err != nil {
		return nil, fmt.Errorf("CORPUS_TTL must be a duration: %w", err)
	}

	cfg.Retrieval.Lambda, err = strconv.ParseFloat(getEnv("MMR_LAMBDA", "0.3"), 64)
	if err != nil {
		return nil, fmt.Errorf("MMR_LAMBDA must be a number: %w", err)
	}

	if path := getEnv("TUNING_FILE", ""); path != "" {
		if err := cfg.ApplyTuningFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks field ranges and cross-field constraints.
func (c *Config) Validate() error {
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}

	switch c.CorpusSource {
	case SourceFile:
		if c.CorpusPath == "" {
			return fmt.Errorf("CORPUS_PATH is required for the file source")
		}
	case SourceSQLite:
		if c.DBPath == "" {
			return fmt.Errorf("DB_PATH is required for the sqlite source")
		}
	case SourceQdrant:
		if c.QdrantURL == "" || c.QdrantCollection == "" {
			return fmt.Errorf("QDRANT_URL and QDRANT_COLLECTION are required for the qdrant source")
		}
	default:
		return fmt.Errorf("CORPUS_SOURCE must be one of file, sqlite, qdrant, got %q", c.CorpusSource)
	}

	if c.EmbeddingDim <= 0 {
		return fmt.Errorf("EMBEDDING_DIM must be greater than 0")
	}
	if c.CorpusTTL <= 0 {
		return fmt.Errorf("CORPUS_TTL must be positive")
	}

	r := c.Retrieval
	if r.Lambda < 0 || r.Lambda > 1 {
		return fmt.Errorf("MMR lambda must be within [0, 1], got %v", r.Lambda)
	}
	if r.DefaultTopK < 1 || r.DefaultTopK > maxTopK {
		return fmt.Errorf("default_top_k must be within [1, %d], got %d", maxTopK, r.DefaultTopK)
	}
	return nil
}

// ApplyTuningFile overlays the YAML tuning file at path onto c. Keys absent from the
// file keep their current values. Callers should run Validate afterwards.
func (c *Config) ApplyTuningFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read tuning file: %w", err)
	}

	tuning := tuningFile{Retrieval: c.Retrieval}
	if err := yaml.Unmarshal(data, &tuning); err != nil {
		return fmt.Errorf("failed to parse tuning file %s: %w", path, err)
	}
	c.Retrieval = tuning.Retrieval

	if tuning.Corpus.CacheTTL != "" {
		ttl, err := time.ParseDuration(tuning.Corpus.CacheTTL)
		if err != nil {
			return fmt.Errorf("corpus.cache_ttl must be a duration: %w", err)
		}
		c.CorpusTTL = ttl
	}
	return nil
}

// loadDotEnv loads .env from the current directory, then from the nearest
// parent directory that has one.
func loadDotEnv() {
	_ = godotenv.Load()

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

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
