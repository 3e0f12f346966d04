package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// setEnv sets an environment variable, ignoring errors (for test setup)
func setEnv(key, value string) {
	_ = os.Setenv(key, value)
}

// unsetEnv unsets an environment variable, ignoring errors (for test cleanup)
func unsetEnv(key string) {
	_ = os.Unsetenv(key)
}

var envVars = []string{
	"API_PORT", "LOG_LEVEL", "LOG_FORMAT",
	"CORPUS_SOURCE", "CORPUS_PATH", "DB_PATH",
	"QDRANT_URL", "QDRANT_COLLECTION",
	"EMBEDDING_DIM", "CORPUS_TTL", "MMR_LAMBDA", "TUNING_FILE",
}

func TestLoad(t *testing.T) {
	// Save original env vars
	originalEnv := make(map[string]string)
	for _, key := range envVars {
		originalEnv[key] = os.Getenv(key)
	}
	defer func() {
		for key, value := range originalEnv {
			if value != "" {
				setEnv(key, value)
			} else {
				unsetEnv(key)
			}
		}
	}()

	tests := []struct {
		name        string
		setupEnv    func(*testing.T)
		wantErr     bool
		checkConfig func(*Config) bool
	}{
		{
			name:     "defaults",
			setupEnv: func(t *testing.T) {},
			checkConfig: func(cfg *Config) bool {
				return cfg.APIPort == "9000" &&
					cfg.LogLevel == slog.LevelInfo &&
					cfg.LogFormat == "text" &&
					cfg.CorpusSource == SourceFile &&
					cfg.CorpusPath == "./data/papers.json" &&
					cfg.DBPath == "./data/corpus.db" &&
					cfg.QdrantURL == "http://localhost:6333" &&
					cfg.QdrantCollection == "papers" &&
					cfg.EmbeddingDim == 384 &&
					cfg.CorpusTTL == 5*time.Minute &&
					cfg.Retrieval == Retrieval{Lambda: 0.3, DefaultTopK: 5}
			},
		},
		{
			name: "custom values",
			setupEnv: func(t *testing.T) {
				setEnv("API_PORT", "8088")
				setEnv("LOG_LEVEL", "debug")
				setEnv("LOG_FORMAT", "JSON")
				setEnv("CORPUS_SOURCE", "sqlite")
				setEnv("DB_PATH", "/srv/corpus.db")
				setEnv("EMBEDDING_DIM", "768")
				setEnv("CORPUS_TTL", "90s")
				setEnv("MMR_LAMBDA", "0.7")
			},
			checkConfig: func(cfg *Config) bool {
				return cfg.APIPort == "8088" &&
					cfg.LogLevel == slog.LevelDebug &&
					cfg.LogFormat == "json" &&
					cfg.CorpusSource == SourceSQLite &&
					cfg.DBPath == "/srv/corpus.db" &&
					cfg.EmbeddingDim == 768 &&
					cfg.CorpusTTL == 90*time.Second &&
					cfg.Retrieval.Lambda == 0.7
			},
		},
		{
			name:     "invalid LOG_LEVEL",
			setupEnv: func(t *testing.T) { setEnv("LOG_LEVEL", "loud") },
			wantErr:  true,
		},
		{
			name:     "invalid LOG_FORMAT",
			setupEnv: func(t *testing.T) { setEnv("LOG_FORMAT", "xml") },
			wantErr:  true,
		},
		{
			name:     "unknown CORPUS_SOURCE",
			setupEnv: func(t *testing.T) { setEnv("CORPUS_SOURCE", "s3") },
			wantErr:  true,
		},
		{
			name:     "invalid EMBEDDING_DIM",
			setupEnv: func(t *testing.T) { setEnv("EMBEDDING_DIM", "invalid") },
			wantErr:  true,
		},
		{
			name:     "zero EMBEDDING_DIM",
			setupEnv: func(t *testing.T) { setEnv("EMBEDDING_DIM", "0") },
			wantErr:  true,
		},
		{
			name:     "invalid CORPUS_TTL",
			setupEnv: func(t *testing.T) { setEnv("CORPUS_TTL", "soon") },
			wantErr:  true,
		},
		{
			name:     "negative CORPUS_TTL",
			setupEnv: func(t *testing.T) { setEnv("CORPUS_TTL", "-1m") },
			wantErr:  true,
		},
		{
			name:     "MMR_LAMBDA out of range",
			setupEnv: func(t *testing.T) { setEnv("MMR_LAMBDA", "1.5") },
			wantErr:  true,
		},
		{
			name: "tuning file overrides",
			setupEnv: func(t *testing.T) {
				path := filepath.Join(t.TempDir(), "tuning.yaml")
				content := "retrieval:\n  lambda: 0.5\ncorpus:\n  cache_ttl: 1h\n"
				if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
					t.Fatalf("failed to write tuning file: %v", err)
				}
				setEnv("TUNING_FILE", path)
			},
			checkConfig: func(cfg *Config) bool {
				// Keys absent from the file keep their defaults.
				return cfg.Retrieval == Retrieval{Lambda: 0.5, DefaultTopK: 5} &&
					cfg.CorpusTTL == time.Hour
			},
		},
		{
			name: "tuning file default_top_k above fixed maximum",
			setupEnv: func(t *testing.T) {
				path := filepath.Join(t.TempDir(), "tuning.yaml")
				if err := os.WriteFile(path, []byte("retrieval:\n  default_top_k: 12\n"), 0o644); err != nil {
					t.Fatalf("failed to write tuning file: %v", err)
				}
				setEnv("TUNING_FILE", path)
			},
			wantErr: true,
		},
		{
			name: "tuning file cannot widen request bounds",
			setupEnv: func(t *testing.T) {
				path := filepath.Join(t.TempDir(), "tuning.yaml")
				content := "retrieval:\n  max_top_k: 50\n  min_year: 1800\n"
				if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
					t.Fatalf("failed to write tuning file: %v", err)
				}
				setEnv("TUNING_FILE", path)
			},
			checkConfig: func(cfg *Config) bool {
				return cfg.Retrieval == Retrieval{Lambda: 0.3, DefaultTopK: 5}
			},
		},
		{
			name:     "missing tuning file",
			setupEnv: func(t *testing.T) { setEnv("TUNING_FILE", "/nonexistent/tuning.yaml") },
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Change to a temp directory without .env file to avoid loading it
			tmpDir := t.TempDir()
			originalWd, _ := os.Getwd()
			_ = os.Chdir(tmpDir) // Ignore error - test will fail if this doesn't work
			defer func() {
				_ = os.Chdir(originalWd) // Ignore error in cleanup
			}()

			// Clean up env vars before each test
			for _, key := range envVars {
				unsetEnv(key)
			}

			tt.setupEnv(t)

			cfg, err := Load()
			if tt.wantErr {
				if err == nil {
					t.Error("Load() expected error, got nil")
				}
				return
			}

			if err != nil {
				t.Fatalf("Load() unexpected error: %v", err)
			}
			if tt.checkConfig != nil && !tt.checkConfig(cfg) {
				t.Errorf("Load() config check failed: %+v", cfg)
			}
		})
	}
}

func TestLoad_DotEnv(t *testing.T) {
	for _, key := range envVars {
		original := os.Getenv(key)
		unsetEnv(key)
		defer func(key, value string) {
			if value != "" {
				setEnv(key, value)
			} else {
				unsetEnv(key)
			}
		}(key, original)
	}

	root := t.TempDir()
	nested := filepath.Join(root, "cmd", "api")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatalf("failed to create dirs: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, ".env"), []byte("API_PORT=7777\nQDRANT_COLLECTION=nasa\n"), 0o644); err != nil {
		t.Fatalf("failed to write .env: %v", err)
	}

	originalWd, _ := os.Getwd()
	_ = os.Chdir(nested)
	defer func() {
		_ = os.Chdir(originalWd)
	}()

	// Explicit environment wins over .env.
	setEnv("QDRANT_COLLECTION", "explicit")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.APIPort != "7777" {
		t.Errorf("APIPort = %q, want value from .env", cfg.APIPort)
	}
	if cfg.QdrantCollection != "explicit" {
		t.Errorf("QdrantCollection = %q, want explicit env value", cfg.QdrantCollection)
	}
}
