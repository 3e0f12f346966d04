// Package sources opens the corpus.Source selected by configuration.
package sources

import (
	"context"
	"fmt"

	"research-rag/internal/config"
	"research-rag/internal/contextutil"
	"research-rag/internal/corpus"
	"research-rag/internal/storage"
	"research-rag/internal/vectorstore"
)

// Open returns the configured corpus source and a function that releases it.
// The sqlite database is migrated on open; the qdrant collection must already exist.
func Open(ctx context.Context, cfg *config.Config) (corpus.Source, func() error, error) {
	logger := contextutil.LoggerFromContext(ctx)

	switch cfg.CorpusSource {
	case config.SourceFile:
		logger.InfoContext(ctx, "using file corpus source", "path", cfg.CorpusPath)
		return corpus.NewJSONSource(cfg.CorpusPath), func() error { return nil }, nil

	case config.SourceSQLite:
		db, err := storage.New(cfg.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := storage.Migrate(db); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}
		logger.InfoContext(ctx, "using sqlite corpus source", "path", cfg.DBPath)
		return storage.NewChunkRepo(db), db.Close, nil

	case config.SourceQdrant:
		store, err := vectorstore.NewQdrantStore(cfg.QdrantURL, cfg.QdrantCollection)
		if err != nil {
			return nil, nil, err
		}
		exists, err := store.CollectionExists(ctx)
		if err != nil {
			_ = store.Close()
			return nil, nil, err
		}
		if !exists {
			_ = store.Close()
			return nil, nil, fmt.Errorf("qdrant collection %q does not exist; run corpusctl import first", cfg.QdrantCollection)
		}
		logger.InfoContext(ctx, "using qdrant corpus source", "url", cfg.QdrantURL, "collection", cfg.QdrantCollection)
		return store, store.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown corpus source %q", cfg.CorpusSource)
	}
}
