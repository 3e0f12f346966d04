package main

import (
	"context"
	_ "embed"
	"errors"
	"log"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"research-rag/internal/config"
	"research-rag/internal/corpus"
	"research-rag/internal/handlers"
	"research-rag/internal/http"
	"research-rag/internal/retrieval"
	"research-rag/internal/sources"
)

//go:generate swagger generate spec -o swagger.json

// General API information
//
// This API retrieves passages from a corpus of space-biology publications for a
// question-answering front end. Callers embed the question themselves and send the vector.
//
// swagger:meta
//
// ---
// swagger: '2.0'
// info:
//   title: Research RAG Retrieval API
//   description: |
//     Filtered cosine-similarity search with MMR diversification over a
//     precomputed embedding corpus.
//   version: 1.0.0
// schemes:
//   - http
//   - https
// consumes:
//   - application/json
// produces:
//   - application/json

//go:embed api.md
var apiDocs []byte

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

	source, closeSource, err := sources.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open corpus source: %v", err)
	}
	defer func() {
		_ = closeSource()
	}()

	accessor := corpus.NewAccessor(source,
		corpus.WithTTL(cfg.CorpusTTL),
		corpus.WithDimension(cfg.EmbeddingDim),
	)

	// Warm the cache so a broken corpus is visible at startup. Requests still
	// retry the load, so this is not fatal.
	if chunks, err := accessor.Chunks(ctx); err != nil {
		slog.Warn("Initial corpus load failed", "error", err)
	} else {
		slog.Info("Corpus ready", "source", cfg.CorpusSource, "chunks", len(chunks), "ttl", cfg.CorpusTTL)
	}

	retrievalOpts := retrieval.DefaultOptions()
	retrievalOpts.Dimension = cfg.EmbeddingDim
	retrievalOpts.Lambda = cfg.Retrieval.Lambda
	retrievalOpts.DefaultTopK = cfg.Retrieval.DefaultTopK
	service := retrieval.NewService(accessor, retrievalOpts)

	docsHTML, err := handlers.RenderDocs("Research RAG Retrieval API", apiDocs)
	if err != nil {
		log.Fatalf("Failed to render API docs: %v", err)
	}

	router := http.NewRouter(&http.Deps{
		Searcher: service,
		Health:   accessor,
		DocsHTML: docsHTML,
	})

	server := &nethttp.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Starting API server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			log.Fatalf("API server failed to start: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	slog.Info("Shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Graceful shutdown failed", "error", err)
	}
}
