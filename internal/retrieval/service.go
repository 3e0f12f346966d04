package retrieval

import (
	"context"
	"fmt"
	"time"

	"research-rag/internal/contextutil"
	"research-rag/internal/corpus"
)

// Options tunes request validation and ranking.
type Options struct {
	// Dimension is the required query embedding length.
	Dimension int
	// Lambda is the MMR relevance weight in [0, 1].
	Lambda float64
	// DefaultTopK is used when a request omits topK.
	DefaultTopK int
	// MaxTopK is the largest accepted topK.
	MaxTopK int
	// MinYear and MaxYear bound the year filter a request may specify.
	MinYear int
	MaxYear int
}

// DefaultOptions returns the limits of the publication corpus.
func DefaultOptions() Options {
	return Options{
		Dimension:   corpus.DefaultDimension,
		Lambda:      DefaultLambda,
		DefaultTopK: 5,
		MaxTopK:     10,
		MinYear:     1950,
		MaxYear:     2030,
	}
}

// Service orchestrates validation, corpus access, filtering and ranking.
type Service struct {
	corpus CorpusProvider
	opts   Options
}

// NewService creates a Service reading the corpus from provider.
func NewService(provider CorpusProvider, opts Options) *Service {
	return &Service{
		corpus: provider,
		opts:   opts,
	}
}

// Search implements Searcher.
func (s *Service) Search(ctx context.Context, req Request) (Response, error) {
	logger := contextutil.LoggerFromContext(ctx)

	k, err := s.validate(req)
	if err != nil {
		logger.WarnContext(ctx, "rejected search request", "error", err)
		return Response{}, err
	}

	start := time.Now()
	chunks, err := s.corpus.Chunks(ctx)
	if err != nil {
		return Response{}, fmt.Errorf("failed to load corpus: %w", err)
	}

	filtered := req.Filter.Apply(chunks)
	meta := Metadata{
		TotalChunks:    len(chunks),
		FilteredChunks: len(filtered),
		FilterApplied:  req.Filter.Active(),
	}

	if len(filtered) == 0 {
		logger.InfoContext(ctx, "no chunks matched filter", "total_chunks", len(chunks))
		return Response{Results: []Result{}, Metadata: meta}, nil
	}

	ranked, diversified := Rank(req.QueryEmbedding, filtered, k, s.opts.Lambda)
	results := make([]Result, len(ranked))
	for i, r := range ranked {
		results[i] = NewResult(r)
	}
	meta.ReturnedChunks = len(results)
	meta.MMRDiversification = diversified

	logger.InfoContext(ctx, "search completed",
		"total_chunks", meta.TotalChunks,
		"filtered_chunks", meta.FilteredChunks,
		"returned_chunks", meta.ReturnedChunks,
		"mmr", diversified,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	if len(results) > 0 {
		logger.DebugContext(ctx, "top result", "chunk_id", results[0].ChunkID, "score", results[0].Score)
	}

	return Response{Results: results, Metadata: meta}, nil
}

// Stats implements Searcher.
func (s *Service) Stats(ctx context.Context) (corpus.Stats, error) {
	chunks, err := s.corpus.Chunks(ctx)
	if err != nil {
		return corpus.Stats{}, fmt.Errorf("failed to load corpus: %w", err)
	}
	stats := corpus.Summarize(chunks)
	stats.GeneratedAt = time.Now().UTC()
	return stats, nil
}

// validate checks req and returns the effective result count.
func (s *Service) validate(req Request) (int, error) {
	if len(req.QueryEmbedding) == 0 {
		return 0, invalid("queryEmbedding", "is required")
	}
	if len(req.QueryEmbedding) != s.opts.Dimension {
		return 0, invalid("queryEmbedding", "expected %d dimensions, got %d", s.opts.Dimension, len(req.QueryEmbedding))
	}

	k := s.opts.DefaultTopK
	if req.TopK != nil {
		k = *req.TopK
		if k < 1 || k > s.opts.MaxTopK {
			return 0, invalid("topK", "must be between 1 and %d, got %d", s.opts.MaxTopK, k)
		}
	}

	if req.Filter != nil && req.Filter.Year != nil {
		year := req.Filter.Year
		if year.Min != nil && *year.Min < s.opts.MinYear {
			return 0, invalid("filter.year.min", "must be at least %d, got %d", s.opts.MinYear, *year.Min)
		}
		if year.Max != nil && *year.Max > s.opts.MaxYear {
			return 0, invalid("filter.year.max", "must be at most %d, got %d", s.opts.MaxYear, *year.Max)
		}
	}

	return k, nil
}
