package retrieval

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_searcher.go -package=mocks research-rag/internal/retrieval Searcher

import (
	"context"

	"research-rag/internal/corpus"
)

// Searcher answers retrieval requests.
type Searcher interface {
	// Search validates req, then filters, scores and diversifies the corpus.
	Search(ctx context.Context, req Request) (Response, error)
	// Stats summarizes the current corpus.
	Stats(ctx context.Context) (corpus.Stats, error)
}

// CorpusProvider returns the current corpus. *corpus.Accessor implements it.
type CorpusProvider interface {
	Chunks(ctx context.Context) ([]corpus.Chunk, error)
}

// Request is a retrieval query.
type Request struct {
	// QueryEmbedding must have exactly the corpus dimension.
	QueryEmbedding []float32 `json:"queryEmbedding"`
	// TopK bounds the result count. Nil selects the default.
	TopK *int `json:"topK,omitempty"`
	// Filter optionally scopes the search.
	Filter *Filter `json:"filter,omitempty"`
}

// Result is a ranked chunk returned to callers. It never carries the embedding.
type Result struct {
	DocID      string  `json:"doc_id"`
	DocTitle   string  `json:"doc_title"`
	Year       *int    `json:"year"`
	URL        string  `json:"url"`
	ChunkID    string  `json:"chunk_id"`
	Text       string  `json:"text"`
	SourceType string  `json:"source_type,omitempty"`
	Score      float64 `json:"score"`
}

// Metadata describes how a response was produced.
type Metadata struct {
	TotalChunks        int  `json:"total_chunks"`
	FilteredChunks     int  `json:"filtered_chunks"`
	ReturnedChunks     int  `json:"returned_chunks"`
	FilterApplied      bool `json:"filter_applied"`
	MMRDiversification bool `json:"mmr_diversification"`
}

// Response is the outcome of a successful search.
type Response struct {
	Results  []Result `json:"results"`
	Metadata Metadata `json:"metadata"`
}

// NewResult strips the embedding from a scored chunk.
func NewResult(s Scored) Result {
	return Result{
		DocID:      s.Chunk.DocID,
		DocTitle:   s.Chunk.DocTitle,
		Year:       s.Chunk.Year,
		URL:        s.Chunk.URL,
		ChunkID:    s.Chunk.ChunkID,
		Text:       s.Chunk.Text,
		SourceType: s.Chunk.SourceType,
		Score:      s.Score,
	}
}
