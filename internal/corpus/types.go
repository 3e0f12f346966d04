package corpus

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_source.go -package=mocks research-rag/internal/corpus Source

import "context"

// DefaultDimension is the embedding dimension of the published corpus (all-MiniLM-L6-v2).
const DefaultDimension = 384

// Chunk is a retrievable unit of publication text with its embedding.
// Chunks are immutable once loaded.
type Chunk struct {
	// DocID identifies the parent document. Shared by all chunks of a document.
	DocID string `json:"doc_id"`
	// DocTitle is the display title of the parent document.
	DocTitle string `json:"doc_title"`
	// Year is the publication year, nil when unknown.
	Year *int `json:"year"`
	// URL is an optional external link to the publication.
	URL string `json:"url"`
	// ChunkID is unique within the corpus (e.g. "PMC12345_0003").
	ChunkID string `json:"chunk_id"`
	// Text is the chunk content.
	Text string `json:"text"`
	// SourceType records how the text was obtained by the crawler ("html", "pdf", "abstract").
	SourceType string `json:"source_type,omitempty"`
	// Embedding is the chunk's semantic vector.
	Embedding []float32 `json:"embedding"`
}

// Source reads the full corpus from a backing store.
type Source interface {
	// Load reads and parses every chunk. Implementations must return chunks in a stable order.
	Load(ctx context.Context) ([]Chunk, error)
}
