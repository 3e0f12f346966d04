package corpus

import "time"

// Stats summarizes a loaded corpus.
type Stats struct {
	// TotalDocuments is the number of distinct doc IDs.
	TotalDocuments int `json:"total_documents"`
	// TotalChunks is the number of chunk records.
	TotalChunks int `json:"total_chunks"`
	// Dimension is the embedding dimension (0 for an empty corpus).
	Dimension int `json:"dimension"`
	// YearDistribution maps publication year to chunk count.
	YearDistribution map[int]int `json:"year_distribution"`
	// ChunksWithoutYear counts chunks whose document has no known year.
	ChunksWithoutYear int `json:"chunks_without_year"`
	// TopKeywords are the highest scoring title terms, see TopKeywords.
	TopKeywords []KeywordScore `json:"top_keywords"`
	// GeneratedAt is when the summary was computed.
	GeneratedAt time.Time `json:"generated_at"`
}

// Summarize computes Stats for chunks.
func Summarize(chunks []Chunk) Stats {
	stats := Stats{
		TotalChunks:      len(chunks),
		YearDistribution: make(map[int]int),
	}
	if len(chunks) > 0 {
		stats.Dimension = len(chunks[0].Embedding)
	}

	docs := make(map[string]struct{})
	for _, c := range chunks {
		docs[c.DocID] = struct{}{}
		if c.Year == nil {
			stats.ChunksWithoutYear++
			continue
		}
		stats.YearDistribution[*c.Year]++
	}
	stats.TotalDocuments = len(docs)
	stats.TopKeywords = TopKeywords(chunks)
	return stats
}
