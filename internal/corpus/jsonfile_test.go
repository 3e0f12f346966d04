package corpus

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

func TestJSONSource_Load(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "papers.json")
	writeFile(t, path, `[
		{"doc_id":"PMC1","doc_title":"Bone loss in microgravity","year":2019,"url":"https://example.org/pmc1",
		 "chunk_id":"PMC1_0000","text":"Astronauts lose bone density.","embedding":[0.1,0.2,0.3],"source_type":"html"},
		{"doc_id":"PMC2","doc_title":"Plant growth","year":null,"url":null,
		 "chunk_id":"PMC2_0000","text":"Arabidopsis in orbit.","embedding":[0.3,0.2,0.1]}
	]`)

	chunks, err := NewJSONSource(path).Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("Load() len = %d, want 2", len(chunks))
	}

	first := chunks[0]
	if first.ChunkID != "PMC1_0000" || first.DocTitle != "Bone loss in microgravity" {
		t.Errorf("unexpected first chunk: %+v", first)
	}
	if first.Year == nil || *first.Year != 2019 {
		t.Errorf("first chunk year = %v, want 2019", first.Year)
	}
	if first.SourceType != "html" {
		t.Errorf("first chunk source_type = %q, want html", first.SourceType)
	}
	if len(first.Embedding) != 3 {
		t.Errorf("first chunk embedding len = %d, want 3", len(first.Embedding))
	}

	second := chunks[1]
	if second.Year != nil {
		t.Errorf("null year should decode to nil, got %d", *second.Year)
	}
	if second.URL != "" {
		t.Errorf("null url should decode to empty string, got %q", second.URL)
	}
}

func TestJSONSource_GlobShardsInLexicalOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "papers-002.json"), `[{"doc_id":"B","chunk_id":"B_0000","text":"b","embedding":[1]}]`)
	writeFile(t, filepath.Join(dir, "papers-001.json"), `[{"doc_id":"A","chunk_id":"A_0000","text":"a","embedding":[1]}]`)
	writeFile(t, filepath.Join(dir, "stats.json"), `{"total_chunks":2}`)

	src := NewJSONSource(filepath.Join(dir, "papers-*.json"))
	chunks, err := src.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("Load() len = %d, want 2", len(chunks))
	}
	if chunks[0].ChunkID != "A_0000" || chunks[1].ChunkID != "B_0000" {
		t.Errorf("shards not concatenated in lexical order: %s, %s", chunks[0].ChunkID, chunks[1].ChunkID)
	}
}

func TestJSONSource_Errors(t *testing.T) {
	dir := t.TempDir()
	malformed := filepath.Join(dir, "bad.json")
	writeFile(t, malformed, `{"not":"a list"}`)

	tests := []struct {
		name    string
		pattern string
	}{
		{name: "missing file", pattern: filepath.Join(dir, "missing.json")},
		{name: "no glob matches", pattern: filepath.Join(dir, "none-*.json")},
		{name: "malformed json", pattern: malformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewJSONSource(tt.pattern).Load(context.Background()); err == nil {
				t.Error("Load() expected error")
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	y2019, y2021 := 2019, 2021
	chunks := []Chunk{
		{DocID: "A", ChunkID: "A_0", Year: &y2019, Embedding: make([]float32, 8)},
		{DocID: "A", ChunkID: "A_1", Year: &y2019, Embedding: make([]float32, 8)},
		{DocID: "B", ChunkID: "B_0", Year: &y2021, Embedding: make([]float32, 8)},
		{DocID: "C", ChunkID: "C_0", Embedding: make([]float32, 8)},
	}

	stats := Summarize(chunks)
	if stats.TotalDocuments != 3 {
		t.Errorf("TotalDocuments = %d, want 3", stats.TotalDocuments)
	}
	if stats.TotalChunks != 4 {
		t.Errorf("TotalChunks = %d, want 4", stats.TotalChunks)
	}
	if stats.Dimension != 8 {
		t.Errorf("Dimension = %d, want 8", stats.Dimension)
	}
	if stats.YearDistribution[2019] != 2 || stats.YearDistribution[2021] != 1 {
		t.Errorf("YearDistribution = %v", stats.YearDistribution)
	}
	if stats.ChunksWithoutYear != 1 {
		t.Errorf("ChunksWithoutYear = %d, want 1", stats.ChunksWithoutYear)
	}

	empty := Summarize(nil)
	if empty.TotalChunks != 0 || empty.Dimension != 0 || empty.YearDistribution == nil {
		t.Errorf("unexpected stats for empty corpus: %+v", empty)
	}
}
