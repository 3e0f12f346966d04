package corpus

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"research-rag/internal/contextutil"
)

// JSONSource reads the corpus from one or more JSON files, each holding an
// array of chunk records as written by the preprocessing pipeline.
type JSONSource struct {
	pattern string
}

// NewJSONSource creates a source for pattern, which is either a plain path or
// a doublestar glob such as "data/papers-*.json".
func NewJSONSource(pattern string) *JSONSource {
	return &JSONSource{pattern: pattern}
}

// Files resolves the pattern to the shard files in lexical order.
func (s *JSONSource) Files() ([]string, error) {
	files, err := doublestar.FilepathGlob(s.pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("invalid corpus pattern %q: %w", s.pattern, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no corpus files match %q", s.pattern)
	}
	sort.Strings(files)
	return files, nil
}

// Load reads and concatenates every shard.
func (s *JSONSource) Load(ctx context.Context) ([]Chunk, error) {
	logger := contextutil.LoggerFromContext(ctx)

	files, err := s.Files()
	if err != nil {
		return nil, err
	}

	var chunks []Chunk
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		shard, err := readShard(path)
		if err != nil {
			return nil, err
		}
		logger.DebugContext(ctx, "read corpus shard", "path", path, "chunks", len(shard))
		chunks = append(chunks, shard...)
	}
	return chunks, nil
}

func readShard(path string) ([]Chunk, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	var shard []Chunk
	if err := json.NewDecoder(f).Decode(&shard); err != nil {
		return nil, fmt.Errorf("failed to parse corpus file %s: %w", path, err)
	}
	return shard, nil
}
