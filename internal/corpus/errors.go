package corpus

import (
	"errors"
	"fmt"
)

// ErrLoad is matched by every error returned from a failed corpus load.
var ErrLoad = errors.New("corpus load failed")

// LoadError describes a failed or rejected corpus load.
type LoadError struct {
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %v", ErrLoad, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Is reports ErrLoad so callers can test with errors.Is without knowing the cause.
func (e *LoadError) Is(target error) bool {
	return target == ErrLoad
}

// Validate checks the corpus invariants: every chunk has a non-empty, unique
// chunk ID and an embedding of exactly dim components.
func Validate(chunks []Chunk, dim int) error {
	seen := make(map[string]struct{}, len(chunks))
	for i, c := range chunks {
		if c.ChunkID == "" {
			return fmt.Errorf("chunk at index %d has no chunk_id", i)
		}
		if _, dup := seen[c.ChunkID]; dup {
			return fmt.Errorf("duplicate chunk_id %q", c.ChunkID)
		}
		seen[c.ChunkID] = struct{}{}
		if len(c.Embedding) != dim {
			return fmt.Errorf("chunk %q has embedding dimension %d, expected %d", c.ChunkID, len(c.Embedding), dim)
		}
	}
	return nil
}
