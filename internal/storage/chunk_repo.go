package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"research-rag/internal/contextutil"
	"research-rag/internal/corpus"
)

// ErrCorruptEmbedding is returned when a stored embedding blob cannot be decoded.
var ErrCorruptEmbedding = errors.New("corrupt embedding blob")

// ChunkRepo stores the corpus in SQLite. It implements corpus.Source.
type ChunkRepo struct {
	db *sql.DB
}

// NewChunkRepo creates a new ChunkRepo.
func NewChunkRepo(db *sql.DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

// ReplaceAll swaps the stored corpus for chunks in a single transaction.
// progress, if non-nil, is called after each inserted chunk.
func (r *ChunkRepo) ReplaceAll(ctx context.Context, chunks []corpus.Chunk, progress func()) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks"); err != nil {
		return fmt.Errorf("failed to clear chunks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks (chunk_id, position, doc_id, doc_title, year, url, text, source_type, embedding)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	for i, c := range chunks {
		var year sql.NullInt64
		if c.Year != nil {
			year = sql.NullInt64{Int64: int64(*c.Year), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			c.ChunkID, i, c.DocID, c.DocTitle, year, c.URL, c.Text, c.SourceType, encodeEmbedding(c.Embedding),
		); err != nil {
			return fmt.Errorf("failed to insert chunk %s: %w", c.ChunkID, err)
		}
		if progress != nil {
			progress()
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit chunks: %w", err)
	}
	return nil
}

// Load reads every chunk in insertion order.
func (r *ChunkRepo) Load(ctx context.Context) ([]corpus.Chunk, error) {
	logger := contextutil.LoggerFromContext(ctx)

	rows, err := r.db.QueryContext(ctx,
		`SELECT chunk_id, doc_id, doc_title, year, url, text, source_type, embedding
		 FROM chunks ORDER BY position`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var chunks []corpus.Chunk
	for rows.Next() {
		var (
			c    corpus.Chunk
			year sql.NullInt64
			blob []byte
		)
		if err := rows.Scan(&c.ChunkID, &c.DocID, &c.DocTitle, &year, &c.URL, &c.Text, &c.SourceType, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		if year.Valid {
			y := int(year.Int64)
			c.Year = &y
		}
		c.Embedding, err = decodeEmbedding(blob)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: %w", c.ChunkID, err)
		}
		chunks = append(chunks, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	logger.DebugContext(ctx, "loaded chunks from sqlite", "count", len(chunks))
	return chunks, nil
}

// Count returns the number of stored chunks.
func (r *ChunkRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return n, nil
}

// encodeEmbedding packs vec as little-endian float32s.
func encodeEmbedding(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

func decodeEmbedding(buf []byte) ([]float32, error) {
	if len(buf)%4 != 0 {
		return nil, fmt.Errorf("%w: length %d is not a multiple of 4", ErrCorruptEmbedding, len(buf))
	}
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return vec, nil
}
