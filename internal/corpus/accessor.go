package corpus

import (
	"context"
	"sync/atomic"
	"time"

	"research-rag/internal/contextutil"
)

// DefaultTTL is how long a loaded corpus is served before the next call reloads it.
const DefaultTTL = 5 * time.Minute

type snapshot struct {
	chunks   []Chunk
	loadedAt time.Time
}

// Accessor serves the corpus from an in-process cache, reloading it from its
// Source once the cached snapshot is older than the TTL.
//
// The snapshot is replaced atomically. Two callers that both observe an
// expired snapshot will both reload; the last one to finish wins.
type Accessor struct {
	source Source
	ttl    time.Duration
	dim    int
	now    func() time.Time
	snap   atomic.Pointer[snapshot]
}

// Option configures an Accessor.
type Option func(*Accessor)

// WithTTL sets the freshness threshold. Non-positive values are ignored.
func WithTTL(ttl time.Duration) Option {
	return func(a *Accessor) {
		if ttl > 0 {
			a.ttl = ttl
		}
	}
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(a *Accessor) {
		if now != nil {
			a.now = now
		}
	}
}

// WithDimension sets the embedding dimension enforced on load.
func WithDimension(dim int) Option {
	return func(a *Accessor) {
		if dim > 0 {
			a.dim = dim
		}
	}
}

// NewAccessor creates an Accessor reading from source.
func NewAccessor(source Source, opts ...Option) *Accessor {
	a := &Accessor{
		source: source,
		ttl:    DefaultTTL,
		dim:    DefaultDimension,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Dimension returns the embedding dimension enforced by the accessor.
func (a *Accessor) Dimension() int {
	return a.dim
}

// Chunks returns the current corpus. The returned slice is shared and must not be modified.
func (a *Accessor) Chunks(ctx context.Context) ([]Chunk, error) {
	now := a.now()
	if s := a.snap.Load(); s != nil && now.Sub(s.loadedAt) < a.ttl {
		return s.chunks, nil
	}

	logger := contextutil.LoggerFromContext(ctx)
	start := time.Now()

	chunks, err := a.source.Load(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "failed to load corpus", "error", err)
		return nil, &LoadError{Err: err}
	}
	if err := Validate(chunks, a.dim); err != nil {
		logger.ErrorContext(ctx, "corpus rejected", "error", err)
		return nil, &LoadError{Err: err}
	}

	a.snap.Store(&snapshot{chunks: chunks, loadedAt: now})
	logger.InfoContext(ctx, "corpus loaded",
		"chunks", len(chunks),
		"dimension", a.dim,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return chunks, nil
}

// LoadedAt returns when the cached snapshot was loaded, or the zero time if nothing is cached.
func (a *Accessor) LoadedAt() time.Time {
	if s := a.snap.Load(); s != nil {
		return s.loadedAt
	}
	return time.Time{}
}
