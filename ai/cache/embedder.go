// Package cache provides an ai.Embedder decorator that keeps recent
// embeddings in an in-process ristretto cache. Query text repeats often
// (the same question asked in several threads), and embedding calls are the
// only network round trip retrieval needs besides the store.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/poiesic/clinroute/ai"
)

const (
	// DefaultMaxCost bounds the cache at roughly 64 MiB of vectors.
	DefaultMaxCost int64 = 64 << 20
	// DefaultTTL is how long a cached embedding stays valid.
	DefaultTTL = 30 * time.Minute

	// minCounters keeps ristretto's admission counters usable for tiny caches.
	minCounters int64 = 100
)

// ErrEmbedderRequired is returned when no inner embedder is supplied.
var ErrEmbedderRequired = errors.New("inner embedder is required")

// Embedder caches vectors produced by an inner ai.Embedder, keyed by text.
type Embedder struct {
	inner   ai.Embedder
	cache   *ristretto.Cache[string, []float32]
	ttl     time.Duration
	maxCost int64
	logger  *slog.Logger
}

var _ ai.Embedder = (*Embedder)(nil)

// Option configures an Embedder.
type Option func(*Embedder) error

// WithTTL sets how long entries stay cached. Non-positive values keep the default.
func WithTTL(ttl time.Duration) Option {
	return func(e *Embedder) error {
		if ttl > 0 {
			e.ttl = ttl
		}
		return nil
	}
}

// WithMaxCost sets the cache capacity in bytes. Non-positive values keep the default.
func WithMaxCost(bytes int64) Option {
	return func(e *Embedder) error {
		if bytes > 0 {
			e.maxCost = bytes
		}
		return nil
	}
}

// WithLogger sets the logger for the cache.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Embedder) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
		return nil
	}
}

// NewEmbedder wraps inner with a ristretto cache.
func NewEmbedder(inner ai.Embedder, opts ...Option) (*Embedder, error) {
	if inner == nil {
		return nil, ErrEmbedderRequired
	}

	e := &Embedder{
		inner:   inner,
		ttl:     DefaultTTL,
		maxCost: DefaultMaxCost,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	e.logger = e.logger.With("component", "embedding-cache")

	c, err := ristretto.NewCache(&ristretto.Config[string, []float32]{
		NumCounters:        numCounters(e.maxCost),
		MaxCost:            e.maxCost,
		BufferItems:        64,
		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, err
	}
	e.cache = c
	return e, nil
}

// EmbedText returns a cached vector or embeds and caches text.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := e.cache.Get(text); ok {
		e.logger.Debug("embedding cache hit", "length", len(text))
		return clone(vec), nil
	}

	vec, err := e.inner.EmbedText(ctx, text)
	if err != nil {
		return nil, err
	}
	e.store(text, vec)
	return clone(vec), nil
}

// EmbedTexts embeds only the texts missing from the cache, in one batch.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int
	for i, text := range texts {
		if vec, ok := e.cache.Get(text); ok {
			out[i] = clone(vec)
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	vectors, err := e.inner.EmbedTexts(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(missing) {
		return nil, errors.New("embedding count mismatch")
	}
	for j, vec := range vectors {
		e.store(missing[j], vec)
		out[missingIdx[j]] = clone(vec)
	}
	return out, nil
}

func (e *Embedder) store(text string, vec []float32) {
	if len(vec) == 0 {
		return
	}
	e.cache.SetWithTTL(text, clone(vec), int64(len(vec)*4), e.ttl)
	e.cache.Wait()
}

// Clear drops every cached vector. Call it after the embedding model changes.
func (e *Embedder) Clear() {
	e.cache.Clear()
}

// Close shuts down the cache and releases resources.
func (e *Embedder) Close() {
	e.cache.Close()
}

// numCounters sizes the admission counters at ~10x the number of 384-dim
// vectors that fit in maxCost.
func numCounters(maxCost int64) int64 {
	return max(maxCost/1536*10, minCounters)
}

func clone(v []float32) []float32 {
	return append([]float32(nil), v...)
}
