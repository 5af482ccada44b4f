package retrieval

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/clinroute/ai"
	"github.com/poiesic/clinroute/storage"
)

const (
	// DefaultLimit is the number of records specialists ask for.
	DefaultLimit = 5
	// MaxLimit caps a single search.
	MaxLimit = 50
)

// Searcher returns the catalog records most similar to a query.
type Searcher[T any] interface {
	// Search returns at most limit records ranked by descending similarity.
	Search(ctx context.Context, query string, limit int) ([]T, error)
	// Name identifies the catalog in logs and metrics.
	Name() string
}

// Retriever embeds queries and ranks records from one catalog store.
type Retriever[T any] struct {
	name     string
	embedder ai.Embedder
	store    storage.CatalogReader[T]
	logger   *slog.Logger
}

var _ Searcher[struct{}] = (*Retriever[struct{}])(nil)

// Option configures a Retriever.
type Option func(*retrieverOptions) error

type retrieverOptions struct {
	logger *slog.Logger
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *retrieverOptions) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
		return nil
	}
}

// New creates a retriever named name over store.
func New[T any](name string, embedder ai.Embedder, store storage.CatalogReader[T], opts ...Option) (*Retriever[T], error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if store == nil {
		return nil, ErrStoreRequired
	}

	o := &retrieverOptions{logger: slog.Default()}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}

	return &Retriever[T]{
		name:     name,
		embedder: embedder,
		store:    store,
		logger:   o.logger.With("component", "retriever", "catalog", name),
	}, nil
}

// Name returns the catalog name.
func (r *Retriever[T]) Name() string {
	return r.name
}

// Search embeds query and returns up to limit records ordered by descending
// similarity. A zero limit returns an empty result without embedding.
func (r *Retriever[T]) Search(ctx context.Context, query string, limit int) ([]T, error) {
	if limit < 0 || limit > MaxLimit {
		return nil, fmt.Errorf("%w: %d (must be 0..%d)", ErrInvalidLimit, limit, MaxLimit)
	}
	if limit == 0 {
		return []T{}, nil
	}

	vector, err := r.embedder.EmbedText(ctx, query)
	if err != nil {
		r.logger.Error("error generating embedding for query", "err", err)
		return nil, fmt.Errorf("%w: embed query: %w", ErrRetrieval, err)
	}

	results, err := r.store.FindSimilar(ctx, vector, limit)
	if err != nil {
		r.logger.Error("error querying for similar records", "err", err)
		return nil, fmt.Errorf("%w: %s store: %w", ErrRetrieval, r.name, err)
	}
	if results == nil {
		results = []T{}
	}

	r.logger.Debug("retrieved records", "limit", limit, "count", len(results))
	return results, nil
}
