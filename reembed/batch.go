package reembed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/clinroute/ai"
	"github.com/poiesic/clinroute/core"
	"github.com/poiesic/clinroute/storage"
)

// Embed embeds the EmbeddingText of every record in one call, retrying
// failures according to policy, and pairs each record with its normalized
// vector. The result is index aligned with records.
func Embed[T core.Record[T]](ctx context.Context, embedder ai.Embedder, policy RetryPolicy, logger *slog.Logger, records []T) ([]storage.Entry[T], error) {
	if len(records) == 0 {
		return nil, nil
	}

	texts := make([]string, len(records))
	for i, record := range records {
		texts[i] = record.EmbeddingText()
	}

	var vectors [][]float32
	err := policy.Do(ctx, logger, func(ctx context.Context) error {
		var err error
		vectors, err = embedder.EmbedTexts(ctx, texts)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings after %d attempts: %w", policy.MaxAttempts, err)
	}
	if len(vectors) != len(records) {
		return nil, fmt.Errorf("%w: expected %d, got %d", ErrEmbeddingMismatch, len(records), len(vectors))
	}

	entries := make([]storage.Entry[T], len(records))
	for i, record := range records {
		entries[i] = storage.Entry[T]{Record: record, Vector: NormalizeVector(vectors[i])}
	}
	return entries, nil
}

// BatchProcessor re-embeds batches of catalog entries and writes them back.
type BatchProcessor[T core.Record[T]] struct {
	store    storage.CatalogWriter[T]
	embedder ai.Embedder
	policy   RetryPolicy
	logger   *slog.Logger
}

// NewBatchProcessor creates a batch processor writing to store.
func NewBatchProcessor[T core.Record[T]](store storage.CatalogWriter[T], embedder ai.Embedder, policy RetryPolicy, logger *slog.Logger) *BatchProcessor[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchProcessor[T]{
		store:    store,
		embedder: embedder,
		policy:   policy,
		logger:   logger,
	}
}

// Process replaces the vectors of entries. Record IDs are kept, so every
// entry is updated in place.
func (bp *BatchProcessor[T]) Process(ctx context.Context, entries []storage.Entry[T]) error {
	if len(entries) == 0 {
		return nil
	}

	records := make([]T, len(entries))
	for i, entry := range entries {
		records[i] = entry.Record
	}

	updated, err := Embed(ctx, bp.embedder, bp.policy, bp.logger, records)
	if err != nil {
		return err
	}
	if err := bp.store.Upsert(ctx, updated...); err != nil {
		return fmt.Errorf("failed to update records: %w", err)
	}
	return nil
}
