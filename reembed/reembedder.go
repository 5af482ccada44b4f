// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package reembed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/poiesic/clinroute/ai"
	"github.com/poiesic/clinroute/core"
	"github.com/poiesic/clinroute/storage"
)

// Config holds configuration for a reembedding run.
type Config struct {
	// BatchSize is the number of records embedded per call.
	BatchSize int

	// ReportInterval is how often progress is written, in records.
	ReportInterval int

	// Retry governs retries of failed embedding calls.
	Retry RetryPolicy
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      100,
		ReportInterval: 100,
		Retry:          DefaultRetryPolicy(),
	}
}

// Reembedder recomputes the vectors of every record in one catalog.
type Reembedder[T core.Record[T]] struct {
	name      string
	store     storage.CatalogStore[T]
	config    *Config
	progress  io.Writer
	processor *BatchProcessor[T]
	logger    *slog.Logger
}

// NewReembedder creates a reembedder for the catalog called name.
// Progress lines go to progress (typically os.Stderr); nil discards them.
func NewReembedder[T core.Record[T]](name string, store storage.CatalogStore[T], embedder ai.Embedder, config *Config, progress io.Writer, logger *slog.Logger) (*Reembedder[T], error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.BatchSize <= 0 {
		return nil, fmt.Errorf("invalid batch size %d", config.BatchSize)
	}
	if config.Retry.MaxAttempts <= 0 {
		return nil, ErrInvalidMaxAttempts
	}
	if progress == nil {
		progress = io.Discard
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "reembedder", "catalog", name)

	return &Reembedder[T]{
		name:      name,
		store:     store,
		config:    config,
		progress:  progress,
		processor: NewBatchProcessor(store, embedder, config.Retry, logger),
		logger:    logger,
	}, nil
}

// Run re-embeds every record and returns how many were processed. On error
// the count covers the batches written before the failure.
func (r *Reembedder[T]) Run(ctx context.Context) (int, error) {
	total, err := r.store.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	if total == 0 {
		fmt.Fprintf(r.progress, "No records found in %s catalog\n", r.name)
		return 0, nil
	}

	fmt.Fprintf(r.progress, "Starting reembedding of %d %s records (batch size: %d)\n",
		total, r.name, r.config.BatchSize)
	r.logger.Info("reembedding started", "total", total)

	tracker := NewProgressTracker(r.progress, r.name, total, r.config.ReportInterval)
	tracker.Start()

	err = r.store.ForEach(ctx, r.config.BatchSize, func(entries []storage.Entry[T]) error {
		if err := r.processor.Process(ctx, entries); err != nil {
			return fmt.Errorf("failed to process batch: %w", err)
		}
		tracker.Add(len(entries))
		return nil
	})
	tracker.Finish()

	processed := tracker.Current()
	if err != nil {
		r.logger.Error("reembedding failed", "processed", processed, "err", err)
		return processed, err
	}

	elapsed := tracker.Elapsed()
	fmt.Fprintf(r.progress, "Reembedding complete. Processed %d records in %v (%.1f records/sec)\n",
		processed, elapsed.Round(time.Millisecond), float64(processed)/max(elapsed.Seconds(), 1e-9))
	r.logger.Info("reembedding complete", "processed", processed, "elapsed", elapsed)
	return processed, nil
}
