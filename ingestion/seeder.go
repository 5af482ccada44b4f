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

package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/clinroute/ai"
	"github.com/poiesic/clinroute/core"
	"github.com/poiesic/clinroute/reembed"
	"github.com/poiesic/clinroute/storage"
)

// DefaultBatchSize is the number of records embedded per call.
const DefaultBatchSize = 32

// Seeder embeds catalog records and upserts them into their stores.
type Seeder struct {
	tools     storage.CatalogWriter[core.ToolRecord]
	orgs      storage.CatalogWriter[core.OrgRecord]
	embedder  ai.Embedder
	pool      *ants.Pool
	batchSize int
	retry     reembed.RetryPolicy
	logger    *slog.Logger
}

// Result counts the records written per catalog.
type Result struct {
	Tools int
	Orgs  int
}

// Option configures a Seeder.
type Option func(*Seeder) error

// WithPoolSize sets the worker pool size for concurrent embedding.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(s *Seeder) error {
		if size < 1 {
			size = 1
		}
		if s.pool != nil {
			s.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		s.pool = pool
		return nil
	}
}

// WithBatchSize sets how many records are embedded per call.
func WithBatchSize(size int) Option {
	return func(s *Seeder) error {
		if size < 1 {
			return fmt.Errorf("invalid batch size %d", size)
		}
		s.batchSize = size
		return nil
	}
}

// WithRetryPolicy sets the retry policy for embedding calls.
func WithRetryPolicy(policy reembed.RetryPolicy) Option {
	return func(s *Seeder) error {
		if policy.MaxAttempts <= 0 {
			return reembed.ErrInvalidMaxAttempts
		}
		s.retry = policy
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Seeder) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSeeder creates a seeder writing to the given catalog stores.
// Call Release when done.
func NewSeeder(
	tools storage.CatalogWriter[core.ToolRecord],
	orgs storage.CatalogWriter[core.OrgRecord],
	embedder ai.Embedder,
	opts ...Option,
) (*Seeder, error) {
	if tools == nil {
		return nil, ErrToolStoreRequired
	}
	if orgs == nil {
		return nil, ErrOrgStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	poolSize := max(runtime.NumCPU()/2, 1)
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	s := &Seeder{
		tools:     tools,
		orgs:      orgs,
		embedder:  embedder,
		pool:      pool,
		batchSize: DefaultBatchSize,
		retry:     reembed.DefaultRetryPolicy(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		if optErr := opt(s); optErr != nil {
			s.Release()
			return nil, optErr
		}
	}
	s.logger = s.logger.With("component", "seeder")
	return s, nil
}

// Seed embeds and stores every record of catalog. Batches run concurrently;
// the first failure cancels the batches that have not started and is
// returned along with any other failures. Batches written before a failure
// stay written, and re-seeding the same catalog is safe.
func (s *Seeder) Seed(ctx context.Context, catalog *Catalog) (Result, error) {
	if catalog == nil || catalog.Len() == 0 {
		return Result{}, nil
	}

	parent := ctx
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	run := &seedRun{cancel: cancel}
	toolCount := submitBatches(ctx, s, run, "tools", s.tools, catalog.Tools)
	orgCount := submitBatches(ctx, s, run, "organizations", s.orgs, catalog.Organizations)
	run.wg.Wait()

	result := Result{Tools: int(toolCount.Load()), Orgs: int(orgCount.Load())}
	if err := run.err(); err != nil {
		return result, err
	}
	if err := parent.Err(); err != nil {
		return result, err
	}
	s.logger.Info("catalog seeded", "tools", result.Tools, "organizations", result.Orgs)
	return result, nil
}

// Release releases the worker pool.
// The seeder should not be used after calling Release.
func (s *Seeder) Release() {
	if s.pool != nil {
		s.pool.Release()
	}
}

type seedRun struct {
	wg     sync.WaitGroup
	mu     sync.Mutex
	errs   []error
	cancel context.CancelFunc
}

func (r *seedRun) fail(err error) {
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()
	r.cancel()
}

func (r *seedRun) err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return errors.Join(r.errs...)
}

func submitBatches[T core.Record[T]](ctx context.Context, s *Seeder, run *seedRun, kind string, store storage.CatalogWriter[T], records []T) *atomic.Int64 {
	written := &atomic.Int64{}
	for start := 0; start < len(records); start += s.batchSize {
		batch := records[start:min(start+s.batchSize, len(records))]
		first := start

		run.wg.Add(1)
		err := s.pool.Submit(func() {
			defer run.wg.Done()
			if ctx.Err() != nil {
				return
			}
			entries, err := reembed.Embed(ctx, s.embedder, s.retry, s.logger, batch)
			if err == nil {
				err = store.Upsert(ctx, entries...)
			}
			if err != nil {
				s.logger.Error("error seeding batch", "catalog", kind, "offset", first, "err", err)
				run.fail(fmt.Errorf("%s batch at %d: %w", kind, first, err))
				return
			}
			written.Add(int64(len(batch)))
		})
		if err != nil {
			run.wg.Done()
			run.fail(fmt.Errorf("submit %s batch: %w", kind, err))
			break
		}
	}
	return written
}
