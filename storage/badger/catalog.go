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

package badger

import (
	"context"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/clinroute/core"
	"github.com/poiesic/clinroute/storage"
)

// CatalogRepository implements storage.CatalogStore for one catalog.
// Records and their vectors share a single value under a per-catalog prefix.
type CatalogRepository[T core.Record[T]] struct {
	backend *Backend
	name    string
	prefix  []byte
	idSeq   *badger.Sequence
}

var (
	_ storage.CatalogStore[core.ToolRecord] = (*CatalogRepository[core.ToolRecord])(nil)
	_ storage.CatalogStore[core.OrgRecord]  = (*CatalogRepository[core.OrgRecord])(nil)
)

// NewToolCatalog creates the clinical tools catalog.
func NewToolCatalog(backend *Backend) (storage.CatalogStore[core.ToolRecord], error) {
	return newCatalogRepository[core.ToolRecord](backend, toolCatalogName)
}

// NewOrgCatalog creates the healthcare organizations catalog.
func NewOrgCatalog(backend *Backend) (storage.CatalogStore[core.OrgRecord], error) {
	return newCatalogRepository[core.OrgRecord](backend, orgCatalogName)
}

func newCatalogRepository[T core.Record[T]](backend *Backend, name string) (*CatalogRepository[T], error) {
	idSeq, err := backend.GetSequence(makeCatalogSeqKey(name))
	if err != nil {
		return nil, err
	}
	return &CatalogRepository[T]{
		backend: backend,
		name:    name,
		prefix:  makeCatalogPrefix(name),
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *CatalogRepository[T]) Close() error {
	return r.idSeq.Release()
}

// FindSimilar scans the catalog and ranks records by cosine similarity.
func (r *CatalogRepository[T]) FindSimilar(ctx context.Context, vector []float32, limit int) ([]T, error) {
	return scanSimilar(ctx, r.backend, r.prefix, vector, limit, func(rec T, score float32) T {
		return rec.WithSimilarity(score)
	})
}

// Count returns the number of records in the catalog.
func (r *CatalogRepository[T]) Count(ctx context.Context) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = r.prefix
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()
		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

// Upsert stores entries, assigning sequence IDs to records without one.
// Retrieval scores are never persisted.
func (r *CatalogRepository[T]) Upsert(ctx context.Context, entries ...storage.Entry[T]) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, entry := range entries {
			if entry.Record.RecordID() == 0 {
				id, err := nextID(r.idSeq)
				if err != nil {
					return err
				}
				entry.Record = entry.Record.WithID(core.ID(id))
			}
			entry.Record = entry.Record.WithSimilarity(0)

			value, err := storage.MarshalEntry(entry)
			if err != nil {
				return err
			}
			if err := tx.Set(makeCatalogKey(r.name, entry.Record.RecordID()), value); err != nil {
				return err
			}
		}
		return commit(tx)
	}, true)
}

// Delete removes records by their IDs.
func (r *CatalogRepository[T]) Delete(ctx context.Context, ids ...core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			key := makeCatalogKey(r.name, id)
			if _, err := tx.Get(key); err != nil {
				if err == badger.ErrKeyNotFound {
					return storage.ErrNotFound
				}
				return err
			}
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return commit(tx)
	}, true)
}

// ForEach visits entries in ID order in batches of batchSize.
// The read transaction stays open across callbacks, so fn sees a consistent
// snapshot and may write through Upsert.
func (r *CatalogRepository[T]) ForEach(ctx context.Context, batchSize int, fn func([]storage.Entry[T]) error) error {
	if batchSize <= 0 {
		return storage.ErrInvalidQuery
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = r.prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		batch := make([]storage.Entry[T], 0, batchSize)
		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var entry storage.Entry[T]
			err := iter.Item().Value(func(val []byte) error {
				var err error
				entry, err = storage.UnmarshalEntry[T](val)
				return err
			})
			if err != nil {
				return err
			}

			batch = append(batch, entry)
			if len(batch) == batchSize {
				if err := fn(batch); err != nil {
					return err
				}
				batch = make([]storage.Entry[T], 0, batchSize)
			}
		}
		if len(batch) > 0 {
			return fn(batch)
		}
		return nil
	}, false)
}
