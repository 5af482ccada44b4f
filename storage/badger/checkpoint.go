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
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/clinroute/core"
	"github.com/poiesic/clinroute/storage"
)

// CheckpointRepository implements storage.CheckpointStore for BadgerDB.
type CheckpointRepository struct {
	backend *Backend
}

var _ storage.CheckpointStore = (*CheckpointRepository)(nil)

// NewCheckpointRepository creates a new CheckpointRepository.
func NewCheckpointRepository(backend *Backend) storage.CheckpointStore {
	return &CheckpointRepository{
		backend: backend,
	}
}

// SaveCheckpoint persists the pipeline state for a thread.
func (r *CheckpointRepository) SaveCheckpoint(ctx context.Context, threadID string, state core.PipelineState) error {
	value, err := storage.MarshalCheckpoint(state, time.Now().UTC())
	if err != nil {
		return err
	}
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeCheckpointKey(threadID), value); err != nil {
			return err
		}
		return commit(tx)
	}, true)
}

// LoadCheckpoint retrieves the checkpoint for a thread.
// Returns nil, nil if no checkpoint exists.
func (r *CheckpointRepository) LoadCheckpoint(ctx context.Context, threadID string) (*core.PipelineState, error) {
	var state *core.PipelineState
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeCheckpointKey(threadID))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return nil
			}
			return err
		}

		return item.Value(func(val []byte) error {
			var unmarshalErr error
			state, _, unmarshalErr = storage.UnmarshalCheckpoint(val)
			return unmarshalErr
		})
	}, false)

	return state, err
}

// DeleteCheckpoint removes a thread's checkpoint. Missing checkpoints are ignored.
func (r *CheckpointRepository) DeleteCheckpoint(ctx context.Context, threadID string) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Delete(makeCheckpointKey(threadID)); err != nil {
			return err
		}
		return commit(tx)
	}, true)
}
