package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/poiesic/clinroute/core"
	"github.com/poiesic/clinroute/storage"
)

// CheckpointRepository implements storage.CheckpointStore with a JSONB column.
type CheckpointRepository struct {
	pool *pgxpool.Pool
}

var _ storage.CheckpointStore = (*CheckpointRepository)(nil)

// NewCheckpointRepository creates a checkpoint store backed by pool.
func NewCheckpointRepository(pool *pgxpool.Pool) storage.CheckpointStore {
	return &CheckpointRepository{pool: pool}
}

func (r *CheckpointRepository) SaveCheckpoint(ctx context.Context, threadID string, state core.PipelineState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO checkpoints (thread_id, state, saved_at) VALUES ($1, $2, now())
		 ON CONFLICT (thread_id) DO UPDATE SET state = EXCLUDED.state, saved_at = now()`,
		threadID, data)
	if err != nil {
		return fmt.Errorf("save checkpoint %s: %w", threadID, err)
	}
	return nil
}

func (r *CheckpointRepository) LoadCheckpoint(ctx context.Context, threadID string) (*core.PipelineState, error) {
	var data []byte
	err := r.pool.QueryRow(ctx, `SELECT state FROM checkpoints WHERE thread_id = $1`, threadID).Scan(&data)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load checkpoint %s: %w", threadID, err)
	}

	var state core.PipelineState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
	}
	return &state, nil
}

func (r *CheckpointRepository) DeleteCheckpoint(ctx context.Context, threadID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM checkpoints WHERE thread_id = $1`, threadID); err != nil {
		return fmt.Errorf("delete checkpoint %s: %w", threadID, err)
	}
	return nil
}
