package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/poiesic/clinroute/core"
	"github.com/poiesic/clinroute/storage"
)

// ThreadRepository implements storage.ThreadRepository on the threads and
// messages tables.
type ThreadRepository struct {
	pool *pgxpool.Pool
}

var _ storage.ThreadRepository = (*ThreadRepository)(nil)

// NewThreadRepository creates a thread repository backed by pool.
func NewThreadRepository(pool *pgxpool.Pool) storage.ThreadRepository {
	return &ThreadRepository{pool: pool}
}

// Close is a no-op; the pool is owned by the caller.
func (r *ThreadRepository) Close() error {
	return nil
}

func (r *ThreadRepository) CreateThread(ctx context.Context, title string) (*core.Thread, error) {
	if title == "" {
		title = core.DefaultThreadTitle
	}
	row := r.pool.QueryRow(ctx,
		`INSERT INTO threads (id, title) VALUES ($1, $2)
		 RETURNING id::text, title, created_at, updated_at`,
		uuid.NewString(), title)
	t, err := scanThread(row)
	if err != nil {
		return nil, fmt.Errorf("create thread: %w", err)
	}
	return t, nil
}

func (r *ThreadRepository) GetThread(ctx context.Context, id string) (*core.Thread, error) {
	if uuid.Validate(id) != nil {
		return nil, storage.ErrNotFound
	}
	row := r.pool.QueryRow(ctx,
		`SELECT id::text, title, created_at, updated_at FROM threads WHERE id = $1`, id)
	t, err := scanThread(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get thread %s: %w", id, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("get thread %s: %w", id, err)
	}
	return t, nil
}

func (r *ThreadRepository) ListThreads(ctx context.Context) ([]*core.Thread, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id::text, title, created_at, updated_at FROM threads ORDER BY updated_at DESC, created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}
	defer rows.Close()

	threads := []*core.Thread{}
	for rows.Next() {
		t, err := scanThread(rows)
		if err != nil {
			return nil, err
		}
		threads = append(threads, t)
	}
	return threads, rows.Err()
}

func (r *ThreadRepository) UpdateThreadTitle(ctx context.Context, id, title string) (*core.Thread, error) {
	if uuid.Validate(id) != nil {
		return nil, storage.ErrNotFound
	}
	row := r.pool.QueryRow(ctx,
		`UPDATE threads SET title = $2, updated_at = now() WHERE id = $1
		 RETURNING id::text, title, created_at, updated_at`, id, title)
	t, err := scanThread(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("update thread %s: %w", id, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("update thread %s: %w", id, err)
	}
	return t, nil
}

// DeleteThread removes a thread; messages go with it via ON DELETE CASCADE.
func (r *ThreadRepository) DeleteThread(ctx context.Context, id string) error {
	if uuid.Validate(id) != nil {
		return storage.ErrNotFound
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM threads WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete thread %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete thread %s: %w", id, storage.ErrNotFound)
	}
	return nil
}

func (r *ThreadRepository) AddMessage(ctx context.Context, msg *core.Message) (*core.Message, error) {
	if err := core.ValidateMessage(msg); err != nil {
		return nil, err
	}
	if uuid.Validate(msg.ThreadID) != nil {
		return nil, storage.ErrNotFound
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `UPDATE threads SET updated_at = now() WHERE id = $1`, msg.ThreadID)
	if err != nil {
		return nil, fmt.Errorf("touch thread %s: %w", msg.ThreadID, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("add message to %s: %w", msg.ThreadID, storage.ErrNotFound)
	}

	msg.ID = uuid.NewString()
	err = tx.QueryRow(ctx,
		`INSERT INTO messages (id, thread_id, role, content, route) VALUES ($1, $2, $3, $4, $5)
		 RETURNING created_at`,
		msg.ID, msg.ThreadID, string(msg.Role), msg.Content, string(msg.Route)).Scan(&msg.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return msg, nil
}

func (r *ThreadRepository) GetMessages(ctx context.Context, threadID string) ([]*core.Message, error) {
	if _, err := r.GetThread(ctx, threadID); err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id::text, thread_id::text, role, content, route, created_at
		 FROM messages WHERE thread_id = $1 ORDER BY seq`, threadID)
	if err != nil {
		return nil, fmt.Errorf("get messages %s: %w", threadID, err)
	}
	defer rows.Close()

	msgs := []*core.Message{}
	for rows.Next() {
		var m core.Message
		var role, route string
		if err := rows.Scan(&m.ID, &m.ThreadID, &role, &m.Content, &route, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.Role = core.MessageRole(role)
		m.Route = core.Route(route)
		msgs = append(msgs, &m)
	}
	return msgs, rows.Err()
}

func scanThread(row pgx.Row) (*core.Thread, error) {
	var t core.Thread
	if err := row.Scan(&t.ID, &t.Title, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}
