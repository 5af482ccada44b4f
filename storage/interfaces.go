package storage

import (
	"context"

	"github.com/poiesic/clinroute/core"
)

// Entry pairs a catalog record with its embedding vector.
// Vectors live only inside the store; retrieval returns bare records.
type Entry[T any] struct {
	Record T
	Vector []float32
}

// CatalogReader ranks catalog records against a query vector.
// Implementations must be thread-safe and support concurrent access.
type CatalogReader[T any] interface {
	// FindSimilar returns up to limit records ordered by descending cosine
	// similarity to vector. Each returned record carries its similarity in
	// [0,1]. An empty catalog yields an empty slice and no error.
	// The catalog is never mutated.
	FindSimilar(ctx context.Context, vector []float32, limit int) ([]T, error)

	// Count returns the number of records in the catalog.
	Count(ctx context.Context) (int, error)
}

// CatalogWriter maintains catalog contents.
type CatalogWriter[T any] interface {
	// Upsert inserts or replaces entries. Records with a zero ID are
	// assigned one by the store.
	Upsert(ctx context.Context, entries ...Entry[T]) error

	// Delete removes records by ID. Returns ErrNotFound if any is missing.
	Delete(ctx context.Context, ids ...core.ID) error

	// ForEach visits every entry in ID order, batchSize entries at a time.
	// Iteration stops at the first error returned by fn.
	ForEach(ctx context.Context, batchSize int, fn func([]Entry[T]) error) error
}

// CatalogStore is a complete catalog backend.
type CatalogStore[T any] interface {
	CatalogReader[T]
	CatalogWriter[T]

	// Close releases resources held by the store. The backend it was built
	// on is closed separately.
	Close() error
}

// CheckpointStore saves the last pipeline state of each conversation thread.
type CheckpointStore interface {
	// SaveCheckpoint replaces the checkpoint stored for threadID.
	SaveCheckpoint(ctx context.Context, threadID string, state core.PipelineState) error

	// LoadCheckpoint returns the checkpoint for threadID, or nil and no
	// error when the thread has none.
	LoadCheckpoint(ctx context.Context, threadID string) (*core.PipelineState, error)

	// DeleteCheckpoint removes the checkpoint for threadID if present.
	DeleteCheckpoint(ctx context.Context, threadID string) error
}

// ThreadRepository persists conversation threads and their messages.
type ThreadRepository interface {
	// CreateThread stores a new thread. An empty title becomes core.DefaultThreadTitle.
	CreateThread(ctx context.Context, title string) (*core.Thread, error)

	// GetThread returns ErrNotFound if the thread doesn't exist.
	GetThread(ctx context.Context, id string) (*core.Thread, error)

	// ListThreads returns every thread, most recently updated first.
	ListThreads(ctx context.Context) ([]*core.Thread, error)

	// UpdateThreadTitle renames a thread. Returns ErrNotFound if it doesn't exist.
	UpdateThreadTitle(ctx context.Context, id, title string) (*core.Thread, error)

	// DeleteThread removes a thread and its messages. Returns ErrNotFound if
	// the thread doesn't exist.
	DeleteThread(ctx context.Context, id string) error

	// AddMessage appends a message and bumps the thread's UpdatedAt.
	// Returns ErrNotFound if the thread doesn't exist.
	AddMessage(ctx context.Context, msg *core.Message) (*core.Message, error)

	// GetMessages returns a thread's messages in insertion order.
	GetMessages(ctx context.Context, threadID string) ([]*core.Message, error)

	// Close releases resources held by the repository.
	Close() error
}
