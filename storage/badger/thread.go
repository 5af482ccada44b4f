package badger

import (
	"context"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/poiesic/clinroute/core"
	"github.com/poiesic/clinroute/storage"
)

// ThreadRepository implements storage.ThreadRepository for BadgerDB.
type ThreadRepository struct {
	backend *Backend
	msgSeq  *badger.Sequence
}

var _ storage.ThreadRepository = (*ThreadRepository)(nil)

// NewThreadRepository creates a new ThreadRepository.
func NewThreadRepository(backend *Backend) (storage.ThreadRepository, error) {
	msgSeq, err := backend.GetSequence(threadMessageSeq)
	if err != nil {
		return nil, err
	}
	return &ThreadRepository{
		backend: backend,
		msgSeq:  msgSeq,
	}, nil
}

// Close releases the message sequence.
func (r *ThreadRepository) Close() error {
	return r.msgSeq.Release()
}

// CreateThread stores a new thread with a random ID.
func (r *ThreadRepository) CreateThread(ctx context.Context, title string) (*core.Thread, error) {
	if title == "" {
		title = core.DefaultThreadTitle
	}
	now := time.Now().UTC()
	thread := &core.Thread{
		ID:        uuid.NewString(),
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		if err := writeThread(tx, thread); err != nil {
			return err
		}
		return commit(tx)
	}, true)
	if err != nil {
		return nil, err
	}
	return thread, nil
}

// GetThread retrieves a single thread by ID.
func (r *ThreadRepository) GetThread(ctx context.Context, id string) (*core.Thread, error) {
	var result *core.Thread
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readThread(tx, id)
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// ListThreads returns all threads, most recently updated first.
func (r *ThreadRepository) ListThreads(ctx context.Context) ([]*core.Thread, error) {
	results := []*core.Thread{}
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(threadPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var thread *core.Thread
			err := iter.Item().Value(func(val []byte) error {
				var err error
				thread, err = storage.UnmarshalThread(val)
				return err
			})
			if err != nil {
				return err
			}
			results = append(results, thread)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(results, func(a, b *core.Thread) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return results, nil
}

// UpdateThreadTitle renames a thread.
func (r *ThreadRepository) UpdateThreadTitle(ctx context.Context, id, title string) (*core.Thread, error) {
	var thread *core.Thread
	err := r.backend.WithWriteTx(ctx, func(tx *badger.Txn) error {
		var err error
		thread, err = readThread(tx, id)
		if err != nil {
			return err
		}
		if thread == nil {
			return storage.ErrNotFound
		}
		thread.Title = title
		thread.UpdatedAt = time.Now().UTC()
		if err := writeThread(tx, thread); err != nil {
			return err
		}
		return commit(tx)
	})
	if err != nil {
		return nil, err
	}
	return thread, nil
}

// DeleteThread removes a thread and all of its messages.
func (r *ThreadRepository) DeleteThread(ctx context.Context, id string) error {
	return r.backend.WithWriteTx(ctx, func(tx *badger.Txn) error {
		thread, err := readThread(tx, id)
		if err != nil {
			return err
		}
		if thread == nil {
			return storage.ErrNotFound
		}

		// Collect first; deleting while iterating invalidates the iterator
		var keys [][]byte
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeThreadMessagePrefix(id)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		for iter.Rewind(); iter.Valid(); iter.Next() {
			keys = append(keys, iter.Item().KeyCopy(nil))
		}
		iter.Close()

		for _, key := range keys {
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		if err := tx.Delete(makeThreadKey(id)); err != nil {
			return err
		}
		return commit(tx)
	})
}

// AddMessage appends a message to its thread and bumps the thread's UpdatedAt.
func (r *ThreadRepository) AddMessage(ctx context.Context, msg *core.Message) (*core.Message, error) {
	if err := core.ValidateMessage(msg); err != nil {
		return nil, err
	}
	err := r.backend.WithWriteTx(ctx, func(tx *badger.Txn) error {
		thread, err := readThread(tx, msg.ThreadID)
		if err != nil {
			return err
		}
		if thread == nil {
			return storage.ErrNotFound
		}

		seq, err := nextID(r.msgSeq)
		if err != nil {
			return err
		}
		msg.ID = uuid.NewString()
		msg.CreatedAt = time.Now().UTC()

		value, err := storage.MarshalMessage(msg)
		if err != nil {
			return err
		}
		if err := tx.Set(makeThreadMessageKey(msg.ThreadID, seq), value); err != nil {
			return err
		}

		thread.UpdatedAt = msg.CreatedAt
		if err := writeThread(tx, thread); err != nil {
			return err
		}
		return commit(tx)
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// GetMessages returns a thread's messages in the order they were added.
func (r *ThreadRepository) GetMessages(ctx context.Context, threadID string) ([]*core.Message, error) {
	results := []*core.Message{}
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		thread, err := readThread(tx, threadID)
		if err != nil {
			return err
		}
		if thread == nil {
			return storage.ErrNotFound
		}

		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeThreadMessagePrefix(threadID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var msg *core.Message
			err := iter.Item().Value(func(val []byte) error {
				var err error
				msg, err = storage.UnmarshalMessage(val)
				return err
			})
			if err != nil {
				return err
			}
			results = append(results, msg)
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return results, nil
}

// Helper methods

// readThread reads a thread from the transaction. Returns nil, nil if absent.
func readThread(tx *badger.Txn, id string) (*core.Thread, error) {
	item, err := tx.Get(makeThreadKey(id))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var thread *core.Thread
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		thread, unmarshalErr = storage.UnmarshalThread(val)
		return unmarshalErr
	})
	return thread, err
}

func writeThread(tx *badger.Txn, thread *core.Thread) error {
	value, err := storage.MarshalThread(thread)
	if err != nil {
		return err
	}
	return tx.Set(makeThreadKey(thread.ID), value)
}
