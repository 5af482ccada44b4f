package badger

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"os"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/poiesic/clinroute/storage"
)

const (
	defaultSequenceBandwidth = 100

	// maxConflictRetries bounds how often a write transaction is rerun after
	// losing a conflict to a concurrent writer.
	maxConflictRetries = 100
	conflictBackoff    = 500 * time.Microsecond
)

// Backend wraps a BadgerDB instance and provides low-level operations.
type Backend struct {
	db     *badger.DB
	logger *slog.Logger
}

// badgerLoggerAdapter adapts slog.Logger to badger.Logger interface.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Info(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// OpenBackend opens a BadgerDB database at the specified path.
// Creates the directory if it doesn't exist. A nil logger uses slog.Default().
func OpenBackend(filePath string, inMemory bool, logger *slog.Logger) (*Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "badger")

	var opts badger.Options
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		// Ensure directory exists
		info, err := os.Stat(filePath)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, err
			}
			if err := os.MkdirAll(filePath, 0755); err != nil {
				return nil, err
			}
			if info, err = os.Stat(filePath); err != nil {
				return nil, err
			}
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", filePath)
		}
		opts = badger.DefaultOptions(filePath)
	}

	opts.Logger = &badgerLoggerAdapter{logger: logger}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &Backend{
		db:     db,
		logger: logger,
	}, nil
}

// Close closes the BadgerDB database.
func (b *Backend) Close() error {
	return b.db.Close()
}

// IsClosed returns true if the database is closed.
func (b *Backend) IsClosed() bool {
	return b.db.IsClosed()
}

// WithTx executes a function within a BadgerDB transaction.
// If isWrite is true, creates a read-write transaction.
// The transaction is automatically discarded if fn returns an error.
func (b *Backend) WithTx(fn func(tx *badger.Txn) error, isWrite bool) error {
	if b.db.IsClosed() {
		return storage.ErrStorageClosed
	}
	tx := b.db.NewTransaction(isWrite)
	defer tx.Discard()
	return fn(tx)
}

// WithWriteTx runs fn in a write transaction and reruns it in a fresh
// transaction when the commit fails with badger.ErrConflict. fn must be
// safe to run more than once.
func (b *Backend) WithWriteTx(ctx context.Context, fn func(tx *badger.Txn) error) error {
	var err error
	for attempt := 1; attempt <= maxConflictRetries; attempt++ {
		err = b.WithTx(fn, true)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		b.logger.Debug("write conflict, retrying", "attempt", attempt)
		delay := conflictBackoff*time.Duration(min(attempt, 10)) + rand.N(conflictBackoff)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return err
}

// GetSequence returns a BadgerDB sequence for generating sequential IDs.
func (b *Backend) GetSequence(name string) (*badger.Sequence, error) {
	return b.db.GetSequence([]byte(name), defaultSequenceBandwidth)
}

// nextID draws from seq, skipping the 0 BadgerDB can return on first call.
func nextID(seq *badger.Sequence) (uint64, error) {
	id, err := seq.Next()
	if err != nil {
		return 0, err
	}
	if id == 0 {
		return seq.Next()
	}
	return id, nil
}

type scored[T any] struct {
	record T
	score  float32
}

// scanSimilar ranks every entry under prefix by cosine similarity to vector
// and returns the best limit records. Entries without vectors are skipped.
// Scores are attached with attach after clamping to [0,1].
func scanSimilar[T any](ctx context.Context, b *Backend, prefix []byte, vector []float32, limit int, attach func(T, float32) T) ([]T, error) {
	if limit <= 0 {
		return []T{}, nil
	}

	var hits []scored[T]
	err := b.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

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
			if len(entry.Vector) == 0 {
				continue
			}
			if len(entry.Vector) != len(vector) {
				return fmt.Errorf("%w: query has %d dimensions, stored %d",
					storage.ErrDimensionMismatch, len(vector), len(entry.Vector))
			}

			hits = append(hits, scored[T]{record: entry.Record, score: cosineSimilarity(vector, entry.Vector)})
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	// Stable so equal scores keep ID order
	slices.SortStableFunc(hits, func(a, b scored[T]) int {
		return cmp.Compare(b.score, a.score)
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}

	results := make([]T, len(hits))
	for i, h := range hits {
		results[i] = attach(h.record, clamp01(h.score))
	}
	return results, nil
}

// cosineSimilarity returns 1 - cosine distance. A zero vector scores 0.
func cosineSimilarity(a, b []float32) float32 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

func clamp01(v float32) float32 {
	return min(max(v, 0), 1)
}

// commit commits tx, wrapping failures in storage.ErrTransactionFailed.
func commit(tx *badger.Txn) error {
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %w", storage.ErrTransactionFailed, err)
	}
	return nil
}
