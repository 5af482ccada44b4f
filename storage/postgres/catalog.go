package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/poiesic/clinroute/core"
	"github.com/poiesic/clinroute/storage"
)

// schema describes how one record type maps onto its table.
type schema[T any] struct {
	table   string
	kind    string   // prefix for content-derived IDs
	columns []string // record columns after id, excluding embedding
	values  func(T) []any
	scan    func(row pgx.Row, rec *T, extra ...any) error
}

var toolSchema = schema[core.ToolRecord]{
	table:   "clinical_tools",
	kind:    "tool",
	columns: []string{"name", "category", "description", "target_users", "problem_solved"},
	values: func(t core.ToolRecord) []any {
		return []any{t.Name, t.Category, t.Description, nonNil(t.TargetUsers), t.ProblemSolved}
	},
	scan: func(row pgx.Row, t *core.ToolRecord, extra ...any) error {
		var id int64
		dest := append([]any{&id, &t.Name, &t.Category, &t.Description, &t.TargetUsers, &t.ProblemSolved}, extra...)
		if err := row.Scan(dest...); err != nil {
			return err
		}
		t.ID = core.ID(uint64(id))
		return nil
	},
}

var orgSchema = schema[core.OrgRecord]{
	table:   "clinical_organizations",
	kind:    "org",
	columns: []string{"name", "org_type", "specialty", "description", "city", "state", "ai_use_cases"},
	values: func(o core.OrgRecord) []any {
		return []any{o.Name, o.OrgType, o.Specialty, o.Description, o.City, o.State, nonNil(o.AIUseCases)}
	},
	scan: func(row pgx.Row, o *core.OrgRecord, extra ...any) error {
		var id int64
		dest := append([]any{&id, &o.Name, &o.OrgType, &o.Specialty, &o.Description, &o.City, &o.State, &o.AIUseCases}, extra...)
		if err := row.Scan(dest...); err != nil {
			return err
		}
		o.ID = core.ID(uint64(id))
		return nil
	},
}

// CatalogRepository implements storage.CatalogStore on a pgvector table.
type CatalogRepository[T core.Record[T]] struct {
	pool   *pgxpool.Pool
	schema schema[T]
}

var (
	_ storage.CatalogStore[core.ToolRecord] = (*CatalogRepository[core.ToolRecord])(nil)
	_ storage.CatalogStore[core.OrgRecord]  = (*CatalogRepository[core.OrgRecord])(nil)
)

// NewToolCatalog creates the clinical tools catalog backed by pool.
func NewToolCatalog(pool *pgxpool.Pool) storage.CatalogStore[core.ToolRecord] {
	return &CatalogRepository[core.ToolRecord]{pool: pool, schema: toolSchema}
}

// NewOrgCatalog creates the healthcare organizations catalog backed by pool.
func NewOrgCatalog(pool *pgxpool.Pool) storage.CatalogStore[core.OrgRecord] {
	return &CatalogRepository[core.OrgRecord]{pool: pool, schema: orgSchema}
}

// Close is a no-op; the pool is owned by the caller.
func (r *CatalogRepository[T]) Close() error {
	return nil
}

// FindSimilar orders rows by cosine distance to vector.
func (r *CatalogRepository[T]) FindSimilar(ctx context.Context, vector []float32, limit int) ([]T, error) {
	results := []T{}
	if limit <= 0 {
		return results, nil
	}

	rows, err := r.pool.Query(ctx, similarQuery(r.schema.table, r.schema.columns), pgvector.NewVector(vector), limit)
	if err != nil {
		return nil, fmt.Errorf("find similar in %s: %w", r.schema.table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var rec T
		var similarity float64
		if err := r.schema.scan(rows, &rec, &similarity); err != nil {
			return nil, fmt.Errorf("scan %s: %w", r.schema.table, err)
		}
		results = append(results, rec.WithSimilarity(clamp01(float32(similarity))))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find similar in %s: %w", r.schema.table, err)
	}
	return results, nil
}

// Count returns the number of rows in the catalog table.
func (r *CatalogRepository[T]) Count(ctx context.Context) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, "SELECT count(*) FROM "+r.schema.table).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", r.schema.table, err)
	}
	return n, nil
}

// Upsert inserts or replaces rows in one batch. Records without an ID get
// one derived from their kind and name.
func (r *CatalogRepository[T]) Upsert(ctx context.Context, entries ...storage.Entry[T]) error {
	if len(entries) == 0 {
		return nil
	}

	query := upsertQuery(r.schema.table, r.schema.columns)
	batch := &pgx.Batch{}
	for _, e := range entries {
		rec := e.Record
		if rec.RecordID() == 0 {
			rec = rec.WithID(core.IDFromContent(r.schema.kind + ":" + rec.RecordName()))
		}
		args := []any{int64(rec.RecordID())}
		args = append(args, r.schema.values(rec)...)
		var embedding any
		if len(e.Vector) > 0 {
			embedding = pgvector.NewVector(e.Vector)
		}
		args = append(args, embedding)
		batch.Queue(query, args...)
	}

	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upsert %s: %w", r.schema.table, err)
	}
	return nil
}

// Delete removes rows by ID. Returns storage.ErrNotFound if any is missing.
func (r *CatalogRepository[T]) Delete(ctx context.Context, ids ...core.ID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, id := range ids {
		tag, err := tx.Exec(ctx, "DELETE FROM "+r.schema.table+" WHERE id = $1", int64(id))
		if err != nil {
			return fmt.Errorf("delete from %s: %w", r.schema.table, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("delete %d from %s: %w", id, r.schema.table, storage.ErrNotFound)
		}
	}
	return tx.Commit(ctx)
}

// ForEach pages through rows in ID order using keyset pagination.
func (r *CatalogRepository[T]) ForEach(ctx context.Context, batchSize int, fn func([]storage.Entry[T]) error) error {
	if batchSize <= 0 {
		return storage.ErrInvalidQuery
	}

	query := pageQuery(r.schema.table, r.schema.columns)
	var after *int64
	for {
		page, last, err := r.page(ctx, query, after, batchSize)
		if err != nil {
			return err
		}
		if len(page) == 0 {
			return nil
		}
		if err := fn(page); err != nil {
			return err
		}
		if len(page) < batchSize {
			return nil
		}
		after = &last
	}
}

func (r *CatalogRepository[T]) page(ctx context.Context, query string, after *int64, limit int) ([]storage.Entry[T], int64, error) {
	rows, err := r.pool.Query(ctx, query, after, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("page %s: %w", r.schema.table, err)
	}
	defer rows.Close()

	var entries []storage.Entry[T]
	var last int64
	for rows.Next() {
		var rec T
		var embedding *pgvector.Vector
		if err := r.schema.scan(rows, &rec, &embedding); err != nil {
			return nil, 0, fmt.Errorf("scan %s: %w", r.schema.table, err)
		}
		entry := storage.Entry[T]{Record: rec}
		if embedding != nil {
			entry.Vector = embedding.Slice()
		}
		entries = append(entries, entry)
		last = int64(rec.RecordID())
	}
	if err := rows.Err(); err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, 0, fmt.Errorf("page %s: %w", r.schema.table, err)
	}
	return entries, last, nil
}

func similarQuery(table string, columns []string) string {
	return fmt.Sprintf(
		"SELECT id, %s, 1 - (embedding <=> $1) AS similarity FROM %s WHERE embedding IS NOT NULL ORDER BY embedding <=> $1, id LIMIT $2",
		strings.Join(columns, ", "), table)
}

func upsertQuery(table string, columns []string) string {
	all := append([]string{"id"}, columns...)
	all = append(all, "embedding")

	placeholders := make([]string, len(all))
	for i := range all {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	updates := make([]string, 0, len(all))
	for _, c := range all[1:] {
		updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", c, c))
	}
	updates = append(updates, "updated_at = now()")

	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (id) DO UPDATE SET %s",
		table, strings.Join(all, ", "), strings.Join(placeholders, ", "), strings.Join(updates, ", "))
}

func pageQuery(table string, columns []string) string {
	return fmt.Sprintf(
		"SELECT id, %s, embedding FROM %s WHERE ($1::bigint IS NULL OR id > $1) ORDER BY id LIMIT $2",
		strings.Join(columns, ", "), table)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func clamp01(v float32) float32 {
	return min(max(v, 0), 1)
}
