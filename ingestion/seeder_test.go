package ingestion

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/clinroute/ai/mock"
	"github.com/poiesic/clinroute/core"
	"github.com/poiesic/clinroute/reembed"
	"github.com/poiesic/clinroute/storage"
	"github.com/poiesic/clinroute/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepos(t *testing.T) *badger.Repositories {
	t.Helper()
	repos, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() { repos.Close() })
	return repos
}

func newTestSeeder(t *testing.T, repos *badger.Repositories, embedder *mock.MockEmbedder, opts ...Option) *Seeder {
	t.Helper()
	opts = append([]Option{
		WithPoolSize(4),
		WithRetryPolicy(reembed.RetryPolicy{MaxAttempts: 1, BaseDelay: time.Millisecond}),
	}, opts...)
	s, err := NewSeeder(repos.Tools, repos.Orgs, embedder, opts...)
	require.NoError(t, err)
	t.Cleanup(s.Release)
	return s
}

func loadTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	catalog, err := LoadCatalogFile("testdata/catalog.yaml")
	require.NoError(t, err)
	return catalog
}

func TestNewSeeder_Validation(t *testing.T) {
	repos := newTestRepos(t)
	embedder := mock.NewMockEmbedder()

	_, err := NewSeeder(nil, repos.Orgs, embedder)
	assert.ErrorIs(t, err, ErrToolStoreRequired)

	_, err = NewSeeder(repos.Tools, nil, embedder)
	assert.ErrorIs(t, err, ErrOrgStoreRequired)

	_, err = NewSeeder(repos.Tools, repos.Orgs, nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)

	_, err = NewSeeder(repos.Tools, repos.Orgs, embedder, WithBatchSize(0))
	assert.Error(t, err)

	_, err = NewSeeder(repos.Tools, repos.Orgs, embedder, WithRetryPolicy(reembed.RetryPolicy{}))
	assert.ErrorIs(t, err, reembed.ErrInvalidMaxAttempts)
}

func TestSeeder_Seed(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()
	embedder := mock.NewMockEmbedder()
	s := newTestSeeder(t, repos, embedder, WithBatchSize(2))

	result, err := s.Seed(ctx, loadTestCatalog(t))
	require.NoError(t, err)
	assert.Equal(t, Result{Tools: 3, Orgs: 2}, result)
	assert.Equal(t, 3, embedder.CallCount(), "two tool batches and one org batch")

	toolCount, err := repos.Tools.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, toolCount)

	orgCount, err := repos.Orgs.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, orgCount)

	// Seeded vectors rank the matching record first
	query := loadTestCatalog(t).Tools[1]
	found, err := repos.Tools.FindSimilar(ctx, mock.Vector(query.EmbeddingText()), 1)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, query.Name, found[0].Name)
	assert.InDelta(t, 1.0, found[0].Similarity, 1e-5)
}

func TestSeeder_SeedTwiceIsIdempotent(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()
	s := newTestSeeder(t, repos, mock.NewMockEmbedder())

	_, err := s.Seed(ctx, loadTestCatalog(t))
	require.NoError(t, err)
	_, err = s.Seed(ctx, loadTestCatalog(t))
	require.NoError(t, err)

	count, err := repos.Tools.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	ids := map[core.ID]bool{}
	err = repos.Orgs.ForEach(ctx, 10, func(batch []storage.Entry[core.OrgRecord]) error {
		for _, e := range batch {
			ids[e.Record.ID] = true
		}
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ids[OrgID("Mayo Clinic")])
	assert.True(t, ids[OrgID("Kaiser Permanente")])
}

func TestSeeder_EmptyCatalog(t *testing.T) {
	repos := newTestRepos(t)
	embedder := mock.NewMockEmbedder()
	s := newTestSeeder(t, repos, embedder)

	result, err := s.Seed(context.Background(), &Catalog{})
	require.NoError(t, err)
	assert.Zero(t, result)

	result, err = s.Seed(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, result)
	assert.Zero(t, embedder.CallCount())
}

func TestSeeder_EmbedderFailure(t *testing.T) {
	repos := newTestRepos(t)
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(context.Context, []string) ([][]float32, error) {
		return nil, errors.New("embedding service down")
	}
	s := newTestSeeder(t, repos, embedder)

	result, err := s.Seed(context.Background(), loadTestCatalog(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embedding service down")
	assert.Zero(t, result)

	count, err := repos.Tools.Count(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestSeeder_PartialFailureReportsWrittenCounts(t *testing.T) {
	repos := newTestRepos(t)
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(_ context.Context, texts []string) ([][]float32, error) {
		for _, text := range texts {
			if text == loadTestCatalog(t).Organizations[1].EmbeddingText() {
				return nil, errors.New("rejected")
			}
		}
		vectors := make([][]float32, len(texts))
		for i, text := range texts {
			vectors[i] = mock.Vector(text)
		}
		return vectors, nil
	}
	s := newTestSeeder(t, repos, embedder, WithPoolSize(1), WithBatchSize(1))

	result, err := s.Seed(context.Background(), loadTestCatalog(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "organizations batch at 1")
	assert.Equal(t, 3, result.Tools)
	assert.Equal(t, 1, result.Orgs)
}

func TestSeeder_CancelledContext(t *testing.T) {
	repos := newTestRepos(t)
	var calls atomic.Int32
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		calls.Add(1)
		return nil, ctx.Err()
	}
	s := newTestSeeder(t, repos, embedder)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Seed(ctx, loadTestCatalog(t))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls.Load())
}
