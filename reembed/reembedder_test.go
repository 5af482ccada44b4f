package reembed

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/poiesic/clinroute/ai/mock"
	"github.com/poiesic/clinroute/core"
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

func seedStaleTools(t *testing.T, store storage.CatalogStore[core.ToolRecord], n int) {
	t.Helper()
	entries := make([]storage.Entry[core.ToolRecord], n)
	for i := range entries {
		entries[i] = storage.Entry[core.ToolRecord]{
			Record: core.ToolRecord{Name: "tool " + string(rune('A'+i)), Category: "Documentation"},
			Vector: []float32{1, 0, 0},
		}
	}
	require.NoError(t, store.Upsert(context.Background(), entries...))
}

func testConfig(batchSize int) *Config {
	return &Config{
		BatchSize:      batchSize,
		ReportInterval: 1,
		Retry:          RetryPolicy{MaxAttempts: 2, BaseDelay: time.Millisecond},
	}
}

func TestEmbed(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	records := []core.ToolRecord{
		{Name: "Ambient Clinical Documentation AI", Description: "Drafts notes from visits"},
		{Name: "Lexicomp Drug Information", Description: "Drug interactions"},
	}

	entries, err := Embed(context.Background(), embedder, testConfig(1).Retry, nil, records)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	for i, entry := range entries {
		assert.Equal(t, records[i], entry.Record)
		assert.Equal(t, mock.Vector(records[i].EmbeddingText()), entry.Vector)
	}
	assert.Equal(t, 1, embedder.CallCount(), "records are embedded in one call")
}

func TestEmbed_Empty(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	entries, err := Embed[core.ToolRecord](context.Background(), embedder, DefaultRetryPolicy(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Zero(t, embedder.CallCount())
}

func TestEmbed_Normalizes(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(_ context.Context, texts []string) ([][]float32, error) {
		return [][]float32{{3, 4}}, nil
	}

	entries, err := Embed(context.Background(), embedder, DefaultRetryPolicy(), nil, []core.OrgRecord{{Name: "Mercy Health"}})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float32{0.6, 0.8}, entries[0].Vector, 1e-6)
}

func TestEmbed_CountMismatch(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(_ context.Context, texts []string) ([][]float32, error) {
		return [][]float32{{1}}, nil
	}

	_, err := Embed(context.Background(), embedder, DefaultRetryPolicy(), nil, []core.ToolRecord{{Name: "a"}, {Name: "b"}})
	assert.ErrorIs(t, err, ErrEmbeddingMismatch)
}

func TestEmbed_RetriesTransientFailure(t *testing.T) {
	embedder := mock.NewMockEmbedder()
	calls := 0
	embedder.EmbedTextsFunc = func(_ context.Context, texts []string) ([][]float32, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("rate limited")
		}
		return [][]float32{mock.Vector(texts[0])}, nil
	}

	entries, err := Embed(context.Background(), embedder, testConfig(1).Retry, nil, []core.ToolRecord{{Name: "a"}})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, 2, calls)
}

func TestNewReembedder_Validation(t *testing.T) {
	repos := newTestRepos(t)
	embedder := mock.NewMockEmbedder()

	_, err := NewReembedder[core.ToolRecord]("tools", nil, embedder, nil, nil, nil)
	assert.ErrorIs(t, err, ErrStoreRequired)

	_, err = NewReembedder("tools", repos.Tools, nil, nil, nil, nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)

	_, err = NewReembedder("tools", repos.Tools, embedder, &Config{BatchSize: 0, Retry: DefaultRetryPolicy()}, nil, nil)
	assert.Error(t, err)

	_, err = NewReembedder("tools", repos.Tools, embedder, &Config{BatchSize: 10}, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidMaxAttempts)
}

func TestReembedder_Run(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()
	seedStaleTools(t, repos.Tools, 5)

	var out bytes.Buffer
	r, err := NewReembedder("tools", repos.Tools, mock.NewMockEmbedder(), testConfig(2), &out, nil)
	require.NoError(t, err)

	processed, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, processed)

	count, err := repos.Tools.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, count, "records are updated in place")

	err = repos.Tools.ForEach(ctx, 10, func(batch []storage.Entry[core.ToolRecord]) error {
		for _, e := range batch {
			assert.InDeltaSlice(t, mock.Vector(e.Record.EmbeddingText()), e.Vector, 1e-6)
		}
		return nil
	})
	require.NoError(t, err)

	assert.Contains(t, out.String(), "Starting reembedding of 5 tools records")
	assert.Contains(t, out.String(), "Reembedding complete")
}

func TestReembedder_EmptyCatalog(t *testing.T) {
	repos := newTestRepos(t)
	embedder := mock.NewMockEmbedder()

	var out bytes.Buffer
	r, err := NewReembedder("orgs", repos.Orgs, embedder, testConfig(10), &out, nil)
	require.NoError(t, err)

	processed, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, processed)
	assert.Zero(t, embedder.CallCount())
	assert.Contains(t, out.String(), "No records found in orgs catalog")
}

func TestReembedder_EmbedderFailure(t *testing.T) {
	repos := newTestRepos(t)
	seedStaleTools(t, repos.Tools, 4)

	embedder := mock.NewMockEmbedder()
	calls := 0
	embedder.EmbedTextsFunc = func(_ context.Context, texts []string) ([][]float32, error) {
		calls++
		if calls > 1 {
			return nil, errors.New("service unavailable")
		}
		vectors := make([][]float32, len(texts))
		for i, text := range texts {
			vectors[i] = mock.Vector(text)
		}
		return vectors, nil
	}

	r, err := NewReembedder("tools", repos.Tools, embedder, testConfig(2), nil, nil)
	require.NoError(t, err)

	processed, err := r.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "service unavailable")
	assert.Equal(t, 2, processed, "the first batch was written")
}

func TestReembedder_Cancelled(t *testing.T) {
	repos := newTestRepos(t)
	seedStaleTools(t, repos.Tools, 3)

	r, err := NewReembedder("tools", repos.Tools, mock.NewMockEmbedder(), testConfig(1), nil, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
