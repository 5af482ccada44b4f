package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/poiesic/clinroute/core"
	"github.com/poiesic/clinroute/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupPool runs migrations and returns a pool with empty tables.
// Skips unless CLINROUTE_TEST_POSTGRES_DSN is set.
func setupPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	dsn := os.Getenv("CLINROUTE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("requires CLINROUTE_TEST_POSTGRES_DSN")
	}

	ctx := context.Background()
	require.NoError(t, Migrate(ctx, dsn))

	pool, err := NewPool(ctx, Config{DSN: dsn, MaxConns: 4})
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, `TRUNCATE clinical_tools, clinical_organizations, checkpoints, messages, threads`)
	require.NoError(t, err)
	return pool
}

func TestPostgres_CatalogSimilarity(t *testing.T) {
	pool := setupPool(t)
	ctx := context.Background()
	tools := NewToolCatalog(pool)

	results, err := tools.FindSimilar(ctx, []float32{1, 0, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)

	require.NoError(t, tools.Upsert(ctx,
		storage.Entry[core.ToolRecord]{Record: core.ToolRecord{Name: "Ambient Clinical Documentation AI", TargetUsers: []string{"Physicians"}}, Vector: []float32{1, 0, 0}},
		storage.Entry[core.ToolRecord]{Record: core.ToolRecord{Name: "Lexicomp Drug Information"}, Vector: []float32{0.8, 0.6, 0}},
		storage.Entry[core.ToolRecord]{Record: core.ToolRecord{Name: "Clinical Trial Matching Engine"}, Vector: []float32{0, 0, 1}},
	))

	count, err := tools.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	results, err = tools.FindSimilar(ctx, []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Ambient Clinical Documentation AI", results[0].Name)
	assert.Equal(t, []string{"Physicians"}, results[0].TargetUsers)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-5)
	assert.InDelta(t, 0.8, results[1].Similarity, 1e-5)
	assert.Equal(t, core.IDFromContent("tool:Ambient Clinical Documentation AI"), results[0].ID)

	var seen int
	err = tools.ForEach(ctx, 2, func(batch []storage.Entry[core.ToolRecord]) error {
		for _, e := range batch {
			assert.Len(t, e.Vector, 3)
		}
		seen += len(batch)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, seen)

	require.NoError(t, tools.Delete(ctx, results[0].ID))
	assert.ErrorIs(t, tools.Delete(ctx, results[0].ID), storage.ErrNotFound)
}

func TestPostgres_Checkpoints(t *testing.T) {
	pool := setupPool(t)
	ctx := context.Background()
	store := NewCheckpointRepository(pool)

	missing, err := store.LoadCheckpoint(ctx, "t1")
	require.NoError(t, err)
	assert.Nil(t, missing)

	state := core.NewPipelineState("q")
	state.Route = core.RouteOrgMatcher
	state.Turn = 3
	require.NoError(t, store.SaveCheckpoint(ctx, "t1", state))

	loaded, err := store.LoadCheckpoint(ctx, "t1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, state, *loaded)

	require.NoError(t, store.DeleteCheckpoint(ctx, "t1"))
}

func TestPostgres_Threads(t *testing.T) {
	pool := setupPool(t)
	ctx := context.Background()
	repo := NewThreadRepository(pool)

	thread, err := repo.CreateThread(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, core.DefaultThreadTitle, thread.Title)

	_, err = repo.AddMessage(ctx, &core.Message{ThreadID: thread.ID, Role: core.RoleUser, Content: "q"})
	require.NoError(t, err)
	_, err = repo.AddMessage(ctx, &core.Message{ThreadID: thread.ID, Role: core.RoleAssistant, Content: "a", Route: core.RouteToolFinder})
	require.NoError(t, err)

	msgs, err := repo.GetMessages(ctx, thread.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "q", msgs[0].Content)
	assert.Equal(t, core.RouteToolFinder, msgs[1].Route)

	_, err = repo.UpdateThreadTitle(ctx, thread.ID, "renamed")
	require.NoError(t, err)

	require.NoError(t, repo.DeleteThread(ctx, thread.ID))
	_, err = repo.GetThread(ctx, thread.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = repo.GetThread(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
