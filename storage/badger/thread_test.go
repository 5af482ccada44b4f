package badger

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/clinroute/core"
	"github.com/poiesic/clinroute/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThread_CreateDefaultsTitle(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	thread, err := repos.Threads.CreateThread(ctx, "")
	require.NoError(t, err)
	assert.NotEmpty(t, thread.ID)
	assert.Equal(t, core.DefaultThreadTitle, thread.Title)
	assert.False(t, thread.CreatedAt.IsZero())

	got, err := repos.Threads.GetThread(ctx, thread.ID)
	require.NoError(t, err)
	assert.Equal(t, thread.Title, got.Title)
}

func TestThread_GetMissing(t *testing.T) {
	repos := newTestRepos(t)

	_, err := repos.Threads.GetThread(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestThread_ListMostRecentFirst(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	a, err := repos.Threads.CreateThread(ctx, "a")
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	b, err := repos.Threads.CreateThread(ctx, "b")
	require.NoError(t, err)

	threads, err := repos.Threads.ListThreads(ctx)
	require.NoError(t, err)
	require.Len(t, threads, 2)
	assert.Equal(t, b.ID, threads[0].ID)

	// A new message moves the older thread to the top
	time.Sleep(2 * time.Millisecond)
	_, err = repos.Threads.AddMessage(ctx, &core.Message{ThreadID: a.ID, Role: core.RoleUser, Content: "hi"})
	require.NoError(t, err)

	threads, err = repos.Threads.ListThreads(ctx)
	require.NoError(t, err)
	assert.Equal(t, a.ID, threads[0].ID)
}

func TestThread_UpdateTitle(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	thread, err := repos.Threads.CreateThread(ctx, "old")
	require.NoError(t, err)

	updated, err := repos.Threads.UpdateThreadTitle(ctx, thread.ID, "new")
	require.NoError(t, err)
	assert.Equal(t, "new", updated.Title)

	_, err = repos.Threads.UpdateThreadTitle(ctx, "missing", "x")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestThread_MessagesInOrder(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	thread, err := repos.Threads.CreateThread(ctx, "")
	require.NoError(t, err)

	contents := []string{"one", "two", "three", "four", "five"}
	for i, c := range contents {
		role := core.RoleUser
		var route core.Route
		if i%2 == 1 {
			role = core.RoleAssistant
			route = core.RouteToolFinder
		}
		msg, err := repos.Threads.AddMessage(ctx, &core.Message{ThreadID: thread.ID, Role: role, Content: c, Route: route})
		require.NoError(t, err)
		assert.NotEmpty(t, msg.ID)
	}

	msgs, err := repos.Threads.GetMessages(ctx, thread.ID)
	require.NoError(t, err)
	require.Len(t, msgs, len(contents))
	for i, m := range msgs {
		assert.Equal(t, contents[i], m.Content)
	}
	assert.Equal(t, core.RouteToolFinder, msgs[1].Route)
}

func TestThread_AddMessageMissingThread(t *testing.T) {
	repos := newTestRepos(t)

	_, err := repos.Threads.AddMessage(context.Background(), &core.Message{ThreadID: "missing", Role: core.RoleUser, Content: "x"})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestThread_DeleteRemovesMessages(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()

	keep, err := repos.Threads.CreateThread(ctx, "keep")
	require.NoError(t, err)
	gone, err := repos.Threads.CreateThread(ctx, "gone")
	require.NoError(t, err)

	for _, id := range []string{keep.ID, gone.ID} {
		_, err := repos.Threads.AddMessage(ctx, &core.Message{ThreadID: id, Role: core.RoleUser, Content: "q"})
		require.NoError(t, err)
	}

	require.NoError(t, repos.Threads.DeleteThread(ctx, gone.ID))

	_, err = repos.Threads.GetThread(ctx, gone.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = repos.Threads.GetMessages(ctx, gone.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	msgs, err := repos.Threads.GetMessages(ctx, keep.ID)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)

	assert.ErrorIs(t, repos.Threads.DeleteThread(ctx, gone.ID), storage.ErrNotFound)
}

func TestThread_AddMessageRejectsInvalid(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()
	thread, err := repos.Threads.CreateThread(ctx, "")
	require.NoError(t, err)

	_, err = repos.Threads.AddMessage(ctx, &core.Message{ThreadID: thread.ID, Role: "system", Content: "x"})
	assert.ErrorIs(t, err, core.ErrInvalidMessage)
	assert.ErrorIs(t, err, core.ErrInvalidRole)

	_, err = repos.Threads.AddMessage(ctx, &core.Message{ThreadID: thread.ID, Role: core.RoleAssistant, Route: "banana"})
	assert.ErrorIs(t, err, core.ErrInvalidRoute)

	_, err = repos.Threads.AddMessage(ctx, nil)
	assert.ErrorIs(t, err, core.ErrInvalidMessage)

	msgs, err := repos.Threads.GetMessages(ctx, thread.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestThread_ConcurrentWritesOnOneThread(t *testing.T) {
	repos := newTestRepos(t)
	ctx := context.Background()
	thread, err := repos.Threads.CreateThread(ctx, "")
	require.NoError(t, err)

	const writers = 20
	var wg sync.WaitGroup
	errs := make(chan error, writers+1)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repos.Threads.AddMessage(ctx, &core.Message{ThreadID: thread.ID, Role: core.RoleUser, Content: "q"})
			errs <- err
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := repos.Threads.UpdateThreadTitle(ctx, thread.ID, "renamed")
		errs <- err
	}()
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	msgs, err := repos.Threads.GetMessages(ctx, thread.ID)
	require.NoError(t, err)
	assert.Len(t, msgs, writers)

	got, err := repos.Threads.GetThread(ctx, thread.ID)
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Title)
}

func TestBackend_WithWriteTxStopsOnCancel(t *testing.T) {
	repos := newTestRepos(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := repos.Backend.WithWriteTx(ctx, func(*badger.Txn) error {
		calls++
		return fmt.Errorf("%w: %w", storage.ErrTransactionFailed, badger.ErrConflict)
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
