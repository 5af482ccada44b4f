package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/poiesic/clinroute/ai/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEmbedder_RequiresInner(t *testing.T) {
	_, err := NewEmbedder(nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)
}

func TestNewEmbedder_SmallCapacity(t *testing.T) {
	inner := mock.NewMockEmbedder()
	e, err := NewEmbedder(inner, WithMaxCost(1024))
	require.NoError(t, err)
	defer e.Close()

	_, err = e.EmbedText(context.Background(), "q")
	require.NoError(t, err)
}

func TestNumCounters(t *testing.T) {
	assert.Equal(t, minCounters, numCounters(1))
	assert.Equal(t, minCounters, numCounters(1024))
	assert.Equal(t, int64(64<<20)/1536*10, numCounters(64<<20))
}

func TestEmbedder_CachesQueries(t *testing.T) {
	inner := mock.NewMockEmbedder()
	e, err := NewEmbedder(inner, WithTTL(time.Minute), WithMaxCost(1<<20))
	require.NoError(t, err)
	defer e.Close()

	ctx := context.Background()
	first, err := e.EmbedText(ctx, "sepsis prediction")
	require.NoError(t, err)
	second, err := e.EmbedText(ctx, "sepsis prediction")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.CallCount())
	assert.Equal(t, mock.Vector("sepsis prediction"), second)
}

func TestEmbedder_ReturnsCopies(t *testing.T) {
	e, err := NewEmbedder(mock.NewMockEmbedder())
	require.NoError(t, err)
	defer e.Close()

	ctx := context.Background()
	v, err := e.EmbedText(ctx, "q")
	require.NoError(t, err)
	v[0] = 42

	again, err := e.EmbedText(ctx, "q")
	require.NoError(t, err)
	assert.NotEqual(t, float32(42), again[0])
}

func TestEmbedder_BatchEmbedsOnlyMisses(t *testing.T) {
	inner := mock.NewMockEmbedder()
	e, err := NewEmbedder(inner)
	require.NoError(t, err)
	defer e.Close()

	ctx := context.Background()
	_, err = e.EmbedText(ctx, "a")
	require.NoError(t, err)

	vectors, err := e.EmbedTexts(ctx, []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	assert.Equal(t, mock.Vector("b"), vectors[1])
	assert.Equal(t, []string{"a", "b", "c"}, inner.Texts())
}

func TestEmbedder_ErrorsAreNotCached(t *testing.T) {
	inner := mock.NewMockEmbedder()
	boom := errors.New("unavailable")
	inner.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, boom
	}
	e, err := NewEmbedder(inner)
	require.NoError(t, err)
	defer e.Close()

	_, err = e.EmbedText(context.Background(), "q")
	assert.ErrorIs(t, err, boom)
	_, err = e.EmbedText(context.Background(), "q")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, inner.CallCount())
}

func TestEmbedder_Clear(t *testing.T) {
	inner := mock.NewMockEmbedder()
	e, err := NewEmbedder(inner)
	require.NoError(t, err)
	defer e.Close()

	ctx := context.Background()
	_, _ = e.EmbedText(ctx, "q")
	e.Clear()
	_, _ = e.EmbedText(ctx, "q")
	assert.Equal(t, 2, inner.CallCount())
}
