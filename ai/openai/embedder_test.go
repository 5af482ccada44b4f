package openai

import (
	"context"
	"testing"

	"github.com/poiesic/clinroute/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbedder_EmbedText(t *testing.T) {
	srv, requests := fakeServer(t, "")

	embedder, err := NewEmbedder(ai.NewConfig(ai.WithHost(srv.URL), ai.WithEmbeddingModel("test-embed")))
	require.NoError(t, err)

	vec, err := embedder.EmbedText(context.Background(), "ambient\x00 documentation")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.25, 0.5, 0.75}, vec)

	reqs := requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/v1/embeddings", reqs[0].Path)
	assert.Equal(t, "test-embed", reqs[0].Model)
}

func TestEmbedder_EmbedTextsEmpty(t *testing.T) {
	srv, requests := fakeServer(t, "")

	embedder, err := NewEmbedder(ai.NewConfig(ai.WithHost(srv.URL)))
	require.NoError(t, err)

	vectors, err := embedder.EmbedTexts(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vectors)
	assert.Empty(t, requests(), "no request for empty input")
}

func TestEmbedder_CountMismatch(t *testing.T) {
	// The fake server always answers with a single vector
	srv, _ := fakeServer(t, "")

	embedder, err := NewEmbedder(ai.NewConfig(ai.WithHost(srv.URL)))
	require.NoError(t, err)

	_, err = embedder.EmbedTexts(context.Background(), []string{"one", "two"})
	assert.Error(t, err)
}

func TestNewEmbedder_InvalidConfig(t *testing.T) {
	_, err := NewEmbedder(ai.NewConfig(ai.WithEmbeddingModel("")))
	assert.Error(t, err)
}

func TestProvider(t *testing.T) {
	srv, _ := fakeServer(t, "org_matcher")

	provider, err := NewProvider(ai.NewConfig(ai.WithHost(srv.URL)))
	require.NoError(t, err)
	defer provider.Close()

	out, err := provider.ChatModel().Generate(context.Background(), []ai.Message{ai.HumanMessage("hospitals near Boston")})
	require.NoError(t, err)
	assert.Equal(t, "org_matcher", out)

	vec, err := provider.Embedder().EmbedText(context.Background(), "hospitals near Boston")
	require.NoError(t, err)
	assert.Len(t, vec, 3)
}

func TestNewProvider_InvalidConfig(t *testing.T) {
	_, err := NewProvider(&ai.Config{})
	assert.Error(t, err)

	_, err = NewProvider(ai.NewConfig(ai.WithTemperature(3)))
	assert.Error(t, err)
}
