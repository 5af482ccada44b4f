package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Identical text must map to identical vectors for a given model.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// ChatModel turns an ordered list of role-tagged messages into response text.
// By convention the first message is a system instruction and the second
// carries the task-specific human content.
// Implementations must be thread-safe for concurrent use.
type ChatModel interface {
	Generate(ctx context.Context, messages []Message) (string, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
type AIProvider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// ChatModel returns the language model used for routing and responses.
	ChatModel() ChatModel

	// Close releases resources held by the provider and its services.
	Close() error
}
