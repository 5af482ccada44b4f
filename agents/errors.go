package agents

import "errors"

var (
	// ErrModel wraps language-model invocation failures.
	ErrModel = errors.New("language model failed")

	// ErrChatModelRequired is returned when a chat model is not provided.
	ErrChatModelRequired = errors.New("chat model required")

	// ErrSearcherRequired is returned when a catalog searcher is not provided.
	ErrSearcherRequired = errors.New("catalog searcher required")
)
