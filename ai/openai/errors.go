package openai

import "errors"

var (
	// ErrNoMessages is returned when Generate is called with an empty message list.
	ErrNoMessages = errors.New("no messages to send")

	// ErrEmptyResponse is returned when the server answers without any choice.
	ErrEmptyResponse = errors.New("chat completion returned no choices")

	// ErrEmptyEmbedding is returned when the server answers without a vector.
	ErrEmptyEmbedding = errors.New("embedding service returned no vector")

	// ErrUnsupportedRole is returned for message roles the API cannot carry.
	ErrUnsupportedRole = errors.New("unsupported message role")
)
