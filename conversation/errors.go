package conversation

import "errors"

var (
	// ErrThreadNotFound indicates the thread doesn't exist.
	ErrThreadNotFound = errors.New("thread not found")

	// ErrRepositoryRequired is returned when no thread repository is supplied.
	ErrRepositoryRequired = errors.New("thread repository is required")

	// ErrPipelineRequired is returned when no pipeline is supplied.
	ErrPipelineRequired = errors.New("pipeline is required")
)
