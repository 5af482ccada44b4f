package pipeline

import "errors"

var (
	// ErrInvalidState indicates the initial state broke the pipeline's input contract.
	ErrInvalidState = errors.New("invalid pipeline state")

	// ErrRouterRequired is returned when no router is supplied.
	ErrRouterRequired = errors.New("router is required")

	// ErrHandlerRequired is returned when a route has no handler.
	ErrHandlerRequired = errors.New("handler is required for every route")

	// ErrUnknownRoute indicates the router wrote a route with no handler.
	ErrUnknownRoute = errors.New("no handler for route")

	// ErrCheckpoint indicates the checkpoint store failed.
	ErrCheckpoint = errors.New("checkpoint failed")
)
