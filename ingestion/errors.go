package ingestion

import "errors"

var (
	// ErrInvalidCatalog is returned when a catalog file fails validation.
	ErrInvalidCatalog = errors.New("invalid catalog")

	// ErrToolStoreRequired is returned when a tool catalog store is not provided.
	ErrToolStoreRequired = errors.New("tool catalog store required")

	// ErrOrgStoreRequired is returned when an organization catalog store is not provided.
	ErrOrgStoreRequired = errors.New("organization catalog store required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")
)
