package agents

import (
	"log/slog"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/clinroute/retrieval"
)

type options struct {
	logger *slog.Logger
	limit  int
	pool   *ants.Pool
}

func defaultOptions() *options {
	return &options{
		logger: slog.Default(),
		limit:  retrieval.DefaultLimit,
	}
}

func applyOptions(opts []Option) (*options, error) {
	o := defaultOptions()
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// Option configures an agent.
type Option func(*options) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
		return nil
	}
}

// WithLimit sets how many records a specialist retrieves per catalog.
// Default is retrieval.DefaultLimit.
func WithLimit(limit int) Option {
	return func(o *options) error {
		if limit < 0 || limit > retrieval.MaxLimit {
			return retrieval.ErrInvalidLimit
		}
		o.limit = limit
		return nil
	}
}

// WithPool sets a shared worker pool for the advisor's concurrent retrievals.
// The caller keeps ownership and releases it. Without one the advisor
// creates and owns a small pool.
func WithPool(pool *ants.Pool) Option {
	return func(o *options) error {
		o.pool = pool
		return nil
	}
}
