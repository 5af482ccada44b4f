// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package clinroute wires storage, models, retrieval, agents, the query
// pipeline and conversation threads into a single Engine.
package clinroute

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/clinroute/agents"
	"github.com/poiesic/clinroute/ai"
	"github.com/poiesic/clinroute/ai/cache"
	"github.com/poiesic/clinroute/ai/openai"
	"github.com/poiesic/clinroute/api"
	"github.com/poiesic/clinroute/config"
	"github.com/poiesic/clinroute/conversation"
	"github.com/poiesic/clinroute/core"
	"github.com/poiesic/clinroute/ingestion"
	"github.com/poiesic/clinroute/pipeline"
	"github.com/poiesic/clinroute/retrieval"
	"github.com/poiesic/clinroute/storage"
	"github.com/poiesic/clinroute/storage/badger"
	"github.com/poiesic/clinroute/storage/postgres"
)

// Engine owns every long-lived component of the service.
type Engine struct {
	cfg config.Config

	tools        storage.CatalogStore[core.ToolRecord]
	orgs         storage.CatalogStore[core.OrgRecord]
	checkpoints  storage.CheckpointStore
	threads      storage.ThreadRepository
	closeStorage func() error

	provider     ai.AIProvider
	ownsProvider bool
	embedder     *cache.Embedder

	toolSearch *retrieval.Retriever[core.ToolRecord]
	orgSearch  *retrieval.Retriever[core.OrgRecord]
	pool       *ants.Pool
	advisor    *agents.Advisor

	pipeline      *pipeline.Pipeline
	conversations *conversation.Service
	metrics       *api.Metrics

	logger *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	provider ai.AIProvider
	logger   *slog.Logger
}

// WithProvider uses provider instead of building an OpenAI-compatible one
// from the config. The caller keeps ownership and closes it.
func WithProvider(provider ai.AIProvider) EngineOption {
	return func(o *engineOptions) {
		o.provider = provider
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) EngineOption {
	return func(o *engineOptions) {
		if logger == nil {
			logger = slog.Default()
		}
		o.logger = logger
	}
}

// NewEngine validates cfg and builds the engine. ctx bounds connecting to
// and migrating the database.
func NewEngine(ctx context.Context, cfg *config.Config, opts ...EngineOption) (_ *Engine, err error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	options := &engineOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}

	e := &Engine{
		cfg:     *cfg,
		metrics: api.NewMetrics(),
		logger:  options.logger.With("component", "engine"),
	}
	defer func() {
		if err != nil {
			e.Close()
		}
	}()

	if err := e.openStorage(ctx, options.logger); err != nil {
		return nil, err
	}

	e.provider = options.provider
	if e.provider == nil {
		e.provider, err = openai.NewProvider(aiConfig(cfg.AI))
		if err != nil {
			return nil, fmt.Errorf("create ai provider: %w", err)
		}
		e.ownsProvider = true
	}

	e.embedder, err = cache.NewEmbedder(e.provider.Embedder(),
		cache.WithMaxCost(cfg.Retrieval.CacheMaxBytes),
		cache.WithTTL(cfg.Retrieval.CacheTTL),
		cache.WithLogger(options.logger),
	)
	if err != nil {
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}

	if err := e.buildAgents(options.logger); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Engine) openStorage(ctx context.Context, logger *slog.Logger) error {
	switch e.cfg.Storage.Driver {
	case config.DriverPostgres:
		pg := e.cfg.Storage.Postgres
		if pg.MigrateOnStart {
			if err := postgres.Migrate(ctx, pg.DSN); err != nil {
				return err
			}
		}
		pool, err := postgres.NewPool(ctx, postgres.Config{
			DSN:             pg.DSN,
			MaxConns:        pg.MaxConns,
			MinConns:        pg.MinConns,
			MaxConnLifetime: pg.MaxConnLifetime,
			MaxConnIdleTime: pg.MaxConnIdleTime,
		})
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		e.tools = postgres.NewToolCatalog(pool)
		e.orgs = postgres.NewOrgCatalog(pool)
		e.checkpoints = postgres.NewCheckpointRepository(pool)
		e.threads = postgres.NewThreadRepository(pool)
		e.closeStorage = func() error {
			pool.Close()
			return nil
		}
	default:
		bc := e.cfg.Storage.Badger
		backend, err := badger.OpenBackend(bc.Path, bc.InMemory, logger)
		if err != nil {
			return fmt.Errorf("open badger: %w", err)
		}
		repos, err := badger.NewRepositories(backend)
		if err != nil {
			backend.Close()
			return err
		}
		e.tools = repos.Tools
		e.orgs = repos.Orgs
		e.checkpoints = repos.Checkpoints
		e.threads = repos.Threads
		e.closeStorage = repos.Close
	}
	e.logger.Info("storage opened", "driver", e.cfg.Storage.Driver)
	return nil
}

func (e *Engine) buildAgents(logger *slog.Logger) error {
	var err error
	e.toolSearch, err = retrieval.New("tools", e.embedder, e.tools, retrieval.WithLogger(logger))
	if err != nil {
		return err
	}
	e.orgSearch, err = retrieval.New("organizations", e.embedder, e.orgs, retrieval.WithLogger(logger))
	if err != nil {
		return err
	}

	e.pool, err = ants.NewPool(e.cfg.Retrieval.AdvisorWorkers)
	if err != nil {
		return err
	}

	model := e.provider.ChatModel()
	agentOpts := []agents.Option{
		agents.WithLogger(logger),
		agents.WithLimit(e.cfg.Retrieval.DefaultLimit),
		agents.WithPool(e.pool),
	}
	supervisor, err := agents.NewSupervisor(model, agentOpts...)
	if err != nil {
		return err
	}
	toolFinder, err := agents.NewToolFinder(e.toolSearch, model, agentOpts...)
	if err != nil {
		return err
	}
	orgMatcher, err := agents.NewOrgMatcher(e.orgSearch, model, agentOpts...)
	if err != nil {
		return err
	}
	e.advisor, err = agents.NewAdvisor(e.toolSearch, e.orgSearch, model, agentOpts...)
	if err != nil {
		return err
	}

	e.pipeline, err = pipeline.New(supervisor, toolFinder, orgMatcher, e.advisor,
		pipeline.WithCheckpointStore(e.checkpoints),
		pipeline.WithMonitor(e.metrics),
		pipeline.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	e.conversations, err = conversation.NewService(e.threads, e.pipeline,
		conversation.WithCheckpointStore(e.checkpoints),
		conversation.WithLogger(logger),
	)
	return err
}

func aiConfig(c config.AI) *ai.Config {
	return ai.NewConfig(
		ai.WithEmbeddingHost(c.EmbeddingHost),
		ai.WithChatHost(c.ChatHost),
		ai.WithEmbeddingModel(c.EmbeddingModel),
		ai.WithChatModel(c.ChatModel),
		ai.WithAPIKey(c.APIKey),
		ai.WithTemperature(c.Temperature),
	)
}

// Config returns the configuration the engine was built with.
func (e *Engine) Config() config.Config {
	return e.cfg
}

// Tools returns the tool catalog store.
func (e *Engine) Tools() storage.CatalogStore[core.ToolRecord] {
	return e.tools
}

// Orgs returns the organization catalog store.
func (e *Engine) Orgs() storage.CatalogStore[core.OrgRecord] {
	return e.orgs
}

// Threads returns the thread repository.
func (e *Engine) Threads() storage.ThreadRepository {
	return e.threads
}

// Checkpoints returns the checkpoint store.
func (e *Engine) Checkpoints() storage.CheckpointStore {
	return e.checkpoints
}

// Embedder returns the uncached embedder. Seeding and re-embedding use it
// since their texts are embedded once.
func (e *Engine) Embedder() ai.Embedder {
	return e.provider.Embedder()
}

// ResetEmbeddingCache drops cached query vectors. Call it once a catalog
// has been re-embedded so queries are embedded by the current model.
func (e *Engine) ResetEmbeddingCache() {
	e.embedder.Clear()
	e.logger.Info("embedding cache cleared")
}

// ToolSearcher returns the tool catalog retriever.
func (e *Engine) ToolSearcher() retrieval.Searcher[core.ToolRecord] {
	return e.toolSearch
}

// OrgSearcher returns the organization catalog retriever.
func (e *Engine) OrgSearcher() retrieval.Searcher[core.OrgRecord] {
	return e.orgSearch
}

// Pipeline returns the query pipeline.
func (e *Engine) Pipeline() *pipeline.Pipeline {
	return e.pipeline
}

// Conversations returns the conversation service.
func (e *Engine) Conversations() *conversation.Service {
	return e.conversations
}

// Metrics returns the Prometheus metrics fed by the pipeline.
func (e *Engine) Metrics() *api.Metrics {
	return e.metrics
}

// NewSeeder creates a catalog seeder over the engine's stores.
// Call Release on the result when done.
func (e *Engine) NewSeeder(opts ...ingestion.Option) (*ingestion.Seeder, error) {
	opts = append([]ingestion.Option{ingestion.WithLogger(e.logger)}, opts...)
	return ingestion.NewSeeder(e.tools, e.orgs, e.Embedder(), opts...)
}

// NewServer creates the HTTP API configured from the server settings.
func (e *Engine) NewServer(opts ...api.Option) (*api.Server, error) {
	sc := e.cfg.Server
	opts = append([]api.Option{
		api.WithLogger(e.logger),
		api.WithMetrics(e.metrics),
		api.WithCORSOrigin(sc.CORSOrigin),
		api.WithTimeouts(sc.ReadTimeout, sc.WriteTimeout, sc.ShutdownTimeout),
	}, opts...)
	return api.NewServer(e.pipeline, e.conversations, opts...)
}

// Close releases the worker pool, the embedding cache, the provider (unless
// it was supplied by the caller) and storage. It is safe on a partially
// built engine.
func (e *Engine) Close() error {
	if e.advisor != nil {
		e.advisor.Release()
	}
	if e.pool != nil {
		e.pool.Release()
	}
	if e.embedder != nil {
		e.embedder.Close()
	}

	var errs []error
	if e.ownsProvider && e.provider != nil {
		if err := e.provider.Close(); err != nil {
			e.logger.Error("error closing AI provider", "err", err)
			errs = append(errs, err)
		}
	}
	if e.closeStorage != nil {
		if err := e.closeStorage(); err != nil {
			e.logger.Error("error closing storage", "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
