package agents

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/clinroute/ai"
	"github.com/poiesic/clinroute/core"
	"github.com/poiesic/clinroute/retrieval"
)

// defaultAdvisorPoolSize allows a few advisor runs to retrieve in parallel
// when no shared pool is supplied.
const defaultAdvisorPoolSize = 8

// Advisor combines both catalogs into one recommendation.
type Advisor struct {
	tools    retrieval.Searcher[core.ToolRecord]
	orgs     retrieval.Searcher[core.OrgRecord]
	model    ai.ChatModel
	limit    int
	pool     *ants.Pool
	ownsPool bool
	logger   *slog.Logger
}

// NewAdvisor creates the workflow advisor.
func NewAdvisor(tools retrieval.Searcher[core.ToolRecord], orgs retrieval.Searcher[core.OrgRecord], model ai.ChatModel, opts ...Option) (*Advisor, error) {
	if tools == nil || orgs == nil {
		return nil, ErrSearcherRequired
	}
	if model == nil {
		return nil, ErrChatModelRequired
	}
	o, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}

	a := &Advisor{
		tools:  tools,
		orgs:   orgs,
		model:  model,
		limit:  o.limit,
		pool:   o.pool,
		logger: o.logger.With("component", string(core.RouteWorkflowAdvisor)),
	}
	if a.pool == nil {
		pool, err := ants.NewPool(defaultAdvisorPoolSize)
		if err != nil {
			return nil, err
		}
		a.pool = pool
		a.ownsPool = true
	}
	return a, nil
}

// Name returns the stage name.
func (a *Advisor) Name() string {
	return string(core.RouteWorkflowAdvisor)
}

// Release frees the worker pool if the advisor created it.
func (a *Advisor) Release() {
	if a.ownsPool {
		a.pool.Release()
	}
}

// Run searches both catalogs concurrently, waits for both, and asks the
// model for combined guidance. Either retrieval failing fails the run.
func (a *Advisor) Run(ctx context.Context, state core.PipelineState) (core.PipelineState, error) {
	var (
		wg       sync.WaitGroup
		tools    []core.ToolRecord
		orgs     []core.OrgRecord
		toolsErr error
		orgsErr  error
	)

	// A failure in one search cancels the other
	searchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	wg.Add(2)
	if err := a.pool.Submit(func() {
		defer wg.Done()
		tools, toolsErr = a.tools.Search(searchCtx, state.Query, a.limit)
		if toolsErr != nil {
			cancel()
		}
	}); err != nil {
		wg.Done()
		wg.Done()
		return state, fmt.Errorf("submit tools search: %w", err)
	}
	if err := a.pool.Submit(func() {
		defer wg.Done()
		orgs, orgsErr = a.orgs.Search(searchCtx, state.Query, a.limit)
		if orgsErr != nil {
			cancel()
		}
	}); err != nil {
		wg.Done()
		wg.Wait()
		return state, fmt.Errorf("submit orgs search: %w", err)
	}
	wg.Wait()

	if err := firstError(toolsErr, orgsErr); err != nil {
		a.logger.Error("error retrieving candidates", "err", err)
		return state, err
	}

	state.ToolsResults = tools
	state.OrgsResults = orgs
	toolScore := RetrievalConfidence(scoresOf(tools, func(t core.ToolRecord) float32 { return t.Similarity }))
	orgScore := RetrievalConfidence(scoresOf(orgs, func(o core.OrgRecord) float32 { return o.Similarity }))
	state.Confidence.Retrieval = (toolScore + orgScore) / 2

	messages := []ai.Message{
		ai.SystemMessage(advisorPrompt(tools, orgs)),
		ai.HumanMessage(state.Query),
	}
	output, err := a.model.Generate(ctx, messages)
	if err != nil {
		a.logger.Error("error generating response", "err", err)
		return state, fmt.Errorf("%w: %s: %w", ErrModel, a.Name(), err)
	}

	state.Response = finalizeResponse(output, len(tools) == 0 && len(orgs) == 0, NothingFound)
	state.Confidence.Response = ResponseConfidence(state.Response)
	a.logger.Debug("generated response", "tools", len(tools), "orgs", len(orgs))
	return state, nil
}

// firstError prefers a root-cause failure over the cancellation it triggered
// in the sibling search.
func firstError(errs ...error) error {
	var canceled error
	for _, err := range errs {
		if err == nil {
			continue
		}
		if errors.Is(err, context.Canceled) {
			if canceled == nil {
				canceled = err
			}
			continue
		}
		return err
	}
	return canceled
}
