package agents

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/clinroute/ai"
	"github.com/poiesic/clinroute/core"
	"github.com/poiesic/clinroute/retrieval"
)

// Specialist answers from a single catalog. ToolFinder and OrgMatcher are
// the two instances.
type Specialist[T any] struct {
	name     string
	searcher retrieval.Searcher[T]
	model    ai.ChatModel
	limit    int
	prompt   func([]T) string
	score    func(T) float32
	store    func(*core.PipelineState, []T)
	notFound string
	logger   *slog.Logger
}

// ToolFinder recommends clinical tools.
type ToolFinder = Specialist[core.ToolRecord]

// OrgMatcher recommends healthcare organizations.
type OrgMatcher = Specialist[core.OrgRecord]

// NewToolFinder creates the tool-finder specialist.
func NewToolFinder(tools retrieval.Searcher[core.ToolRecord], model ai.ChatModel, opts ...Option) (*ToolFinder, error) {
	return newSpecialist(string(core.RouteToolFinder), tools, model, opts,
		toolFinderPrompt,
		func(t core.ToolRecord) float32 { return t.Similarity },
		func(s *core.PipelineState, tools []core.ToolRecord) { s.ToolsResults = tools },
		NoToolsFound,
	)
}

// NewOrgMatcher creates the org-matcher specialist.
func NewOrgMatcher(orgs retrieval.Searcher[core.OrgRecord], model ai.ChatModel, opts ...Option) (*OrgMatcher, error) {
	return newSpecialist(string(core.RouteOrgMatcher), orgs, model, opts,
		orgMatcherPrompt,
		func(o core.OrgRecord) float32 { return o.Similarity },
		func(s *core.PipelineState, orgs []core.OrgRecord) { s.OrgsResults = orgs },
		NoOrgsFound,
	)
}

func newSpecialist[T any](
	name string,
	searcher retrieval.Searcher[T],
	model ai.ChatModel,
	opts []Option,
	prompt func([]T) string,
	score func(T) float32,
	store func(*core.PipelineState, []T),
	notFound string,
) (*Specialist[T], error) {
	if searcher == nil {
		return nil, ErrSearcherRequired
	}
	if model == nil {
		return nil, ErrChatModelRequired
	}
	o, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	return &Specialist[T]{
		name:     name,
		searcher: searcher,
		model:    model,
		limit:    o.limit,
		prompt:   prompt,
		score:    score,
		store:    store,
		notFound: notFound,
		logger:   o.logger.With("component", name),
	}, nil
}

// Name returns the stage name.
func (s *Specialist[T]) Name() string {
	return s.name
}

// Run retrieves candidates for state.Query, asks the model to recommend among
// them and writes both into the returned state. An empty candidate list is
// not an error; the response then states that nothing was found.
func (s *Specialist[T]) Run(ctx context.Context, state core.PipelineState) (core.PipelineState, error) {
	results, err := s.searcher.Search(ctx, state.Query, s.limit)
	if err != nil {
		s.logger.Error("error retrieving candidates", "err", err)
		return state, err
	}
	s.store(&state, results)
	state.Confidence.Retrieval = RetrievalConfidence(scoresOf(results, s.score))

	messages := []ai.Message{
		ai.SystemMessage(s.prompt(results)),
		ai.HumanMessage(state.Query),
	}
	output, err := s.model.Generate(ctx, messages)
	if err != nil {
		s.logger.Error("error generating response", "err", err)
		return state, fmt.Errorf("%w: %s: %w", ErrModel, s.name, err)
	}

	state.Response = finalizeResponse(output, len(results) == 0, s.notFound)
	state.Confidence.Response = ResponseConfidence(state.Response)
	s.logger.Debug("generated response", "candidates", len(results), "length", len(state.Response))
	return state, nil
}
