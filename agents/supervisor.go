package agents

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/clinroute/ai"
	"github.com/poiesic/clinroute/core"
)

// Supervisor classifies queries into routes.
type Supervisor struct {
	model  ai.ChatModel
	logger *slog.Logger
}

// NewSupervisor creates a supervisor that asks model for a route label.
func NewSupervisor(model ai.ChatModel, opts ...Option) (*Supervisor, error) {
	if model == nil {
		return nil, ErrChatModelRequired
	}
	o, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	return &Supervisor{
		model:  model,
		logger: o.logger.With("component", "supervisor"),
	}, nil
}

// Route sets state.Route from the model's answer. Output that is not exactly
// one of the route labels (after trimming and lowercasing) selects
// core.RouteWorkflowAdvisor and marks the state as a fallback.
// Only a model failure returns an error.
func (s *Supervisor) Route(ctx context.Context, state core.PipelineState) (core.PipelineState, error) {
	messages := []ai.Message{
		ai.SystemMessage(RoutingPrompt),
		ai.HumanMessage(state.Query),
	}

	output, err := s.model.Generate(ctx, messages)
	if err != nil {
		s.logger.Error("error classifying query", "err", err)
		return state, fmt.Errorf("%w: route: %w", ErrModel, err)
	}

	route, ok := core.ParseRoute(output)
	if !ok {
		s.logger.Warn("unrecognized route label, using default", "label", output, "route", core.RouteWorkflowAdvisor)
		route = core.RouteWorkflowAdvisor
	}

	state.Route = route
	state.RouteFallback = !ok
	state.Confidence.Routing = RoutingConfidence(!ok)
	s.logger.Debug("routed query", "route", route)
	return state, nil
}
