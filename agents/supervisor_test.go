package agents

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/clinroute/ai"
	"github.com/poiesic/clinroute/ai/mock"
	"github.com/poiesic/clinroute/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSupervisor_RequiresModel(t *testing.T) {
	_, err := NewSupervisor(nil)
	assert.ErrorIs(t, err, ErrChatModelRequired)
}

func TestSupervisor_Route(t *testing.T) {
	tests := []struct {
		name         string
		output       string
		wantRoute    core.Route
		wantFallback bool
	}{
		{"tool finder", "tool_finder", core.RouteToolFinder, false},
		{"org matcher", "org_matcher", core.RouteOrgMatcher, false},
		{"workflow advisor", "workflow_advisor", core.RouteWorkflowAdvisor, false},
		{"uppercase", "ORG_MATCHER", core.RouteOrgMatcher, false},
		{"mixed case with whitespace", "  Tool_Finder\n", core.RouteToolFinder, false},
		{"invalid label", "invalid_route", core.RouteWorkflowAdvisor, true},
		{"banana", "banana", core.RouteWorkflowAdvisor, true},
		{"empty", " ", core.RouteWorkflowAdvisor, true},
		{"label in a sentence", "I think tool_finder fits best.", core.RouteWorkflowAdvisor, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := mock.NewMockChatModel(tt.output)
			s, err := NewSupervisor(model)
			require.NoError(t, err)

			state, err := s.Route(context.Background(), core.NewPipelineState("What tools help with documentation?"))
			require.NoError(t, err)

			assert.Equal(t, tt.wantRoute, state.Route)
			assert.Equal(t, tt.wantFallback, state.RouteFallback)
			assert.Equal(t, RoutingConfidence(tt.wantFallback), state.Confidence.Routing)
			assert.Equal(t, 1, model.CallCount())
		})
	}
}

func TestSupervisor_SendsRoutingPromptAndQuery(t *testing.T) {
	model := mock.NewMockChatModel("tool_finder")
	s, err := NewSupervisor(model)
	require.NoError(t, err)

	query := "Which hospitals use AI for sepsis detection?"
	_, err = s.Route(context.Background(), core.NewPipelineState(query))
	require.NoError(t, err)

	calls := model.Calls()
	require.Len(t, calls, 1)
	require.Len(t, calls[0], 2)
	assert.Equal(t, ai.RoleSystem, calls[0][0].Role)
	assert.Equal(t, RoutingPrompt, calls[0][0].Content)
	for _, r := range core.Routes {
		assert.Contains(t, calls[0][0].Content, string(r))
	}
	assert.Equal(t, ai.RoleHuman, calls[0][1].Role)
	assert.Equal(t, query, calls[0][1].Content)
}

func TestSupervisor_ModelFailure(t *testing.T) {
	model := mock.NewMockChatModel("")
	boom := errors.New("rate limited")
	model.GenerateFunc = func(context.Context, []ai.Message) (string, error) { return "", boom }

	s, err := NewSupervisor(model)
	require.NoError(t, err)

	state, err := s.Route(context.Background(), core.NewPipelineState("q"))
	assert.ErrorIs(t, err, ErrModel)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, core.RouteNone, state.Route)
}

func TestSupervisor_DoesNotMutateInput(t *testing.T) {
	s, err := NewSupervisor(mock.NewMockChatModel("org_matcher"))
	require.NoError(t, err)

	in := core.NewPipelineState("q")
	out, err := s.Route(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, core.RouteNone, in.Route)
	assert.Equal(t, core.RouteOrgMatcher, out.Route)
}
