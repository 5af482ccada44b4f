package core

import (
	"strings"
	"testing"
)

func TestIDFromContent(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "tool key", text: "tool:Lexicomp Drug Information"},
		{name: "org key", text: "organization:Mayo Clinic"},
		{name: "empty string", text: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first := IDFromContent(tt.text)
			second := IDFromContent(tt.text)
			if first != second {
				t.Errorf("IDFromContent() not deterministic: %d != %d", first, second)
			}
		})
	}
}

func TestIDFromContent_Different(t *testing.T) {
	a := IDFromContent("tool:Ambient Clinical Documentation AI")
	b := IDFromContent("organization:Ambient Clinical Documentation AI")
	if a == b {
		t.Errorf("different content produced the same id %d", a)
	}
}

func TestParseRoute(t *testing.T) {
	tests := []struct {
		in     string
		want   Route
		wantOK bool
	}{
		{in: "tool_finder", want: RouteToolFinder, wantOK: true},
		{in: "ORG_MATCHER", want: RouteOrgMatcher, wantOK: true},
		{in: "  Workflow_Advisor\n", want: RouteWorkflowAdvisor, wantOK: true},
		{in: "banana", want: RouteNone, wantOK: false},
		{in: "", want: RouteNone, wantOK: false},
		{in: "tool_finder.", want: RouteNone, wantOK: false},
		{in: "route: tool_finder", want: RouteNone, wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseRoute(tt.in)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ParseRoute(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestToolRecord_EmbeddingText(t *testing.T) {
	tool := ToolRecord{
		Name:          "Ambient Clinical Documentation AI",
		Category:      "Documentation",
		Description:   "AI-powered ambient listening for clinical documentation.",
		TargetUsers:   []string{"physicians", "nurse_practitioners"},
		ProblemSolved: "Eliminates documentation burden and reduces burnout.",
	}
	text := tool.EmbeddingText()
	for _, want := range []string{tool.Name, tool.Category, "physicians, nurse_practitioners"} {
		if !strings.Contains(text, want) {
			t.Errorf("EmbeddingText() = %q, missing %q", text, want)
		}
	}
}

func TestOrgRecord_Location(t *testing.T) {
	tests := []struct {
		org  OrgRecord
		want string
	}{
		{org: OrgRecord{City: "Rochester", State: "Minnesota"}, want: "Rochester, Minnesota"},
		{org: OrgRecord{City: "Cleveland"}, want: "Cleveland"},
		{org: OrgRecord{State: "Maryland"}, want: "Maryland"},
		{org: OrgRecord{}, want: ""},
	}
	for _, tt := range tests {
		if got := tt.org.Location(); got != tt.want {
			t.Errorf("Location() = %q, want %q", got, tt.want)
		}
	}
}

func TestRecord_WithCopies(t *testing.T) {
	org := OrgRecord{Name: "Mayo Clinic"}
	scored := org.WithSimilarity(0.82).WithID(7)
	if org.Similarity != 0 || org.ID != 0 {
		t.Errorf("original record mutated: %+v", org)
	}
	if scored.Similarity != 0.82 || scored.ID != 7 {
		t.Errorf("copy not updated: %+v", scored)
	}
}

func TestConfidence_WithOverall(t *testing.T) {
	c := Confidence{Routing: 1, Retrieval: 0.5, Response: 0}.WithOverall()
	if c.Overall != 0.5 {
		t.Errorf("Overall = %v, want 0.5", c.Overall)
	}
}

func TestNewPipelineState(t *testing.T) {
	s := NewPipelineState("q")
	if s.Route != RouteNone || s.Response != "" || s.Error != "" {
		t.Errorf("unexpected initial state: %+v", s)
	}
	if s.ToolsResults == nil || s.OrgsResults == nil {
		t.Error("result sequences should be empty, not nil")
	}
	if s.Confidence != (Confidence{}) {
		t.Errorf("confidence should be zero, got %+v", s.Confidence)
	}
}

func TestPipelineState_Clone(t *testing.T) {
	s := NewPipelineState("q")
	s.ToolsResults = append(s.ToolsResults, ToolRecord{Name: "A"})
	c := s.Clone()
	c.ToolsResults[0].Name = "B"
	if s.ToolsResults[0].Name != "A" {
		t.Error("Clone shares the tools slice with the original")
	}
}
