package agents

import (
	"context"
	"sync"

	"github.com/poiesic/clinroute/core"
	"github.com/poiesic/clinroute/retrieval"
)

var mockTools = []core.ToolRecord{
	{
		ID: 1, Name: "Ambient Clinical Documentation AI", Category: "Documentation",
		Description:   "AI-powered ambient listening that drafts clinical notes from patient encounters",
		TargetUsers:   []string{"Physicians", "Nurse Practitioners"},
		ProblemSolved: "Reduces documentation burden and after-hours charting",
		Similarity:    0.85,
	},
	{
		ID: 2, Name: "Lexicomp Drug Information", Category: "Drug Reference",
		Description:   "Comprehensive drug database with interaction checking",
		TargetUsers:   []string{"Pharmacists", "Physicians"},
		ProblemSolved: "Medication safety and drug interaction detection",
		Similarity:    0.72,
	},
	{
		ID: 3, Name: "Clinical Trial Matching Engine", Category: "Research",
		Description:   "Matches patients to eligible clinical trials",
		TargetUsers:   []string{"Oncologists", "Research Coordinators"},
		ProblemSolved: "Improves trial enrollment rates",
		Similarity:    0.68,
	},
}

var mockOrgs = []core.OrgRecord{
	{
		ID: 1, Name: "Mayo Clinic", OrgType: "health_system", Specialty: "Multi-specialty",
		Description: "Nonprofit academic medical center", City: "Rochester", State: "MN",
		AIUseCases: []string{"Clinical documentation", "Radiology AI"},
		Similarity: 0.82,
	},
	{
		ID: 2, Name: "Cleveland Clinic", OrgType: "health_system", Specialty: "Cardiology",
		Description: "Leader in cardiac care", City: "Cleveland", State: "OH",
		AIUseCases: []string{"Cardiac imaging analysis"},
		Similarity: 0.75,
	},
	{
		ID: 3, Name: "Johns Hopkins Hospital", OrgType: "academic_medical_center", Specialty: "Oncology",
		Description: "Teaching hospital of Johns Hopkins University", City: "Baltimore", State: "MD",
		AIUseCases: []string{"Sepsis prediction", "Oncology decision support"},
		Similarity: 0.70,
	},
}

// fixtureSearcher returns its fixtures truncated to the limit and records
// every query it receives.
type fixtureSearcher[T any] struct {
	name    string
	records []T
	err     error

	mu      sync.Mutex
	queries []string
}

var _ retrieval.Searcher[core.ToolRecord] = (*fixtureSearcher[core.ToolRecord])(nil)

func newFixtureSearcher[T any](name string, records []T) *fixtureSearcher[T] {
	return &fixtureSearcher[T]{name: name, records: records}
}

func (f *fixtureSearcher[T]) Name() string { return f.name }

func (f *fixtureSearcher[T]) Search(ctx context.Context, query string, limit int) ([]T, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	out := append([]T{}, f.records...)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fixtureSearcher[T]) Queries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.queries...)
}
