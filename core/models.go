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

// Package core holds the domain model shared by every layer: routes,
// catalog records, pipeline state, confidence scores and conversation threads.
package core

import (
	"encoding/binary"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a catalog record identifier.
type ID uint64

// IDFromContent derives a stable 64-bit identifier from text.
// Seeding the same catalog twice yields the same IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Route is the specialist classification chosen for a query.
type Route string

const (
	// RouteNone is the unset route of a fresh pipeline state.
	RouteNone Route = ""
	// RouteToolFinder handles questions about clinical tools and software.
	RouteToolFinder Route = "tool_finder"
	// RouteOrgMatcher handles questions about healthcare organizations.
	RouteOrgMatcher Route = "org_matcher"
	// RouteWorkflowAdvisor handles broad questions needing both catalogs.
	RouteWorkflowAdvisor Route = "workflow_advisor"
)

// Routes lists every recognized route in routing-prompt order.
var Routes = []Route{RouteToolFinder, RouteOrgMatcher, RouteWorkflowAdvisor}

// ParseRoute normalizes case and surrounding whitespace and reports whether
// the result is exactly one of the recognized routes.
func ParseRoute(s string) (Route, bool) {
	r := Route(strings.ToLower(strings.TrimSpace(s)))
	if r.Valid() {
		return r, true
	}
	return RouteNone, false
}

// Valid reports whether r is a recognized route.
func (r Route) Valid() bool {
	switch r {
	case RouteToolFinder, RouteOrgMatcher, RouteWorkflowAdvisor:
		return true
	}
	return false
}

func (r Route) String() string {
	return string(r)
}

// Record is implemented by catalog record types so that one generic
// store and retriever can serve every catalog.
type Record[T any] interface {
	// RecordID returns the record identifier (zero when unassigned).
	RecordID() ID
	// RecordName returns the human-readable record name.
	RecordName() string
	// EmbeddingText returns the text that is embedded for similarity search.
	EmbeddingText() string
	// WithID returns a copy carrying the given identifier.
	WithID(id ID) T
	// WithSimilarity returns a copy carrying a retrieval score.
	WithSimilarity(score float32) T
}

// ToolRecord is an entry in the clinical tools catalog.
type ToolRecord struct {
	ID            ID       `json:"id" yaml:"id"`
	Name          string   `json:"name" yaml:"name"`
	Category      string   `json:"category" yaml:"category"`
	Description   string   `json:"description" yaml:"description"`
	TargetUsers   []string `json:"target_users" yaml:"target_users"`
	ProblemSolved string   `json:"problem_solved" yaml:"problem_solved"`

	// Similarity is attached at retrieval time and never persisted.
	Similarity float32 `json:"similarity" yaml:"-"`
}

var _ Record[ToolRecord] = ToolRecord{}

func (t ToolRecord) RecordID() ID       { return t.ID }
func (t ToolRecord) RecordName() string { return t.Name }

func (t ToolRecord) EmbeddingText() string {
	parts := []string{t.Name, t.Category, t.Description, t.ProblemSolved}
	if len(t.TargetUsers) > 0 {
		parts = append(parts, "Target users: "+strings.Join(t.TargetUsers, ", "))
	}
	return joinNonEmpty(parts)
}

func (t ToolRecord) WithID(id ID) ToolRecord {
	t.ID = id
	return t
}

func (t ToolRecord) WithSimilarity(score float32) ToolRecord {
	t.Similarity = score
	return t
}

// OrgRecord is an entry in the healthcare organizations catalog.
type OrgRecord struct {
	ID          ID       `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	OrgType     string   `json:"org_type" yaml:"org_type"`
	Specialty   string   `json:"specialty" yaml:"specialty"`
	Description string   `json:"description" yaml:"description"`
	City        string   `json:"city" yaml:"city"`
	State       string   `json:"state" yaml:"state"`
	AIUseCases  []string `json:"ai_use_cases" yaml:"ai_use_cases"`

	Similarity float32 `json:"similarity" yaml:"-"`
}

var _ Record[OrgRecord] = OrgRecord{}

func (o OrgRecord) RecordID() ID       { return o.ID }
func (o OrgRecord) RecordName() string { return o.Name }

func (o OrgRecord) EmbeddingText() string {
	parts := []string{o.Name, o.OrgType, o.Specialty, o.Description, o.Location()}
	if len(o.AIUseCases) > 0 {
		parts = append(parts, "AI use cases: "+strings.Join(o.AIUseCases, ", "))
	}
	return joinNonEmpty(parts)
}

func (o OrgRecord) WithID(id ID) OrgRecord {
	o.ID = id
	return o
}

func (o OrgRecord) WithSimilarity(score float32) OrgRecord {
	o.Similarity = score
	return o
}

// Location renders "City, State", omitting whichever half is missing.
func (o OrgRecord) Location() string {
	switch {
	case o.City != "" && o.State != "":
		return o.City + ", " + o.State
	case o.City != "":
		return o.City
	default:
		return o.State
	}
}

func joinNonEmpty(parts []string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ". ")
}

// Confidence carries per-stage scores, each in [0,1].
type Confidence struct {
	Routing   float64 `json:"routing"`
	Retrieval float64 `json:"retrieval"`
	Response  float64 `json:"response"`
	Overall   float64 `json:"overall"`
}

// WithOverall returns a copy whose Overall is the mean of the three stage scores.
func (c Confidence) WithOverall() Confidence {
	c.Overall = (c.Routing + c.Retrieval + c.Response) / 3
	return c
}

// PipelineState is the record threaded through one query turn.
//
// Route is written once by the router before any handler runs, and Response
// is written once by the terminal handler. A state is never mutated after the
// invocation that produced it returns; stages receive and return copies.
type PipelineState struct {
	Query        string       `json:"query"`
	Route        Route        `json:"route"`
	ToolsResults []ToolRecord `json:"tools_results"`
	OrgsResults  []OrgRecord  `json:"orgs_results"`
	Response     string       `json:"response"`
	Error        string       `json:"error,omitempty"`
	Confidence   Confidence   `json:"confidence"`

	// RouteFallback is set when the router could not parse the model's label
	// and defaulted to RouteWorkflowAdvisor.
	RouteFallback bool `json:"route_fallback,omitempty"`

	// ThreadID enables checkpointing when non-empty.
	ThreadID string `json:"thread_id,omitempty"`
	// Turn counts completed turns on ThreadID, starting at 1.
	Turn int `json:"turn,omitempty"`
}

// NewPipelineState returns the initial state for a query: no route, empty
// result sequences, empty response, no error and zero confidence.
func NewPipelineState(query string) PipelineState {
	return PipelineState{
		Query:        query,
		ToolsResults: []ToolRecord{},
		OrgsResults:  []OrgRecord{},
	}
}

// Clone returns a deep copy whose result slices are not shared with s.
func (s PipelineState) Clone() PipelineState {
	c := s
	c.ToolsResults = append(make([]ToolRecord, 0, len(s.ToolsResults)), s.ToolsResults...)
	c.OrgsResults = append(make([]OrgRecord, 0, len(s.OrgsResults)), s.OrgsResults...)
	return c
}

// MessageRole identifies the author of a thread message.
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// DefaultThreadTitle is the title given to threads created without one.
// Threads still carrying it are retitled from their first answered query.
const DefaultThreadTitle = "New Chat"

// Thread is a persisted multi-turn conversation.
type Thread struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is one entry in a thread. Route is set on assistant messages.
type Message struct {
	ID        string      `json:"id"`
	ThreadID  string      `json:"thread_id"`
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	Route     Route       `json:"route,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}
