package agents

import (
	"fmt"
	"strings"

	"github.com/poiesic/clinroute/core"
)

// RoutingPrompt is the fixed system instruction given to the supervisor.
const RoutingPrompt = `You are a routing agent for a clinical decision support system.

Analyze the user query and decide which specialist agent should handle it:

- **tool_finder**: Questions about clinical tools, software, documentation systems, drug references, decision support tools
- **org_matcher**: Questions about healthcare organizations, hospitals, health systems, case studies, implementations
- **workflow_advisor**: Complex questions requiring both tools AND organizational context, workflow optimization, comprehensive recommendations

Respond with ONLY one of: tool_finder, org_matcher, workflow_advisor`

const toolFinderPromptTemplate = `You are a clinical technology advisor helping healthcare professionals find AI tools and software.

Recommend tools ONLY from the candidates listed below. Do not invent tools that are not listed.
For each recommendation explain which problem it solves and who it is for.
If the candidate list is empty, say clearly that no matching tools were found.

Candidate tools:
%s`

const orgMatcherPromptTemplate = `You are a healthcare industry analyst helping users learn from organizations that have adopted clinical AI.

Reference organizations ONLY from the candidates listed below. Do not invent organizations that are not listed.
Describe what each relevant organization does with AI and why it is relevant to the question.
If the candidate list is empty, say clearly that no matching organizations were found.

Candidate organizations:
%s`

const advisorPromptTemplate = `You are a clinical workflow advisor. Give practical guidance that combines technology choices with lessons from organizations that have implemented them.

Use ONLY the candidate tools and organizations listed below. Do not invent tools or organizations.
Connect tools to organizations where it helps, and outline concrete next steps.
If a candidate list is empty, say so and work with what is available.

Candidate tools:
%s

Candidate organizations:
%s`

const emptyCandidates = "(none)"

const (
	// NoToolsFound is the response used when the tool finder has nothing to offer.
	NoToolsFound = "No matching tools were found in the catalog for this query."
	// NoOrgsFound is the response used when the org matcher has nothing to offer.
	NoOrgsFound = "No matching organizations were found in the catalog for this query."
	// NothingFound is the response used when the advisor has nothing to offer.
	NothingFound = "No matching tools or organizations were found in the catalogs for this query."
)

func renderTools(tools []core.ToolRecord) string {
	if len(tools) == 0 {
		return emptyCandidates
	}
	var b strings.Builder
	for i, t := range tools {
		fmt.Fprintf(&b, "%d. %s", i+1, t.Name)
		if t.Category != "" {
			fmt.Fprintf(&b, " (%s)", t.Category)
		}
		b.WriteString("\n")
		writeField(&b, "Description", t.Description)
		writeField(&b, "Target users", strings.Join(t.TargetUsers, ", "))
		writeField(&b, "Problem solved", t.ProblemSolved)
		fmt.Fprintf(&b, "   Relevance: %.2f\n", t.Similarity)
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderOrgs(orgs []core.OrgRecord) string {
	if len(orgs) == 0 {
		return emptyCandidates
	}
	var b strings.Builder
	for i, o := range orgs {
		fmt.Fprintf(&b, "%d. %s", i+1, o.Name)
		if o.OrgType != "" {
			fmt.Fprintf(&b, " (%s)", o.OrgType)
		}
		b.WriteString("\n")
		writeField(&b, "Specialty", o.Specialty)
		writeField(&b, "Location", o.Location())
		writeField(&b, "Description", o.Description)
		writeField(&b, "AI use cases", strings.Join(o.AIUseCases, ", "))
		fmt.Fprintf(&b, "   Relevance: %.2f\n", o.Similarity)
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeField(b *strings.Builder, label, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(b, "   %s: %s\n", label, value)
}

func toolFinderPrompt(tools []core.ToolRecord) string {
	return fmt.Sprintf(toolFinderPromptTemplate, renderTools(tools))
}

func orgMatcherPrompt(orgs []core.OrgRecord) string {
	return fmt.Sprintf(orgMatcherPromptTemplate, renderOrgs(orgs))
}

func advisorPrompt(tools []core.ToolRecord, orgs []core.OrgRecord) string {
	return fmt.Sprintf(advisorPromptTemplate, renderTools(tools), renderOrgs(orgs))
}
