package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/ProfessorFess/Stack-Sage/internal/domain"
	"github.com/ProfessorFess/Stack-Sage/internal/llm"
)

const interactionSystemPrompt = `You are the rules-interaction stage of a Magic: the Gathering assistant.
You are given card text and Comprehensive Rules excerpts already gathered for this question.
Answer using ONLY the cards and rules provided below; cite rules by id (e.g. "601.2a") and cards by name.
Never invent a card name, rule number, or fact not present in the evidence.
Walk through the interaction using MTG timing where relevant: triggers, the stack, resolution, then
state-based actions.
If the evidence given is not enough to answer confidently, say so plainly and keep the answer short.`

// Interaction is the drafting agent, the only one that composes prose.
// LLM is expected to be a Handle bound to temperature ~0.1
// (client.Handle(model, 0.1)).
type Interaction struct {
	LLM llm.Completer
}

func (a *Interaction) ID() domain.AgentID { return domain.AgentInteraction }

func (a *Interaction) Run(ctx context.Context, state *domain.AgentState) error {
	state.ToolsUsed.Add(a.ID())
	evidence := renderEvidence(state)

	resp, err := a.LLM.Complete(ctx, []llm.Message{
		{Role: "system", Content: interactionSystemPrompt},
		{Role: "user", Content: state.UserQuestion},
		{Role: "system", Content: evidence},
	}, "")
	if err != nil {
		state.Issues = append(state.Issues, "interaction agent: "+err.Error())
		state.DraftAnswer = "I don't have enough information to answer that right now."
		return nil
	}

	state.DraftAnswer = resp.Content

	if insufficientEvidence(state) {
		kind := missingEvidenceKind(state)
		if kind != "" && state.MissingContextReinvocations[kind] == 0 {
			state.MissingContext = kind
		}
	}
	return nil
}

// renderEvidence formats everything currently in context into the
// evidence block the LLM call is constrained to cite from.
func renderEvidence(state *domain.AgentState) string {
	var b strings.Builder
	b.WriteString("Evidence:\n")

	if len(state.Context.Cards) == 0 && len(state.Context.Rules) == 0 && len(state.Context.Meta) == 0 {
		b.WriteString("(none gathered)\n")
		return b.String()
	}

	for _, c := range state.Context.Cards {
		fmt.Fprintf(&b, "Card %s: %s | %s\n", c.Name, c.TypeLine, c.OracleText)
	}
	for _, r := range state.Context.Rules {
		fmt.Fprintf(&b, "Rule %s: %s\n", r.RuleID, r.Text)
	}
	for _, m := range state.Context.Meta {
		fmt.Fprintf(&b, "Meta (%s, as of %s): %s\n", m.Format, m.SnapshotDate, m.Summary)
	}
	return b.String()
}

// insufficientEvidence is a conservative heuristic: no rule or card
// evidence was gathered at all, so the draft is almost certainly a
// placeholder refusal rather than a grounded answer.
func insufficientEvidence(state *domain.AgentState) bool {
	return len(state.Context.Rules) == 0 && len(state.Context.Cards) == 0
}

func missingEvidenceKind(state *domain.AgentState) domain.EvidenceKind {
	if len(state.Context.Rules) == 0 {
		return domain.EvidenceKindRules
	}
	if len(state.Context.Cards) == 0 {
		return domain.EvidenceKindCards
	}
	return ""
}
