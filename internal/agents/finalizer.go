package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/ProfessorFess/Stack-Sage/internal/domain"
)

// Finalizer is a pure formatter that assembles the user-visible string
// from state. It never adds factual content.
type Finalizer struct{}

func (a *Finalizer) ID() domain.AgentID { return domain.AgentFinalizer }

func (a *Finalizer) Run(_ context.Context, state *domain.AgentState) error {
	var b strings.Builder

	answer := state.DraftAnswer
	switch {
	case state.Aborted:
		answer = formatAbortReason(state.AbortReason)
	case answer != "":
		// draft already produced, use it as-is
	case len(state.Context.Deck) > 0:
		answer = formatDeckValidation(state.Context.Deck[len(state.Context.Deck)-1])
	case strings.TrimSpace(state.UserQuestion) == "":
		answer = "Please ask a question."
	default:
		answer = "I wasn't able to produce an answer for that question."
	}
	b.WriteString(answer)

	if tools := state.ToolsUsed.List(); len(tools) > 0 {
		names := make([]string, len(tools))
		for i, t := range tools {
			names[i] = string(t)
		}
		fmt.Fprintf(&b, "\n\ntools used: %s", strings.Join(names, ", "))
	}

	if len(state.Citations) > 0 {
		b.WriteString("\n\ncitations:")
		for _, c := range state.Citations {
			if c.RuleID != "" {
				fmt.Fprintf(&b, "\n- rule %s", c.RuleID)
			}
			if c.CardName != "" {
				fmt.Fprintf(&b, "\n- card %s", c.CardName)
			}
		}
	}

	state.FinalAnswer = b.String()
	return nil
}

// formatAbortReason turns the abort reason the dispatch loop recorded
// (internal/graph's "question too complex" / "request timed out") into a
// user-facing refusal: every abort path surfaces a diagnostic in the
// answer, not the generic "wasn't able to produce an answer" fallback.
// Finalizer has no dependency on the graph package (it would be
// circular), so it matches on the reason text rather than a shared
// constant.
func formatAbortReason(reason string) string {
	switch {
	case reason == "":
		return "I had to stop before finishing: something went wrong partway through."
	case strings.Contains(reason, "complex"):
		return "This question is too complex for me to answer in one pass: " + reason + ". Try breaking it into smaller questions."
	case strings.Contains(reason, "timed out"):
		return "I ran out of time working on this: " + reason + ". Please try again."
	default:
		return "I had to stop before finishing: " + reason + "."
	}
}

func formatDeckValidation(deck domain.Deck) string {
	v := deck.Validation
	if v.IsLegal {
		return fmt.Sprintf("This %s deck (%d cards) is legal.", deck.Format, v.TotalCards)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "This %s deck (%d cards) is not legal:", deck.Format, v.TotalCards)
	for _, e := range v.Errors {
		fmt.Fprintf(&b, "\n- %s", e)
	}
	for _, w := range v.Warnings {
		fmt.Fprintf(&b, "\n- warning: %s", w)
	}
	return b.String()
}
