package agents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ProfessorFess/Stack-Sage/internal/domain"
)

func TestInteraction_Run_ProducesDraftFromEvidence(t *testing.T) {
	a := &Interaction{LLM: &fakeCompleter{responses: []string{"Lightning Bolt deals 3 damage per rule 601.2a."}}}
	state := domain.NewAgentState("r1", "what does Lightning Bolt do")
	state.AddCardEvidence(domain.Card{Name: "Lightning Bolt", OracleText: "Deals 3 damage to any target."})
	state.AddRuleEvidence(domain.Rule{RuleID: "601.2a", Text: "Casting a spell."})

	require.NoError(t, a.Run(context.Background(), state))

	assert.Equal(t, "Lightning Bolt deals 3 damage per rule 601.2a.", state.DraftAnswer)
	assert.Empty(t, state.MissingContext)
	assert.Contains(t, state.ToolsUsed.List(), domain.AgentInteraction)
}

func TestInteraction_Run_NoEvidenceSetsMissingContext(t *testing.T) {
	a := &Interaction{LLM: &fakeCompleter{responses: []string{"I don't have enough information."}}}
	state := domain.NewAgentState("r2", "what happens with this obscure combo")

	require.NoError(t, a.Run(context.Background(), state))

	assert.Equal(t, domain.EvidenceKindRules, state.MissingContext)
}

func TestInteraction_Run_RespectsReinvocationCap(t *testing.T) {
	a := &Interaction{LLM: &fakeCompleter{responses: []string{"still unsure"}}}
	state := domain.NewAgentState("r3", "another obscure question")
	state.MissingContextReinvocations[domain.EvidenceKindRules] = 1

	require.NoError(t, a.Run(context.Background(), state))

	assert.Empty(t, state.MissingContext)
}

func TestInteraction_Run_LLMFailureProducesRefusal(t *testing.T) {
	a := &Interaction{LLM: &erroringCompleter{}}
	state := domain.NewAgentState("r4", "what does Lightning Bolt do")

	require.NoError(t, a.Run(context.Background(), state))

	assert.NotEmpty(t, state.DraftAnswer)
	assert.NotEmpty(t, state.Issues)
}
