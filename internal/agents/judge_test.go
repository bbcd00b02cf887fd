package agents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ProfessorFess/Stack-Sage/internal/domain"
)

func TestJudge_Run_GroundedDraftPassesUnchanged(t *testing.T) {
	a := &Judge{LLM: &fakeCompleter{responses: []string{"should not be called"}}}
	state := domain.NewAgentState("r1", "what does Lightning Bolt do")
	state.AddCardEvidence(domain.Card{Name: "Lightning Bolt", OracleText: "Deals 3 damage to any target."})
	state.AddRuleEvidence(domain.Rule{RuleID: "601.2a", Text: "Casting a spell."})
	state.DraftAnswer = "Lightning Bolt deals 3 damage, citing rule 601.2a."

	require.NoError(t, a.Run(context.Background(), state))

	assert.True(t, state.JudgeReport.Grounded)
	assert.Equal(t, "Lightning Bolt deals 3 damage, citing rule 601.2a.", state.DraftAnswer)
}

func TestJudge_Run_UngroundedCardMentionTriggersRewrite(t *testing.T) {
	a := &Judge{LLM: &fakeCompleter{responses: []string{"I don't have enough verified information to answer that."}}}
	state := domain.NewAgentState("r2", "what does Lightning Bolt do")
	state.AddCardEvidence(domain.Card{Name: "Lightning Bolt", OracleText: "Deals 3 damage to any target."})
	state.DraftAnswer = "Lightning Bolt deals 3 damage, and also counters Swords To Plowshares."

	require.NoError(t, a.Run(context.Background(), state))

	assert.False(t, state.JudgeReport.Grounded)
	assert.Equal(t, "I don't have enough verified information to answer that.", state.DraftAnswer)
}

func TestJudge_Run_ConnectorNameMentionsStayGrounded(t *testing.T) {
	a := &Judge{LLM: &fakeCompleter{responses: []string{"should not be called"}}}
	state := domain.NewAgentState("r6", "Does Rest in Peace stop Unearth?")
	state.AddCardEvidence(domain.Card{
		Name:       "Rest in Peace",
		OracleText: "If a card or token would be put into a graveyard from anywhere, exile it instead.",
	})
	state.AddCardEvidence(domain.Card{
		Name:       "Unearth",
		OracleText: "Return target creature card with mana value 3 or less from your graveyard to the battlefield.",
	})
	state.AddRuleEvidence(domain.Rule{RuleID: "614.6", Text: "A replacement effect replaces the event."})
	state.DraftAnswer = "Yes. Rest in Peace applies a replacement effect under rule 614.6, so the creature Unearth would return is exiled instead and Unearth can't find it in the graveyard."

	require.NoError(t, a.Run(context.Background(), state))

	assert.True(t, state.JudgeReport.Grounded)
	assert.Empty(t, state.JudgeReport.Issues)
	assert.Contains(t, state.DraftAnswer, "Rest in Peace")
}

func TestJudge_Run_RewriteFailureFallsBackToRefusal(t *testing.T) {
	a := &Judge{LLM: &erroringCompleter{}}
	state := domain.NewAgentState("r3", "what does Lightning Bolt do")
	state.DraftAnswer = "Swords To Plowshares exiles it."

	require.NoError(t, a.Run(context.Background(), state))

	assert.False(t, state.JudgeReport.Grounded)
	assert.Equal(t, "I don't have enough verified information to answer that.", state.DraftAnswer)
}

func TestJudge_Run_ControllerClaimAttributedToWrongPlayerTriggersRewrite(t *testing.T) {
	a := &Judge{LLM: &fakeCompleter{responses: []string{"Your opponent gains 1 life; you lose nothing."}}}
	state := domain.NewAgentState("r4", "If my opponent controls Blood Artist and their creature dies, who gains life?")
	state.ControllerSensitive = true
	state.AddCardEvidence(domain.Card{
		Name:       "Blood Artist",
		OracleText: "Whenever Blood Artist or another creature dies, target player loses 1 life and you gain 1 life.",
	})
	state.AddRuleEvidence(domain.Rule{RuleID: "603.2", Text: "Triggered abilities trigger."})
	state.DraftAnswer = "You gain 1 life."

	require.NoError(t, a.Run(context.Background(), state))

	assert.NotEmpty(t, state.JudgeReport.ControllerCorrection)
	assert.Equal(t, "Your opponent gains 1 life; you lose nothing.", state.DraftAnswer)
}

func TestJudge_Run_ControllerClaimAttributedToCorrectPlayerPassesUnchanged(t *testing.T) {
	a := &Judge{LLM: &fakeCompleter{responses: []string{"should not be called"}}}
	state := domain.NewAgentState("r5", "If my opponent controls Blood Artist and their creature dies, who gains life?")
	state.ControllerSensitive = true
	state.AddCardEvidence(domain.Card{
		Name:       "Blood Artist",
		OracleText: "Whenever Blood Artist or another creature dies, target player loses 1 life and you gain 1 life.",
	})
	state.DraftAnswer = "Your opponent gains 1 life."

	require.NoError(t, a.Run(context.Background(), state))

	assert.Empty(t, state.JudgeReport.ControllerCorrection)
	assert.Equal(t, "Your opponent gains 1 life.", state.DraftAnswer)
}
