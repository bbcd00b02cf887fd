package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ProfessorFess/Stack-Sage/internal/domain"
	"github.com/ProfessorFess/Stack-Sage/internal/llm"
)

const plannerSystemPrompt = `You are the planning stage of a Magic: the Gathering rules assistant.
Given a player's question, respond with ONLY a JSON object of the form:
{"card_names": ["..."], "intent": "one of card_interaction, rules, meta, deck_validation"}
card_names lists every Magic card named or clearly implied by the question, exactly as printed.
intent is card_interaction for "what happens if" style rules questions about specific cards,
rules for general rules questions with no specific card, meta for metagame/tournament questions,
and deck_validation for "is this decklist legal" questions. Respond with JSON only, no prose.`

var validIntents = map[domain.Intent]bool{
	domain.IntentCardInteraction: true,
	domain.IntentRules:           true,
	domain.IntentMeta:            true,
	domain.IntentDeckValidation:  true,
}

// Planner is the planning agent: a deterministic LLM call that
// classifies the question and extracts card names, then builds task_plan
// from intent and card presence alone. LLM is expected to be a Handle
// bound to temperature 0 (client.Handle(model, 0)).
type Planner struct {
	LLM llm.Completer
}

func (p *Planner) ID() domain.AgentID { return domain.AgentPlanner }

type plannerResult struct {
	CardNames []string      `json:"card_names"`
	Intent    domain.Intent `json:"intent"`
}

// Run sends the classification call at temperature 0, retries once on
// malformed JSON, and falls back to intent rules with no cards on a
// second failure rather than aborting the graph.
func (p *Planner) Run(ctx context.Context, state *domain.AgentState) error {
	result, err := p.classify(ctx, state.UserQuestion)
	if err != nil {
		state.Issues = append(state.Issues, "planner: "+err.Error())
		result = plannerResult{Intent: domain.IntentRules}
	}

	state.ExtractedCards = result.CardNames
	state.Intent = result.Intent
	state.TaskPlan = buildTaskPlan(result.Intent, result.CardNames)
	state.ControllerSensitive = detectControllerSensitive(state.UserQuestion)
	return nil
}

func (p *Planner) classify(ctx context.Context, question string) (plannerResult, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		resp, err := p.LLM.Complete(ctx, []llm.Message{
			{Role: "system", Content: plannerSystemPrompt},
			{Role: "user", Content: question},
		}, "")
		if err != nil {
			return plannerResult{}, err
		}

		var result plannerResult
		if err := json.Unmarshal([]byte(extractJSONObject(resp.Content)), &result); err != nil {
			lastErr = fmt.Errorf("malformed planner JSON: %w", err)
			continue
		}
		if !validIntents[result.Intent] {
			lastErr = fmt.Errorf("unrecognized intent %q", result.Intent)
			continue
		}
		return result, nil
	}
	return plannerResult{}, lastErr
}

// extractJSONObject trims any prose or markdown fencing an LLM wraps its
// JSON in, returning the substring from the first '{' to the last '}'.
func extractJSONObject(content string) string {
	start := strings.IndexByte(content, '{')
	end := strings.LastIndexByte(content, '}')
	if start == -1 || end == -1 || end < start {
		return content
	}
	return content[start : end+1]
}

// buildTaskPlan constructs task_plan deterministically from intent and
// card presence.
func buildTaskPlan(intent domain.Intent, cards []string) []domain.AgentID {
	switch intent {
	case domain.IntentDeckValidation:
		return []domain.AgentID{domain.AgentDeck, domain.AgentFinalizer}
	case domain.IntentMeta:
		plan := []domain.AgentID{domain.AgentMeta}
		if len(cards) > 0 {
			plan = append(plan, domain.AgentCard)
		}
		return append(plan, domain.AgentInteraction, domain.AgentFinalizer)
	default: // card_interaction, rules
		var plan []domain.AgentID
		if len(cards) > 0 {
			plan = append(plan, domain.AgentCard)
		}
		plan = append(plan, domain.AgentRules, domain.AgentInteraction, domain.AgentJudge, domain.AgentFinalizer)
		return plan
	}
}

var controllerPronounPhrases = []string{
	"opponent controls", "i control", "they control",
	" my ", " their ", " mine ", " theirs ",
}

// detectControllerSensitive flags questions whose answer depends on who
// controls what ("opponent controls X", "my/their").
func detectControllerSensitive(question string) bool {
	q := " " + strings.ToLower(question) + " "
	for _, phrase := range controllerPronounPhrases {
		if strings.Contains(q, phrase) {
			return true
		}
	}
	return false
}
