package agents

import (
	"context"
	"strings"

	"github.com/ProfessorFess/Stack-Sage/internal/domain"
	"github.com/ProfessorFess/Stack-Sage/internal/tools"
)

const (
	rulesSearchK       = 8
	rulesExpectedCount = 6
	rulesCoverageFloor = 0.3
	rulesCitationTopN  = 3
)

// Rules is the rules-retrieval agent. K, ExpectedResults, and
// CoverageFloor override the default retrieval depth and coverage
// tunables (RULES_HYBRID_K / RULES_COVERAGE_EXPECTED /
// RULES_COVERAGE_THRESHOLD); zero values fall back to the package
// constants.
type Rules struct {
	Tools *tools.Registry

	K               int
	ExpectedResults int
	CoverageFloor   float64
}

func (a *Rules) ID() domain.AgentID { return domain.AgentRules }

func (a *Rules) Run(ctx context.Context, state *domain.AgentState) error {
	state.ToolsUsed.Add(a.ID())
	query := buildRulesQuery(state.UserQuestion, state.ExtractedCards)

	k := a.K
	if k <= 0 {
		k = rulesSearchK
	}
	results, err := a.Tools.SearchRulesHybrid(ctx, query, k, 0)
	if err != nil {
		state.Issues = append(state.Issues, "rules agent: "+err.Error())
		state.MissingContext = domain.EvidenceKindRules
		return nil
	}

	for _, r := range results {
		state.AddRuleEvidence(r)
	}

	expected := a.ExpectedResults
	if expected <= 0 {
		expected = rulesExpectedCount
	}
	floor := a.CoverageFloor
	if floor <= 0 {
		floor = rulesCoverageFloor
	}
	coverage := float64(len(results)) / float64(expected)
	if coverage > 1 {
		coverage = 1
	}
	if coverage < floor {
		state.MissingContext = domain.EvidenceKindRules
	}

	// results is already score-descending (index.SearchHybrid's contract).
	top := results
	if len(top) > rulesCitationTopN {
		top = top[:rulesCitationTopN]
	}
	for _, r := range top {
		state.AddRuleCitation(r.RuleID)
	}
	return nil
}

// buildRulesQuery appends extracted card names as keywords to boost
// relevance.
func buildRulesQuery(question string, cardNames []string) string {
	if len(cardNames) == 0 {
		return question
	}
	return question + " " + strings.Join(cardNames, " ")
}
