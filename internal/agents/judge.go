package agents

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/ProfessorFess/Stack-Sage/internal/domain"
	"github.com/ProfessorFess/Stack-Sage/internal/llm"
)

const judgeRewriteSystemPrompt = `You are the verification stage of a Magic: the Gathering assistant.
A draft answer below may cite a card name, rule id, or fact that is not backed by the evidence provided.
Rewrite the answer using ONLY the evidence given, removing anything ungrounded.
If nothing grounded remains, respond with exactly: "I don't have enough verified information to answer that."`

// lifeClaimPattern matches a "<subject> gains/loses N life" statement,
// the claim shape the controller-logic check is built around.
var lifeClaimPattern = regexp.MustCompile(`\b(you|opponent)\s+(gains?|loses?)\s+\d*\s*life`)

// userPossessives and opponentPossessives build the pronoun->player
// map: "I/my" -> user, "opponent/their" -> adversary.
var userPossessives = []string{"my ", "i control", "i own"}
var opponentPossessives = []string{"opponent", "their ", "they control"}

// Judge is the verification agent: a grounding check against state,
// plus a controller-logic check when the Planner flagged the question
// controller-sensitive. LLM is expected to be a Handle bound to
// temperature 0 (client.Handle(model, 0)), used only for rewrites.
type Judge struct {
	LLM llm.Completer
}

func (a *Judge) ID() domain.AgentID { return domain.AgentJudge }

func (a *Judge) Run(ctx context.Context, state *domain.AgentState) error {
	state.ToolsUsed.Add(a.ID())
	report := domain.JudgeReport{Grounded: true}

	ungroundedCards, ungroundedRules := findUngroundedMentions(state)
	if len(ungroundedCards) > 0 || len(ungroundedRules) > 0 {
		report.Grounded = false
		for _, c := range ungroundedCards {
			report.Issues = append(report.Issues, "ungrounded card mention: "+c)
		}
		for _, r := range ungroundedRules {
			report.Issues = append(report.Issues, "ungrounded rule mention: "+r)
		}
	}

	if state.ControllerSensitive {
		if issue, ok := checkControllerLogic(state); !ok {
			report.ControllerCorrection = issue
		}
	}

	if !report.Grounded || report.ControllerCorrection != "" {
		rewritten, err := a.rewrite(ctx, state)
		if err != nil {
			state.Issues = append(state.Issues, "judge agent: rewrite failed: "+err.Error())
			state.DraftAnswer = "I don't have enough verified information to answer that."
		} else {
			state.DraftAnswer = rewritten
		}
	}

	state.JudgeReport = report
	return nil
}

// findUngroundedMentions reports card-like tokens and rule ids in the
// draft that state's evidence does not back. Known card names are
// blanked out of the draft first, so grounding never depends on the
// candidate extractor reassembling a multi-word name exactly ("Rest in
// Peace" in evidence can't be misread as ungrounded "Rest" + "Peace");
// whatever card-shaped text survives the scrub has no evidence behind it.
func findUngroundedMentions(state *domain.AgentState) (cards, rules []string) {
	known := make([]string, 0, len(state.Context.Cards))
	for _, c := range state.Context.Cards {
		known = append(known, c.Name)
	}
	residue := removeKnownNames(state.DraftAnswer, known)

	for _, token := range extractCardLikeTokens(residue) {
		if !state.HasCard(token) {
			cards = append(cards, token)
		}
	}
	for _, id := range extractRuleIDs(state.DraftAnswer) {
		if !state.HasRule(id) {
			rules = append(rules, id)
		}
	}
	return cards, rules
}

// checkControllerLogic builds a small game-state map from the question
// ("I/my" -> user, "opponent/their" -> adversary) and checks each "who
// gains/loses life" claim in the draft against the oracle text of the
// card whose trigger it must have come from: a trigger's "you gain/lose
// life" binds to that permanent's controller, so a claim naming the
// wrong player is flagged for rewrite (a Blood Artist the opponent
// controls gains the opponent life, not the user, when their creature
// dies).
func checkControllerLogic(state *domain.AgentState) (issue string, ok bool) {
	draftClaims := extractLifeClaims(state.DraftAnswer, false)
	if len(draftClaims) == 0 {
		return "", true
	}

	players := parsePlayerMap(state.UserQuestion, state.Context.Cards)
	for _, c := range state.Context.Cards {
		controller, known := players[strings.ToLower(c.Name)]
		if !known {
			continue
		}
		for _, oc := range extractLifeClaims(c.OracleText, true) {
			for _, dc := range draftClaims {
				if dc.verb != oc.verb {
					continue
				}
				if dc.subject != controller {
					return fmt.Sprintf(
						"draft says %s %ss life from %s, but %s controls %s and should %s the life instead",
						dc.subject, dc.verb, c.Name, controller, c.Name, dc.verb,
					), false
				}
			}
		}
	}
	return "", true
}

// parsePlayerMap maps each gathered card's lowercased name to the player
// who controls it, per the nearest possessive phrase preceding the
// card's mention in the question ("my Blood Artist" -> user, "opponent
// controls Blood Artist" -> opponent). A card the question never
// attributes to anyone is left unmapped and skipped by the caller.
func parsePlayerMap(question string, cards []domain.Card) map[string]string {
	lower := strings.ToLower(question)
	players := make(map[string]string, len(cards))
	for _, c := range cards {
		name := strings.ToLower(c.Name)
		idx := strings.Index(lower, name)
		if idx < 0 {
			continue
		}
		prefix := lower[:idx]
		userAt := lastIndexAny(prefix, userPossessives)
		oppAt := lastIndexAny(prefix, opponentPossessives)
		switch {
		case oppAt < 0 && userAt < 0:
			continue
		case oppAt > userAt:
			players[name] = "opponent"
		default:
			players[name] = "user"
		}
	}
	return players
}

func lastIndexAny(s string, substrs []string) int {
	best := -1
	for _, sub := range substrs {
		if i := strings.LastIndex(s, sub); i > best {
			best = i
		}
	}
	return best
}

// lifeClaim is one "<subject> gains/loses life" statement pulled out of
// either a draft answer or a card's oracle text.
type lifeClaim struct {
	subject string // "user", "opponent", or "controller" (fromOracle only)
	verb    string // "gain" or "lose"
}

// extractLifeClaims finds every life-change claim in text. fromOracle
// selects the oracle-text reading: oracle text is always written from
// the controller's point of view, so a bare "you" subject there means
// "controller" rather than "user"; an oracle "opponent" subject names a
// claim this heuristic doesn't attempt to attribute and is skipped.
func extractLifeClaims(text string, fromOracle bool) []lifeClaim {
	var out []lifeClaim
	for _, m := range lifeClaimPattern.FindAllStringSubmatch(strings.ToLower(text), -1) {
		subject, verb := m[1], normalizeLifeVerb(m[2])
		if fromOracle {
			if subject != "you" {
				continue
			}
			subject = "controller"
		} else if subject == "you" {
			subject = "user"
		}
		out = append(out, lifeClaim{subject: subject, verb: verb})
	}
	return out
}

func normalizeLifeVerb(verb string) string {
	if strings.HasPrefix(verb, "gain") {
		return "gain"
	}
	return "lose"
}

func (a *Judge) rewrite(ctx context.Context, state *domain.AgentState) (string, error) {
	resp, err := a.LLM.Complete(ctx, []llm.Message{
		{Role: "system", Content: judgeRewriteSystemPrompt},
		{Role: "system", Content: renderEvidence(state)},
		{Role: "user", Content: "Draft answer:\n" + state.DraftAnswer},
	}, "")
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}
