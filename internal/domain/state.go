package domain

import (
	"strings"
	"time"
)

// Intent is the question category the Planner assigns. The set is closed;
// there is no "other". Planner falls back to IntentRules on ambiguity.
type Intent string

const (
	IntentCardInteraction Intent = "card_interaction"
	IntentRules           Intent = "rules"
	IntentMeta            Intent = "meta"
	IntentDeckValidation  Intent = "deck_validation"
)

// AgentID names a node in the multi-agent graph.
type AgentID string

const (
	AgentPlanner     AgentID = "planner"
	AgentCard        AgentID = "cards"
	AgentRules       AgentID = "rules"
	AgentMeta        AgentID = "meta"
	AgentDeck        AgentID = "deck"
	AgentInteraction AgentID = "interaction"
	AgentJudge       AgentID = "judge"
	AgentFinalizer   AgentID = "finalizer"
)

// EvidenceContext is the tagged, explicit-field replacement for a
// dictionary-shaped "context" map. Each field preserves agent insertion
// order for its kind.
type EvidenceContext struct {
	Cards []Card
	Rules []Rule
	Meta  []Meta
	Deck  []Deck
}

// JudgeReport is the Judge agent's verdict on a draft answer.
type JudgeReport struct {
	Grounded             bool
	ControllerCorrection string // empty if no correction was needed
	Issues               []string
}

// ToolInvocationSet is a set-with-insertion-order of agent identifiers,
// used for AgentState.ToolsUsed: re-adding an identifier is a no-op, and
// List returns identifiers in first-add order.
type ToolInvocationSet struct {
	order []AgentID
	seen  map[AgentID]bool
}

// NewToolInvocationSet creates an empty set.
func NewToolInvocationSet() *ToolInvocationSet {
	return &ToolInvocationSet{seen: make(map[AgentID]bool)}
}

// Add records id if it has not already been recorded.
func (s *ToolInvocationSet) Add(id AgentID) {
	if s.seen == nil {
		s.seen = make(map[AgentID]bool)
	}
	if s.seen[id] {
		return
	}
	s.seen[id] = true
	s.order = append(s.order, id)
}

// List returns the recorded identifiers in insertion order.
func (s *ToolInvocationSet) List() []AgentID {
	out := make([]AgentID, len(s.order))
	copy(out, s.order)
	return out
}

// AgentState is the record threaded through the graph for a single
// question. It is created per request, lives for one graph invocation,
// and is discarded, never reused across requests.
type AgentState struct {
	RequestID string

	UserQuestion string

	ExtractedCards []string
	Intent         Intent
	TaskPlan       []AgentID

	Context   EvidenceContext
	Citations []Citation

	ToolsUsed    *ToolInvocationSet
	AgentTimings map[AgentID]time.Duration

	DraftAnswer string
	JudgeReport JudgeReport

	// MissingContext is the evidence kind the Interaction agent declared it
	// needs to complete the answer ("cards" or "rules"), or "" if none.
	MissingContext EvidenceKind
	// MissingContextReinvocations tracks, per kind, how many times dispatch
	// has re-queued that specialist for this request. Capped at 1 per kind.
	MissingContextReinvocations map[EvidenceKind]int

	// ControllerSensitive is set by the Planner when the question contains
	// controller-relative phrasing ("opponent controls X", "my/their").
	ControllerSensitive bool

	FinalAnswer string

	// Issues accumulates non-fatal problems agents ran into; an issue
	// never aborts the graph.
	Issues []string

	// NodeExecutions counts total node visits this request has consumed,
	// enforcing the recursion cap.
	NodeExecutions int

	// Aborted is set when the graph terminates early (recursion cap
	// breach or request timeout).
	Aborted     bool
	AbortReason string
}

// NewAgentState creates a fresh, empty state for one question.
func NewAgentState(requestID, question string) *AgentState {
	return &AgentState{
		RequestID:                   requestID,
		UserQuestion:                question,
		ToolsUsed:                   NewToolInvocationSet(),
		AgentTimings:                make(map[AgentID]time.Duration),
		MissingContextReinvocations: make(map[EvidenceKind]int),
	}
}

// AddCardEvidence appends a Card to the cards bucket and records a citation
// for it, preserving insertion order.
func (s *AgentState) AddCardEvidence(c Card) {
	s.Context.Cards = append(s.Context.Cards, c)
	s.Citations = append(s.Citations, Citation{CardName: c.Name, CardSet: c.Set})
}

// AddRuleEvidence appends a Rule to the rules bucket.
func (s *AgentState) AddRuleEvidence(r Rule) {
	s.Context.Rules = append(s.Context.Rules, r)
}

// AddRuleCitation records a citation for a rule id already present in
// context["rules"]; it is a no-op (and records an issue) if the id isn't
// backed by evidence, enforcing the citation invariant at the point of
// insertion rather than relying on every caller to check.
func (s *AgentState) AddRuleCitation(ruleID string) {
	for _, r := range s.Context.Rules {
		if r.RuleID == ruleID {
			s.Citations = append(s.Citations, Citation{RuleID: r.RuleID, RuleText: r.Text})
			return
		}
	}
	s.Issues = append(s.Issues, "attempted citation of ungrounded rule id "+ruleID)
}

// HasCard reports whether name (case-insensitive exact match) is present in
// context["cards"].
func (s *AgentState) HasCard(name string) bool {
	for _, c := range s.Context.Cards {
		if strings.EqualFold(c.Name, name) {
			return true
		}
	}
	return false
}

// HasRule reports whether ruleID is present in context["rules"].
func (s *AgentState) HasRule(ruleID string) bool {
	for _, r := range s.Context.Rules {
		if r.RuleID == ruleID {
			return true
		}
	}
	return false
}

// CardByName returns the Card evidence for name, if present.
func (s *AgentState) CardByName(name string) (Card, bool) {
	for _, c := range s.Context.Cards {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return Card{}, false
}

// PopTaskPlan dequeues and returns the head of TaskPlan. ok is false if the
// plan is empty. This enforces the "task_plan is monotonically consumed"
// invariant at a single call site.
func (s *AgentState) PopTaskPlan() (AgentID, bool) {
	if len(s.TaskPlan) == 0 {
		return "", false
	}
	head := s.TaskPlan[0]
	s.TaskPlan = s.TaskPlan[1:]
	return head, true
}

// PrependTaskPlan pushes id onto the front of TaskPlan, used for the
// missing-context re-routing loop.
func (s *AgentState) PrependTaskPlan(id AgentID) {
	s.TaskPlan = append([]AgentID{id}, s.TaskPlan...)
}
