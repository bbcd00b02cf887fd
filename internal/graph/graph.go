// Package graph implements the dispatch state machine: START -> planner
// -> dispatch loop over task_plan -> finalizer -> END. A single
// cooperative dispatcher pops one agent at a time off the plan; agents
// never run concurrently with each other within one request.
package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ProfessorFess/Stack-Sage/internal/agents"
	"github.com/ProfessorFess/Stack-Sage/internal/domain"
	"github.com/ProfessorFess/Stack-Sage/internal/monitoring"
)

// MaxNodeExecutions is the recursion cap: node executions per request.
const MaxNodeExecutions = 15

// NodeTimeout is the per-node soft timeout.
const NodeTimeout = 30 * time.Second

// RequestBudget is the overall per-request soft budget.
const RequestBudget = 60 * time.Second

// tooComplexReason is the abort reason recorded when the recursion cap
// is breached.
const tooComplexReason = "question too complex"

// timeoutReason is the abort reason recorded when the request's overall
// soft budget expires.
const timeoutReason = "request timed out"

// Graph wires the Planner and every specialist a task plan can name,
// plus the Finalizer, into the dispatch loop. Nodes is keyed by
// domain.AgentID; Planner and Finalizer are held separately since they
// sit outside the dispatch loop proper (Planner runs once at START,
// Finalizer runs once at END).
type Graph struct {
	Planner   *agents.Planner
	Nodes     map[domain.AgentID]agents.Agent
	Finalizer *agents.Finalizer
	Log       zerolog.Logger

	// Observers fans out lifecycle events to anything watching the graph
	// run, e.g. a monitoring.MetricsObserver feeding a Collector. A Graph
	// built with the struct literal directly (as in this package's tests)
	// leaves it nil, which every notify call below tolerates.
	Observers *monitoring.Manager

	// MaxNodes, NodeTimeout, and Budget override the package defaults
	// (RECURSION_CAP and the timeout env tunables); zero values fall back
	// to MaxNodeExecutions, NodeTimeout, and RequestBudget.
	MaxNodes    int
	NodeTimeout time.Duration
	Budget      time.Duration
}

func (g *Graph) maxNodes() int {
	if g.MaxNodes > 0 {
		return g.MaxNodes
	}
	return MaxNodeExecutions
}

func (g *Graph) nodeTimeout() time.Duration {
	if g.NodeTimeout > 0 {
		return g.NodeTimeout
	}
	return NodeTimeout
}

func (g *Graph) budget() time.Duration {
	if g.Budget > 0 {
		return g.Budget
	}
	return RequestBudget
}

// New builds a Graph from its specialist nodes. nodes must contain an
// entry for every domain.AgentID that buildTaskPlan (internal/agents)
// can produce: cards, rules, meta, deck, interaction, judge. observers
// may be nil to run with no metrics/logging fan-out.
func New(planner *agents.Planner, nodes map[domain.AgentID]agents.Agent, finalizer *agents.Finalizer, log zerolog.Logger, observers *monitoring.Manager) *Graph {
	if observers == nil {
		observers = monitoring.NewManager()
	}
	return &Graph{Planner: planner, Nodes: nodes, Finalizer: finalizer, Log: log, Observers: observers}
}

// Run executes one request end to end: planner, then the dispatch loop,
// then finalizer. It never returns an error for agent-level failures
// (those accumulate in state.Issues); it only returns an error if ctx is
// already done before START.
func (g *Graph) Run(ctx context.Context, state *domain.AgentState) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	g.notifyRequestStarted(state.RequestID, state.UserQuestion)

	ctx, cancel := context.WithTimeout(ctx, g.budget())
	defer cancel()

	g.runTimed(ctx, domain.AgentPlanner, state, g.Planner.Run)

	g.dispatch(ctx, state)

	g.runTimed(ctx, domain.AgentFinalizer, state, g.Finalizer.Run)

	g.notifyRequestCompleted(state.RequestID, time.Since(start), !state.Aborted)
	return nil
}

func (g *Graph) notifyRequestStarted(requestID, question string) {
	if g.Observers != nil {
		g.Observers.NotifyRequestStarted(requestID, question)
	}
}

func (g *Graph) notifyRequestCompleted(requestID string, duration time.Duration, success bool) {
	if g.Observers != nil {
		g.Observers.NotifyRequestCompleted(requestID, duration, success)
	}
}

// dispatch implements the graph's conditional edge: pop the head of
// task_plan, run it, let it append evidence, then route back to
// dispatch; when task_plan is empty, dispatch routes to finalizer
// (handled by the caller, Run). Each iteration enforces the recursion
// cap and the missing-context reroute.
func (g *Graph) dispatch(ctx context.Context, state *domain.AgentState) {
	for {
		if ctx.Err() != nil {
			state.Aborted = true
			state.AbortReason = timeoutReason
			state.Issues = append(state.Issues, "request budget exceeded before plan completed")
			return
		}

		id, ok := state.PopTaskPlan()
		if !ok {
			return
		}

		// buildTaskPlan (internal/agents) always ends a plan with
		// AgentFinalizer; Run invokes the Finalizer itself once dispatch
		// returns, so popping it here just ends the loop rather than
		// treating it as an unknown node.
		if id == domain.AgentFinalizer {
			return
		}

		if state.NodeExecutions >= g.maxNodes() {
			state.Aborted = true
			state.AbortReason = tooComplexReason
			state.Issues = append(state.Issues, fmt.Sprintf("recursion cap of %d node executions reached", g.maxNodes()))
			return
		}

		node, known := g.Nodes[id]
		if !known {
			state.Issues = append(state.Issues, "dispatch: no node registered for agent "+string(id))
			continue
		}

		g.runTimed(ctx, id, state, node.Run)

		// Only Interaction's own missing-context request drives a
		// reroute. The Rules agent also writes state.MissingContext on
		// low coverage (internal/agents/rules.go), but that's a self-
		// diagnostic, not a request Interaction has actually made yet;
		// rerouting on it here would burn the per-kind reinvocation
		// cap before Interaction ever runs.
		if id == domain.AgentInteraction {
			g.rerouteMissingContext(state)
		}
	}
}

// rerouteMissingContext implements the missing-context loop: if
// Interaction set state.MissingContext, prepend that specialist back
// onto task_plan, bounded to one re-invocation per kind per request.
func (g *Graph) rerouteMissingContext(state *domain.AgentState) {
	kind := state.MissingContext
	if kind == "" {
		return
	}
	state.MissingContext = ""

	if state.MissingContextReinvocations[kind] >= 1 {
		state.Issues = append(state.Issues, "missing-context re-invocation cap reached for "+string(kind))
		return
	}

	specialist, ok := specialistForEvidenceKind(kind)
	if !ok {
		return
	}
	state.MissingContextReinvocations[kind]++
	state.PrependTaskPlan(specialist)
}

// specialistForEvidenceKind maps the evidence kinds a specialist can be
// re-invoked for (Interaction only ever declares "cards" or "rules"
// missing) to the agent that gathers them.
func specialistForEvidenceKind(kind domain.EvidenceKind) (domain.AgentID, bool) {
	switch kind {
	case domain.EvidenceKindCards:
		return domain.AgentCard, true
	case domain.EvidenceKindRules:
		return domain.AgentRules, true
	default:
		return "", false
	}
}

// runTimed runs one node under the per-node soft timeout, recording wall
// clock duration into state.AgentTimings and counting the execution
// against the recursion cap regardless of outcome. On timeout it records
// an issue and returns; the graph continues.
func (g *Graph) runTimed(ctx context.Context, id domain.AgentID, state *domain.AgentState, run func(context.Context, *domain.AgentState) error) {
	state.NodeExecutions++
	if g.Observers != nil {
		g.Observers.NotifyAgentStarted(state.RequestID, id)
	}

	nodeCtx, cancel := context.WithTimeout(ctx, g.nodeTimeout())
	defer cancel()

	start := time.Now()
	done := make(chan error, 1)
	go func() {
		done <- run(nodeCtx, state)
	}()

	var runErr error
	select {
	case err := <-done:
		state.AgentTimings[id] = time.Since(start)
		if err != nil {
			runErr = err
			state.Issues = append(state.Issues, fmt.Sprintf("%s: %s", id, err.Error()))
		}
	case <-nodeCtx.Done():
		state.AgentTimings[id] = time.Since(start)
		runErr = nodeCtx.Err()
		state.Issues = append(state.Issues, fmt.Sprintf("%s: node timed out after %s", id, g.nodeTimeout()))
	}

	if g.Observers != nil {
		if runErr != nil {
			g.Observers.NotifyAgentFailed(state.RequestID, id, runErr, state.AgentTimings[id])
		} else {
			g.Observers.NotifyAgentCompleted(state.RequestID, id, state.AgentTimings[id])
		}
	}

	g.Log.Debug().Str("agent", string(id)).Dur("duration", state.AgentTimings[id]).Msg("node executed")
}
