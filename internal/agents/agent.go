// Package agents implements the eight specialist nodes of the
// multi-agent graph: Planner, Card, Rules, Meta, Deck, Interaction,
// Judge, and Finalizer. Each agent reads and writes the single shared
// AgentState threaded through a request; none of them raise on a tool
// failure, recording it as an issue instead.
package agents

import (
	"context"

	"github.com/ProfessorFess/Stack-Sage/internal/domain"
)

// Agent is one node in the multi-agent graph.
type Agent interface {
	ID() domain.AgentID
	Run(ctx context.Context, state *domain.AgentState) error
}
