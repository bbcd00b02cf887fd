package agents

import (
	"context"

	"github.com/ProfessorFess/Stack-Sage/internal/domain"
	"github.com/ProfessorFess/Stack-Sage/internal/tools"
)

const metaSearchMaxResults = 5

// Meta is the metagame agent. The meta cache consult/fresh/stale/refetch
// logic lives in tools.Registry.SearchMTGMeta and internal/metacache;
// this agent just invokes it and records the result.
type Meta struct {
	Tools *tools.Registry
}

func (a *Meta) ID() domain.AgentID { return domain.AgentMeta }

func (a *Meta) Run(ctx context.Context, state *domain.AgentState) error {
	state.ToolsUsed.Add(a.ID())
	meta, err := a.Tools.SearchMTGMeta(ctx, state.UserQuestion, metaSearchMaxResults)
	if err != nil {
		state.Issues = append(state.Issues, "meta agent: "+err.Error())
		return nil
	}
	state.Context.Meta = append(state.Context.Meta, meta)
	return nil
}
