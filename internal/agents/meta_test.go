package agents

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ProfessorFess/Stack-Sage/internal/domain"
	"github.com/ProfessorFess/Stack-Sage/internal/metacache"
	"github.com/ProfessorFess/Stack-Sage/internal/tools"
)

type fakeMetaSearcher struct {
	meta domain.Meta
}

func (f *fakeMetaSearcher) Search(ctx context.Context, query string, maxResults int) (domain.Meta, error) {
	return f.meta, nil
}

func TestMeta_Run_DegradesWithoutSearcher(t *testing.T) {
	a := &Meta{Tools: &tools.Registry{Meta: metacache.New(0, 0)}}
	state := domain.NewAgentState("r1", "what's popular in modern right now")

	require.NoError(t, a.Run(context.Background(), state))

	require.Len(t, state.Context.Meta, 1)
	assert.Equal(t, "not-configured", state.Context.Meta[0].Summary)
}

func TestMeta_Run_UsesSearcherResult(t *testing.T) {
	a := &Meta{Tools: &tools.Registry{
		Meta:         metacache.New(0, 0),
		MetaSearcher: &fakeMetaSearcher{meta: domain.Meta{Format: "modern", Summary: "aggro is everywhere"}},
	}}
	state := domain.NewAgentState("r2", "modern metagame report")

	require.NoError(t, a.Run(context.Background(), state))

	require.Len(t, state.Context.Meta, 1)
	assert.Equal(t, "aggro is everywhere", state.Context.Meta[0].Summary)
	assert.Contains(t, state.ToolsUsed.List(), domain.AgentMeta)
}
