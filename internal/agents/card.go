package agents

import (
	"context"
	"fmt"

	"github.com/ProfessorFess/Stack-Sage/internal/domain"
	"github.com/ProfessorFess/Stack-Sage/internal/tools"
)

// defaultCardFetchParallelism bounds the Card agent's own fan-out. Kept
// separate from tools.CompareMultipleCards's bound of the same value:
// that tool aborts its whole batch on the first non-NotFound error
// (useful for an explicit compare_multiple_cards call), while the Card
// agent must let one card's UpstreamUnavailable failure warn without
// blocking the rest.
const defaultCardFetchParallelism = 4

// Card is the card-lookup agent.
type Card struct {
	Tools *tools.Registry

	// Parallelism overrides the fetch fan-out bound; zero falls back to
	// defaultCardFetchParallelism.
	Parallelism int
}

func (a *Card) parallelism() int {
	if a.Parallelism > 0 {
		return a.Parallelism
	}
	return defaultCardFetchParallelism
}

func (a *Card) ID() domain.AgentID { return domain.AgentCard }

func (a *Card) Run(ctx context.Context, state *domain.AgentState) error {
	state.ToolsUsed.Add(a.ID())
	names := state.ExtractedCards
	if len(names) == 0 {
		names = extractCardLikeTokens(state.UserQuestion)
	}
	if len(names) == 0 {
		return nil
	}

	type fetched struct {
		card domain.Card
		err  error
	}
	results := make([]fetched, len(names))
	sem := make(chan struct{}, a.parallelism())
	done := make(chan int, len(names))

	for i, name := range names {
		go func(i int, name string) {
			sem <- struct{}{}
			defer func() { <-sem }()
			card, err := a.Tools.LookupCard(ctx, name)
			results[i] = fetched{card: card, err: err}
			done <- i
		}(i, name)
	}
	for range names {
		<-done
	}

	for i, r := range results {
		if r.err != nil {
			state.Issues = append(state.Issues, fmt.Sprintf("card agent: %s: %s", names[i], r.err.Error()))
			continue
		}
		state.AddCardEvidence(r.card)
	}
	return nil
}
