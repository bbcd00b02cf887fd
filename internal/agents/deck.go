package agents

import (
	"context"

	"github.com/ProfessorFess/Stack-Sage/internal/deckvalidator"
	"github.com/ProfessorFess/Stack-Sage/internal/domain"
	"github.com/ProfessorFess/Stack-Sage/internal/tools"
)

// Deck is the deck-validation agent: it parses a decklist out of the
// user's question, resolves format/commander, validates card-level
// legality against each entry's Card evidence, and never raises.
type Deck struct {
	Tools   *tools.Registry
	Catalog deckvalidator.Catalog
}

func (a *Deck) ID() domain.AgentID { return domain.AgentDeck }

func (a *Deck) Run(ctx context.Context, state *domain.AgentState) error {
	state.ToolsUsed.Add(a.ID())
	parsed := deckvalidator.ParseDecklist(state.UserQuestion)
	for _, w := range parsed.Warnings {
		state.Issues = append(state.Issues, "deck agent: "+w)
	}

	format := parsed.Format
	if format == "" {
		format = tools.InferFormat(state.UserQuestion)
	}

	lookup := func(name string) (domain.Card, bool) {
		card, err := a.Tools.LookupCard(ctx, name)
		if err != nil {
			return domain.Card{}, false
		}
		return card, true
	}

	result := deckvalidator.Validate(a.Catalog, deckvalidator.Input{
		Format:     format,
		Deck:       parsed,
		Commander:  parsed.Commander,
		CardLookup: lookup,
	})

	deck := parsed.ToDomainDeck(format, parsed.Commander)
	deck.Validation = result
	state.Context.Deck = append(state.Context.Deck, deck)
	return nil
}
