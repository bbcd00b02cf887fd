package deckvalidator

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ProfessorFess/Stack-Sage/internal/domain"
)

func TestParseDecklist_ParsesMainboardSideboardAndIgnoresComments(t *testing.T) {
	text := `
// sideboard below
4 Lightning Bolt
2 Counterspell
SB: 3 Pyroblast
# a comment
not a valid line
`
	deck := ParseDecklist(text)
	assert.Equal(t, 4, deck.Mainboard["Lightning Bolt"])
	assert.Equal(t, 2, deck.Mainboard["Counterspell"])
	assert.Equal(t, 3, deck.Sideboard["Pyroblast"])
	assert.Len(t, deck.Warnings, 1)
	assert.Equal(t, 6, deck.TotalCards())
}

func cardLookupFixture(cards map[string]domain.Card) CardLookup {
	return func(name string) (domain.Card, bool) {
		c, ok := cards[name]
		return c, ok
	}
}

func TestValidate_StandardDeck_TooFewCards(t *testing.T) {
	catalog, err := DefaultCatalog()
	require.NoError(t, err)

	deck := ParsedDeck{Mainboard: map[string]int{"Lightning Bolt": 4, "Island": 20}}
	result := Validate(catalog, Input{
		Format:     "standard",
		Deck:       deck,
		CardLookup: cardLookupFixture(map[string]domain.Card{"Lightning Bolt": {Name: "Lightning Bolt", Legalities: map[string]domain.Legality{"standard": domain.LegalityNotLegal}}}),
	})

	assert.False(t, result.IsLegal)
	assert.Contains(t, result.Errors[0], "minimum is 60")
}

func TestValidate_BannedCardIsError(t *testing.T) {
	catalog, err := DefaultCatalog()
	require.NoError(t, err)

	mainboard := map[string]int{"Banned Card": 1}
	for i := 0; i < 59; i++ {
		mainboard["Island"] = 59
	}
	deck := ParsedDeck{Mainboard: mainboard}

	result := Validate(catalog, Input{
		Format: "modern",
		Deck:   deck,
		CardLookup: cardLookupFixture(map[string]domain.Card{
			"Banned Card": {Name: "Banned Card", Legalities: map[string]domain.Legality{"modern": domain.LegalityBanned}},
		}),
	})

	assert.False(t, result.IsLegal)
	found := false
	for _, e := range result.Errors {
		if e == "Banned Card: banned in modern" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestValidate_CopyLimitExceeded(t *testing.T) {
	catalog, err := DefaultCatalog()
	require.NoError(t, err)

	deck := ParsedDeck{Mainboard: map[string]int{"Lightning Bolt": 5, "Island": 55}}
	result := Validate(catalog, Input{
		Format: "modern",
		Deck:   deck,
		CardLookup: cardLookupFixture(map[string]domain.Card{
			"Lightning Bolt": {Name: "Lightning Bolt", Legalities: map[string]domain.Legality{"modern": domain.LegalityLegal}},
		}),
	})
	assert.False(t, result.IsLegal)
}

func TestValidate_BasicLandsExemptFromCopyLimit(t *testing.T) {
	catalog, err := DefaultCatalog()
	require.NoError(t, err)

	deck := ParsedDeck{Mainboard: map[string]int{"Island": 60}}
	result := Validate(catalog, Input{Format: "modern", Deck: deck, CardLookup: cardLookupFixture(nil)})
	assert.True(t, result.IsLegal)
}

func TestValidate_VintageRestrictedCard(t *testing.T) {
	catalog, err := DefaultCatalog()
	require.NoError(t, err)

	lookup := cardLookupFixture(map[string]domain.Card{
		"Ancestral Recall": {Name: "Ancestral Recall", Legalities: map[string]domain.Legality{"vintage": domain.LegalityRestricted}},
	})

	// Two copies of a restricted card is an error.
	deck := ParsedDeck{Mainboard: map[string]int{"Ancestral Recall": 2, "Island": 58}}
	result := Validate(catalog, Input{Format: "vintage", Deck: deck, CardLookup: lookup})
	assert.False(t, result.IsLegal)
	found := false
	for _, e := range result.Errors {
		if strings.Contains(e, "restricted") {
			found = true
		}
	}
	assert.True(t, found, "exceeding the restricted limit should be an error")

	// One copy is legal, with a warning only.
	deck = ParsedDeck{Mainboard: map[string]int{"Ancestral Recall": 1, "Island": 59}}
	result = Validate(catalog, Input{Format: "vintage", Deck: deck, CardLookup: lookup})
	assert.True(t, result.IsLegal)
	assert.NotEmpty(t, result.Warnings)
}

func TestValidate_CommanderColorIdentity(t *testing.T) {
	catalog, err := DefaultCatalog()
	require.NoError(t, err)

	mainboard := map[string]int{"Lightning Bolt": 1}
	for i := 0; i < 98; i++ {
		mainboard[fmt.Sprintf("Land %d", i)] = 1
	}
	deck := ParsedDeck{Mainboard: mainboard}

	cards := map[string]domain.Card{
		"Lightning Bolt": {Name: "Lightning Bolt", ColorIdentity: []string{"R"}, Legalities: map[string]domain.Legality{"commander": domain.LegalityLegal}},
		"Azor Commander": {Name: "Azor Commander", ColorIdentity: []string{"W", "U"}, Legalities: map[string]domain.Legality{"commander": domain.LegalityLegal}},
	}
	result := Validate(catalog, Input{
		Format:     "commander",
		Deck:       deck,
		Commander:  "Azor Commander",
		CardLookup: cardLookupFixture(cards),
	})

	found := false
	for _, e := range result.Errors {
		if e == "Lightning Bolt: color identity not within commander's identity" {
			found = true
		}
	}
	assert.True(t, found)
}
