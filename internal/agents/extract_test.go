package agents

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractCardLikeTokens_KeepsConnectorNamesWhole(t *testing.T) {
	tokens := extractCardLikeTokens("Does Rest in Peace stop Unearth?")
	assert.Contains(t, tokens, "Rest in Peace")
	assert.Contains(t, tokens, "Unearth")
	assert.NotContains(t, tokens, "Rest")
	assert.NotContains(t, tokens, "Peace")

	tokens = extractCardLikeTokens("Can Swords to Plowshares exile my Blood Artist?")
	assert.Contains(t, tokens, "Swords to Plowshares")
	assert.Contains(t, tokens, "Blood Artist")
}

func TestExtractCardLikeTokens_StripsLeadingStopwords(t *testing.T) {
	tokens := extractCardLikeTokens("If Lightning Bolt resolves, what happens?")
	assert.Equal(t, []string{"Lightning Bolt"}, tokens)
}

func TestRemoveKnownNames_BlanksCaseInsensitiveOccurrences(t *testing.T) {
	residue := removeKnownNames(
		"Rest in Peace exiles it, so rest in peace stops Unearth.",
		[]string{"Rest in Peace", "Unearth"},
	)
	assert.NotContains(t, residue, "Rest in Peace")
	assert.NotContains(t, residue, "rest in peace")
	assert.NotContains(t, residue, "Unearth")
	assert.Contains(t, residue, "exiles")
}

func TestRemoveKnownNames_LongestNameWinsOverPrefix(t *testing.T) {
	residue := removeKnownNames("Lightning Bolt hits.", []string{"Lightning", "Lightning Bolt"})
	assert.NotContains(t, residue, "Bolt")
}
