package deckvalidator

import (
	"fmt"

	"github.com/ProfessorFess/Stack-Sage/internal/domain"
)

var basicLands = map[string]bool{
	"Plains": true, "Island": true, "Swamp": true, "Mountain": true, "Forest": true,
	"Wastes": true,
	"Snow-Covered Plains": true, "Snow-Covered Island": true, "Snow-Covered Swamp": true,
	"Snow-Covered Mountain": true, "Snow-Covered Forest": true,
}

// CardLookup resolves a card name to its evidence, reporting whether the
// name is known. The validator uses this for legality and color-identity
// checks; it never fetches over the network itself.
type CardLookup func(name string) (domain.Card, bool)

// Input bundles everything Validate needs: the parsed deck, its declared
// format, commander (empty if none), and a card lookup for legality and
// color-identity checks. Restricted-list enforcement reads each card's
// own legality map, so no separate restricted list is carried here.
type Input struct {
	Format     string
	Deck       ParsedDeck
	Commander  string
	CardLookup CardLookup
}

// Validate checks a parsed deck against its format's rules. It never
// raises; every failure is recorded as an error or warning in the
// returned DeckValidationResult, and IsLegal means no errors.
func Validate(catalog Catalog, in Input) domain.DeckValidationResult {
	result := domain.DeckValidationResult{}

	rules, ok := catalog[in.Format]
	if !ok {
		result.Errors = append(result.Errors, fmt.Sprintf("unknown format: %s", in.Format))
		return result
	}

	total := in.Deck.TotalCards()
	if in.Commander != "" {
		if _, inMainboard := in.Deck.Mainboard[in.Commander]; !inMainboard {
			total++
		}
	}
	result.TotalCards = total

	if total < rules.MinMainboard {
		result.Errors = append(result.Errors, fmt.Sprintf("mainboard has %d cards, minimum is %d", total, rules.MinMainboard))
	}
	if rules.MaxMainboard > 0 && total > rules.MaxMainboard {
		result.Errors = append(result.Errors, fmt.Sprintf("mainboard has %d cards, maximum is %d", total, rules.MaxMainboard))
	}

	if rules.CommanderRequired && in.Commander == "" {
		result.Errors = append(result.Errors, "format requires a commander, none specified")
	}

	var commanderCard domain.Card
	var haveCommanderCard bool
	if in.Commander != "" && in.CardLookup != nil {
		commanderCard, haveCommanderCard = in.CardLookup(in.Commander)
	}

	validateEntries(rules, in, &result, in.Deck.Mainboard, commanderCard, haveCommanderCard)

	sideboardCount := 0
	for _, n := range in.Deck.Sideboard {
		sideboardCount += n
	}
	if rules.MaxSideboard >= 0 && sideboardCount > rules.MaxSideboard {
		result.Errors = append(result.Errors, fmt.Sprintf("sideboard has %d cards, maximum is %d", sideboardCount, rules.MaxSideboard))
	}

	result.IsLegal = len(result.Errors) == 0
	return result
}

func validateEntries(rules FormatRules, in Input, result *domain.DeckValidationResult, entries map[string]int, commanderCard domain.Card, haveCommanderCard bool) {
	for name, count := range entries {
		if !basicLands[name] {
			limit := rules.CopiesPerCard
			if rules.Singleton {
				limit = 1
			}
			if count > limit {
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %d copies exceeds limit of %d", name, count, limit))
			}
		}

		var card domain.Card
		var known bool
		if in.CardLookup != nil {
			card, known = in.CardLookup(name)
		}
		if !known {
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s: unknown card, cannot validate legality", name))
			continue
		}

		switch card.Legalities[in.Format] {
		case domain.LegalityBanned:
			result.Errors = append(result.Errors, fmt.Sprintf("%s: banned in %s", name, in.Format))
		case domain.LegalityNotLegal:
			result.Errors = append(result.Errors, fmt.Sprintf("%s: not legal in %s", name, in.Format))
		case domain.LegalityRestricted:
			// Restricted cards are playable at 1 copy with a warning;
			// exceeding the limit is an error.
			restrictedLimit := rules.RestrictedCopies
			if restrictedLimit <= 0 {
				restrictedLimit = 1
			}
			if count > restrictedLimit {
				result.Errors = append(result.Errors, fmt.Sprintf("%s: restricted in %s, %d copies exceeds limit of %d", name, in.Format, count, restrictedLimit))
			} else {
				result.Warnings = append(result.Warnings, fmt.Sprintf("%s: restricted in %s, limited to %d copy", name, in.Format, restrictedLimit))
			}
		}

		if rules.ColorIdentityChecks && haveCommanderCard {
			if !isSubsetOfColorIdentity(card.ColorIdentity, commanderCard.ColorIdentity) {
				result.Errors = append(result.Errors, fmt.Sprintf("%s: color identity not within commander's identity", name))
			}
		}
	}
}

func isSubsetOfColorIdentity(cardColors, commanderColors []string) bool {
	allowed := make(map[string]bool, len(commanderColors))
	for _, c := range commanderColors {
		allowed[c] = true
	}
	for _, c := range cardColors {
		if !allowed[c] {
			return false
		}
	}
	return true
}
