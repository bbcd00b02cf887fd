// Package deckvalidator implements the decklist parser and the deck
// validator: per-format copy limits, singleton, commander color
// identity, and banned/restricted legality checks.
package deckvalidator

import (
	"bufio"
	"regexp"
	"strconv"
	"strings"

	"github.com/ProfessorFess/Stack-Sage/internal/domain"
)

var decklistLinePattern = regexp.MustCompile(`^(SB:\s*)?(\d+)\s+(.+)$`)
var formatLinePattern = regexp.MustCompile(`(?i)^format:\s*(.+)$`)
var commanderLinePattern = regexp.MustCompile(`(?i)^commander:\s*(.+)$`)

// ParsedDeck is a decklist split into mainboard/sideboard counts, plus any
// lines that could not be parsed (recorded as warnings, not errors).
type ParsedDeck struct {
	Mainboard map[string]int
	Sideboard map[string]int
	Format    string // from an optional "Format: <name>" header line
	Commander string // from an optional "Commander: <name>" header line
	Warnings  []string
}

// ParseDecklist parses decklist text: each line "<count> <name>",
// optionally prefixed "SB:" for sideboard. "Format:" and "Commander:"
// header lines are recognized and lifted into the corresponding fields
// rather than treated as card entries. Blank lines and comments ("//" or
// "#") are ignored. Unparseable lines become warnings rather than
// aborting the parse.
func ParseDecklist(text string) ParsedDeck {
	deck := ParsedDeck{Mainboard: make(map[string]int), Sideboard: make(map[string]int)}

	scanner := bufio.NewScanner(strings.NewReader(text))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "//") || strings.HasPrefix(line, "#") {
			continue
		}

		if m := formatLinePattern.FindStringSubmatch(line); m != nil {
			deck.Format = strings.ToLower(strings.TrimSpace(m[1]))
			continue
		}
		if m := commanderLinePattern.FindStringSubmatch(line); m != nil {
			deck.Commander = strings.TrimSpace(m[1])
			continue
		}

		m := decklistLinePattern.FindStringSubmatch(line)
		if m == nil {
			deck.Warnings = append(deck.Warnings, "unrecognized decklist line: "+line)
			continue
		}

		count, err := strconv.Atoi(m[2])
		if err != nil || count <= 0 {
			deck.Warnings = append(deck.Warnings, "invalid card count in line: "+line)
			continue
		}
		name := strings.TrimSpace(m[3])

		if m[1] != "" {
			deck.Sideboard[name] += count
		} else {
			deck.Mainboard[name] += count
		}
	}
	return deck
}

// TotalCards sums mainboard counts (sideboard is not counted toward
// min/max deck size).
func (d ParsedDeck) TotalCards() int {
	total := 0
	for _, n := range d.Mainboard {
		total += n
	}
	return total
}

// ToDomainDeck converts a ParsedDeck plus resolved format/commander into
// the domain.Deck evidence shape, leaving Validation empty for the caller
// to fill in via Validate. An empty format or commander argument falls
// back to what ParseDecklist lifted from header lines, if any.
func (d ParsedDeck) ToDomainDeck(format, commander string) domain.Deck {
	if format == "" {
		format = d.Format
	}
	if commander == "" {
		commander = d.Commander
	}
	return domain.Deck{
		Format:    format,
		Mainboard: d.Mainboard,
		Sideboard: d.Sideboard,
		Commander: commander,
	}
}
