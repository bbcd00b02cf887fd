package agents

import (
	"regexp"
	"strings"
)

// cardLikePattern matches conservative card-name candidates: runs of
// Title-Case words, optionally joined by short lowercase connector words
// ("Rest in Peace", "Swords to Plowshares"), the shapes Scryfall card
// names take. Used as the Card agent's fallback when the Planner
// extracted no names, and by the Judge to find candidate card mentions
// in a draft answer.
var cardLikePattern = regexp.MustCompile(`\b[A-Z][a-zA-Z']*(?:\s(?:(?:of|to|in|the|a|an|at|for|from|into|on|with|and|or)\s)*[A-Z][a-zA-Z']*){0,4}\b`)

// ruleIDPattern matches dotted numeric Comprehensive Rules ids, e.g.
// "601.2a".
var ruleIDPattern = regexp.MustCompile(`\b\d{3}(?:\.\d+[a-z]?)?\b`)

// stopwords are common sentence-leading capitalized words that are not
// card names; filtered out of cardLikePattern matches.
var stopwords = map[string]bool{
	"I": true, "If": true, "When": true, "Whenever": true, "What": true, "How": true,
	"Does": true, "Can": true, "Is": true, "Will": true, "Would": true, "The": true,
	"My": true, "Their": true, "Your": true, "You": true, "It": true, "This": true,
	"That": true, "Then": true, "Yes": true, "No": true, "A": true, "An": true,
	"Opponent": true, "Opponents": true,
}

// connectors are the lowercase joining words cardLikePattern tolerates
// inside a name; they are never a candidate's first word.
var connectors = map[string]bool{
	"of": true, "to": true, "in": true, "the": true, "a": true, "an": true,
	"at": true, "for": true, "from": true, "into": true, "on": true,
	"with": true, "and": true, "or": true,
}

func extractCardLikeTokens(text string) []string {
	matches := cardLikePattern.FindAllString(text, -1)
	out := make([]string, 0, len(matches))
	seen := make(map[string]bool, len(matches))
	for _, m := range matches {
		// A sentence-leading capital can glue a stopword onto a real
		// name ("If Lightning Bolt..."); drop leading stopword and
		// connector tokens before judging the remainder.
		words := strings.Fields(m)
		for len(words) > 0 && (stopwords[words[0]] || connectors[words[0]]) {
			words = words[1:]
		}
		if len(words) == 0 {
			continue
		}
		candidate := strings.Join(words, " ")
		if seen[candidate] {
			continue
		}
		seen[candidate] = true
		out = append(out, candidate)
	}
	return out
}

func extractRuleIDs(text string) []string {
	matches := ruleIDPattern.FindAllString(text, -1)
	seen := make(map[string]bool, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}

// removeKnownNames blanks every case-insensitive occurrence of the given
// names out of text, longest name first so "Lightning Bolt" is consumed
// before "Lightning". The replacement is a period so the residue on
// either side never fuses into a new Title-Case run.
func removeKnownNames(text string, names []string) string {
	ordered := make([]string, 0, len(names))
	for _, n := range names {
		if len(strings.TrimSpace(n)) > 1 {
			ordered = append(ordered, n)
		}
	}
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0 && len(ordered[j]) > len(ordered[j-1]); j-- {
			ordered[j], ordered[j-1] = ordered[j-1], ordered[j]
		}
	}

	for _, name := range ordered {
		lowerName := strings.ToLower(name)
		for {
			idx := strings.Index(strings.ToLower(text), lowerName)
			if idx < 0 {
				break
			}
			text = text[:idx] + "." + text[idx+len(name):]
		}
	}
	return text
}
