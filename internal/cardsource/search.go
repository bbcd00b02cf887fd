package cardsource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/ProfessorFess/Stack-Sage/internal/circuitbreaker"
	"github.com/ProfessorFess/Stack-Sage/internal/domain"
)

// searchResultCap bounds how many cards search_by_criteria returns.
// Results arrive popularity-ordered from the upstream query.
const searchResultCap = 10

// CriteriaFilters is the recognized attribute-filter configuration for
// search_by_criteria. At least one filter must be non-empty. ManaValue,
// Power, and Toughness accept either a bare number ("3") or a comparison
// expression (">=4", "<2").
type CriteriaFilters struct {
	Colors      string // color-letter string, e.g. "WU"
	ManaValue   string
	Power       string
	Toughness   string
	FormatLegal string // format name, e.g. "modern"
	CardType    string // type word, e.g. "creature"
	Keywords    string // keyword substring, e.g. "flying"
	Text        string // oracle-text substring
	Rarity      string // rarity word, e.g. "rare"
}

func (f CriteriaFilters) empty() bool {
	return f.Colors == "" && f.ManaValue == "" && f.Power == "" && f.Toughness == "" &&
		f.FormatLegal == "" && f.CardType == "" && f.Keywords == "" && f.Text == "" && f.Rarity == ""
}

// SearchByCriteria implements search_by_criteria: translates the filter
// configuration into a Scryfall full-text query (ordered by popularity),
// then re-checks the numeric filters locally through a compiled expr-lang
// boolean expression over each normalized card's facts. Results are not
// cached; criteria queries are open-ended.
func (a *Adapter) SearchByCriteria(ctx context.Context, filters CriteriaFilters) ([]domain.Card, error) {
	if filters.empty() {
		return nil, domain.NewError(domain.KindInvalidQuery, "search_by_criteria", "at least one filter must be non-empty", nil)
	}

	program, err := compileNumericFilters(filters)
	if err != nil {
		return nil, err
	}

	query := BuildQuery(filters)
	u := fmt.Sprintf("%s/cards/search?order=edhrec&q=%s", a.cfg.BaseURL, url.QueryEscape(query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, domain.NewError(domain.KindInternalInvariantBreach, "search_by_criteria", "failed to build request", err)
	}

	var searched []domain.Card
	err = a.breaker.Execute(ctx, func(ctx context.Context) error {
		resp, doErr := a.client.Do(req)
		if doErr != nil {
			return domain.NewError(domain.KindUpstreamUnavailable, "search_by_criteria", "network error", doErr)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			searched = nil
			return nil
		}
		if resp.StatusCode != http.StatusOK {
			return domain.NewError(domain.KindUpstreamUnavailable, "search_by_criteria", fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
		}

		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return domain.NewError(domain.KindUpstreamUnavailable, "search_by_criteria", "failed reading response", readErr)
		}
		var sr scryfallSearchResponse
		if jsonErr := json.Unmarshal(body, &sr); jsonErr != nil {
			return domain.NewError(domain.KindUpstreamUnavailable, "search_by_criteria", "malformed response", jsonErr)
		}
		searched = make([]domain.Card, 0, len(sr.Data))
		for _, sc := range sr.Data {
			searched = append(searched, normalizeCard(sc))
		}
		return nil
	})
	if err != nil {
		if _, ok := err.(*circuitbreaker.OpenError); ok {
			return nil, domain.NewError(domain.KindUpstreamUnavailable, "search_by_criteria", "card service circuit open", err)
		}
		return nil, err
	}

	out := make([]domain.Card, 0, searchResultCap)
	for _, c := range searched {
		if program != nil {
			matched, runErr := expr.Run(program, toCriteriaEnv(c))
			if runErr != nil {
				continue
			}
			if ok, isBool := matched.(bool); !isBool || !ok {
				continue
			}
		}
		out = append(out, c)
		if len(out) >= searchResultCap {
			break
		}
	}
	return out, nil
}

// BuildQuery renders the filter configuration in Scryfall's full-text
// search syntax. Numeric comparisons pass through verbatim (Scryfall
// accepts mv>=4 etc.); they are re-checked locally anyway by the
// compiled criteria expression. Exported so callers can echo the query
// back in search results.
func BuildQuery(f CriteriaFilters) string {
	var parts []string
	if f.Colors != "" {
		parts = append(parts, "c:"+strings.ToLower(f.Colors))
	}
	if f.ManaValue != "" {
		parts = append(parts, "mv"+comparisonTerm(f.ManaValue))
	}
	if f.Power != "" {
		parts = append(parts, "pow"+comparisonTerm(f.Power))
	}
	if f.Toughness != "" {
		parts = append(parts, "tou"+comparisonTerm(f.Toughness))
	}
	if f.FormatLegal != "" {
		parts = append(parts, "f:"+strings.ToLower(f.FormatLegal))
	}
	if f.CardType != "" {
		parts = append(parts, "t:"+strings.ToLower(f.CardType))
	}
	if f.Keywords != "" {
		parts = append(parts, "kw:"+strings.ToLower(f.Keywords))
	}
	if f.Text != "" {
		parts = append(parts, fmt.Sprintf("o:%q", f.Text))
	}
	if f.Rarity != "" {
		parts = append(parts, "r:"+strings.ToLower(f.Rarity))
	}
	return strings.Join(parts, " ")
}

// comparisonTerm renders a filter value as a Scryfall comparison: a bare
// number becomes an equality ("=3"), an expression passes through
// (">=4" stays ">=4").
func comparisonTerm(value string) string {
	v := strings.TrimSpace(value)
	if _, err := strconv.ParseFloat(v, 64); err == nil {
		return "=" + v
	}
	return v
}

// compileNumericFilters folds the mana_value/power/toughness filters into
// one expr-lang boolean expression over criteriaEnv and compiles it. A
// malformed comparison is the caller's fault, so it maps to InvalidQuery.
func compileNumericFilters(f CriteriaFilters) (*vm.Program, error) {
	var clauses []string
	if f.ManaValue != "" {
		clauses = append(clauses, "ManaValue"+exprComparison(f.ManaValue))
	}
	if f.Power != "" {
		clauses = append(clauses, "Power"+exprComparison(f.Power))
	}
	if f.Toughness != "" {
		clauses = append(clauses, "Toughness"+exprComparison(f.Toughness))
	}
	if len(clauses) == 0 {
		return nil, nil
	}

	program, err := expr.Compile(strings.Join(clauses, " && "), expr.Env(criteriaEnv{}), expr.AsBool())
	if err != nil {
		return nil, domain.NewError(domain.KindInvalidQuery, "search_by_criteria", "invalid numeric comparison", err)
	}
	return program, nil
}

func exprComparison(value string) string {
	v := strings.TrimSpace(value)
	if _, err := strconv.ParseFloat(v, 64); err == nil {
		return " == " + v
	}
	return " " + v
}

// criteriaEnv is the expr-lang evaluation environment numeric filter
// clauses run against.
type criteriaEnv struct {
	ManaValue float64
	Power     float64
	Toughness float64
	TypeLine  string
	Name      string
}

func toCriteriaEnv(c domain.Card) criteriaEnv {
	return criteriaEnv{
		ManaValue: manaValue(c.ManaCost),
		Power:     parseHalf(c.Power),
		Toughness: parseHalf(c.Toughness),
		TypeLine:  c.TypeLine,
		Name:      c.Name,
	}
}

// parseHalf parses power/toughness strings, defaulting non-numeric values
// (e.g. "*", "1+*") to 0 so criteria expressions never panic.
func parseHalf(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// manaValue is a rough converted-mana-cost count good enough for criteria
// filtering; it counts numeric generic costs and colored pips, ignoring X.
func manaValue(manaCost string) float64 {
	total := 0.0
	i := 0
	for i < len(manaCost) {
		if manaCost[i] != '{' {
			i++
			continue
		}
		j := i + 1
		for j < len(manaCost) && manaCost[j] != '}' {
			j++
		}
		if j >= len(manaCost) {
			break
		}
		symbol := manaCost[i+1 : j]
		if n, err := strconv.Atoi(symbol); err == nil {
			total += float64(n)
		} else if symbol != "X" && symbol != "Y" && symbol != "Z" {
			total++
		}
		i = j + 1
	}
	return total
}
