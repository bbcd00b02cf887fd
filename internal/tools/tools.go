// Package tools implements the tool surface: pure,
// side-effect-free-except-for-caches operations the specialist agents
// invoke. Tools never mutate AgentState directly; they return values the
// calling agent places into state itself.
package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ProfessorFess/Stack-Sage/internal/cardsource"
	"github.com/ProfessorFess/Stack-Sage/internal/domain"
	"github.com/ProfessorFess/Stack-Sage/internal/metacache"
	"github.com/ProfessorFess/Stack-Sage/internal/rulesindex"
)

// maxConcurrentCardLookups bounds compare_multiple_cards's fan-out so a
// long name list can't open unbounded concurrent connections to Scryfall.
const maxConcurrentCardLookups = 4

// MetaSearcher performs a web search for metagame information. It is an
// optional collaborator: Registry.SearchMTGMeta degrades to a
// "not configured" Meta when none is wired in (META_SEARCH_CREDENTIAL
// absent).
type MetaSearcher interface {
	Search(ctx context.Context, query string, maxResults int) (domain.Meta, error)
}

// Registry is the tool surface: a single dependency-injected object
// every agent calls through, so tests can substitute doubles without
// touching globals.
type Registry struct {
	Cards        *cardsource.Adapter
	Rules        *rulesindex.Index
	Meta         *metacache.Cache
	MetaSearcher MetaSearcher // nil when META_SEARCH_CREDENTIAL is unset
}

// LookupCard implements lookup_card(name).
func (r *Registry) LookupCard(ctx context.Context, name string) (domain.Card, error) {
	return r.Cards.FetchCard(ctx, name)
}

// SearchRules implements search_rules(query, k): vector-only retrieval.
func (r *Registry) SearchRules(ctx context.Context, query string, k int) ([]domain.Rule, error) {
	return r.Rules.SearchVector(ctx, query, k)
}

// SearchRulesBM25 implements search_rules_bm25(query, k): keyword-only
// retrieval.
func (r *Registry) SearchRulesBM25(query string, k int) []domain.Rule {
	return r.Rules.SearchBM25(query, k)
}

// SearchRulesHybrid implements search_rules_hybrid(query, k, min_score),
// the default retrieval path.
func (r *Registry) SearchRulesHybrid(ctx context.Context, query string, k int, minScore float64) ([]domain.Rule, error) {
	return r.Rules.SearchHybrid(ctx, query, k, minScore)
}

// CompareMultipleCards implements compare_multiple_cards(names[]): bounded
// parallel lookups, returning Cards aligned to the input order. A name
// that fails to resolve yields a zero-value Card in its slot rather than
// aborting the whole comparison, so one bad name doesn't block the rest.
func (r *Registry) CompareMultipleCards(ctx context.Context, names []string) ([]domain.Card, error) {
	results := make([]domain.Card, len(names))
	sem := make(chan struct{}, maxConcurrentCardLookups)

	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			sem <- struct{}{}
			defer func() { <-sem }()

			card, err := r.Cards.FetchCard(gctx, name)
			if err != nil {
				if domain.KindOf(err) == domain.KindNotFound {
					return nil
				}
				return err
			}
			results[i] = card
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// CheckFormatLegality implements check_format_legality(name, format).
func (r *Registry) CheckFormatLegality(ctx context.Context, name, format string) (domain.Legality, error) {
	return r.Cards.CheckLegality(ctx, name, format)
}

// CriteriaFilters is the input to search_cards_by_criteria: the
// recognized attribute-filter configuration, aliased from the adapter so
// agents only import this package.
type CriteriaFilters = cardsource.CriteriaFilters

// SearchCardsByCriteria implements search_cards_by_criteria(filters). At
// least one filter must be non-empty or the adapter reports InvalidQuery.
func (r *Registry) SearchCardsByCriteria(ctx context.Context, filters CriteriaFilters) ([]domain.Card, error) {
	return r.Cards.SearchByCriteria(ctx, filters)
}

// SearchMTGMeta implements search_mtg_meta(query, max_results): consults
// the Meta Cache first (format inferred from the simplest token in query
// that names a supported format), then falls through to the web
// MetaSearcher. Degrades to a structured "not configured" Meta when no
// MetaSearcher is wired.
func (r *Registry) SearchMTGMeta(ctx context.Context, query string, maxResults int) (domain.Meta, error) {
	format := inferFormat(query)
	if format != "" && r.Meta != nil {
		if cached, ok := r.Meta.Get(format); ok {
			return cached, nil
		}
	}
	return r.searchMTGMetaLive(ctx, query, format, maxResults)
}

// SearchMTGMetaForce implements the meta refresh operation: it never
// reads the meta cache, so it always calls the live MetaSearcher and
// repopulates the cache with a fresh snapshot, unlike SearchMTGMeta
// which is content to return a cached entry.
func (r *Registry) SearchMTGMetaForce(ctx context.Context, query string, maxResults int) (domain.Meta, error) {
	return r.searchMTGMetaLive(ctx, query, inferFormat(query), maxResults)
}

func (r *Registry) searchMTGMetaLive(ctx context.Context, query, format string, maxResults int) (domain.Meta, error) {
	if r.MetaSearcher == nil {
		return domain.Meta{
			Format:  format,
			Summary: "not-configured",
		}, nil
	}

	meta, err := r.MetaSearcher.Search(ctx, query, maxResults)
	if err != nil {
		return domain.Meta{}, domain.NewError(domain.KindUpstreamUnavailable, "search_mtg_meta", "web meta search failed", err)
	}
	meta.SnapshotDate = time.Now().UTC().Format("2006-01-02")
	if format != "" && r.Meta != nil {
		r.Meta.Put(format, meta)
	}
	return meta, nil
}

// KnownFormats lists the formats Stack Sage recognizes by name, shared by
// the Meta tool's format inference and the Deck Agent's decklist parsing.
var KnownFormats = []string{"standard", "modern", "pioneer", "legacy", "pauper", "vintage", "commander", "brawl"}

// InferFormat finds the first supported format token mentioned in query.
func InferFormat(query string) string {
	return inferFormat(query)
}

func inferFormat(query string) string {
	words := strings.Fields(strings.ToLower(query))
	wordSet := make(map[string]bool, len(words))
	for _, w := range words {
		wordSet[strings.Trim(w, ".,!?")] = true
	}
	for _, f := range KnownFormats {
		if wordSet[f] {
			return f
		}
	}
	return ""
}

// CrossReferenceRules implements cross_reference_rules(topic_a, topic_b):
// two hybrid searches joined into one deduplicated, score-sorted list.
func (r *Registry) CrossReferenceRules(ctx context.Context, topicA, topicB string, k int) ([]domain.Rule, error) {
	resultsA, err := r.Rules.SearchHybrid(ctx, topicA, k, 0)
	if err != nil {
		return nil, fmt.Errorf("cross_reference_rules: topic_a: %w", err)
	}
	resultsB, err := r.Rules.SearchHybrid(ctx, topicB, k, 0)
	if err != nil {
		return nil, fmt.Errorf("cross_reference_rules: topic_b: %w", err)
	}

	byID := make(map[string]domain.Rule, len(resultsA)+len(resultsB))
	for _, rule := range append(resultsA, resultsB...) {
		if existing, ok := byID[rule.RuleID]; !ok || rule.Score > existing.Score {
			byID[rule.RuleID] = rule
		}
	}

	out := make([]domain.Rule, 0, len(byID))
	for _, rule := range byID {
		out = append(out, rule)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}
