// Package stacksage is Stack Sage's public API: Ask, ValidateDeck,
// SearchCards, and the meta read/refresh operations. New constructs every
// collaborator, registers them onto one object, and hands back a single
// entry point.
package stacksage

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ProfessorFess/Stack-Sage/internal/agents"
	"github.com/ProfessorFess/Stack-Sage/internal/cardsource"
	"github.com/ProfessorFess/Stack-Sage/internal/config"
	"github.com/ProfessorFess/Stack-Sage/internal/deckvalidator"
	"github.com/ProfessorFess/Stack-Sage/internal/domain"
	"github.com/ProfessorFess/Stack-Sage/internal/embedder"
	"github.com/ProfessorFess/Stack-Sage/internal/graph"
	"github.com/ProfessorFess/Stack-Sage/internal/llm"
	"github.com/ProfessorFess/Stack-Sage/internal/metacache"
	"github.com/ProfessorFess/Stack-Sage/internal/monitoring"
	"github.com/ProfessorFess/Stack-Sage/internal/obslog"
	"github.com/ProfessorFess/Stack-Sage/internal/retry"
	"github.com/ProfessorFess/Stack-Sage/internal/rulesindex"
	"github.com/ProfessorFess/Stack-Sage/internal/tools"
)

// Options configures New. Everything has a sensible default except
// OpenAIAPIKey and ScryfallClient, which callers must supply (or leave
// nil to get http.DefaultClient and an unauthenticated LLM client that
// will fail on first use).
type Options struct {
	OpenAIAPIKey string

	// ScryfallClient overrides the HTTP transport cardsource uses; nil
	// gets http.DefaultClient.
	ScryfallClient cardsource.HTTPDoer

	// MetaSearcher backs search_mtg_meta's live web search; nil degrades
	// to the "not configured" response used when META_SEARCH_CREDENTIAL
	// is absent.
	MetaSearcher tools.MetaSearcher

	// Config overrides environment-derived configuration; nil loads from
	// the process environment via config.Load.
	Config *config.Config
}

// Client is Stack Sage's public entry point: one per process, safe for
// concurrent use by multiple requests (each Ask call gets its own
// domain.AgentState; shared state is limited to the caches and indexes
// inside the wired collaborators, which are themselves concurrency-safe).
type Client struct {
	graph   *graph.Graph
	tools   *tools.Registry
	catalog deckvalidator.Catalog
	metrics *monitoring.Collector
}

// New constructs a Client: loads or builds the rules index, wires the
// card source, meta cache, LLM client, every specialist agent, and the
// dispatch graph. rulesIndexPath is where a prior cmd/rulesindex-build
// run wrote its output.
func New(rulesIndexPath string, opts Options) (*Client, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Load()
	}

	log := obslog.New(cfg.Verbose, false)

	var emb rulesindex.Embedder
	expectedDim := 0
	switch cfg.EmbeddingMode {
	case config.EmbeddingModeLocal:
		emb = embedder.NewLocal()
		expectedDim = embedder.LocalDimension
	default:
		emb = embedder.NewHosted(opts.OpenAIAPIKey, "")
	}

	rulesCfg := rulesindex.Config{Alpha: cfg.RulesHybridAlpha, QueryCacheCap: cfg.RulesQueryCacheSize}
	index, _, err := rulesindex.Load(rulesIndexPath, emb, expectedDim, rulesCfg)
	if err != nil {
		return nil, err
	}

	metrics := monitoring.NewCollector()
	observers := monitoring.NewManager()
	observers.Add(&monitoring.MetricsObserver{Collector: metrics})
	observers.Add(&monitoring.ZerologObserver{Log: log})

	cardsCfg := cardsource.DefaultConfig()
	cardsCfg.BaseURL = cfg.ScryfallBaseURL
	cardsCfg.CacheCapacity = cfg.CardCacheSize
	cardsCfg.Client = opts.ScryfallClient
	cardsCfg.Log = log
	cardsCfg.Metrics = metrics
	cardAdapter := cardsource.New(cardsCfg)

	meta := metacache.New(cfg.MetaCacheFreshWindow, cfg.MetaCacheStaleWindow)

	registry := &tools.Registry{
		Cards:        cardAdapter,
		Rules:        index,
		Meta:         meta,
		MetaSearcher: opts.MetaSearcher,
	}

	catalog, err := deckvalidator.DefaultCatalog()
	if err != nil {
		return nil, err
	}

	llmClient := llm.New(llm.Config{APIKey: opts.OpenAIAPIKey, Retry: retry.Default(), Log: log})

	planner := &agents.Planner{LLM: llmClient.Handle(cfg.LLMModel, 0)}
	interaction := &agents.Interaction{LLM: llmClient.Handle(cfg.LLMModel, float32(cfg.LLMTemperature))}
	judge := &agents.Judge{LLM: llmClient.Handle(cfg.LLMModel, 0)}
	deckAgent := &agents.Deck{Tools: registry, Catalog: catalog}

	nodes := map[domain.AgentID]agents.Agent{
		domain.AgentCard: &agents.Card{Tools: registry, Parallelism: cfg.CardFetchParallel},
		domain.AgentRules: &agents.Rules{
			Tools:           registry,
			K:               cfg.RulesHybridK,
			ExpectedResults: cfg.RulesCoverageExpected,
			CoverageFloor:   cfg.RulesCoverageThreshold,
		},
		domain.AgentMeta:        &agents.Meta{Tools: registry},
		domain.AgentDeck:        deckAgent,
		domain.AgentInteraction: interaction,
		domain.AgentJudge:       judge,
	}

	g := graph.New(planner, nodes, &agents.Finalizer{}, log, observers)
	g.MaxNodes = cfg.RecursionCap
	g.NodeTimeout = cfg.NodeTimeout
	g.Budget = cfg.RequestTimeout

	return &Client{graph: g, tools: registry, catalog: catalog, metrics: metrics}, nil
}

// AskResult is the Ask operation's output.
type AskResult struct {
	Answer      string
	ToolsUsed   []domain.AgentID
	Citations   []domain.Citation
	Diagnostics Diagnostics
	Success     bool
}

// Diagnostics surfaces per-request introspection: node timings, the
// Judge's verdict, whether any Meta evidence was stale, and the
// process-wide metrics summary as of this request's completion.
type Diagnostics struct {
	AgentTimings   map[domain.AgentID]time.Duration
	JudgeReport    domain.JudgeReport
	StaleMeta      bool
	MetricsSummary monitoring.Summary
}

// Ask runs one question through the full multi-agent graph and returns
// the finalized, cited answer. It never returns a non-nil error for a
// question that simply couldn't be answered well; that surfaces as
// Success=false with a human-readable Answer. A non-nil error here means
// the request couldn't even start (ctx already done).
func (c *Client) Ask(ctx context.Context, question string) (AskResult, error) {
	state := domain.NewAgentState(uuid.NewString(), question)

	if err := c.graph.Run(ctx, state); err != nil {
		return AskResult{}, err
	}

	// Plans without a Judge stage (deck validation, meta) leave
	// JudgeReport at its zero value; only hold a request to the grounding
	// verdict when the Judge actually ran.
	judgeRan := false
	for _, id := range state.ToolsUsed.List() {
		if id == domain.AgentJudge {
			judgeRan = true
			break
		}
	}
	success := !state.Aborted && (!judgeRan || state.JudgeReport.Grounded)

	staleMeta := false
	for _, m := range state.Context.Meta {
		if m.Stale {
			staleMeta = true
			break
		}
	}

	return AskResult{
		Answer:    state.FinalAnswer,
		ToolsUsed: state.ToolsUsed.List(),
		Citations: state.Citations,
		Diagnostics: Diagnostics{
			AgentTimings:   state.AgentTimings,
			JudgeReport:    state.JudgeReport,
			StaleMeta:      staleMeta,
			MetricsSummary: c.metrics.Snapshot(),
		},
		Success: success,
	}, nil
}

// ValidateDeck runs the Deck Validator directly, without going through
// the agent graph: it takes its decklist, format, and commander as
// separate fields rather than a single free-text question, so it has no
// need for the Planner or any other specialist.
func (c *Client) ValidateDeck(ctx context.Context, decklist, format, commander string) (domain.DeckValidationResult, error) {
	parsed := deckvalidator.ParseDecklist(decklist)
	if format == "" {
		format = parsed.Format
	}
	if commander == "" {
		commander = parsed.Commander
	}

	lookup := func(name string) (domain.Card, bool) {
		card, err := c.tools.LookupCard(ctx, name)
		if err != nil {
			return domain.Card{}, false
		}
		return card, true
	}

	result := deckvalidator.Validate(c.catalog, deckvalidator.Input{
		Format:     format,
		Deck:       parsed,
		Commander:  commander,
		CardLookup: lookup,
	})
	return result, nil
}

// SearchCardsResult is the Card-search operation's output.
type SearchCardsResult struct {
	TotalCards int
	Query      string
	Cards      []domain.Card
	Success    bool
}

// SearchCards runs search_cards_by_criteria directly: a filter
// configuration in, a card list out. An all-empty filter configuration is
// the only input that produces a non-nil error (InvalidQuery); upstream
// failures surface as Success=false with an empty card list.
func (c *Client) SearchCards(ctx context.Context, filters tools.CriteriaFilters) (SearchCardsResult, error) {
	cards, err := c.tools.SearchCardsByCriteria(ctx, filters)
	if err != nil {
		if domain.KindOf(err) == domain.KindInvalidQuery {
			return SearchCardsResult{}, err
		}
		return SearchCardsResult{Query: cardsource.BuildQuery(filters)}, nil
	}
	return SearchCardsResult{
		TotalCards: len(cards),
		Query:      cardsource.BuildQuery(filters),
		Cards:      cards,
		Success:    true,
	}, nil
}

// GetMeta implements the Meta read operation: a cache-only lookup, no
// live search.
func (c *Client) GetMeta(format string) (domain.Meta, bool) {
	return c.tools.Meta.Get(format)
}

// RefreshMeta implements the Meta refresh operation: forces a live
// search_mtg_meta call and repopulates the cache, skipping any cached
// snapshot that a plain read would otherwise return unchanged.
func (c *Client) RefreshMeta(ctx context.Context, format string) (domain.Meta, error) {
	return c.tools.SearchMTGMetaForce(ctx, format, 5)
}
