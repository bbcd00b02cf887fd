// Package cardsource implements the card source adapter: a
// bounded-LRU-cached, circuit-breaker-protected client against the
// Scryfall card database.
package cardsource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ProfessorFess/Stack-Sage/internal/cache"
	"github.com/ProfessorFess/Stack-Sage/internal/circuitbreaker"
	"github.com/ProfessorFess/Stack-Sage/internal/domain"
	"github.com/ProfessorFess/Stack-Sage/internal/monitoring"
)

// scryfallCard mirrors the subset of Scryfall's card JSON shape this
// adapter normalizes into domain.Card.
type scryfallCard struct {
	Name            string            `json:"name"`
	ManaCost        string            `json:"mana_cost"`
	TypeLine        string            `json:"type_line"`
	OracleText      string            `json:"oracle_text"`
	Power           string            `json:"power"`
	Toughness       string            `json:"toughness"`
	Legalities      map[string]string `json:"legalities"`
	Set             string            `json:"set"`
	CollectorNumber string            `json:"collector_number"`
	ColorIdentity   []string          `json:"color_identity"`
	Rulings         []string          `json:"-"` // populated from the rulings_uri follow-up call
	RulingsURI      string            `json:"rulings_uri"`
}

type scryfallRuling struct {
	Comment string `json:"comment"`
}

type scryfallRulingsResponse struct {
	Data []scryfallRuling `json:"data"`
}

type scryfallSearchResponse struct {
	Data    []scryfallCard `json:"data"`
	Warning []string       `json:"warnings"`
}

// HTTPDoer is the subset of *http.Client the adapter depends on, so tests
// can substitute a fake transport without reaching the network.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config configures the Adapter.
type Config struct {
	BaseURL        string
	CacheCapacity  int
	FetchRulings   bool
	Client         HTTPDoer
	CircuitBreaker circuitbreaker.Config
	Log            zerolog.Logger
	Metrics        *monitoring.Collector
}

// DefaultConfig returns sensible defaults; callers still must supply an
// HTTPDoer (or leave nil to get http.DefaultClient).
func DefaultConfig() Config {
	return Config{
		BaseURL:        "https://api.scryfall.com",
		CacheCapacity:  1000,
		FetchRulings:   true,
		CircuitBreaker: circuitbreaker.DefaultConfig(),
	}
}

// Adapter is the card source adapter: fetch_card, search_by_criteria,
// and check_legality.
type Adapter struct {
	cfg     Config
	client  HTTPDoer
	cache   *cache.LRU[string, domain.Card]
	breaker *circuitbreaker.Breaker
	metrics *monitoring.Collector
	log     zerolog.Logger
}

// New constructs an Adapter.
func New(cfg Config) *Adapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.scryfall.com"
	}
	if cfg.CacheCapacity <= 0 {
		cfg.CacheCapacity = 1000
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Adapter{
		cfg:     cfg,
		client:  client,
		cache:   cache.New[string, domain.Card](cfg.CacheCapacity),
		breaker: circuitbreaker.New(cfg.CircuitBreaker),
		metrics: cfg.Metrics,
		log:     cfg.Log,
	}
}

func (a *Adapter) recordCache(hit bool) {
	if a.metrics != nil {
		a.metrics.RecordCacheAccess("cards", hit)
	}
}

// FetchCard implements fetch_card: case-folded cache lookup, fuzzy-name
// fallback to Scryfall on miss, LRU insertion on success.
func (a *Adapter) FetchCard(ctx context.Context, name string) (domain.Card, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return domain.Card{}, domain.NewError(domain.KindInvalidQuery, "fetch_card", "name must not be empty", nil)
	}

	if c, ok := a.cache.Get(key); ok {
		a.recordCache(true)
		return c, nil
	}
	a.recordCache(false)

	var card domain.Card
	var notFound error
	err := a.breaker.Execute(ctx, func(ctx context.Context) error {
		var fetchErr error
		card, fetchErr = a.fetchFuzzy(ctx, name)
		if domain.KindOf(fetchErr) == domain.KindNotFound {
			// A name the service doesn't know is not an upstream failure.
			notFound = fetchErr
			return nil
		}
		return fetchErr
	})
	if err != nil {
		if _, ok := err.(*circuitbreaker.OpenError); ok {
			return domain.Card{}, domain.NewError(domain.KindUpstreamUnavailable, "fetch_card", "card service circuit open", err)
		}
		return domain.Card{}, err
	}
	if notFound != nil {
		return domain.Card{}, notFound
	}

	a.cache.Put(key, card)
	return card, nil
}

func (a *Adapter) fetchFuzzy(ctx context.Context, name string) (domain.Card, error) {
	u := fmt.Sprintf("%s/cards/named?fuzzy=%s", a.cfg.BaseURL, url.QueryEscape(name))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return domain.Card{}, domain.NewError(domain.KindInternalInvariantBreach, "fetch_card", "failed to build request", err)
	}

	start := time.Now()
	resp, err := a.client.Do(req)
	latency := time.Since(start)
	a.log.Debug().Str("card", name).Dur("latency", latency).Msg("scryfall fuzzy lookup")
	if err != nil {
		return domain.Card{}, domain.NewError(domain.KindUpstreamUnavailable, "fetch_card", "network error", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.Card{}, domain.NewError(domain.KindNotFound, "fetch_card", fmt.Sprintf("no card matching %q", name), nil)
	}
	if resp.StatusCode >= 500 {
		return domain.Card{}, domain.NewError(domain.KindUpstreamUnavailable, "fetch_card", fmt.Sprintf("upstream status %d", resp.StatusCode), nil)
	}
	if resp.StatusCode != http.StatusOK {
		return domain.Card{}, domain.NewError(domain.KindUpstreamUnavailable, "fetch_card", fmt.Sprintf("unexpected status %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.Card{}, domain.NewError(domain.KindUpstreamUnavailable, "fetch_card", "failed reading response", err)
	}

	var sc scryfallCard
	if err := json.Unmarshal(body, &sc); err != nil {
		return domain.Card{}, domain.NewError(domain.KindUpstreamUnavailable, "fetch_card", "malformed response", err)
	}

	card := normalizeCard(sc)
	if a.cfg.FetchRulings && sc.RulingsURI != "" {
		if rulings, err := a.fetchRulings(ctx, sc.RulingsURI); err == nil {
			card.Rulings = rulings
		}
	}
	return card, nil
}

func (a *Adapter) fetchRulings(ctx context.Context, rulingsURI string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rulingsURI, nil)
	if err != nil {
		return nil, err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rulings status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var rr scryfallRulingsResponse
	if err := json.Unmarshal(body, &rr); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rr.Data))
	for _, r := range rr.Data {
		out = append(out, r.Comment)
	}
	return out, nil
}

func normalizeCard(sc scryfallCard) domain.Card {
	legalities := make(map[string]domain.Legality, len(sc.Legalities))
	for format, status := range sc.Legalities {
		legalities[format] = normalizeLegality(status)
	}
	return domain.Card{
		Name:            sc.Name,
		ManaCost:        sc.ManaCost,
		TypeLine:        sc.TypeLine,
		OracleText:      sc.OracleText,
		Power:           sc.Power,
		Toughness:       sc.Toughness,
		HasPowerTough:   sc.Power != "" || sc.Toughness != "",
		Legalities:      legalities,
		Set:             sc.Set,
		CollectorNumber: sc.CollectorNumber,
		ColorIdentity:   sc.ColorIdentity,
	}
}

func normalizeLegality(status string) domain.Legality {
	switch status {
	case "legal":
		return domain.LegalityLegal
	case "banned":
		return domain.LegalityBanned
	case "restricted":
		return domain.LegalityRestricted
	case "not_legal":
		return domain.LegalityNotLegal
	default:
		return domain.LegalityUnknown
	}
}

// CheckLegality implements check_format_legality: fetches the card (cache
// or network) and reads its legality map for the given format.
func (a *Adapter) CheckLegality(ctx context.Context, name, format string) (domain.Legality, error) {
	card, err := a.FetchCard(ctx, name)
	if err != nil {
		return domain.LegalityUnknown, err
	}
	if status, ok := card.Legalities[strings.ToLower(format)]; ok {
		return status, nil
	}
	return domain.LegalityUnknown, nil
}
