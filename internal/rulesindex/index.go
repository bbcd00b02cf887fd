package rulesindex

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ProfessorFess/Stack-Sage/internal/cache"
	"github.com/ProfessorFess/Stack-Sage/internal/domain"
)

// Embedder turns query text into a vector the VectorStore can search
// against. Build time and query time share this interface so the index
// never cares whether embeddings come from a hosted endpoint or a local
// sentence-embedding model.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// DefaultAlpha is the hybrid re-scoring weight given to vector
// similarity in the max-normalized sum alpha*vector + (1-alpha)*bm25.
const DefaultAlpha = 0.6

// Index is the rules index: a vector store and a BM25 index over the
// same chunks, served through vector-only, BM25-only, and hybrid
// retrieval, with a bounded query cache. Hybrid retrieval runs both
// searches concurrently and fuses the two ranked lists by weighted sum.
type Index struct {
	vectors  *VectorStore
	keyword  *BM25Index
	embedder Embedder
	alpha    float64
	cache    *cache.LRU[string, []domain.Rule]
}

// DefaultQueryCacheCap bounds the query cache.
const DefaultQueryCacheCap = 100

// Config tunes Index behavior.
type Config struct {
	Alpha         float64 // vector-vs-bm25 weight, default DefaultAlpha
	QueryCacheCap int     // default DefaultQueryCacheCap
}

// New builds an Index over a VectorStore/BM25Index pair built from the same
// chunk set.
func New(vectors *VectorStore, keyword *BM25Index, embedder Embedder, cfg Config) *Index {
	if cfg.Alpha <= 0 {
		cfg.Alpha = DefaultAlpha
	}
	if cfg.QueryCacheCap <= 0 {
		cfg.QueryCacheCap = DefaultQueryCacheCap
	}
	return &Index{
		vectors:  vectors,
		keyword:  keyword,
		embedder: embedder,
		alpha:    cfg.Alpha,
		cache:    cache.New[string, []domain.Rule](cfg.QueryCacheCap),
	}
}

// VectorStore exposes the underlying vector store for persistence
// (cmd/rulesindex-build's Save call); callers otherwise only search
// through Index.
func (ix *Index) VectorStore() *VectorStore {
	return ix.vectors
}

// SearchVector implements search_rules: vector-only retrieval.
func (ix *Index) SearchVector(ctx context.Context, query string, k int) ([]domain.Rule, error) {
	vec, err := ix.embedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	return ix.vectors.Search(vec, k), nil
}

// SearchBM25 implements search_rules_bm25: keyword-only retrieval.
func (ix *Index) SearchBM25(query string, k int) []domain.Rule {
	return ix.keyword.Search(query, k)
}

// SearchHybrid implements search_rules_hybrid, the default retrieval
// path: runs vector and BM25 retrieval concurrently for k candidates
// each, fuses them by max-normalized alpha*vector + (1-alpha)*bm25,
// deduplicates on rule id keeping the highest score, and returns the top
// k scoring at least minScore. Results are cached by (query, k,
// minScore).
func (ix *Index) SearchHybrid(ctx context.Context, query string, k int, minScore float64) ([]domain.Rule, error) {
	if k <= 0 {
		k = 8
	}
	cacheKey := fmt.Sprintf("%s|%d|%.4f", normalizeQuery(query), k, minScore)
	if cached, ok := ix.cache.Get(cacheKey); ok {
		return cached, nil
	}

	var vectorResults []domain.Rule
	var bm25Results []domain.Rule

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		vec, err := ix.embedQuery(gctx, query)
		if err != nil {
			return err
		}
		vectorResults = ix.vectors.Search(vec, k)
		return nil
	})
	g.Go(func() error {
		bm25Results = ix.keyword.Search(query, k)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	fused := fuseScores(vectorResults, bm25Results, ix.alpha)

	out := make([]domain.Rule, 0, k)
	for _, r := range fused {
		if r.Score < minScore {
			continue
		}
		out = append(out, r)
		if len(out) >= k {
			break
		}
	}

	ix.cache.Put(cacheKey, out)
	return out, nil
}

// normalizeQuery folds case and collapses whitespace so trivially
// restated queries share one cache entry.
func normalizeQuery(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

func (ix *Index) embedQuery(ctx context.Context, query string) ([]float32, error) {
	vecs, err := ix.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, domain.NewError(domain.KindUpstreamUnavailable, "search_rules", "failed to embed query", err)
	}
	if len(vecs) == 0 {
		return nil, domain.NewError(domain.KindInternalInvariantBreach, "search_rules", "embedder returned no vectors", nil)
	}
	return vecs[0], nil
}

// fuseScores max-normalizes each ranked list's scores independently, then
// sums α·vector + (1-α)·bm25 per rule id, deduplicating on rule id. A rule
// present in only one list is scored using that list's term alone.
func fuseScores(vectorResults, bm25Results []domain.Rule, alpha float64) []domain.Rule {
	vectorNorm := normalizeScores(vectorResults)
	bm25Norm := normalizeScores(bm25Results)

	fused := make(map[string]*domain.Rule)
	order := make([]string, 0, len(vectorResults)+len(bm25Results))

	get := func(r domain.Rule) *domain.Rule {
		if existing, ok := fused[r.RuleID]; ok {
			return existing
		}
		copyRule := r
		copyRule.Score = 0
		fused[r.RuleID] = &copyRule
		order = append(order, r.RuleID)
		return fused[r.RuleID]
	}

	for i, r := range vectorResults {
		get(r).Score += alpha * vectorNorm[i]
	}
	for i, r := range bm25Results {
		get(r).Score += (1 - alpha) * bm25Norm[i]
	}

	out := make([]domain.Rule, 0, len(order))
	for _, id := range order {
		out = append(out, *fused[id])
	}
	sortRulesByScoreDesc(out)
	return out
}

func normalizeScores(rules []domain.Rule) []float64 {
	norm := make([]float64, len(rules))
	if len(rules) == 0 {
		return norm
	}
	max := rules[0].Score
	for _, r := range rules {
		if r.Score > max {
			max = r.Score
		}
	}
	if max <= 0 {
		return norm
	}
	for i, r := range rules {
		norm[i] = r.Score / max
	}
	return norm
}

func sortRulesByScoreDesc(rules []domain.Rule) {
	for i := 1; i < len(rules); i++ {
		for j := i; j > 0 && rules[j].Score > rules[j-1].Score; j-- {
			rules[j], rules[j-1] = rules[j-1], rules[j]
		}
	}
}
