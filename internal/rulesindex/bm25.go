package rulesindex

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/ProfessorFess/Stack-Sage/internal/domain"
)

var tokenPattern = regexp.MustCompile(`[a-z0-9]+`)

func tokenize(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}

// bm25k1 and bm25b are the standard Okapi BM25 tuning constants.
const (
	bm25k1 = 1.5
	bm25b  = 0.75
)

type bm25Doc struct {
	RuleID    string
	Text      string
	termFreq  map[string]int
	docLength int
}

// BM25Index is an in-memory Okapi BM25 keyword index over rule chunks.
type BM25Index struct {
	docs      []bm25Doc
	docFreq   map[string]int
	avgDocLen float64
}

// NewBM25Index builds a BM25Index from chunks.
func NewBM25Index(chunks []Chunk) *BM25Index {
	idx := &BM25Index{docFreq: make(map[string]int)}
	totalLen := 0
	for _, c := range chunks {
		tokens := tokenize(c.Text)
		tf := make(map[string]int, len(tokens))
		seen := make(map[string]bool, len(tokens))
		for _, t := range tokens {
			tf[t]++
			if !seen[t] {
				idx.docFreq[t]++
				seen[t] = true
			}
		}
		idx.docs = append(idx.docs, bm25Doc{RuleID: c.RuleID, Text: c.Text, termFreq: tf, docLength: len(tokens)})
		totalLen += len(tokens)
	}
	if len(idx.docs) > 0 {
		idx.avgDocLen = float64(totalLen) / float64(len(idx.docs))
	}
	return idx
}

// Len reports how many chunks are indexed.
func (idx *BM25Index) Len() int { return len(idx.docs) }

// Search returns the k chunks with highest BM25 score for query.
func (idx *BM25Index) Search(query string, k int) []domain.Rule {
	terms := tokenize(query)
	n := float64(len(idx.docs))

	type scored struct {
		rule  domain.Rule
		score float64
	}
	scores := make([]scored, 0, len(idx.docs))
	for _, d := range idx.docs {
		score := 0.0
		for _, term := range terms {
			df := float64(idx.docFreq[term])
			if df == 0 {
				continue
			}
			tf := float64(d.termFreq[term])
			if tf == 0 {
				continue
			}
			idf := math.Log((n-df+0.5)/(df+0.5) + 1)
			denom := tf + bm25k1*(1-bm25b+bm25b*float64(d.docLength)/idx.avgDocLen)
			score += idf * (tf * (bm25k1 + 1) / denom)
		}
		if score > 0 {
			scores = append(scores, scored{rule: domain.Rule{RuleID: d.RuleID, Text: d.Text, Score: score}, score: score})
		}
	}
	sort.Slice(scores, func(i, j int) bool { return scores[i].score > scores[j].score })
	if k > len(scores) {
		k = len(scores)
	}
	out := make([]domain.Rule, k)
	for i := 0; i < k; i++ {
		out[i] = scores[i].rule
	}
	return out
}
