package rulesindex

import (
	"math"
	"sort"

	"github.com/ProfessorFess/Stack-Sage/internal/domain"
)

// vectorEntry is one chunk's embedding, kept alongside its text.
type vectorEntry struct {
	RuleID string
	Text   string
	Vector []float32
}

// VectorStore is an in-memory cosine-similarity index. It holds the
// embedding dimensionality it was built with so the loader can fail
// loudly on a mismatched embedding model.
type VectorStore struct {
	dim     int
	entries []vectorEntry
}

// NewVectorStore builds a VectorStore from chunks and their embeddings,
// which must be aligned 1:1 and share one dimensionality.
func NewVectorStore(chunks []Chunk, vectors [][]float32) (*VectorStore, error) {
	if len(chunks) != len(vectors) {
		return nil, domain.NewError(domain.KindInternalInvariantBreach, "build_vector_store", "chunk/vector count mismatch", nil)
	}
	dim := 0
	if len(vectors) > 0 {
		dim = len(vectors[0])
	}
	entries := make([]vectorEntry, 0, len(chunks))
	for i, c := range chunks {
		if len(vectors[i]) != dim {
			return nil, domain.NewError(domain.KindInternalInvariantBreach, "build_vector_store", "inconsistent embedding dimensionality", nil)
		}
		entries = append(entries, vectorEntry{RuleID: c.RuleID, Text: c.Text, Vector: vectors[i]})
	}
	return &VectorStore{dim: dim, entries: entries}, nil
}

// Dimension reports the embedding dimensionality this store was built with.
func (vs *VectorStore) Dimension() int { return vs.dim }

// Len reports how many chunks are indexed.
func (vs *VectorStore) Len() int { return len(vs.entries) }

// Search returns the k chunks with highest cosine similarity to query.
func (vs *VectorStore) Search(query []float32, k int) []domain.Rule {
	type scored struct {
		rule  domain.Rule
		score float64
	}
	scores := make([]scored, 0, len(vs.entries))
	for _, e := range vs.entries {
		sim := cosineSimilarity(query, e.Vector)
		scores = append(scores, scored{rule: domain.Rule{RuleID: e.RuleID, Text: e.Text, Score: sim}, score: sim})
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

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
