package rulesindex

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleRules = `
601. Casting Spells
601.2 To cast a spell is to take it from where it is, reveal it, and put it onto the stack.
601.2a The player announces they are casting it.
608. Resolving Spells and Abilities
608.2 Each part of a spell's effect is checked when that part is performed.
509. Declare Attackers Step
509.1 The active player declares attackers by choosing which eligible creatures attack.
`

// fakeEmbedder deterministically embeds text into a 3-dim vector based on
// word overlap with a small fixed vocabulary, good enough to exercise
// cosine similarity without a real embedding model.
type fakeEmbedder struct{}

var vocab = []string{"cast", "stack", "attack"}

func (fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		lower := strings.ToLower(t)
		vec := make([]float32, len(vocab))
		for j, v := range vocab {
			if strings.Contains(lower, v) {
				vec[j] = 1
			}
		}
		out[i] = vec
	}
	return out, nil
}

func buildTestIndex(t *testing.T) *Index {
	t.Helper()
	chunks, err := ChunkRules(sampleRules)
	require.NoError(t, err)
	require.Len(t, chunks, 7)

	emb := fakeEmbedder{}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vecs, err := emb.Embed(context.Background(), texts)
	require.NoError(t, err)

	vs, err := NewVectorStore(chunks, vecs)
	require.NoError(t, err)
	bm25 := NewBM25Index(chunks)
	return New(vs, bm25, emb, Config{})
}

func TestChunkRules_SplitsOnRuleID(t *testing.T) {
	chunks, err := ChunkRules(sampleRules)
	require.NoError(t, err)
	require.Len(t, chunks, 7)
	assert.Equal(t, "601", chunks[0].RuleID)
	assert.Equal(t, "601.2a", chunks[2].RuleID)
	assert.Contains(t, chunks[2].Text, "announces")
}

func TestBM25Index_FindsKeywordMatch(t *testing.T) {
	chunks, err := ChunkRules(sampleRules)
	require.NoError(t, err)
	idx := NewBM25Index(chunks)

	// Both 509 and 509.1 contain "attackers"; BM25 length normalization
	// ranks the shorter 509 heading first.
	results := idx.Search("attackers", 3)
	require.NotEmpty(t, results)
	assert.Equal(t, "509", results[0].RuleID)
}

func TestVectorStore_CosineRanksExactMatchHighest(t *testing.T) {
	chunks, err := ChunkRules(sampleRules)
	require.NoError(t, err)
	emb := fakeEmbedder{}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vecs, err := emb.Embed(context.Background(), texts)
	require.NoError(t, err)
	vs, err := NewVectorStore(chunks, vecs)
	require.NoError(t, err)

	queryVec, err := emb.Embed(context.Background(), []string{"attack"})
	require.NoError(t, err)
	// 509 and 509.1 both embed to the same vector as the query (cosine
	// 1.0); the tie keeps chunk order, so 509 comes first.
	results := vs.Search(queryVec[0], 2)
	require.NotEmpty(t, results)
	assert.Equal(t, "509", results[0].RuleID)
}

func TestIndex_SearchHybrid_DedupesAndCaches(t *testing.T) {
	idx := buildTestIndex(t)

	results, err := idx.SearchHybrid(context.Background(), "casting a spell from the stack", 3, 0)
	require.NoError(t, err)
	require.NotEmpty(t, results)

	seen := make(map[string]bool)
	for _, r := range results {
		assert.False(t, seen[r.RuleID], "rule id %s should appear only once", r.RuleID)
		seen[r.RuleID] = true
	}

	results2, err := idx.SearchHybrid(context.Background(), "casting a spell from the stack", 3, 0)
	require.NoError(t, err)
	assert.Equal(t, results, results2)
}

func TestIndex_SearchHybrid_MinScoreFiltersResults(t *testing.T) {
	idx := buildTestIndex(t)
	results, err := idx.SearchHybrid(context.Background(), "casting a spell from the stack", 8, 0.99)
	require.NoError(t, err)
	for _, r := range results {
		assert.GreaterOrEqual(t, r.Score, 0.99)
	}
}

func TestSaveLoad_RoundTripsAndDetectsDimensionMismatch(t *testing.T) {
	chunks, err := ChunkRules(sampleRules)
	require.NoError(t, err)
	emb := fakeEmbedder{}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vecs, err := emb.Embed(context.Background(), texts)
	require.NoError(t, err)
	vs, err := NewVectorStore(chunks, vecs)
	require.NoError(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "index.json")
	meta := Metadata{Dimension: vs.Dimension(), EmbeddingMode: "test", ChunkCount: len(chunks)}
	require.NoError(t, Save(path, vs, meta))

	loaded, loadedMeta, err := Load(path, emb, vs.Dimension(), Config{})
	require.NoError(t, err)
	assert.Equal(t, len(chunks), loadedMeta.ChunkCount)
	assert.Equal(t, loaded.vectors.Len(), vs.Len())

	_, _, err = Load(path, emb, vs.Dimension()+1, Config{})
	require.Error(t, err)

	_, err = os.Stat(path)
	require.NoError(t, err)
}
