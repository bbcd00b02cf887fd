package rulesindex

import (
	"context"

	"github.com/ProfessorFess/Stack-Sage/internal/domain"
)

// embedBatchSize caps how many chunks are embedded per Embed call, keeping
// any single request to a hosted embedding endpoint within a reasonable
// payload size.
const embedBatchSize = 64

// Metadata describes an on-disk rules index: enough to detect a
// mismatched embedding model at load time.
type Metadata struct {
	Dimension     int    `json:"dimension"`
	EmbeddingMode string `json:"embedding_mode"`
	ChunkCount    int    `json:"chunk_count"`
}

// Build chunks the Comprehensive Rules source, embeds every chunk, and
// assembles the vector + keyword indexes. This is the offline
// rules-index-build operation; callers persist the result with Save.
func Build(ctx context.Context, source string, embedder Embedder, embeddingMode string) (*Index, Metadata, error) {
	chunks, err := ChunkRules(source)
	if err != nil {
		return nil, Metadata{}, err
	}
	if len(chunks) == 0 {
		return nil, Metadata{}, domain.NewError(domain.KindInvalidQuery, "build_rules_index", "source produced no chunks", nil)
	}

	vectors := make([][]float32, 0, len(chunks))
	for start := 0; start < len(chunks); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		texts := make([]string, end-start)
		for i, c := range chunks[start:end] {
			texts[i] = c.Text
		}
		batch, err := embedder.Embed(ctx, texts)
		if err != nil {
			return nil, Metadata{}, domain.NewError(domain.KindUpstreamUnavailable, "build_rules_index", "failed embedding chunk batch", err)
		}
		vectors = append(vectors, batch...)
	}

	vectorStore, err := NewVectorStore(chunks, vectors)
	if err != nil {
		return nil, Metadata{}, err
	}
	keyword := NewBM25Index(chunks)

	meta := Metadata{
		Dimension:     vectorStore.Dimension(),
		EmbeddingMode: embeddingMode,
		ChunkCount:    len(chunks),
	}
	return New(vectorStore, keyword, embedder, Config{}), meta, nil
}
