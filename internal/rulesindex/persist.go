package rulesindex

import (
	"encoding/json"
	"os"

	"github.com/ProfessorFess/Stack-Sage/internal/domain"
)

// onDisk is the serialized form of a built rules index: chunks, their
// vectors, and the metadata needed to validate a load.
type onDisk struct {
	Metadata Metadata    `json:"metadata"`
	Chunks   []Chunk     `json:"chunks"`
	Vectors  [][]float32 `json:"vectors"`
}

// Save writes the index's chunks, vectors, and metadata to path as JSON.
func Save(path string, vectors *VectorStore, meta Metadata) error {
	chunks := make([]Chunk, vectors.Len())
	vecs := make([][]float32, vectors.Len())
	for i, e := range vectors.entries {
		chunks[i] = Chunk{RuleID: e.RuleID, Text: e.Text}
		vecs[i] = e.Vector
	}
	data := onDisk{Metadata: meta, Chunks: chunks, Vectors: vecs}

	b, err := json.Marshal(data)
	if err != nil {
		return domain.NewError(domain.KindInternalInvariantBreach, "save_rules_index", "failed marshaling index", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return domain.NewError(domain.KindInternalInvariantBreach, "save_rules_index", "failed writing index file", err)
	}
	return nil
}

// Load reads a previously Saved index from path and verifies its
// embedding dimensionality matches expectedDim, failing loudly on
// mismatch: an index built for one embedding model must not serve
// queries embedded by another.
func Load(path string, embedder Embedder, expectedDim int, cfg Config) (*Index, Metadata, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, Metadata{}, domain.NewError(domain.KindIndexUnavailable, "load_rules_index", "index file not found or unreadable", err)
	}
	var data onDisk
	if err := json.Unmarshal(b, &data); err != nil {
		return nil, Metadata{}, domain.NewError(domain.KindIndexUnavailable, "load_rules_index", "malformed index file", err)
	}
	if expectedDim > 0 && data.Metadata.Dimension != expectedDim {
		return nil, Metadata{}, domain.NewError(domain.KindIndexUnavailable, "load_rules_index",
			"embedding dimensionality mismatch: index was built for a different embedding model", nil)
	}

	vectorStore, err := NewVectorStore(data.Chunks, data.Vectors)
	if err != nil {
		return nil, Metadata{}, domain.NewError(domain.KindIndexUnavailable, "load_rules_index", "corrupt index data", err)
	}
	keyword := NewBM25Index(data.Chunks)

	return New(vectorStore, keyword, embedder, cfg), data.Metadata, nil
}
