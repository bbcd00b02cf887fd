// Package embedder supplies the two Embedder implementations
// EMBEDDING_MODE can select: a hosted OpenAI embedding endpoint, and a
// local fallback with no network dependency. Both satisfy
// rulesindex.Embedder.
package embedder

import (
	"context"
	"hash/fnv"
	"math"

	"github.com/sashabaranov/go-openai"

	"github.com/ProfessorFess/Stack-Sage/internal/domain"
)

// DefaultHostedModel is the OpenAI embedding model used when none is
// configured.
const DefaultHostedModel = "text-embedding-3-small"

// LocalDimension is the vector width the Local embedder produces,
// deliberately lower than a hosted model's.
const LocalDimension = 64

// Hosted embeds text via the OpenAI embeddings endpoint, reusing
// go-openai (this module's only LLM SDK) rather than adding a second
// HTTP client for embeddings.
type Hosted struct {
	client *openai.Client
	model  openai.EmbeddingModel
}

// NewHosted constructs a Hosted embedder. model may be empty to use
// DefaultHostedModel.
func NewHosted(apiKey, model string) *Hosted {
	if model == "" {
		model = DefaultHostedModel
	}
	return &Hosted{client: openai.NewClient(apiKey), model: openai.EmbeddingModel(model)}
}

// Embed implements rulesindex.Embedder.
func (h *Hosted) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := h.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: h.model,
	})
	if err != nil {
		return nil, domain.NewError(domain.KindUpstreamUnavailable, "embed_hosted", "openai embeddings API error", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, domain.NewError(domain.KindInternalInvariantBreach, "embed_hosted", "embedding count mismatch", nil)
	}
	out := make([][]float32, len(resp.Data))
	for _, d := range resp.Data {
		out[d.Index] = d.Embedding
	}
	return out, nil
}

// Local is a dependency-free embedder for EMBEDDING_MODE=local: it
// hashes token frequencies into a fixed-width vector (a
// bag-of-hashed-words sketch), trading semantic quality for running with
// no network and no model weights.
type Local struct{}

// NewLocal constructs a Local embedder.
func NewLocal() *Local { return &Local{} }

// Embed implements rulesindex.Embedder.
func (Local) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = hashEmbed(text)
	}
	return out, nil
}

func hashEmbed(text string) []float32 {
	vec := make([]float32, LocalDimension)
	var word []byte
	flush := func() {
		if len(word) == 0 {
			return
		}
		h := fnv.New32a()
		h.Write(word)
		vec[int(h.Sum32())%LocalDimension]++
		word = word[:0]
	}
	for i := 0; i < len(text); i++ {
		c := text[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') {
			word = append(word, c)
			continue
		}
		flush()
	}
	flush()

	var norm float32
	for _, v := range vec {
		norm += v * v
	}
	if norm == 0 {
		return vec
	}
	scale := float32(math.Sqrt(float64(norm)))
	for i := range vec {
		vec[i] /= scale
	}
	return vec
}
