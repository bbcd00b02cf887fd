// Command rulesindex-build builds the rules index offline: read the
// Comprehensive Rules source document, chunk it, embed every chunk, and
// write the resulting vector + keyword indexes to disk for stacksage.New
// to load at request time.
package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/ProfessorFess/Stack-Sage/internal/config"
	"github.com/ProfessorFess/Stack-Sage/internal/embedder"
	"github.com/ProfessorFess/Stack-Sage/internal/obslog"
	"github.com/ProfessorFess/Stack-Sage/internal/rulesindex"
)

func main() {
	var (
		source  = flag.String("source", "", "path to the Comprehensive Rules source document")
		out     = flag.String("out", "", "output path for the built index (overrides RULES_INDEX_PATH)")
		apiKey  = flag.String("openai-api-key", "", "OpenAI API key for hosted embeddings (overrides OPENAI_API_KEY)")
		timeout = flag.Duration("timeout", 10*time.Minute, "build timeout")
	)
	flag.Parse()

	cfg := config.Load()
	log := obslog.New(cfg.Verbose, true)

	if *source == "" {
		log.Error().Msg("missing required -source flag")
		os.Exit(1)
	}

	outPath := *out
	if outPath == "" {
		outPath = cfg.RulesIndexPath
	}

	key := *apiKey
	if key == "" {
		key = os.Getenv("OPENAI_API_KEY")
	}

	var emb rulesindex.Embedder
	switch cfg.EmbeddingMode {
	case config.EmbeddingModeLocal:
		emb = embedder.NewLocal()
	default:
		emb = embedder.NewHosted(key, "")
	}

	data, err := os.ReadFile(*source)
	if err != nil {
		log.Error().Err(err).Str("source", *source).Msg("failed to read rules source")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	log.Info().Str("source", *source).Str("embedding_mode", string(cfg.EmbeddingMode)).Msg("building rules index")

	index, meta, err := rulesindex.Build(ctx, string(data), emb, string(cfg.EmbeddingMode))
	if err != nil {
		log.Error().Err(err).Msg("failed to build rules index")
		os.Exit(1)
	}

	if err := rulesindex.Save(outPath, index.VectorStore(), meta); err != nil {
		log.Error().Err(err).Str("out", outPath).Msg("failed to save rules index")
		os.Exit(1)
	}

	log.Info().
		Int("chunk_count", meta.ChunkCount).
		Int("dimension", meta.Dimension).
		Str("out", outPath).
		Msg("rules index built successfully")
}
