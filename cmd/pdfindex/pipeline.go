package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/pflag"

	"github.com/dshills/pdfindex/internal/chunker"
	"github.com/dshills/pdfindex/internal/config"
	"github.com/dshills/pdfindex/internal/embedder"
	"github.com/dshills/pdfindex/internal/extractor"
	"github.com/dshills/pdfindex/internal/indexer"
)

// addPipelineFlags registers the chunking and embedding flags shared by the
// commands that can run a build
func addPipelineFlags(fs *pflag.FlagSet) {
	d := config.Default()
	fs.Int("chunk-size", d.ChunkSize, "chunk size in characters")
	fs.Int("chunk-overlap", d.ChunkOverlap, "overlap between neighbouring chunks in characters")
	fs.Int("batch-size", d.BatchSize, "texts per embedding request")
	fs.String("provider", "", "embedding provider: gemini, jina, openai, local (default: detect from API keys)")
	fs.String("model", "", "embedding model (default: provider default)")
	fs.String("base-url", "", "embedding endpoint override")
	fs.Int("embedding-cache", d.Embedding.CacheSize, "embedding LRU cache entries; 0 disables it")
}

// newBuilder wires the extractor, chunker and embedder selected by c.
// The caller closes the returned embedder.
func newBuilder(c config.Config) (*indexer.Builder, embedder.Embedder, error) {
	ch, err := chunker.NewWithConfig(c.ChunkerConfig())
	if err != nil {
		return nil, nil, err
	}

	emb, err := embedder.New(c.EmbedderConfig())
	if err != nil {
		return nil, nil, fmt.Errorf("embedding provider: %w", err)
	}

	slog.Info("pipeline configured",
		"provider", emb.Provider(), "model", emb.Model(),
		"chunk_size", c.ChunkSize, "chunk_overlap", c.ChunkOverlap, "batch_size", c.BatchSize,
		"pdf_password", c.PDFPassword != "")

	return indexer.NewBuilder(extractor.New(c.ExtractorOptions()...), ch, emb), emb, nil
}
