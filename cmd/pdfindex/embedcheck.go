package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/pdfindex/internal/embedder"
)

var embedCheckCmd = &cobra.Command{
	Use:   "embed-check [text...]",
	Short: "Embed sample text with the configured provider",
	Long: `Embed-check sends one batch to the configured embedding provider and prints
the provider, model, dimension and latency. Use it to check API keys and
endpoint settings before running a build.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		texts := args
		if len(texts) == 0 {
			texts = []string{"pdfindex embedding check"}
		}

		emb, err := embedder.New(cfg.EmbedderConfig())
		if err != nil {
			return fmt.Errorf("embedding provider: %w", err)
		}
		defer func() { _ = emb.Close() }()

		start := time.Now()
		embeddings, err := emb.Embed(cmd.Context(), embedder.TextBatch(texts...))
		if err != nil {
			return err
		}
		elapsed := time.Since(start)

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Provider: %s\n", emb.Provider())
		fmt.Fprintf(out, "Model: %s\n", emb.Model())
		fmt.Fprintf(out, "Embeddings: %d\n", len(embeddings))
		if len(embeddings) > 0 {
			fmt.Fprintf(out, "Dimension: %d\n", len(embeddings[0].Vector))
		}
		fmt.Fprintf(out, "Latency: %v\n", elapsed.Round(time.Millisecond))
		return nil
	},
}

func init() {
	addPipelineFlags(embedCheckCmd.Flags())

	rootCmd.AddCommand(embedCheckCmd)
}
