package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/dshills/pdfindex/internal/indexer"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pending changes and vector store statistics",
	Long: `Status runs change detection without writing anything and reports what the
next build would do. When the vector store exists it also prints document,
chunk and embedding counts and the result of an integrity check.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("output")

		// Status only scans and reads; no pipeline stages are needed
		builder := indexer.NewBuilder(nil, nil, nil)

		st, err := builder.Status(cmd.Context(), cfg.BuildOptions(false))
		if err != nil {
			return err
		}
		return writeStatus(cmd.OutOrStdout(), format, st)
	},
}

func init() {
	statusCmd.Flags().StringP("output", "o", "text", "output format: text, json, yaml")

	rootCmd.AddCommand(statusCmd)
}

func writeStatus(w io.Writer, format string, st *indexer.Status) error {
	switch strings.ToLower(format) {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(st); err != nil {
			return err
		}
		return enc.Close()
	case "text":
		writeStatusText(w, st)
		return nil
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func writeStatusText(w io.Writer, st *indexer.Status) {
	if st.RebuildNeeded {
		fmt.Fprintf(w, "Rebuild needed (mode=%s)\n", st.Mode)
	} else {
		fmt.Fprintf(w, "Up to date (%d files)\n", st.Unchanged)
	}
	if st.RecordMissing {
		fmt.Fprintln(w, "  processed-files record: missing")
	}
	writeList(w, "added", st.Added)
	writeList(w, "modified", st.Modified)
	writeList(w, "removed", st.Removed)
	fmt.Fprintf(w, "  unchanged: %d\n", st.Unchanged)
	if len(st.Unreadable) > 0 {
		writeList(w, "unreadable", st.Unreadable)
	}
	if st.ModelChanged {
		fmt.Fprintln(w, "  embedding model changed since the last build")
	}

	if st.Store == nil {
		fmt.Fprintln(w, "Vector store: missing")
		return
	}

	s := st.Store
	if !st.StoreReady {
		fmt.Fprintf(w, "Vector store: %s (unusable, will be rebuilt)\n", s.Path)
		fmt.Fprintf(w, "  problem: %s\n", s.Problems)
		if s.SchemaVersion == "" {
			return
		}
	} else {
		fmt.Fprintf(w, "Vector store: %s\n", s.Path)
	}
	fmt.Fprintf(w, "  documents: %d  chunks: %d  embeddings: %d\n", s.Documents, s.Chunks, s.Embeddings)
	fmt.Fprintf(w, "  dimension: %d  models: %s\n", s.Dimension, strings.Join(s.Models, ", "))
	fmt.Fprintf(w, "  size: %.2f MB  schema: %s  build: %s\n", float64(s.SizeBytes)/(1024*1024), s.SchemaVersion, s.BuildMode)
	if !s.LastIndexedAt.IsZero() {
		fmt.Fprintf(w, "  last indexed: %s\n", s.LastIndexedAt.Format("2006-01-02 15:04:05"))
	}
	if s.Consistent {
		fmt.Fprintln(w, "  integrity: ok")
	} else {
		fmt.Fprintf(w, "  integrity: %s\n", s.Problems)
	}
}

func writeList(w io.Writer, label string, paths []string) {
	fmt.Fprintf(w, "  %s: %d\n", label, len(paths))
	for _, p := range paths {
		fmt.Fprintf(w, "    %s\n", p)
	}
}
