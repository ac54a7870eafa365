package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/pdfindex/internal/storage"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of pdfindex",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "pdfindex %s\n", version)
		fmt.Fprintf(out, "Build Time: %s\n", buildTime)
		fmt.Fprintf(out, "Build Mode: %s\n", storage.BuildMode)
		fmt.Fprintf(out, "SQLite Driver: %s\n", storage.DriverName)
		fmt.Fprintf(out, "Vector Extension: %v\n", storage.VectorExtensionAvailable)
		fmt.Fprintf(out, "Schema Version: %s\n", storage.CurrentSchemaVersion)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
