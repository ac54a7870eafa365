package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Rebuild the vector store if any PDF changed",
	Long: `Build scans the source directory, compares each PDF's fingerprint with the
processed-files record and re-embeds the added and modified files. Removed
files are deleted from the store. When nothing changed the store and the
record are left untouched.

PDFs that cannot be read are skipped and retried on the next run. An
embedding or storage failure stops the build with a non-zero exit status and
leaves the record unchanged.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		builder, emb, err := newBuilder(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = emb.Close() }()

		report, err := builder.Build(ctx, cfg.BuildOptions(force))
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, report.LogEntry(nil).Summary())
		if failures := report.Failures(); len(failures) > 0 {
			fmt.Fprintf(out, "%d file(s) skipped, will retry next run:\n", len(failures))
			for _, fe := range failures {
				fmt.Fprintf(out, "  %s: %v\n", fe.Path, fe.Err)
			}
		}
		return nil
	},
}

func init() {
	buildCmd.Flags().Bool("force", false, "re-embed every PDF even when nothing changed")
	addPipelineFlags(buildCmd.Flags())

	rootCmd.AddCommand(buildCmd)
}
