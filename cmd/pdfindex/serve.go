package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/pdfindex/internal/mcp"
	"github.com/dshills/pdfindex/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve rebuild_index and index_status as MCP tools over stdio",
	Long: `Serve starts a Model Context Protocol server on stdin/stdout. MCP clients
can trigger a rebuild with the rebuild_index tool and inspect pending changes
with index_status. Logs are written to stderr.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		builder, emb, err := newBuilder(cfg)
		if err != nil {
			return err
		}
		defer func() { _ = emb.Close() }()

		slog.Info("pdfindex MCP server starting", "version", version,
			"build_mode", storage.BuildMode, "driver", storage.DriverName)

		server := mcp.NewServer(builder, cfg.BuildOptions(false), version)

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		g, ctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			err := server.Serve(ctx, os.Stdin, os.Stdout)
			cancel()
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})

		g.Go(func() error {
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sigChan)

			select {
			case sig := <-sigChan:
				slog.Info("received signal, shutting down", "signal", sig)
				cancel()
			case <-ctx.Done():
			}
			return nil
		})

		err = g.Wait()
		slog.Info("server stopped")
		return err
	},
}

func init() {
	addPipelineFlags(serveCmd.Flags())

	rootCmd.AddCommand(serveCmd)
}
