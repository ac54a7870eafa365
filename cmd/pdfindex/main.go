// Package main is the entry point for the pdfindex CLI.
//
// pdfindex watches a directory of PDFs and rebuilds a SQLite-backed embedding
// index whenever the files change. Every subcommand reads the same
// configuration: flags, then PDFINDEX_* environment variables, then
// pdfindex.yaml.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/dshills/pdfindex/internal/config"
)

// Set at build time via ldflags
var (
	version   = "dev"
	buildTime = "unknown"
)

// cfg is resolved once per invocation before any subcommand runs
var cfg config.Config

// flagKeys maps flag names to configuration keys
var flagKeys = map[string]string{
	"source-dir":      config.KeySourceDir,
	"record":          config.KeyRecordPath,
	"store-dir":       config.KeyStoreDir,
	"collection":      config.KeyCollection,
	"log-file":        config.KeyLogPath,
	"log-level":       config.KeyLogLevel,
	"chunk-size":      config.KeyChunkSize,
	"chunk-overlap":   config.KeyChunkOverlap,
	"batch-size":      config.KeyBatchSize,
	"provider":        config.KeyProvider,
	"model":           config.KeyModel,
	"base-url":        config.KeyBaseURL,
	"embedding-cache": config.KeyCacheSize,
}

// rootCmd is the base command for the pdfindex CLI
var rootCmd = &cobra.Command{
	Use:   "pdfindex",
	Short: "Rebuild an embedding index when source PDFs change",
	Long: `pdfindex scans a directory of PDFs, compares their content fingerprints
against the processed-files record, and when anything changed re-extracts,
chunks and embeds the affected files into a SQLite vector store.

Run "pdfindex build" from CI after the documents change, or "pdfindex serve"
to expose the rebuild as an MCP tool.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		return initConfig(cmd.Flags())
	},
}

func init() {
	d := config.Default()
	pf := rootCmd.PersistentFlags()

	pf.String("config", "", "config file (default: ./pdfindex.yaml or ~/.config/pdfindex/pdfindex.yaml)")
	pf.String("log-level", d.LogLevel, "log level: debug, info, warn, error")
	pf.String("source-dir", d.SourceDir, "directory scanned for PDF files")
	pf.String("record", d.RecordPath, "processed-files record (JSON)")
	pf.String("store-dir", d.StoreDir, "vector store directory")
	pf.String("collection", d.Collection, "collection name; the store file is <store-dir>/<collection>.db")
	pf.String("log-file", d.LogPath, "build history log; empty disables it")
}

// initConfig resolves cfg from flags, environment and the config file, and
// installs the default slog logger
func initConfig(flags *pflag.FlagSet) error {
	cfgFile, _ := flags.GetString("config")

	v := config.New(cfgFile)
	if err := bindFlags(v, flags); err != nil {
		return err
	}
	if err := config.ReadFile(v, cfgFile != ""); err != nil {
		return err
	}

	loaded, err := config.Load(v)
	if err != nil {
		return err
	}
	cfg = loaded

	if err := setupLogging(cfg.LogLevel); err != nil {
		return err
	}
	if used := v.ConfigFileUsed(); used != "" && fileExists(used) {
		slog.Debug("using config file", "path", used)
	}
	return nil
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %s: %w", name, err)
		}
	}
	return nil
}

// setupLogging sends text logs to stderr; stdout carries command output and,
// under serve, the MCP protocol
func setupLogging(level string) error {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(level))); err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
