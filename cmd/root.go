// Package cmd provides CLI commands for txrank.
package cmd

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/adalundhe/txrank/core/config"
	"github.com/adalundhe/txrank/core/storage"
	"github.com/spf13/cobra"
)

// =============================================================================
// Root Command Flags
// =============================================================================

var (
	rootConfigPath string
	rootLogLevel   string
	rootLogFormat  string
)

// Populated by the root PersistentPreRunE before any subcommand runs.
var (
	activeConfig *config.Config
	logger       *slog.Logger
)

// =============================================================================
// Root Command
// =============================================================================

var rootCmd = &cobra.Command{
	Use:   "txrank",
	Short: "Score infector rankings against transmission histories",
	Long: `txrank counts how many onward transmissions each individual caused within a
time window and measures how well a ranking of individuals agrees with those
counts using Kendall's tau-b.

Pipeline:
  txrank count  --history hist.tsv.gz               # identity<TAB>count for every infector
  txrank match  --history hist.tsv --order order.txt # counts in the ranking's order
  txrank taub   --counts matched.tsv                 # tau<TAB>p-value
  txrank rank   --history hist.tsv --order order.txt # all of the above`,
	SilenceUsage:      true,
	PersistentPreRunE: setupRoot,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootConfigPath, "config", "", "Config file applied after the user and project config")
	pf.StringVar(&rootLogLevel, "log-level", "", "Log level: debug, info, warn, error (default from config: info)")
	pf.StringVar(&rootLogFormat, "log-format", "", "Log format: text or json (default from config: text)")
}

func Execute() error {
	return rootCmd.Execute()
}

// setupRoot loads configuration and builds the logger used by every subcommand.
func setupRoot(cmd *cobra.Command, _ []string) error {
	dirs, err := storage.ResolveDirs()
	if err != nil {
		return fmt.Errorf("resolve directories: %w", err)
	}

	mgr := config.NewManager(dirs, ".")
	if err := mgr.Load(rootConfigPath); err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	cfg := *mgr.Get()
	if rootLogLevel != "" {
		cfg.Log.Level = rootLogLevel
	}
	if rootLogFormat != "" {
		cfg.Log.Format = rootLogFormat
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	l, err := newLogger(cmd.ErrOrStderr(), cfg.Log)
	if err != nil {
		return err
	}

	activeConfig = &cfg
	logger = l
	return nil
}

func newLogger(w io.Writer, lc config.LogConfig) (*slog.Logger, error) {
	level, err := lc.SlogLevel()
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch lc.Format {
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler), nil
}
