// Package cmd implements the CLI commands for diagrampipe using Cobra.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/gaurav-prasanna/diagrampipe/core/config"
)

// Global flag variables.
var (
	flagConfig   string
	flagLogLevel string
)

// Set by the root command before any sub-command runs.
var (
	cfg    config.Config
	logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	runID  string
)

var rootCmd = &cobra.Command{
	Use:   "diagrampipe",
	Short: "diagrampipe — render Mermaid diagrams embedded in documentation",
	Long: `diagrampipe scans a documentation tree for fenced Mermaid blocks, keeps the
ones that are genuine diagram definitions and renders each to a PNG image.

Usage:
  diagrampipe render [root...] [flags]
  diagrampipe extract [root...] [flags]
  diagrampipe check`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "YAML config file (default: ./"+config.DefaultFile+" when present)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error")
}

// setup loads the configuration and builds the run logger.
func setup(cmd *cobra.Command, _ []string) error {
	loaded, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("log-level") {
		loaded.LogLevel = flagLogLevel
	}
	cfg = loaded

	runID = uuid.NewString()
	logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: cfg.Level(),
	})).With("run_id", runID)
	return nil
}

// Execute runs the root command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
