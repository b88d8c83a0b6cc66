// Package cmd — check command.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gaurav-prasanna/diagrampipe/core/render"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify that the configured renderer is available",
	Args:  cobra.NoArgs,
	RunE:  runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	addRendererFlags(checkCmd)
}

func runCheck(cmd *cobra.Command, _ []string) error {
	if err := applyFlags(cmd, &cfg); err != nil {
		return err
	}

	renderer, err := selectRenderer(cfg)
	if err != nil {
		return err
	}
	if err := renderer.Check(cmd.Context()); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Renderer %s: %s\n", cfg.Renderer, renderer.Path())

	if cli, ok := renderer.(*render.CLI); ok {
		version, err := cli.Version(cmd.Context())
		if err != nil {
			logger.Warn("renderer version unknown", "error", err)
			return nil
		}
		fmt.Fprintf(out, "  Version: %s\n", version)
	}
	return nil
}
