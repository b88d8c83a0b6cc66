// Package cmd — render command.
// This is the main command that orchestrates the pipeline:
// check renderer → scan → extract → validate → render → summarize.
package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gaurav-prasanna/diagrampipe/core/batch"
	"github.com/gaurav-prasanna/diagrampipe/core/extract"
	"github.com/gaurav-prasanna/diagrampipe/core/output"
	"github.com/gaurav-prasanna/diagrampipe/core/render"
	"github.com/gaurav-prasanna/diagrampipe/core/report"
	"github.com/gaurav-prasanna/diagrampipe/core/validate"
	"github.com/gaurav-prasanna/diagrampipe/corpus"
)

// ErrRenderFailures is returned in --strict mode when any diagram failed.
var ErrRenderFailures = errors.New("some diagrams failed to render")

var (
	flagPDF    string
	flagReport string
	flagStrict bool
)

var renderCmd = &cobra.Command{
	Use:   "render [root...]",
	Short: "Render every Mermaid diagram in the documentation to PNG",
	Long: `Render scans the given files and directories (default: the current directory)
for fenced Mermaid blocks and renders each valid diagram to
{output_dir}/{dir}/{document}-{n}.png.

Invalid blocks are skipped. A diagram that fails to render is reported and
the run continues.

Examples:
  diagrampipe render docs
  diagrampipe render docs --output_dir images --exclude README.md,CHANGELOG.md
  diagrampipe render --renderer ink --theme dark
  diagrampipe render docs --jobs 4 --report run.json --pdf diagrams.pdf`,
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)

	addCorpusFlags(renderCmd)
	addRendererFlags(renderCmd)
	renderCmd.Flags().IntVar(&flagJobs, "jobs", 1, "Documents rendered concurrently")

	renderCmd.Flags().StringVar(&flagPDF, "pdf", "", "Also bundle the images into this PDF file")
	renderCmd.Flags().StringVar(&flagReport, "report", "", "Write a JSON run report to this file")
	renderCmd.Flags().BoolVar(&flagStrict, "strict", false, "Exit non-zero if any diagram failed to render")
}

func runRender(cmd *cobra.Command, args []string) error {
	if err := applyFlags(cmd, &cfg); err != nil {
		return err
	}

	renderer, err := selectRenderer(cfg)
	if err != nil {
		return err
	}

	writer, err := output.New(cfg.OutputDir)
	if err != nil {
		return fmt.Errorf("initializing output writer: %w", err)
	}

	source := corpus.New(corpus.Options{
		Roots:      args,
		Exclude:    cfg.Exclude,
		Extensions: cfg.Extensions,
		Tag:        cfg.Tag,
	})

	out := cmd.OutOrStdout()
	orch := batch.New(batch.Options{
		Extractor: extract.New(cfg.Tag),
		Validator: validate.New(cfg.MinLength),
		Renderer:  renderer,
		Namer:     writer,
		Jobs:      cfg.Jobs,
		Logger:    logger,
		Progress:  out,
	})

	logger.Info("run started", "renderer", cfg.Renderer, "output_dir", writer.OutputDir, "jobs", cfg.Jobs)
	rep, err := orch.Run(cmd.Context(), source)
	if err != nil {
		return err
	}
	report.Summary(out, rep)

	if flagPDF != "" {
		err := render.NewPDFBundler("Diagrams").Bundle(rep, flagPDF)
		switch {
		case errors.Is(err, render.ErrNothingToBundle):
			fmt.Fprintf(out, "  - No images to bundle into %s\n", flagPDF)
		case err != nil:
			return err
		default:
			fmt.Fprintf(out, "✓ Written: %s\n", flagPDF)
		}
	}

	if flagReport != "" {
		data, err := report.Encode(rep, runID)
		if err != nil {
			return err
		}
		if err := writer.WriteFile(flagReport, data); err != nil {
			return err
		}
		fmt.Fprintf(out, "✓ Written: %s\n", flagReport)
	}

	if flagStrict && rep.Failed > 0 {
		return fmt.Errorf("%w: %d of %d", ErrRenderFailures, rep.Failed, rep.Valid)
	}
	return nil
}
