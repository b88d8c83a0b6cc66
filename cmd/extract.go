// Package cmd — extract command.
// A dry run of the pipeline: lists every fenced block with its validity,
// kind and the image name it would get, without invoking a renderer.
package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gaurav-prasanna/diagrampipe/core/batch"
	"github.com/gaurav-prasanna/diagrampipe/core/extract"
	"github.com/gaurav-prasanna/diagrampipe/core/output"
	"github.com/gaurav-prasanna/diagrampipe/core/validate"
	"github.com/gaurav-prasanna/diagrampipe/corpus"
)

var flagWrite bool

var extractCmd = &cobra.Command{
	Use:   "extract [root...]",
	Short: "List the Mermaid blocks found in the documentation",
	Long: `Extract scans the documentation like render does and lists each fenced block:
its index, whether it is a valid diagram, its kind and its would-be image name.

With --write, valid diagram sources are saved as {document}-{n}.mmd files.

Examples:
  diagrampipe extract docs
  diagrampipe extract docs --write --output_dir sources`,
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	addCorpusFlags(extractCmd)
	extractCmd.Flags().BoolVar(&flagWrite, "write", false, "Save valid diagram sources as .mmd files")
}

func runExtract(cmd *cobra.Command, args []string) error {
	if err := applyFlags(cmd, &cfg); err != nil {
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
	orch := batch.New(batch.Options{
		Extractor: extract.New(cfg.Tag),
		Validator: validate.New(cfg.MinLength),
		Namer:     writer,
		Logger:    logger,
	})

	ctx := cmd.Context()
	docs, err := source.Documents(ctx)
	if err != nil {
		return fmt.Errorf("enumerating documents: %w", err)
	}
	docs = orch.Disambiguate(docs)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Found %d documents to scan\n", len(docs))

	var candidates, valid int
	for i, doc := range docs {
		fmt.Fprintf(out, "[%d/%d] %s\n", i+1, len(docs), doc.RelPath)

		loaded, err := source.Load(ctx, doc)
		if err != nil {
			fmt.Fprintf(out, "  ✗ Error: %v\n", err)
			continue
		}
		loaded.Base = doc.Base
		doc = loaded

		for _, d := range orch.Diagrams(doc) {
			candidates++
			if !d.Valid {
				fmt.Fprintf(out, "  #%d invalid\n", d.Index)
				continue
			}
			valid++

			if !flagWrite {
				fmt.Fprintf(out, "  #%d %s → %s\n", d.Index, d.Kind, filepath.Base(writer.ImagePath(doc, d.Sequence)))
				continue
			}
			path, err := writer.WriteSource(doc, d.Sequence, d.Source)
			if err != nil {
				fmt.Fprintf(out, "  ✗ Write error: %v\n", err)
				continue
			}
			fmt.Fprintf(out, "  #%d %s ✓ Written: %s\n", d.Index, d.Kind, path)
		}
	}

	fmt.Fprintf(out, "\n%d blocks found, %d valid diagrams\n", candidates, valid)
	return nil
}
