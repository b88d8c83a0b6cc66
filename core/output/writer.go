// Package output handles file naming and writing for diagrampipe outputs.
// Images are named {base}-{sequence}.png and mirror the document's
// sub-directory below the scanned root, so two documents sharing a base
// name in different directories never share an output path. Documents that
// would still collide are given distinct base names before rendering.
package output

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gaurav-prasanna/diagrampipe/core"
)

const (
	// ImageExt is the extension of rendered images.
	ImageExt = ".png"
	// SourceExt is the extension of exported diagram sources.
	SourceExt = ".mmd"
)

// Writer names and writes output files.
type Writer struct {
	OutputDir string
}

// New creates a Writer targeting the given output directory.
// If outputDir is empty, it defaults to the current working directory.
func New(outputDir string) (*Writer, error) {
	if outputDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("getting working directory: %w", err)
		}
		outputDir = wd
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	return &Writer{OutputDir: outputDir}, nil
}

// Name returns the file name for the seq-th valid diagram of doc.
func Name(doc core.Document, seq int, ext string) string {
	return fmt.Sprintf("%s-%d%s", doc.Base, seq, ext)
}

// ImagePath returns the image path for the seq-th valid diagram of doc.
func (w *Writer) ImagePath(doc core.Document, seq int) string {
	return filepath.Join(w.dirFor(doc), Name(doc, seq, ImageExt))
}

// SourcePath returns the exported source path for the seq-th valid diagram of doc.
func (w *Writer) SourcePath(doc core.Document, seq int) string {
	return filepath.Join(w.dirFor(doc), Name(doc, seq, SourceExt))
}

// WriteSource writes a diagram source file, creating parent directories.
func (w *Writer) WriteSource(doc core.Document, seq int, source string) (string, error) {
	path := w.SourcePath(doc, seq)
	if err := w.WriteFile(path, []byte(source+"\n")); err != nil {
		return "", err
	}
	return path, nil
}

// WriteFile writes data to path, creating parent directories.
func (w *Writer) WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing file %s: %w", path, err)
	}
	return nil
}

// dirFor mirrors the document's directory below the output root.
func (w *Writer) dirFor(doc core.Document) string {
	rel := filepath.Dir(filepath.FromSlash(doc.RelPath))
	if rel == "." || rel == "" || filepath.IsAbs(rel) || rel == ".." || hasParentPrefix(rel) {
		return w.OutputDir
	}
	return filepath.Join(w.OutputDir, rel)
}

func hasParentPrefix(rel string) bool {
	return len(rel) >= 3 && rel[:2] == ".." && os.IsPathSeparator(rel[2])
}
