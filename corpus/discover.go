// Package corpus enumerates the documentation files of a run.
// It walks each root in lexical order, applies the extension filter, the
// skipped directories and the exclusion denylist, and loads each document
// on demand, converting HTML pages to Markdown first.
package corpus

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gaurav-prasanna/diagrampipe/core"
	"github.com/gaurav-prasanna/diagrampipe/core/normalize"
)

// Options configures a Corpus.
type Options struct {
	Roots      []string // files or directories; defaults to "."
	Exclude    []string // denylist; nil means DefaultExclude
	Extensions []string // nil means DefaultExtensions
	SkipDirs   []string // extra directory names to skip
	Tag        string   // fence tag used when converting HTML
}

// Corpus is a filesystem-backed core.Source.
type Corpus struct {
	roots      []string
	exclude    map[string]bool
	extensions []string
	skipDirs   map[string]bool
	normalizer *normalize.MarkdownNormalizer
}

// New creates a Corpus.
func New(opts Options) *Corpus {
	roots := opts.Roots
	if len(roots) == 0 {
		roots = []string{"."}
	}
	exclude := opts.Exclude
	if exclude == nil {
		exclude = DefaultExclude
	}
	exts := opts.Extensions
	if len(exts) == 0 {
		exts = DefaultExtensions
	}

	c := &Corpus{
		roots:      roots,
		exclude:    make(map[string]bool, len(exclude)),
		extensions: exts,
		skipDirs:   make(map[string]bool, len(opts.SkipDirs)),
		normalizer: normalize.New(opts.Tag),
	}
	for _, e := range exclude {
		if e != "" {
			c.exclude[filepath.ToSlash(e)] = true
		}
	}
	for _, d := range opts.SkipDirs {
		c.skipDirs[d] = true
	}
	return c
}

// Documents lists every document below the roots, in walk order.
func (c *Corpus) Documents(ctx context.Context) ([]core.Document, error) {
	queue := NewQueue()
	for _, root := range c.roots {
		if err := c.walk(ctx, root, queue); err != nil {
			return nil, err
		}
	}

	docs := make([]core.Document, 0, queue.Len())
	for _, e := range queue.items {
		docs = append(docs, core.Document{
			Path:    e.path,
			RelPath: e.rel,
			Base:    BaseName(e.path),
		})
	}
	return docs, nil
}

// walk adds the documents below one root to the queue.
func (c *Corpus) walk(ctx context.Context, root string, queue *Queue) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("reading root %s: %w", root, err)
	}

	// A file named directly is scanned whatever its extension.
	if !info.IsDir() {
		rel := filepath.Base(root)
		if !IsExcluded(rel, c.exclude) {
			queue.Add(root, rel)
		}
		return nil
	}

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if d.IsDir() {
			if path != root && IsSkippedDir(d.Name(), c.skipDirs) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !IsDocument(path, c.extensions) {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if IsExcluded(rel, c.exclude) {
			return nil
		}
		queue.Add(path, rel)
		return nil
	})
}

// Load reads doc from disk. HTML pages are converted to Markdown.
func (c *Corpus) Load(_ context.Context, doc core.Document) (core.Document, error) {
	data, err := os.ReadFile(doc.Path)
	if err != nil {
		return doc, fmt.Errorf("reading %s: %w", doc.Path, err)
	}

	doc.Text = string(data)
	if IsHTML(doc.Path) {
		md, err := c.normalizer.Normalize(doc.Text)
		if err != nil {
			return doc, fmt.Errorf("normalizing %s: %w", doc.Path, err)
		}
		doc.Text = md
	}
	return doc, nil
}
