// Package batch orchestrates a run:
// check renderer → enumerate → (per document) load → extract → validate → render.
//
// Documents are independent. They run one at a time by default, or
// concurrently when Jobs > 1; the diagrams of one document always render
// in order. Reports are reduced in enumeration order either way, so a
// parallel run reports exactly what a sequential one would.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/gaurav-prasanna/diagrampipe/core"
	"github.com/gaurav-prasanna/diagrampipe/core/extract"
	"github.com/gaurav-prasanna/diagrampipe/core/render"
)

// ErrRendererUnavailable is returned by Run when the precondition check fails.
var ErrRendererUnavailable = render.ErrRendererUnavailable

// Options wires the pipeline stages together.
type Options struct {
	Extractor core.Extractor
	Validator core.Validator
	Renderer  core.Renderer
	Namer     core.Namer
	Jobs      int          // documents processed concurrently; <= 1 is sequential
	Logger    *slog.Logger // structured diagnostics; nil discards
	Progress  io.Writer    // human progress lines; nil discards
}

// Orchestrator runs the batch.
type Orchestrator struct {
	opts Options
	log  *slog.Logger

	mu  sync.Mutex // guards Progress
	out io.Writer
}

// New creates an Orchestrator.
func New(opts Options) *Orchestrator {
	if opts.Jobs < 1 {
		opts.Jobs = 1
	}
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	out := opts.Progress
	if out == nil {
		out = io.Discard
	}
	return &Orchestrator{opts: opts, log: log, out: out}
}

// Run processes every document of source and returns the run report.
// Only a failed renderer check, a failed enumeration or a cancelled
// context end a run early; render failures are counted and skipped.
func (o *Orchestrator) Run(ctx context.Context, source core.Source) (core.RunReport, error) {
	if err := o.opts.Renderer.Check(ctx); err != nil {
		if !errors.Is(err, ErrRendererUnavailable) {
			err = fmt.Errorf("%w: %v", ErrRendererUnavailable, err)
		}
		return core.RunReport{}, err
	}

	docs, err := source.Documents(ctx)
	if err != nil {
		return core.RunReport{}, fmt.Errorf("enumerating documents: %w", err)
	}
	docs = o.Disambiguate(docs)
	o.log.Info("documents found", "count", len(docs))
	o.printf("Found %d documents to process\n", len(docs))

	results := make([]core.DocumentReport, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.opts.Jobs)
	for i, doc := range docs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = o.processDocument(gctx, source, doc)
			o.printDocument(i+1, len(docs), results[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return reduce(results[:completed(results)]), err
	}
	if err := ctx.Err(); err != nil {
		return reduce(results), err
	}

	report := reduce(results)
	o.log.Info("run finished",
		"documents", report.Documents,
		"candidates", report.Candidates,
		"rendered", report.Rendered,
		"failed", report.Failed,
	)
	return report, nil
}

// processDocument runs one document through the pipeline:
// Scanned → Extracted → Validated → Rendered.
func (o *Orchestrator) processDocument(ctx context.Context, source core.Source, doc core.Document) core.DocumentReport {
	rep := core.DocumentReport{
		Path:     doc.RelPath,
		Base:     doc.Base,
		Images:   []core.Image{},
		Failures: []core.Failure{},
	}
	if rep.Path == "" {
		rep.Path = filepath.ToSlash(doc.Path)
	}

	loaded, err := source.Load(ctx, doc)
	if err != nil {
		o.log.Error("document unreadable", "document", rep.Path, "error", err)
		rep.Error = err.Error()
		return rep
	}
	loaded.Base = doc.Base
	doc = loaded

	diagrams := o.Diagrams(doc)
	rep.Candidates = len(diagrams)

	if o.log.Enabled(ctx, slog.LevelDebug) {
		o.crossCheck(rep.Path, doc.Text, len(diagrams))
	}

	for _, d := range diagrams {
		if !d.Valid {
			continue
		}
		rep.Valid++

		job := core.RenderJob{Diagram: d, Output: o.opts.Namer.ImagePath(doc, d.Sequence)}
		if err := o.opts.Renderer.Render(ctx, d.Source, job.Output); err != nil {
			o.logFailure(rep.Path, job, err)
			rep.Failed++
			rep.Failures = append(rep.Failures, core.Failure{Output: job.Output, Error: err.Error()})
			continue
		}
		o.log.Debug("diagram rendered", "document", rep.Path, "kind", d.Kind.String(), "output", job.Output)
		rep.Rendered++
		rep.Images = append(rep.Images, core.Image{Path: job.Output, Sequence: d.Sequence})
	}
	return rep
}

// crossCheck logs when a CommonMark reading finds a different number of
// diagram fences than the extractor did.
func (o *Orchestrator) crossCheck(path, text string, extracted int) {
	tagged, ok := o.opts.Extractor.(interface{ Tag() string })
	if !ok {
		return
	}
	if n := extract.CountFenced(text, tagged.Tag()); n != extracted {
		o.log.Debug("fence count differs from CommonMark reading",
			"document", path, "extracted", extracted, "commonmark", n)
	}
}

// Disambiguate returns docs with a distinct Base for every document whose
// images would land on another document's output paths (a.md next to
// a.markdown, or the same relative path under two roots). The first
// document in enumeration order keeps its name; later ones get their
// extension appended ("a-markdown"), then a counter if that is taken too.
// Names compare case-insensitively.
func (o *Orchestrator) Disambiguate(docs []core.Document) []core.Document {
	if o.opts.Namer == nil {
		return docs
	}
	key := func(d core.Document) string {
		return strings.ToLower(o.opts.Namer.ImagePath(d, 1))
	}

	taken := make(map[string]bool, len(docs))
	for _, d := range docs {
		taken[key(d)] = true
	}

	owned := make(map[string]bool, len(docs))
	out := make([]core.Document, len(docs))
	for i, d := range docs {
		k := key(d)
		if !owned[k] {
			owned[k] = true
			out[i] = d
			continue
		}

		base := d.Base
		ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(d.Path)), ".")
		for n := 1; ; n++ {
			d.Base = renamed(base, ext, n)
			if k = key(d); !taken[k] {
				break
			}
		}
		taken[k] = true
		owned[k] = true
		o.log.Warn("output name already used, renaming",
			"document", d.RelPath, "path", d.Path, "base", d.Base)
		out[i] = d
	}
	return out
}

func renamed(base, ext string, n int) string {
	name := base
	if ext != "" {
		name += "-" + ext
	}
	if n > 1 {
		name += "-" + strconv.Itoa(n)
	}
	return name
}

// Diagrams extracts and validates the blocks of doc. Every raw block gets
// an Index; valid blocks get a dense Sequence starting at 1.
func (o *Orchestrator) Diagrams(doc core.Document) []core.Diagram {
	raw := o.opts.Extractor.Extract(doc.Text)
	diagrams := make([]core.Diagram, 0, len(raw))
	seq := 0
	for i, src := range raw {
		d := core.Diagram{
			Candidate: core.Candidate{Document: doc.RelPath, Index: i + 1, Source: src},
		}
		d.Kind, d.Valid = o.opts.Validator.Validate(src)
		if d.Valid {
			seq++
			d.Sequence = seq
		}
		diagrams = append(diagrams, d)
	}
	return diagrams
}

func (o *Orchestrator) logFailure(doc string, job core.RenderJob, err error) {
	attrs := []any{
		"document", doc,
		"output", filepath.Base(job.Output),
		"kind", job.Diagram.Kind.String(),
		"error", err,
	}
	if live, lerr := render.LiveURL(job.Diagram.Source); lerr == nil {
		attrs = append(attrs, "editor", live)
	}
	o.log.Error("render failed", attrs...)
}

func (o *Orchestrator) printDocument(i, n int, rep core.DocumentReport) {
	o.mu.Lock()
	defer o.mu.Unlock()

	fmt.Fprintf(o.out, "[%d/%d] %s\n", i, n, rep.Path)
	switch {
	case rep.Error != "":
		fmt.Fprintf(o.out, "  ✗ Error: %s\n", rep.Error)
	case rep.Valid == 0:
		fmt.Fprintf(o.out, "  - No valid diagrams found\n")
	default:
		for _, img := range rep.Images {
			fmt.Fprintf(o.out, "  ✓ Generated: %s\n", filepath.Base(img.Path))
		}
		for _, f := range rep.Failures {
			fmt.Fprintf(o.out, "  ✗ Failed: %s: %s\n", filepath.Base(f.Output), f.Error)
		}
	}
}

func (o *Orchestrator) printf(format string, args ...any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	fmt.Fprintf(o.out, format, args...)
}

// completed returns the length of the leading run of finished documents.
func completed(results []core.DocumentReport) int {
	for i, r := range results {
		if r.Path == "" {
			return i
		}
	}
	return len(results)
}

func reduce(results []core.DocumentReport) core.RunReport {
	report := core.RunReport{Details: []core.DocumentReport{}}
	for _, r := range results {
		report = report.Add(r)
	}
	return report
}
