package batch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/diagrampipe/core"
	"github.com/gaurav-prasanna/diagrampipe/core/extract"
	"github.com/gaurav-prasanna/diagrampipe/core/output"
	"github.com/gaurav-prasanna/diagrampipe/core/render"
	"github.com/gaurav-prasanna/diagrampipe/core/validate"
)

const fence = "```"

func block(body string) string {
	return fence + "mermaid\n" + body + "\n" + fence + "\n"
}

// memSource serves documents from memory.
type memSource struct {
	docs      []core.Document
	broken    map[string]bool
	listCalls int
}

func (s *memSource) Documents(context.Context) ([]core.Document, error) {
	s.listCalls++
	out := make([]core.Document, 0, len(s.docs))
	for _, d := range s.docs {
		d.Text = ""
		out = append(out, d)
	}
	return out, nil
}

func (s *memSource) Load(_ context.Context, doc core.Document) (core.Document, error) {
	if s.broken[doc.RelPath] {
		return doc, errors.New("permission denied")
	}
	for _, d := range s.docs {
		if d.RelPath == doc.RelPath {
			return d, nil
		}
	}
	return doc, fmt.Errorf("unknown document %s", doc.RelPath)
}

func doc(rel, text string) core.Document {
	base := strings.TrimSuffix(filepath.Base(rel), filepath.Ext(rel))
	return core.Document{Path: rel, RelPath: rel, Base: base, Text: text}
}

// fakeRenderer records jobs and fails sources containing FAIL.
type fakeRenderer struct {
	checkErr error

	mu   sync.Mutex
	jobs []string
}

func (r *fakeRenderer) Check(context.Context) error { return r.checkErr }

func (r *fakeRenderer) Render(_ context.Context, source, output string) error {
	r.mu.Lock()
	r.jobs = append(r.jobs, output)
	r.mu.Unlock()
	if strings.Contains(source, "FAIL") {
		return &render.Error{Output: output, Message: "renderer failed", Detail: "Parse error"}
	}
	return nil
}

// flatNamer names images without a directory.
type flatNamer struct{}

func (flatNamer) ImagePath(doc core.Document, seq int) string {
	return fmt.Sprintf("%s-%d.png", doc.Base, seq)
}

func newOrchestrator(r core.Renderer, jobs int, progress *bytes.Buffer) *Orchestrator {
	opts := Options{
		Extractor: extract.New("mermaid"),
		Validator: validate.New(validate.DefaultMinLength),
		Renderer:  r,
		Namer:     flatNamer{},
		Jobs:      jobs,
	}
	if progress != nil {
		opts.Progress = progress
	}
	return New(opts)
}

func TestRunCleanDiagram(t *testing.T) {
	src := &memSource{docs: []core.Document{
		doc("docname.md", "# Doc\n\n"+block("graph TD\n A --> B")),
	}}
	r := &fakeRenderer{}

	report, err := newOrchestrator(r, 1, nil).Run(context.Background(), src)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Documents)
	assert.Equal(t, 1, report.Candidates)
	assert.Equal(t, 1, report.Rendered)
	assert.Equal(t, 0, report.Failed)
	assert.Equal(t, []string{"docname-1.png"}, r.jobs)
	assert.Equal(t, []core.Image{{Path: "docname-1.png", Sequence: 1}}, report.Details[0].Images)
}

func TestRunProseMention(t *testing.T) {
	src := &memSource{docs: []core.Document{
		doc("guide.md", "Start a block with `mermaid` after three backticks.\n"),
	}}
	r := &fakeRenderer{}
	var progress bytes.Buffer

	report, err := newOrchestrator(r, 1, &progress).Run(context.Background(), src)
	require.NoError(t, err)

	assert.Equal(t, 0, report.Candidates)
	assert.Equal(t, 0, report.Failed)
	assert.Empty(t, r.jobs)
	assert.Equal(t, 1, report.Empty())
	assert.Contains(t, progress.String(), "No valid diagrams found")
}

func TestRunMixedValidInvalid(t *testing.T) {
	src := &memSource{docs: []core.Document{
		doc("mixed.md",
			block("graph TD\n  A --> B")+
				"\ntext\n\n"+
				block("diagram TD\n  A --> B")+
				"\nmore\n\n"+
				block("sequenceDiagram\n  A->>B: hi")),
	}}
	r := &fakeRenderer{}
	o := newOrchestrator(r, 1, nil)

	report, err := o.Run(context.Background(), src)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Candidates)
	assert.Equal(t, 2, report.Valid)
	assert.Equal(t, 2, report.Rendered)
	assert.Equal(t, 0, report.Failed)
	assert.Equal(t, []string{"mixed-1.png", "mixed-2.png"}, r.jobs)

	diagrams := o.Diagrams(src.docs[0])
	require.Len(t, diagrams, 3)
	assert.Equal(t, []int{1, 2, 3}, []int{diagrams[0].Index, diagrams[1].Index, diagrams[2].Index})
	assert.Equal(t, []int{1, 0, 2}, []int{diagrams[0].Sequence, diagrams[1].Sequence, diagrams[2].Sequence})
	assert.Equal(t, core.KindSequence, diagrams[2].Kind)
}

func TestRunFailureDoesNotStopBatch(t *testing.T) {
	src := &memSource{docs: []core.Document{
		doc("a.md", block("graph TD\n  FAIL --> B")+block("graph TD\n  C --> D")),
		doc("b.md", block("pie\n  \"x\": 1\n  \"y\": 2")),
	}}
	r := &fakeRenderer{}
	var progress bytes.Buffer

	report, err := newOrchestrator(r, 1, &progress).Run(context.Background(), src)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Documents)
	assert.Equal(t, 2, report.Rendered)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, []string{"a-1.png", "a-2.png", "b-1.png"}, r.jobs)

	require.Len(t, report.Details[0].Failures, 1)
	assert.Equal(t, "a-1.png", report.Details[0].Failures[0].Output)
	assert.Contains(t, report.Details[0].Failures[0].Error, "Parse error")
	assert.Contains(t, progress.String(), "✗ Failed: a-1.png")
	assert.Contains(t, progress.String(), "✓ Generated: b-1.png")
}

func TestRunRendererUnavailable(t *testing.T) {
	src := &memSource{docs: []core.Document{doc("a.md", block("graph TD\n  A --> B"))}}
	r := &fakeRenderer{checkErr: errors.New("mmdc not found")}

	report, err := newOrchestrator(r, 1, nil).Run(context.Background(), src)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRendererUnavailable))
	assert.Equal(t, 0, report.Documents)
	assert.Equal(t, 0, src.listCalls)
	assert.Empty(t, r.jobs)
}

func TestRunUnreadableDocument(t *testing.T) {
	src := &memSource{
		docs: []core.Document{
			doc("a.md", block("graph TD\n  A --> B")),
			doc("b.md", block("graph TD\n  C --> D")),
		},
		broken: map[string]bool{"a.md": true},
	}
	r := &fakeRenderer{}

	report, err := newOrchestrator(r, 1, nil).Run(context.Background(), src)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Documents)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 1, report.Rendered)
	assert.Equal(t, 0, report.Failed)
	assert.Contains(t, report.Details[0].Error, "permission denied")
}

func TestRunIdempotentAndParallelMatchesSequential(t *testing.T) {
	var docs []core.Document
	for i := 0; i < 12; i++ {
		text := block("graph TD\n  A --> B")
		if i%3 == 0 {
			text += block("flowchart LR\n  FAIL")
		}
		if i%4 == 0 {
			text += block("not a diagram at all")
		}
		text += block("gantt\n  title Plan")
		docs = append(docs, doc(fmt.Sprintf("doc%02d.md", i), text))
	}
	src := &memSource{docs: docs}

	first, err := newOrchestrator(&fakeRenderer{}, 1, nil).Run(context.Background(), src)
	require.NoError(t, err)
	second, err := newOrchestrator(&fakeRenderer{}, 1, nil).Run(context.Background(), src)
	require.NoError(t, err)
	parallel, err := newOrchestrator(&fakeRenderer{}, 4, nil).Run(context.Background(), src)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, first, parallel)
	assert.Equal(t, 12, first.Documents)
	assert.Equal(t, 4, first.Failed)
	assert.Equal(t, 24, first.Rendered)
}

func TestRunSequenceNumbersAreDense(t *testing.T) {
	var text strings.Builder
	for i := 0; i < 5; i++ {
		text.WriteString(block("graph TD\n  A --> B"))
		text.WriteString(block("short"))
	}
	src := &memSource{docs: []core.Document{doc("dense.md", text.String())}}
	r := &fakeRenderer{}

	_, err := newOrchestrator(r, 1, nil).Run(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t,
		[]string{"dense-1.png", "dense-2.png", "dense-3.png", "dense-4.png", "dense-5.png"},
		r.jobs)
}

func TestRunCancelled(t *testing.T) {
	src := &memSource{docs: []core.Document{doc("a.md", block("graph TD\n  A --> B"))}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newOrchestrator(&fakeRenderer{}, 1, nil).Run(ctx, src)
	assert.True(t, errors.Is(err, context.Canceled))
}

// overlapRenderer reports any output path rendered by two jobs at once.
type overlapRenderer struct {
	mu      sync.Mutex
	active  map[string]int
	overlap []string
	outputs []string
}

func (r *overlapRenderer) Check(context.Context) error { return nil }

func (r *overlapRenderer) Render(_ context.Context, _ string, out string) error {
	r.mu.Lock()
	if r.active == nil {
		r.active = map[string]int{}
	}
	if r.active[out] > 0 {
		r.overlap = append(r.overlap, out)
	}
	r.active[out]++
	r.outputs = append(r.outputs, out)
	r.mu.Unlock()

	time.Sleep(20 * time.Millisecond)

	r.mu.Lock()
	r.active[out]--
	r.mu.Unlock()
	return nil
}

func TestRunSameBaseNameGetsDistinctOutputs(t *testing.T) {
	outDir := t.TempDir()
	writer, err := output.New(outDir)
	require.NoError(t, err)

	src := &memSource{docs: []core.Document{
		doc("a.markdown", block("graph TD\n  A --> B")),
		doc("a.md", block("graph TD\n  C --> D")),
	}}
	r := &overlapRenderer{}
	o := New(Options{
		Extractor: extract.New("mermaid"),
		Validator: validate.New(validate.DefaultMinLength),
		Renderer:  r,
		Namer:     writer,
		Jobs:      2,
	})

	report, err := o.Run(context.Background(), src)
	require.NoError(t, err)

	assert.Empty(t, r.overlap)
	assert.ElementsMatch(t, []string{
		filepath.Join(outDir, "a-1.png"),
		filepath.Join(outDir, "a-md-1.png"),
	}, r.outputs)
	assert.Equal(t, 2, report.Rendered)
	assert.Equal(t, "a", report.Details[0].Base)
	assert.Equal(t, "a-md", report.Details[1].Base)
	assert.Equal(t, filepath.Join(outDir, "a-md-1.png"), report.Details[1].Images[0].Path)
}

func TestDisambiguate(t *testing.T) {
	o := newOrchestrator(&fakeRenderer{}, 1, nil)

	docs := o.Disambiguate([]core.Document{
		{Path: "docs1/a.md", RelPath: "a.md", Base: "a"},
		{Path: "docs2/a.md", RelPath: "a.md", Base: "a"},
		{Path: "docs3/a.md", RelPath: "a.md", Base: "a"},
		{Path: "a-md.md", RelPath: "a-md.md", Base: "a-md"},
		{Path: "A.html", RelPath: "A.html", Base: "A"},
		{Path: "b.md", RelPath: "b.md", Base: "b"},
	})

	bases := make([]string, 0, len(docs))
	for _, d := range docs {
		bases = append(bases, d.Base)
	}
	assert.Equal(t, []string{"a", "a-md-2", "a-md-3", "a-md", "A-html", "b"}, bases)
}

// countingExtractor counts how often the CommonMark cross-check asks for its tag.
type countingExtractor struct {
	*extract.FenceExtractor
	tagCalls atomic.Int32
}

func (e *countingExtractor) Tag() string {
	e.tagCalls.Add(1)
	return e.FenceExtractor.Tag()
}

func TestRunCrossCheckOnlyAtDebugLevel(t *testing.T) {
	// A fence nested in a list item: CommonMark reads it, the extractor does not.
	text := "- item\n\n  " + fence + "mermaid\n  graph TD\n    A --> B\n  " + fence + "\n"
	src := &memSource{docs: []core.Document{doc("nested.md", text)}}

	run := func(level slog.Level) (*countingExtractor, string) {
		var logs bytes.Buffer
		ex := &countingExtractor{FenceExtractor: extract.New("mermaid")}
		o := New(Options{
			Extractor: ex,
			Validator: validate.New(validate.DefaultMinLength),
			Renderer:  &fakeRenderer{},
			Namer:     flatNamer{},
			Logger:    slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: level})),
		})
		_, err := o.Run(context.Background(), src)
		require.NoError(t, err)
		return ex, logs.String()
	}

	ex, logs := run(slog.LevelInfo)
	assert.Zero(t, ex.tagCalls.Load())
	assert.NotContains(t, logs, "fence count differs")

	ex, logs = run(slog.LevelDebug)
	assert.Positive(t, ex.tagCalls.Load())
	assert.Contains(t, logs, "fence count differs")
}
