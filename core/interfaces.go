// Package core defines the pipeline types and interfaces for diagrampipe.
// Each stage of the pipeline is a clean, testable interface.
package core

import "context"

// Document is one documentation file read for a run.
type Document struct {
	Path    string // path as enumerated on disk
	RelPath string // path relative to the scanned root, slash separated
	Base    string // file name without extension
	Text    string // full (normalized) text
}

// Candidate is a raw fenced block found by the Extractor.
type Candidate struct {
	Document string `json:"document"`
	Index    int    `json:"index"` // 1-based, over all raw blocks of the document
	Source   string `json:"source"`
}

// Diagram is a Candidate annotated by the Validator.
type Diagram struct {
	Candidate
	Valid bool `json:"valid"`
	Kind  Kind `json:"kind"`
	// Sequence is the dense 1-based number among valid diagrams of the
	// document. Zero for invalid diagrams.
	Sequence int `json:"sequence"`
}

// RenderJob pairs a valid diagram with its output artifact path.
type RenderJob struct {
	Diagram Diagram
	Output  string
}

// Failure records one render job that did not produce an image.
type Failure struct {
	Output string `json:"output"`
	Error  string `json:"error"`
}

// Image is one rendered diagram.
type Image struct {
	Path     string `json:"path"`
	Sequence int    `json:"sequence"`
}

// DocumentReport holds the counts for one document.
type DocumentReport struct {
	Path       string    `json:"path"`
	Base       string    `json:"base"`
	Candidates int       `json:"candidates"`
	Valid      int       `json:"valid"`
	Rendered   int       `json:"rendered"`
	Failed     int       `json:"failed"`
	Images     []Image   `json:"images"`
	Failures   []Failure `json:"failures"`
	Error      string    `json:"error,omitempty"` // set when the document could not be read
}

// RunReport aggregates a whole run. It is a value: the orchestrator builds
// it by reducing per-document reports and returns it once.
type RunReport struct {
	Documents  int              `json:"documents"`
	Candidates int              `json:"candidates"`
	Valid      int              `json:"valid"`
	Rendered   int              `json:"rendered"`
	Failed     int              `json:"failed"`
	Skipped    int              `json:"skipped"` // documents that could not be read
	Details    []DocumentReport `json:"details"`
}

// Add folds a document report into the run totals and returns the result.
func (r RunReport) Add(d DocumentReport) RunReport {
	r.Documents++
	r.Candidates += d.Candidates
	r.Valid += d.Valid
	r.Rendered += d.Rendered
	r.Failed += d.Failed
	if d.Error != "" {
		r.Skipped++
	}
	details := make([]DocumentReport, len(r.Details), len(r.Details)+1)
	copy(details, r.Details)
	r.Details = append(details, d)
	return r
}

// Empty reports the documents that had no valid diagrams.
func (r RunReport) Empty() int {
	n := 0
	for _, d := range r.Details {
		if d.Valid == 0 && d.Error == "" {
			n++
		}
	}
	return n
}

// Source enumerates the documents of a run, exclusions already applied.
type Source interface {
	// Documents lists documents in a stable order. Text is not loaded.
	Documents(ctx context.Context) ([]Document, error)
	// Load returns doc with its Text filled in.
	Load(ctx context.Context, doc Document) (Document, error)
}

// Extractor pulls raw fenced diagram sources out of a document's text.
type Extractor interface {
	Extract(text string) []string
}

// Validator decides whether a raw source is a genuine diagram definition.
type Validator interface {
	Validate(raw string) (Kind, bool)
}

// Renderer turns one diagram source into an image file.
type Renderer interface {
	// Check verifies the renderer can run at all. It is called once,
	// before any document is processed.
	Check(ctx context.Context) error
	// Render writes the image for source to output.
	Render(ctx context.Context, source string, output string) error
}

// Namer assigns output paths to valid diagrams.
type Namer interface {
	ImagePath(doc Document, seq int) string
}
