// Package report encodes and summarizes run reports.
// Encoded reports are checked against an embedded JSON Schema so that
// consumers of the file can rely on its shape.
package report

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/gaurav-prasanna/diagrampipe/core"
)

//go:embed report.schema.json
var schema string

// ErrSchema is wrapped by Encode when the report does not match the schema.
var ErrSchema = errors.New("report does not match schema")

// document is the on-disk form of a run report.
type document struct {
	RunID string `json:"run_id,omitempty"`
	core.RunReport
}

// Schema returns the JSON Schema of encoded reports.
func Schema() string {
	return schema
}

// Encode renders report as indented JSON tagged with runID.
func Encode(report core.RunReport, runID string) ([]byte, error) {
	if report.Details == nil {
		report.Details = []core.DocumentReport{}
	}
	for i := range report.Details {
		if report.Details[i].Images == nil {
			report.Details[i].Images = []core.Image{}
		}
		if report.Details[i].Failures == nil {
			report.Details[i].Failures = []core.Failure{}
		}
	}

	data, err := json.MarshalIndent(document{RunID: runID, RunReport: report}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling report: %w", err)
	}
	if err := Validate(data); err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// Validate checks encoded report JSON against the schema.
func Validate(data []byte) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return fmt.Errorf("loading report schema: %w", err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		msgs = append(msgs, field+": "+desc.Description())
	}
	return fmt.Errorf("%w: %s", ErrSchema, strings.Join(msgs, "; "))
}

// Summary prints the end-of-run summary.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func Summary(w io.Writer, report core.RunReport) {
	fmt.Fprintf(w, "\nSummary:\n")
	fmt.Fprintf(w, "  Documents processed:  %d\n", report.Documents)
	fmt.Fprintf(w, "  No valid diagrams:    %d\n", report.Empty())
	if report.Skipped > 0 {
		fmt.Fprintf(w, "  Unreadable:           %d\n", report.Skipped)
	}
	fmt.Fprintf(w, "  Diagrams found:       %d (%d valid)\n", report.Candidates, report.Valid)
	fmt.Fprintf(w, "  Images generated:     %d\n", report.Rendered)
	fmt.Fprintf(w, "  Images failed:        %d\n", report.Failed)

	if report.Failed == 0 {
		return
	}
	fmt.Fprintf(w, "\nFailed images:\n")
	for _, d := range report.Details {
		for _, f := range d.Failures {
			fmt.Fprintf(w, "  ✗ %s (%s)\n", f.Output, d.Path)
		}
	}
}
