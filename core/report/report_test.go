package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/diagrampipe/core"
)

func sampleReport() core.RunReport {
	return core.RunReport{}.
		Add(core.DocumentReport{
			Path: "a.md", Base: "a", Candidates: 3, Valid: 2, Rendered: 1, Failed: 1,
			Images:   []core.Image{{Path: "out/a-2.png", Sequence: 2}},
			Failures: []core.Failure{{Output: "out/a-1.png", Error: "render a-1.png: renderer failed"}},
		}).
		Add(core.DocumentReport{Path: "b.md", Base: "b"}).
		Add(core.DocumentReport{Path: "c.md", Base: "c", Error: "permission denied"})
}

func TestEncode(t *testing.T) {
	data, err := Encode(sampleReport(), "run-1")
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "run-1", decoded["run_id"])
	assert.EqualValues(t, 3, decoded["documents"])
	assert.EqualValues(t, 1, decoded["failed"])
	assert.EqualValues(t, 1, decoded["skipped"])

	details := decoded["details"].([]any)
	require.Len(t, details, 3)
	assert.Equal(t, []any{}, details[1].(map[string]any)["images"])

	images := details[0].(map[string]any)["images"].([]any)
	require.Len(t, images, 1)
	assert.EqualValues(t, 2, images[0].(map[string]any)["sequence"])
}

func TestEncodeEmptyReport(t *testing.T) {
	_, err := Encode(core.RunReport{}, "")
	assert.NoError(t, err)
}

func TestValidateRejectsBadReport(t *testing.T) {
	err := Validate([]byte(`{"documents": -1, "candidates": 0, "valid": 0, "rendered": 0, "failed": 0, "skipped": 0, "details": []}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSchema))

	err = Validate([]byte(`{"documents": 1, "candidates": 1, "valid": 1, "rendered": 1, "failed": 0, "skipped": 0, "details": [
		{"path": "a.md", "base": "a", "candidates": 1, "valid": 1, "rendered": 1, "failed": 0, "images": ["a-1.png"], "failures": []}]}`))
	assert.True(t, errors.Is(err, ErrSchema))

	err = Validate([]byte(`{"documents": 1}`))
	assert.True(t, errors.Is(err, ErrSchema))
}

func TestSummary(t *testing.T) {
	var buf bytes.Buffer
	Summary(&buf, sampleReport())

	out := buf.String()
	assert.Contains(t, out, "Documents processed:  3")
	assert.Contains(t, out, "No valid diagrams:    1")
	assert.Contains(t, out, "Unreadable:           1")
	assert.Contains(t, out, "Images generated:     1")
	assert.Contains(t, out, "Images failed:        1")
	assert.Contains(t, out, "✗ out/a-1.png (a.md)")
}

func TestSummaryNoFailures(t *testing.T) {
	var buf bytes.Buffer
	Summary(&buf, core.RunReport{}.Add(core.DocumentReport{Path: "a.md", Valid: 1, Rendered: 1}))
	assert.NotContains(t, buf.String(), "Failed images")
	assert.NotContains(t, buf.String(), "Unreadable")
}
