package corpus

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaurav-prasanna/diagrampipe/core"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return root
}

func relPaths(docs []core.Document) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.RelPath)
	}
	return out
}

func TestDocuments(t *testing.T) {
	root := writeTree(t, map[string]string{
		"README.md":               "index",
		"architecture.md":         "a",
		"api.markdown":            "b",
		"guides/setup.md":         "c",
		"guides/page.html":        "<p>d</p>",
		"notes.txt":               "ignored",
		".git/HEAD.md":            "ignored",
		"node_modules/pkg/doc.md": "ignored",
		".hidden/doc.md":          "ignored",
	})

	docs, err := New(Options{Roots: []string{root}}).Documents(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"api.markdown", "architecture.md", "guides/page.html", "guides/setup.md"}, relPaths(docs))
	assert.Equal(t, "architecture", docs[1].Base)
	assert.Equal(t, filepath.Join(root, "guides", "setup.md"), docs[3].Path)
	assert.Empty(t, docs[0].Text)
}

func TestDocumentsExclusion(t *testing.T) {
	root := writeTree(t, map[string]string{
		"README.md":       "index",
		"a.md":            "a",
		"guides/a.md":     "nested a",
		"guides/b.md":     "b",
		"guides/skip.md":  "c",
		"drafts/draft.md": "d",
	})

	c := New(Options{
		Roots:    []string{root},
		Exclude:  []string{"guides/b.md", "skip", "README.md"},
		SkipDirs: []string{"drafts"},
	})
	docs, err := c.Documents(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.md", "guides/a.md"}, relPaths(docs))

	// An explicit empty denylist keeps the index document.
	docs, err = New(Options{Roots: []string{root}, Exclude: []string{}}).Documents(context.Background())
	require.NoError(t, err)
	assert.Contains(t, relPaths(docs), "README.md")
}

func TestDocumentsDeduplicatesRoots(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.md":       "a",
		"sub/b.md":   "b",
		"sub/c.text": "c",
	})

	c := New(Options{Roots: []string{root, filepath.Join(root, "sub"), filepath.Join(root, "sub", "c.text")}})
	docs, err := c.Documents(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.md", "sub/b.md", "c.text"}, relPaths(docs))
}

func TestDocumentsMissingRoot(t *testing.T) {
	_, err := New(Options{Roots: []string{filepath.Join(t.TempDir(), "missing")}}).Documents(context.Background())
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.md":      "# A\n\n```mermaid\ngraph TD\n  A --> B\n```\n",
		"page.html": `<html><body><main><pre class="mermaid">graph LR
  X --&gt; Y</pre></main></body></html>`,
	})

	c := New(Options{Roots: []string{root}})
	docs, err := c.Documents(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 2)

	md, err := c.Load(context.Background(), docs[0])
	require.NoError(t, err)
	assert.Contains(t, md.Text, "graph TD")

	html, err := c.Load(context.Background(), docs[1])
	require.NoError(t, err)
	assert.True(t, strings.Contains(html.Text, "```mermaid\ngraph LR\n  X --> Y"), html.Text)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := New(Options{}).Load(context.Background(), core.Document{Path: filepath.Join(t.TempDir(), "gone.md")})
	assert.Error(t, err)
}

func TestRules(t *testing.T) {
	assert.True(t, IsDocument("a/B.MD", DefaultExtensions))
	assert.False(t, IsDocument("a/b.txt", DefaultExtensions))
	assert.True(t, IsHTML("x.htm"))
	assert.True(t, IsSkippedDir(".cache", nil))
	assert.True(t, IsSkippedDir("build", map[string]bool{"build": true}))
	assert.False(t, IsSkippedDir("docs", nil))
	assert.Equal(t, "v1.2-notes", BaseName("docs/v1.2-notes.md"))
}
