// Package corpus — file filtering rules.
// Provides helpers to filter documents and directories while walking.
package corpus

import (
	"path/filepath"
	"strings"
)

// DefaultExtensions are the document types scanned when none are configured.
var DefaultExtensions = []string{".md", ".markdown", ".mdx", ".html", ".htm"}

// DefaultExclude is the denylist used when none is configured.
var DefaultExclude = []string{"README.md"}

// skipDirs are directories never descended into.
var skipDirs = map[string]bool{
	".git": true, ".hg": true, ".svn": true,
	"node_modules": true, "vendor": true,
}

// IsDocument checks whether path has one of the given extensions (case-insensitive).
func IsDocument(path string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}

// IsHTML checks whether path is an HTML document.
func IsHTML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".html" || ext == ".htm"
}

// IsSkippedDir checks whether a directory should not be walked.
// Hidden directories are skipped as well.
func IsSkippedDir(name string, extra map[string]bool) bool {
	if skipDirs[name] || extra[name] {
		return true
	}
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}

// IsExcluded checks a document against the denylist. An entry matches the
// file name, the slash-separated path relative to the root, or the base
// identifier. There is no pattern matching.
func IsExcluded(relPath string, exclude map[string]bool) bool {
	rel := filepath.ToSlash(relPath)
	name := filepath.Base(relPath)
	return exclude[rel] || exclude[name] || exclude[BaseName(relPath)]
}

// BaseName returns the file name without its last extension.
func BaseName(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}
