// Package extract implements the Extractor interface.
// It finds fenced diagram blocks in a document by:
//  1. Matching an opening fence at the start of a line ("```" + tag)
//  2. Capturing lazily up to the nearest closing fence that also starts a line
package extract

import (
	"regexp"
	"strings"
)

// DefaultTag is the info string that marks a diagram fence.
const DefaultTag = "mermaid"

// FenceExtractor finds line-anchored fenced blocks tagged with one info string.
type FenceExtractor struct {
	tag     string
	pattern *regexp.Regexp
}

// New creates a FenceExtractor for the given fence tag.
// Defaults to "mermaid" if tag is empty.
func New(tag string) *FenceExtractor {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		tag = DefaultTag
	}
	return &FenceExtractor{
		tag:     tag,
		pattern: fencePattern(tag),
	}
}

// fencePattern builds the block regexp. (?m) anchors both fences to line
// starts, (?s) lets the lazy body span lines.
func fencePattern(tag string) *regexp.Regexp {
	return regexp.MustCompile("(?ms)^```" + regexp.QuoteMeta(tag) + "[ \\t]*\\r?\\n(.*?)^```")
}

// Tag returns the fence info string this extractor matches.
func (e *FenceExtractor) Tag() string {
	return e.tag
}

// Extract returns the trimmed body of every diagram block in text,
// in document order. A document without blocks yields an empty slice.
func (e *FenceExtractor) Extract(text string) []string {
	matches := e.pattern.FindAllStringSubmatch(text, -1)
	blocks := make([]string, 0, len(matches))
	for _, m := range matches {
		blocks = append(blocks, strings.TrimSpace(m[1]))
	}
	return blocks
}
