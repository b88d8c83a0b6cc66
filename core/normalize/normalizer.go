// Package normalize converts HTML documentation into Markdown so the
// fence extractor sees one format. It:
//  1. Picks the best content container (<main>, <article>, or <body>)
//  2. Rewrites Mermaid elements (<pre class="mermaid">, <div class="mermaid">)
//     into language-tagged code blocks so they become fenced blocks
//  3. Converts the result with html-to-markdown
package normalize

import (
	"fmt"
	"html"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
)

// noiseSelectors are HTML elements removed before conversion.
var noiseSelectors = []string{
	"script", "style", "noscript",
	"nav", "footer",
	"iframe", "video", "audio",
	"form", "button", "input", "select", "textarea",
}

// MarkdownNormalizer converts HTML to Markdown using html-to-markdown.
type MarkdownNormalizer struct {
	Tag string // fence tag given to rewritten diagram elements
}

// New creates a MarkdownNormalizer for the given fence tag.
func New(tag string) *MarkdownNormalizer {
	if tag == "" {
		tag = "mermaid"
	}
	return &MarkdownNormalizer{Tag: tag}
}

// Normalize converts an HTML page into Markdown.
func (n *MarkdownNormalizer) Normalize(page string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return "", fmt.Errorf("parsing HTML: %w", err)
	}

	for _, sel := range noiseSelectors {
		doc.Find(sel).Remove()
	}

	// Rendering-side markup: the diagram source is the element's text.
	doc.Find("pre.mermaid, div.mermaid").Each(func(_ int, s *goquery.Selection) {
		source := strings.TrimSpace(s.Text())
		s.ReplaceWithHtml(fmt.Sprintf(`<pre><code class="language-%s">%s`+"\n"+`</code></pre>`,
			html.EscapeString(n.Tag), html.EscapeString(source)))
	})

	var content *goquery.Selection
	for _, tag := range []string{"main", "article", "body"} {
		sel := doc.Find(tag)
		if sel.Length() > 0 {
			content = sel.First()
			break
		}
	}
	if content == nil {
		return "", fmt.Errorf("no content container found in HTML")
	}

	fragment, err := goquery.OuterHtml(content)
	if err != nil {
		return "", fmt.Errorf("serializing content: %w", err)
	}

	markdown, err := htmltomarkdown.ConvertString(fragment)
	if err != nil {
		return "", fmt.Errorf("converting HTML to markdown: %w", err)
	}
	return markdown, nil
}
