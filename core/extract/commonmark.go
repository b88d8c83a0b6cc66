package extract

import (
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// CountFenced parses content as CommonMark and counts the fenced code blocks
// whose language is tag. It is a diagnostic: a CommonMark reader accepts
// indented fences and longer backtick runs that Extract deliberately
// ignores, so a mismatch points at blocks that will not be rendered.
func CountFenced(content string, tag string) int {
	source := []byte(content)
	doc := markdown.Parser().Parse(text.NewReader(source))

	count := 0
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		fenced, ok := n.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}
		if string(fenced.Language(source)) == tag {
			count++
		}
		return ast.WalkSkipChildren, nil
	})
	return count
}
