package utils

import (
	"strings"
	"unicode/utf8"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/ast"
	"github.com/gomarkdown/markdown/parser"
)

// PlainText renders markdown-formatted extracted text as a single line of
// plain text, dropping markup, link targets and raw HTML.
func PlainText(md string) string {
	if strings.TrimSpace(md) == "" {
		return ""
	}

	// Parsers keep state between calls, so each document gets a fresh one.
	p := parser.NewWithExtensions(parser.CommonExtensions)
	doc := markdown.Parse([]byte(md), p)

	var b strings.Builder
	ast.WalkFunc(doc, func(node ast.Node, entering bool) ast.WalkStatus {
		if !entering {
			switch node.(type) {
			case *ast.Paragraph, *ast.Heading, *ast.ListItem, *ast.TableCell, *ast.CodeBlock:
				b.WriteByte(' ')
			}
			return ast.GoToNext
		}

		switch n := node.(type) {
		case *ast.Text:
			b.Write(n.Literal)
		case *ast.Code:
			b.Write(n.Literal)
		case *ast.CodeBlock:
			b.Write(n.Literal)
		case *ast.Softbreak, *ast.Hardbreak:
			b.WriteByte(' ')
		}
		return ast.GoToNext
	})

	return strings.Join(strings.Fields(b.String()), " ")
}

// Excerpt returns the first limit runes of s, appending an ellipsis when cut.
func Excerpt(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:limit])) + "..."
}
