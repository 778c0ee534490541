package chunker

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Markdown splits markdown by block structure before applying the same
// paragraph merge as Default. Headings, list items and code fences become
// line units so chunk boundaries land on block boundaries instead of
// arbitrary sentence breaks. Level 1 and 2 headings additionally force a
// paragraph flush so a chunk never straddles two top-level sections.
type Markdown struct {
	opts  Options
	count TokenCounter
}

func NewMarkdown(opts Options, count TokenCounter) *Markdown {
	return &Markdown{opts: opts, count: count}
}

func (m *Markdown) Split(markdown string) []string {
	md := goldmark.New()
	source := []byte(markdown)
	reader := text.NewReader(source)
	doc := md.Parser().Parse(reader)

	var paragraphs []string
	var section []string

	flushSection := func() {
		if len(section) == 0 {
			return
		}
		paragraphs = append(paragraphs, mergeParagraphs(section, m.opts, m.count)...)
		section = nil
	}

	for node := doc.FirstChild(); node != nil; node = node.NextSibling() {
		switch n := node.(type) {
		case *ast.Heading:
			if n.Level <= 2 {
				flushSection()
			}
			section = append(section, m.blockLines(headingText(n, source))...)
		case *ast.FencedCodeBlock:
			lang := string(n.Language(source))
			var code strings.Builder
			for i := 0; i < n.Lines().Len(); i++ {
				line := n.Lines().At(i)
				code.Write(line.Value(source))
			}
			fenced := "```" + lang + "\n" + strings.TrimRight(code.String(), "\n") + "\n```"
			section = append(section, fenced)
		default:
			txt := blockText(node, source)
			if txt == "" {
				continue
			}
			section = append(section, m.blockLines(txt)...)
		}
	}
	flushSection()
	return paragraphs
}

// blockLines re-splits a block that alone exceeds the line budget.
func (m *Markdown) blockLines(txt string) []string {
	if m.count(txt) <= m.opts.MaxTokensPerLine {
		return []string{txt}
	}
	return splitLines(txt, m.opts.MaxTokensPerLine, m.count)
}

func headingText(h *ast.Heading, source []byte) string {
	txt := blockText(h, source)
	return strings.Repeat("#", h.Level) + " " + txt
}

func blockText(n ast.Node, source []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if node.Kind() == ast.KindText {
			sb.Write(node.(*ast.Text).Segment.Value(source))
			if node.(*ast.Text).HardLineBreak() || node.(*ast.Text).SoftLineBreak() {
				sb.WriteByte('\n')
			}
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}
