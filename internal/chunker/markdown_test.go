package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMarkdownSplitSectionsOnTopLevelHeadings(t *testing.T) {
	m := NewMarkdown(Options{MaxTokensPerLine: 50, MaxTokensPerParagraph: 200, OverlapTokens: 0}, wordCount)

	got := m.Split("# First\n\nbody of the first section\n\n# Second\n\nbody of the second section\n")
	require.Len(t, got, 2)
	require.Contains(t, got[0], "# First")
	require.Contains(t, got[0], "body of the first section")
	require.NotContains(t, got[0], "Second")
	require.Contains(t, got[1], "# Second")
}

func TestMarkdownSplitDeepHeadingStaysInSection(t *testing.T) {
	m := NewMarkdown(Options{MaxTokensPerLine: 50, MaxTokensPerParagraph: 200, OverlapTokens: 0}, wordCount)

	got := m.Split("# Top\n\nintro text\n\n### Detail\n\ndetail text\n")
	require.Len(t, got, 1)
	require.Contains(t, got[0], "### Detail")
}

func TestMarkdownSplitKeepsCodeFenceIntact(t *testing.T) {
	m := NewMarkdown(Options{MaxTokensPerLine: 5, MaxTokensPerParagraph: 100, OverlapTokens: 0}, wordCount)

	got := m.Split("# Code\n\n```go\nfunc main() {\n\tprintln(1)\n}\n```\n")
	joined := strings.Join(got, "\n")
	require.Contains(t, joined, "```go\nfunc main() {\n\tprintln(1)\n}\n```")
}

func TestMarkdownSplitRespectsParagraphCeiling(t *testing.T) {
	opts := Options{MaxTokensPerLine: 10, MaxTokensPerParagraph: 15, OverlapTokens: 0}
	m := NewMarkdown(opts, wordCount)

	var sb strings.Builder
	sb.WriteString("# Section\n\n")
	for i := 0; i < 10; i++ {
		sb.WriteString("one two three four five six seven.\n\n")
	}
	got := m.Split(sb.String())
	require.Greater(t, len(got), 1)
	for _, paragraph := range got {
		require.LessOrEqual(t, wordCount(paragraph), opts.MaxTokensPerParagraph, "paragraph over ceiling: %q", paragraph)
	}
}
