package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func wordCount(text string) int {
	return len(strings.Fields(text))
}

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []string
	}{
		{
			name: "single sentence",
			line: "hello world.",
			want: []string{"hello world."},
		},
		{
			name: "two sentences",
			line: "First one. Second one!",
			want: []string{"First one.", "Second one!"},
		},
		{
			name: "terminator run stays together",
			line: "Really?! Yes.",
			want: []string{"Really?!", "Yes."},
		},
		{
			name: "trailing text without terminator",
			line: "Done. and more",
			want: []string{"Done.", "and more"},
		},
		{
			name: "ellipsis",
			line: "Wait... go.",
			want: []string{"Wait...", "go."},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, splitSentences(tt.line))
		})
	}
}

func TestDefaultSplitShortText(t *testing.T) {
	s := NewDefault(Options{MaxTokensPerLine: 10, MaxTokensPerParagraph: 50, OverlapTokens: 5}, wordCount)
	got := s.Split("just a short paragraph")
	require.Equal(t, []string{"just a short paragraph"}, got)
}

func TestDefaultSplitEmptyText(t *testing.T) {
	s := NewDefault(Options{MaxTokensPerLine: 10, MaxTokensPerParagraph: 50, OverlapTokens: 5}, wordCount)
	require.Empty(t, s.Split(""))
	require.Empty(t, s.Split("\n\n  \n"))
}

func TestDefaultSplitRespectsParagraphCeiling(t *testing.T) {
	opts := Options{MaxTokensPerLine: 10, MaxTokensPerParagraph: 20, OverlapTokens: 0}
	s := NewDefault(opts, wordCount)

	var lines []string
	for i := 0; i < 12; i++ {
		lines = append(lines, "one two three four five")
	}
	got := s.Split(strings.Join(lines, "\n"))

	require.Greater(t, len(got), 1)
	for _, paragraph := range got {
		require.LessOrEqual(t, wordCount(paragraph), opts.MaxTokensPerParagraph, "paragraph over ceiling: %q", paragraph)
	}
}

func TestDefaultSplitKeepsAllContent(t *testing.T) {
	opts := Options{MaxTokensPerLine: 8, MaxTokensPerParagraph: 16, OverlapTokens: 0}
	s := NewDefault(opts, wordCount)

	text := "alpha beta gamma delta.\nepsilon zeta eta theta.\niota kappa lambda mu.\nnu xi omicron pi."
	got := s.Split(text)

	joined := strings.Join(got, "\n")
	for _, word := range strings.Fields(strings.ReplaceAll(text, "\n", " ")) {
		require.Contains(t, joined, strings.TrimRight(word, "."), "word lost: %q", word)
	}
}

func TestDefaultSplitOverlapCarriesTail(t *testing.T) {
	opts := Options{MaxTokensPerLine: 5, MaxTokensPerParagraph: 10, OverlapTokens: 5}
	s := NewDefault(opts, wordCount)

	text := "a b c d e\nf g h i j\nk l m n o"
	got := s.Split(text)
	require.GreaterOrEqual(t, len(got), 2)

	// The line that closed the first paragraph seeds the second one.
	first := strings.Split(got[0], "\n")
	tail := first[len(first)-1]
	require.True(t, strings.HasPrefix(got[1], tail), "second paragraph %q does not start with overlap %q", got[1], tail)
}

func TestDefaultSplitOversizedLineBecomesOwnParagraph(t *testing.T) {
	// MaxTokensPerLine larger than the paragraph ceiling lets a single line
	// through to the merge pass over budget.
	opts := Options{MaxTokensPerLine: 100, MaxTokensPerParagraph: 5, OverlapTokens: 2}
	s := NewDefault(opts, wordCount)

	text := "short line\nthis one line has way more words than the paragraph ceiling allows\nanother short"
	got := s.Split(text)

	require.Contains(t, got, "this one line has way more words than the paragraph ceiling allows")
}

func TestPackSpansSplitsOversizedUnitOnWords(t *testing.T) {
	spans := packSpans([]string{"one two three four five six"}, 3, wordCount)
	require.Greater(t, len(spans), 1)
	for _, span := range spans {
		require.LessOrEqual(t, wordCount(span), 3)
	}
}

func TestPackSpansKeepsOversizedWordWhole(t *testing.T) {
	counter := func(text string) int { return len(text) }
	spans := packSpans([]string{"supercalifragilistic"}, 5, counter)
	require.Equal(t, []string{"supercalifragilistic"}, spans)
}

func TestRegistryFallback(t *testing.T) {
	fallback := NewDefault(Options{MaxTokensPerLine: 10, MaxTokensPerParagraph: 50}, wordCount)
	markdown := NewMarkdown(Options{MaxTokensPerLine: 10, MaxTokensPerParagraph: 50}, wordCount)

	r := NewRegistry(fallback)
	r.Register("text/markdown", markdown)

	require.Equal(t, Splitter(markdown), r.For("Text/Markdown"))
	require.Equal(t, Splitter(fallback), r.For("application/pdf"))
}
