// Package chunker splits decoded document text into token-bounded, overlapping
// paragraphs ready for embedding. Splitting is a two-pass process: text is
// first broken into lines that respect sentence boundaries, then consecutive
// lines are merged into paragraphs under a token ceiling, with the tail of
// each paragraph re-included at the start of the next one.
package chunker

import (
	"strings"
)

type TokenCounter func(text string) int

type Splitter interface {
	Split(text string) []string
}

type Options struct {
	MaxTokensPerLine      int
	MaxTokensPerParagraph int
	OverlapTokens         int
}

type Default struct {
	opts  Options
	count TokenCounter
}

func NewDefault(opts Options, count TokenCounter) *Default {
	return &Default{opts: opts, count: count}
}

func (d *Default) Split(text string) []string {
	lines := splitLines(text, d.opts.MaxTokensPerLine, d.count)
	return mergeParagraphs(lines, d.opts, d.count)
}

// splitLines breaks text into spans under maxTokens each, preferring physical
// line breaks, then sentence boundaries, then word boundaries. A single word
// over the budget is kept whole; token limits are a soft target.
func splitLines(text string, maxTokens int, count TokenCounter) []string {
	var lines []string
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		if count(line) <= maxTokens {
			lines = append(lines, line)
			continue
		}
		lines = append(lines, packSpans(splitSentences(line), maxTokens, count)...)
	}
	return lines
}

// splitSentences cuts a line after each sentence terminator, keeping the
// terminator with its sentence.
func splitSentences(line string) []string {
	var sentences []string
	start := 0
	runes := []rune(line)
	for i, r := range runes {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		// Consume any run of terminators (e.g. "?!" or "...").
		if i+1 < len(runes) && (runes[i+1] == '.' || runes[i+1] == '!' || runes[i+1] == '?') {
			continue
		}
		sentence := strings.TrimSpace(string(runes[start : i+1]))
		if sentence != "" {
			sentences = append(sentences, sentence)
		}
		start = i + 1
	}
	if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
		sentences = append(sentences, tail)
	}
	return sentences
}

// packSpans greedily joins units into spans under maxTokens. A unit that is
// itself over the budget is split on whitespace; an oversized word survives
// as its own span.
func packSpans(units []string, maxTokens int, count TokenCounter) []string {
	var spans []string
	var current []string
	currentTokens := 0
	flush := func() {
		if len(current) == 0 {
			return
		}
		spans = append(spans, strings.Join(current, " "))
		current = nil
		currentTokens = 0
	}
	for _, unit := range units {
		tokens := count(unit)
		if tokens > maxTokens {
			flush()
			words := strings.Fields(unit)
			if len(words) <= 1 {
				spans = append(spans, unit)
				continue
			}
			spans = append(spans, packSpans(words, maxTokens, count)...)
			continue
		}
		if currentTokens+tokens > maxTokens {
			flush()
		}
		current = append(current, unit)
		currentTokens += tokens
	}
	flush()
	return spans
}

// mergeParagraphs concatenates consecutive lines into paragraphs under
// MaxTokensPerParagraph. When a paragraph is flushed, its trailing lines worth
// up to OverlapTokens seed the next paragraph so context carries across chunk
// boundaries. Lines already over the ceiling become their own paragraph.
func mergeParagraphs(lines []string, opts Options, count TokenCounter) []string {
	var paragraphs []string
	var current []string
	currentTokens := 0

	flush := func(keepOverlap bool) {
		if len(current) == 0 {
			return
		}
		paragraph := strings.TrimSpace(strings.Join(current, "\n"))
		if paragraph != "" {
			paragraphs = append(paragraphs, paragraph)
		}
		if !keepOverlap || opts.OverlapTokens <= 0 {
			current = nil
			currentTokens = 0
			return
		}
		overlapTokens := 0
		var overlap []string
		for i := len(current) - 1; i >= 0; i-- {
			t := count(current[i])
			if overlapTokens+t > opts.OverlapTokens {
				break
			}
			overlapTokens += t
			overlap = append([]string{current[i]}, overlap...)
		}
		current = overlap
		currentTokens = overlapTokens
	}

	for _, line := range lines {
		tokens := count(line)
		if tokens > opts.MaxTokensPerParagraph {
			flush(false)
			paragraphs = append(paragraphs, line)
			continue
		}
		if currentTokens+tokens > opts.MaxTokensPerParagraph {
			flush(true)
			if currentTokens+tokens > opts.MaxTokensPerParagraph {
				// Overlap plus an unusually large line would breach the
				// ceiling again; sacrifice the overlap for this paragraph.
				current = nil
				currentTokens = 0
			}
		}
		current = append(current, line)
		currentTokens += tokens
	}
	flush(false)
	return paragraphs
}
