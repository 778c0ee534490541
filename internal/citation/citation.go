// Package citation implements the in-band citation markup the model is
// instructed to append after its answer: a block delimited by 【 and 】
// containing <citation> tags whose attributes identify the source chunk and
// whose element text is a short verbatim quote.
//
// The block is scanned once with an explicit tag scanner. Model output is
// untrusted and can be adversarial, so no regular expressions are involved.
package citation

import (
	"sort"
	"strconv"
	"strings"

	"github.com/xxxsen/docask/internal/model"
)

const (
	OpenDelimiter  = "【"
	CloseDelimiter = "】"

	tagOpen  = "<citation"
	tagClose = "</citation>"
)

// Extract splits raw model output into the clean answer and the citations
// parsed from the delimited blocks. Output without an opening delimiter is
// returned unchanged with no citations. Every 【】 block is stripped and
// parsed, so the clean answer matches what StreamFilter forwards live; an
// unterminated block is treated as running to the end of the text.
// Citations are ordered by file name, then page number, for stable display
// regardless of emission order.
func Extract(raw string) (string, []model.Citation) {
	if !strings.Contains(raw, OpenDelimiter) {
		return raw, nil
	}

	var clean strings.Builder
	var citations []model.Citation
	rest := raw
	for {
		start := strings.Index(rest, OpenDelimiter)
		if start < 0 {
			clean.WriteString(rest)
			break
		}
		clean.WriteString(rest[:start])
		block := rest[start+len(OpenDelimiter):]
		rest = ""
		if end := strings.Index(block, CloseDelimiter); end >= 0 {
			rest = block[end+len(CloseDelimiter):]
			block = block[:end]
		}
		citations = append(citations, parseBlock(block)...)
	}

	sort.SliceStable(citations, func(i, j int) bool {
		if citations[i].FileName != citations[j].FileName {
			return citations[i].FileName < citations[j].FileName
		}
		return pageOrZero(citations[i].PageNumber) < pageOrZero(citations[j].PageNumber)
	})

	return strings.TrimRight(clean.String(), " \t\r\n"), citations
}

func parseBlock(block string) []model.Citation {
	var citations []model.Citation
	for {
		open := strings.Index(block, tagOpen)
		if open < 0 {
			return citations
		}
		block = block[open+len(tagOpen):]
		gt := strings.IndexByte(block, '>')
		if gt < 0 {
			return citations
		}
		attrs := block[:gt]
		block = block[gt+1:]
		end := strings.Index(block, tagClose)
		if end < 0 {
			return citations
		}
		quote := strings.TrimSpace(block[:end])
		block = block[end+len(tagClose):]

		cite := model.Citation{Quote: quote}
		for name, value := range scanAttributes(attrs) {
			switch name {
			case "document-id":
				cite.DocumentID = value
			case "chunk-id":
				cite.ChunkID = value
			case "filename":
				cite.FileName = value
			case "page-number":
				if page, err := strconv.Atoi(value); err == nil && page > 0 {
					cite.PageNumber = &page
				}
			case "index-on-page":
				if idx, err := strconv.Atoi(value); err == nil {
					cite.IndexOnPage = idx
				}
			}
		}
		citations = append(citations, cite)
	}
}

// scanAttributes parses name="value" pairs from the inside of a tag. Anything
// that does not match the shape is skipped rather than aborting the scan.
func scanAttributes(s string) map[string]string {
	attrs := make(map[string]string)
	i := 0
	for i < len(s) {
		for i < len(s) && (s[i] == ' ' || s[i] == '\t' || s[i] == '\n' || s[i] == '\r') {
			i++
		}
		start := i
		for i < len(s) && s[i] != '=' && s[i] != ' ' {
			i++
		}
		if i >= len(s) || s[i] != '=' {
			continue
		}
		name := strings.TrimSpace(s[start:i])
		i++
		if i >= len(s) || s[i] != '"' {
			continue
		}
		i++
		valueStart := i
		for i < len(s) && s[i] != '"' {
			i++
		}
		if i >= len(s) {
			return attrs
		}
		if name != "" {
			attrs[name] = s[valueStart:i]
		}
		i++
	}
	return attrs
}

func pageOrZero(page *int) int {
	if page == nil {
		return 0
	}
	return *page
}
