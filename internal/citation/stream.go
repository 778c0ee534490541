package citation

import "strings"

// StreamFilter guards a live answer stream against citation markup. Text
// outside 【】 blocks is forwarded verbatim; everything between an opening
// delimiter and its closing delimiter is withheld, so the markup never
// reaches the client mid-stream. The filter forwards exactly the text
// Extract would keep, and the complete output stays buffered for Extract
// once the stream ends.
type StreamFilter struct {
	full    strings.Builder
	inBlock bool
}

// Feed records a token and returns the portion that may be shown live.
// Delimiters may be split across tokens only at rune boundaries, which is
// how provider streams chunk their output.
func (f *StreamFilter) Feed(token string) string {
	f.full.WriteString(token)
	var out strings.Builder
	for token != "" {
		if f.inBlock {
			end := strings.Index(token, CloseDelimiter)
			if end < 0 {
				return out.String()
			}
			token = token[end+len(CloseDelimiter):]
			f.inBlock = false
			continue
		}
		open := strings.Index(token, OpenDelimiter)
		if open < 0 {
			out.WriteString(token)
			break
		}
		out.WriteString(token[:open])
		token = token[open+len(OpenDelimiter):]
		f.inBlock = true
	}
	return out.String()
}

// Text returns everything fed so far, including withheld markup.
func (f *StreamFilter) Text() string {
	return f.full.String()
}
