package decoder

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/nguyenthenguyen/docx"

	"github.com/xxxsen/docask/internal/model"
	apperr "github.com/xxxsen/docask/internal/pkg/errors"
)

// DocxDecoder extracts paragraph text from a Word document. DOCX carries no
// page layout, so everything lands on page 1.
type DocxDecoder struct{}

func (d *DocxDecoder) Decode(ctx context.Context, data []byte) ([]model.Page, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrDecodeFailed, err)
	}
	defer r.Close()

	content := r.Editable().GetContent()
	text := extractParagraphs(content)
	return []model.Page{{Number: 1, Content: text}}, nil
}

// extractParagraphs pulls the text runs (<w:t>) out of the document XML,
// one output line per paragraph (</w:p>).
func extractParagraphs(xml string) string {
	var sb strings.Builder
	rest := xml
	for {
		open := strings.Index(rest, "<w:t")
		if open < 0 {
			break
		}
		rest = rest[open:]
		gt := strings.IndexByte(rest, '>')
		if gt < 0 {
			break
		}
		// Self-closing run carries no text.
		if strings.HasPrefix(rest[:gt+1], "<w:t/") {
			rest = rest[gt+1:]
			continue
		}
		rest = rest[gt+1:]
		end := strings.Index(rest, "</w:t>")
		if end < 0 {
			break
		}
		sb.WriteString(rest[:end])
		rest = rest[end+len("</w:t>"):]
		nextRun := strings.Index(rest, "<w:t")
		endPara := strings.Index(rest, "</w:p>")
		if endPara >= 0 && (nextRun < 0 || endPara < nextRun) {
			sb.WriteByte('\n')
		}
	}
	return strings.TrimSpace(sb.String())
}
