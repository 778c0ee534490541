package decoder

import (
	"bytes"
	"context"
	"fmt"

	"github.com/ledongthuc/pdf"

	"github.com/xxxsen/docask/internal/model"
	apperr "github.com/xxxsen/docask/internal/pkg/errors"
)

// PDFDecoder extracts plain text per page so chunk positions can carry
// (page number, index on page) for citations.
type PDFDecoder struct{}

func (d *PDFDecoder) Decode(ctx context.Context, data []byte) ([]model.Page, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrDecodeFailed, err)
	}
	var pages []model.Page
	for i := 1; i <= reader.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("%w: page %d: %v", apperr.ErrDecodeFailed, i, err)
		}
		pages = append(pages, model.Page{Number: i, Content: text})
	}
	return pages, nil
}
