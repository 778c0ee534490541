package decoder

import (
	"context"

	"github.com/xxxsen/docask/internal/model"
)

// TextDecoder handles plain text and markdown. There is no page structure,
// so the whole body becomes page 1.
type TextDecoder struct{}

func (d *TextDecoder) Decode(ctx context.Context, data []byte) ([]model.Page, error) {
	return []model.Page{{Number: 1, Content: string(data)}}, nil
}
