// Package decoder turns uploaded files into raw page text. Implementations
// are registered per MIME content type and resolved once at startup; asking
// for an unregistered type is a terminal client error, never retried.
package decoder

import (
	"context"
	"fmt"
	"strings"

	"github.com/xxxsen/docask/internal/model"
	apperr "github.com/xxxsen/docask/internal/pkg/errors"
)

const (
	ContentTypePDF      = "application/pdf"
	ContentTypeDocx     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	ContentTypeText     = "text/plain"
	ContentTypeMarkdown = "text/markdown"
)

type Decoder interface {
	Decode(ctx context.Context, data []byte) ([]model.Page, error)
}

type Registry struct {
	decoders map[string]Decoder
}

func NewRegistry() *Registry {
	return &Registry{decoders: make(map[string]Decoder)}
}

func (r *Registry) Register(contentType string, d Decoder) {
	key := normalize(contentType)
	if key == "" || d == nil {
		return
	}
	r.decoders[key] = d
}

func (r *Registry) For(contentType string) (Decoder, error) {
	d, ok := r.decoders[normalize(contentType)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperr.ErrUnsupportedFormat, contentType)
	}
	return d, nil
}

// NewDefaultRegistry wires the decoder set the service supports out of the
// box: pdf, docx, plain text and markdown.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(ContentTypePDF, &PDFDecoder{})
	r.Register(ContentTypeDocx, &DocxDecoder{})
	r.Register(ContentTypeText, &TextDecoder{})
	r.Register(ContentTypeMarkdown, &TextDecoder{})
	return r
}

func normalize(contentType string) string {
	key := strings.ToLower(strings.TrimSpace(contentType))
	// Strip parameters like "; charset=utf-8".
	if i := strings.IndexByte(key, ';'); i >= 0 {
		key = strings.TrimSpace(key[:i])
	}
	return key
}
