package errors

import "errors"

// Sentinel errors shared across the service layer. Handlers map them to
// HTTP statuses with errors.Is, so wrapping with fmt.Errorf("...: %w", err)
// preserves the mapping.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalid           = errors.New("invalid")
	ErrConflict          = errors.New("conflict")
	ErrUnsupportedFormat = errors.New("unsupported content type")
	ErrDecodeFailed      = errors.New("decode failed")
	ErrAIUnavailable     = errors.New("ai not configured")
)
