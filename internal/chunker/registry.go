package chunker

import "strings"

// Registry maps a content type to the splitter used for it, resolved once at
// startup. Types without a dedicated splitter fall back to Default.
type Registry struct {
	fallback  Splitter
	splitters map[string]Splitter
}

func NewRegistry(fallback Splitter) *Registry {
	return &Registry{
		fallback:  fallback,
		splitters: make(map[string]Splitter),
	}
}

func (r *Registry) Register(contentType string, s Splitter) {
	key := strings.ToLower(strings.TrimSpace(contentType))
	if key == "" || s == nil {
		return
	}
	r.splitters[key] = s
}

func (r *Registry) For(contentType string) Splitter {
	if s, ok := r.splitters[strings.ToLower(strings.TrimSpace(contentType))]; ok {
		return s
	}
	return r.fallback
}
