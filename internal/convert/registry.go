package convert

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnsupported is returned when no converter handles a file.
	ErrUnsupported = errors.New("unsupported file type")
	// ErrTooLarge is returned when a file exceeds a size limit.
	ErrTooLarge = errors.New("file too large")
)

type Registry struct {
	byMIME      map[string]Converter
	byExtension map[string]Converter
	converters  []Converter
}

func NewRegistry() *Registry {
	return &Registry{
		byMIME:      make(map[string]Converter),
		byExtension: make(map[string]Converter),
		converters:  make([]Converter, 0),
	}
}

func (r *Registry) Register(c Converter) {
	r.converters = append(r.converters, c)
	for _, mt := range c.SupportedTypes() {
		key := strings.ToLower(strings.TrimSpace(mt))
		if key != "" {
			r.byMIME[key] = c
		}
	}
	for _, ext := range c.SupportedExtensions() {
		key := strings.ToLower(strings.TrimSpace(ext))
		if key != "" {
			r.byExtension[key] = c
		}
	}
}

// Resolve prefers the file extension over the sniffed MIME type; zip-based
// office formats all sniff as application/zip on some inputs.
func (r *Registry) Resolve(mimeType, extension string) (Converter, error) {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	ext := strings.ToLower(strings.TrimSpace(extension))

	if c, ok := r.byExtension[ext]; ok {
		return c, nil
	}

	if c, ok := r.byMIME[mt]; ok {
		return c, nil
	}

	if i := strings.Index(mt, ";"); i > 0 {
		if c, ok := r.byMIME[strings.TrimSpace(mt[:i])]; ok {
			return c, nil
		}
	}

	return nil, fmt.Errorf("%w: mime=%q extension=%q", ErrUnsupported, mimeType, extension)
}

// Extensions lists every registered extension, in registration order.
func (r *Registry) Extensions() []string {
	var out []string
	for _, c := range r.converters {
		out = append(out, c.SupportedExtensions()...)
	}
	return out
}
