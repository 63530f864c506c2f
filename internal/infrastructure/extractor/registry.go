package extractor

import (
	"context"
	"strings"

	"github.com/avasilkov/knowledge-retrieval/internal/core/domain"
	"github.com/avasilkov/knowledge-retrieval/internal/core/ports"
)

// Registry routes a document to the extractor for its MIME type. Unknown
// types fall through to the plain-text extractor, which rejects binary data
// with a clear error instead of indexing garbage.
type Registry struct {
	byMIME   map[string]ports.TextExtractor
	fallback ports.TextExtractor
}

func NewRegistry(fallback ports.TextExtractor) *Registry {
	return &Registry{
		byMIME:   make(map[string]ports.TextExtractor),
		fallback: fallback,
	}
}

func (r *Registry) Register(mimeType string, extractor ports.TextExtractor) {
	r.byMIME[normalizeMIME(mimeType)] = extractor
}

func (r *Registry) Extract(ctx context.Context, doc *domain.Document) (string, error) {
	if extractor, ok := r.byMIME[normalizeMIME(doc.MimeType)]; ok {
		return extractor.Extract(ctx, doc)
	}
	return r.fallback.Extract(ctx, doc)
}

// normalizeMIME strips parameters like "; charset=utf-8".
func normalizeMIME(mimeType string) string {
	base, _, _ := strings.Cut(mimeType, ";")
	return strings.ToLower(strings.TrimSpace(base))
}
