package extractor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/avasilkov/knowledge-retrieval/internal/core/domain"
)

type stubExtractor struct {
	text string
}

func (s *stubExtractor) Extract(context.Context, *domain.Document) (string, error) {
	return s.text, nil
}

func TestRegistryRoutesByMIMEType(t *testing.T) {
	registry := NewRegistry(&stubExtractor{text: "fallback"})
	registry.Register("application/pdf", &stubExtractor{text: "pdf"})

	got, err := registry.Extract(context.Background(), &domain.Document{MimeType: "application/pdf"})
	require.NoError(t, err)
	require.Equal(t, "pdf", got)

	got, err = registry.Extract(context.Background(), &domain.Document{MimeType: "text/plain"})
	require.NoError(t, err)
	require.Equal(t, "fallback", got)
}

func TestRegistryNormalizesMIMEParameters(t *testing.T) {
	registry := NewRegistry(&stubExtractor{text: "fallback"})
	registry.Register("application/pdf", &stubExtractor{text: "pdf"})

	got, err := registry.Extract(context.Background(), &domain.Document{MimeType: "Application/PDF; charset=binary"})
	require.NoError(t, err)
	require.Equal(t, "pdf", got)
}
