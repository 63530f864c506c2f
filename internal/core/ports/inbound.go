package ports

import (
	"context"
	"io"

	"github.com/avasilkov/knowledge-retrieval/internal/core/domain"
)

// SearchService is the public retrieval entry point.
type SearchService interface {
	Search(ctx context.Context, req domain.QueryRequest) (*domain.SearchResponse, error)
}

// UploadRequest carries the caller-supplied metadata for one ingested source.
type UploadRequest struct {
	SearchSpaceID int64
	OwnerUserID   int64
	Connector     domain.ConnectorType
	Title         string
	URL           string
	Filename      string
	MimeType      string
}

// DocumentIngestor is the inbound contract for document upload orchestration.
type DocumentIngestor interface {
	Upload(ctx context.Context, req UploadRequest, body io.Reader) (*domain.Document, error)
}

// DocumentProcessor is the inbound contract for asynchronous document
// processing (extract, chunk, embed, index).
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID int64) error
}

// DocumentReader is the inbound read model for document metadata/state.
type DocumentReader interface {
	GetByID(ctx context.Context, id int64) (*domain.Document, error)
}
