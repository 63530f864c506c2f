package usecase

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/avasilkov/knowledge-retrieval/internal/core/domain"
	"github.com/avasilkov/knowledge-retrieval/internal/core/ports"
)

// IngestDocumentUseCase accepts one source document, stores the raw payload
// and enqueues it for asynchronous processing. Retrieval only ever sees
// documents the processing pipeline has marked ready.
type IngestDocumentUseCase struct {
	repo    ports.DocumentRepository
	storage ports.ObjectStorage
	queue   ports.MessageQueue
}

func NewIngestDocumentUseCase(
	repo ports.DocumentRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
) *IngestDocumentUseCase {
	return &IngestDocumentUseCase{
		repo:    repo,
		storage: storage,
		queue:   queue,
	}
}

func (uc *IngestDocumentUseCase) Upload(
	ctx context.Context,
	req ports.UploadRequest,
	body io.Reader,
) (*domain.Document, error) {
	if req.SearchSpaceID <= 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload", fmt.Errorf("search_space_id must be positive"))
	}
	if !req.Connector.Valid() {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload", fmt.Errorf("unknown connector type %q", req.Connector))
	}

	storageKey := fmt.Sprintf("%s_%s", uuid.NewString(), sanitizeFilename(req.Filename))
	now := time.Now().UTC()

	if err := uc.storage.Save(ctx, storageKey, body); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = req.Filename
	}

	doc := &domain.Document{
		SearchSpaceID: req.SearchSpaceID,
		OwnerUserID:   req.OwnerUserID,
		Connector:     req.Connector,
		Title:         title,
		URL:           req.URL,
		MimeType:      req.MimeType,
		StoragePath:   storageKey,
		Status:        domain.StatusUploaded,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := uc.repo.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document metadata: %w", err)
	}

	if err := uc.queue.PublishDocumentIngested(ctx, doc.ID); err != nil {
		return nil, fmt.Errorf("publish ingestion event: %w", err)
	}

	return doc, nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" {
		return "document.bin"
	}
	return base
}
