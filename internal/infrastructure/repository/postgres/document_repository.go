package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"

	"github.com/avasilkov/knowledge-retrieval/internal/core/domain"
)

type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	err := r.db.QueryRowContext(ctx, `
INSERT INTO documents (
	search_space_id, owner_user_id, connector_type, title, url, mime_type, storage_path, status, error_message, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
RETURNING id
`,
		doc.SearchSpaceID, doc.OwnerUserID, string(doc.Connector), doc.Title, doc.URL,
		doc.MimeType, doc.StoragePath, string(doc.Status), doc.Error, doc.CreatedAt, doc.UpdatedAt,
	).Scan(&doc.ID)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id int64) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, search_space_id, owner_user_id, connector_type, title, url, mime_type, storage_path, content, status, error_message, created_at, updated_at
FROM documents
WHERE id = $1
`, id)

	var doc domain.Document
	var connector, status string

	err := row.Scan(
		&doc.ID, &doc.SearchSpaceID, &doc.OwnerUserID, &connector, &doc.Title, &doc.URL,
		&doc.MimeType, &doc.StoragePath, &doc.Content, &status, &doc.Error, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", fmt.Errorf("id=%d", id))
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}

	doc.Connector = domain.ConnectorType(connector)
	doc.Status = domain.DocumentStatus(status)
	return &doc, nil
}

func (r *DocumentRepository) UpdateStatus(ctx context.Context, id int64, status domain.DocumentStatus, errMessage string) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE documents
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update document status: %w", err)
	}
	return nil
}

func (r *DocumentRepository) SaveProcessed(ctx context.Context, id int64, content string, embedding []float32) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE documents
SET content = $2, embedding = $3, updated_at = $4
WHERE id = $1
`, id, content, pgvector.NewVector(embedding), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("save processed document: %w", err)
	}
	return nil
}
