package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pgvector/pgvector-go"

	"github.com/avasilkov/knowledge-retrieval/internal/core/domain"
)

// VectorIndex answers cosine-similarity queries over the pgvector columns.
// The ANN index accelerates retrieval; ordering within the returned limit is
// exact (highest similarity first), which downstream fusion depends on.
type VectorIndex struct {
	db   *sql.DB
	dims int
}

// NewVectorIndex binds the index to the active embedding model's
// dimensionality. Queries with a different width are rejected up front.
func NewVectorIndex(db *sql.DB, dims int) *VectorIndex {
	return &VectorIndex{db: db, dims: dims}
}

func (ix *VectorIndex) checkDims(queryVector []float32) error {
	if len(queryVector) != ix.dims {
		return domain.WrapError(
			domain.ErrDimensionMismatch,
			"vector search",
			fmt.Errorf("query vector has %d dimensions, index stores %d", len(queryVector), ix.dims),
		)
	}
	return nil
}

func (ix *VectorIndex) SearchDocuments(
	ctx context.Context,
	scope domain.Scope,
	queryVector []float32,
	filter domain.IndexFilter,
	limit int,
) ([]domain.DocumentHit, error) {
	if err := ix.checkDims(queryVector); err != nil {
		return nil, err
	}

	args := []any{scope.SearchSpaceID, pgvector.NewVector(queryVector)}
	conds := []string{
		"d.search_space_id = $1",
		"d.status = 'ready'",
		"d.embedding IS NOT NULL",
	}
	conds, args = appendFilterConditions(conds, args, filter, "d.id", "d.connector_type")
	args = append(args, limit)

	sqlText := fmt.Sprintf(`
SELECT d.id, d.title, d.connector_type, d.url, 1 - (d.embedding <=> $2::vector) AS score
FROM documents d
WHERE %s
ORDER BY d.embedding <=> $2::vector, d.id
LIMIT $%d
`, strings.Join(conds, " AND "), len(args))

	rows, err := ix.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("vector document search: %w", err)
	}
	defer rows.Close()

	var out []domain.DocumentHit
	for rows.Next() {
		var hit domain.DocumentHit
		var connector string
		if err := rows.Scan(&hit.DocumentID, &hit.Title, &connector, &hit.URL, &hit.Score); err != nil {
			return nil, fmt.Errorf("scan vector document hit: %w", err)
		}
		hit.Connector = domain.ConnectorType(connector)
		out = append(out, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vector document hits: %w", err)
	}
	return out, nil
}

func (ix *VectorIndex) SearchChunks(
	ctx context.Context,
	scope domain.Scope,
	queryVector []float32,
	filter domain.IndexFilter,
	limit int,
) ([]domain.ChunkHit, error) {
	if err := ix.checkDims(queryVector); err != nil {
		return nil, err
	}

	args := []any{scope.SearchSpaceID, pgvector.NewVector(queryVector)}
	conds := []string{
		"d.search_space_id = $1",
		"d.status = 'ready'",
		"c.embedding IS NOT NULL",
	}
	conds, args = appendFilterConditions(conds, args, filter, "c.document_id", "d.connector_type")
	args = append(args, limit)

	sqlText := fmt.Sprintf(`
SELECT c.id, c.document_id, c.ordinal, c.content, d.title, d.connector_type, d.url,
       1 - (c.embedding <=> $2::vector) AS score
FROM chunks c
JOIN documents d ON d.id = c.document_id
WHERE %s
ORDER BY c.embedding <=> $2::vector, c.id
LIMIT $%d
`, strings.Join(conds, " AND "), len(args))

	rows, err := ix.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("vector chunk search: %w", err)
	}
	defer rows.Close()

	return scanChunkHits(rows)
}
