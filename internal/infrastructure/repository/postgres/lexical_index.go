package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/avasilkov/knowledge-retrieval/internal/core/domain"
)

// LexicalIndex answers ranked full-text queries over the generated tsvector
// columns. Ranking is ts_rank_cd (term frequency with document length
// normalization); ties break on most-recently-updated first. A query with no
// matching terms returns an empty list, not an error.
type LexicalIndex struct {
	db *sql.DB
}

func NewLexicalIndex(db *sql.DB) *LexicalIndex {
	return &LexicalIndex{db: db}
}

func (ix *LexicalIndex) SearchDocuments(
	ctx context.Context,
	scope domain.Scope,
	query string,
	filter domain.IndexFilter,
	limit int,
) ([]domain.DocumentHit, error) {
	args := []any{scope.SearchSpaceID, query}
	conds := []string{
		"d.search_space_id = $1",
		"d.status = 'ready'",
		"d.content_tsv @@ q",
	}
	conds, args = appendFilterConditions(conds, args, filter, "d.id", "d.connector_type")
	args = append(args, limit)

	sqlText := fmt.Sprintf(`
SELECT d.id, d.title, d.connector_type, d.url, ts_rank_cd(d.content_tsv, q) AS score
FROM documents d, websearch_to_tsquery('english', $2) q
WHERE %s
ORDER BY score DESC, d.updated_at DESC, d.id
LIMIT $%d
`, strings.Join(conds, " AND "), len(args))

	rows, err := ix.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("lexical document search: %w", err)
	}
	defer rows.Close()

	var out []domain.DocumentHit
	for rows.Next() {
		var hit domain.DocumentHit
		var connector string
		if err := rows.Scan(&hit.DocumentID, &hit.Title, &connector, &hit.URL, &hit.Score); err != nil {
			return nil, fmt.Errorf("scan lexical document hit: %w", err)
		}
		hit.Connector = domain.ConnectorType(connector)
		out = append(out, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lexical document hits: %w", err)
	}
	return out, nil
}

func (ix *LexicalIndex) SearchChunks(
	ctx context.Context,
	scope domain.Scope,
	query string,
	filter domain.IndexFilter,
	limit int,
) ([]domain.ChunkHit, error) {
	args := []any{scope.SearchSpaceID, query}
	conds := []string{
		"d.search_space_id = $1",
		"d.status = 'ready'",
		"c.content_tsv @@ q",
	}
	conds, args = appendFilterConditions(conds, args, filter, "c.document_id", "d.connector_type")
	args = append(args, limit)

	sqlText := fmt.Sprintf(`
SELECT c.id, c.document_id, c.ordinal, c.content, d.title, d.connector_type, d.url,
       ts_rank_cd(c.content_tsv, q) AS score
FROM chunks c
JOIN documents d ON d.id = c.document_id, websearch_to_tsquery('english', $2) q
WHERE %s
ORDER BY score DESC, d.updated_at DESC, c.id
LIMIT $%d
`, strings.Join(conds, " AND "), len(args))

	rows, err := ix.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("lexical chunk search: %w", err)
	}
	defer rows.Close()

	return scanChunkHits(rows)
}

func scanChunkHits(rows *sql.Rows) ([]domain.ChunkHit, error) {
	var out []domain.ChunkHit
	for rows.Next() {
		var hit domain.ChunkHit
		var connector string
		if err := rows.Scan(
			&hit.ChunkID, &hit.DocumentID, &hit.Ordinal, &hit.Content,
			&hit.Title, &connector, &hit.URL, &hit.Score,
		); err != nil {
			return nil, fmt.Errorf("scan chunk hit: %w", err)
		}
		hit.Connector = domain.ConnectorType(connector)
		out = append(out, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunk hits: %w", err)
	}
	return out, nil
}
