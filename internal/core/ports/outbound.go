package ports

import (
	"context"
	"io"

	"github.com/avasilkov/knowledge-retrieval/internal/core/domain"
)

// LexicalIndex is the full-text side of hybrid retrieval. Every query takes a
// domain.Scope; there is no unscoped code path into the index.
type LexicalIndex interface {
	SearchDocuments(ctx context.Context, scope domain.Scope, query string, filter domain.IndexFilter, limit int) ([]domain.DocumentHit, error)
	SearchChunks(ctx context.Context, scope domain.Scope, query string, filter domain.IndexFilter, limit int) ([]domain.ChunkHit, error)
}

// VectorIndex is the dense side of hybrid retrieval. Similarity is cosine,
// highest first, exact within the returned limit. A query vector whose
// dimensionality differs from the stored vectors fails with
// domain.ErrDimensionMismatch.
type VectorIndex interface {
	SearchDocuments(ctx context.Context, scope domain.Scope, queryVector []float32, filter domain.IndexFilter, limit int) ([]domain.DocumentHit, error)
	SearchChunks(ctx context.Context, scope domain.Scope, queryVector []float32, filter domain.IndexFilter, limit int) ([]domain.ChunkHit, error)
}

// Embedder builds vectors for chunks and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	// MaxInputLength reports the model's maximum input length in runes, or 0
	// when the metadata is unavailable.
	MaxInputLength() int
}

// Reranker scores (query, candidate) pairs with a cross-encoder style model
// and returns the candidates reordered by relevance. Implementations must
// return a permutation of the input; they never add or drop candidates.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []domain.ChunkHit) ([]domain.ChunkHit, error)
}

// Chunker splits extracted text into passages sized to the active embedding
// model's input limit.
type Chunker interface {
	Split(text string) []string
}

type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id int64) (*domain.Document, error)
	UpdateStatus(ctx context.Context, id int64, status domain.DocumentStatus, errMessage string) error
	// SaveProcessed stores the extracted text and the document-level
	// embedding computed from the title and leading content.
	SaveProcessed(ctx context.Context, id int64, content string, embedding []float32) error
}

type ChunkRepository interface {
	// ReplaceForDocument atomically swaps the document's chunk set. Retrieval
	// never observes a partially written chunk set.
	ReplaceForDocument(ctx context.Context, documentID int64, chunks []string, vectors [][]float32) error
}

type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

type MessageQueue interface {
	PublishDocumentIngested(ctx context.Context, documentID int64) error
	SubscribeDocumentIngested(ctx context.Context, handler func(context.Context, int64) error) error
}

type TextExtractor interface {
	Extract(ctx context.Context, doc *domain.Document) (string, error)
}
