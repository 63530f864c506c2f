package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/avasilkov/knowledge-retrieval/internal/core/domain"
	"github.com/avasilkov/knowledge-retrieval/internal/core/ports"
)

// ProcessDocumentUseCase is the worker-side pipeline: extract text, chunk it
// to the embedding model's input size, embed chunks plus a document-level
// representation, and publish the complete row set in one transaction.
type ProcessDocumentUseCase struct {
	docs      ports.DocumentRepository
	chunkRepo ports.ChunkRepository
	extractor ports.TextExtractor
	chunker   ports.Chunker
	embedder  ports.Embedder
}

func NewProcessDocumentUseCase(
	docs ports.DocumentRepository,
	chunkRepo ports.ChunkRepository,
	extractor ports.TextExtractor,
	chunker ports.Chunker,
	embedder ports.Embedder,
) *ProcessDocumentUseCase {
	return &ProcessDocumentUseCase{
		docs:      docs,
		chunkRepo: chunkRepo,
		extractor: extractor,
		chunker:   chunker,
		embedder:  embedder,
	}
}

func (uc *ProcessDocumentUseCase) ProcessByID(ctx context.Context, documentID int64) error {
	if err := uc.docs.UpdateStatus(ctx, documentID, domain.StatusProcessing, ""); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	if err := uc.processPipeline(ctx, documentID); err != nil {
		if failErr := uc.docs.UpdateStatus(ctx, documentID, domain.StatusFailed, err.Error()); failErr != nil {
			return fmt.Errorf("%w; mark failed status: %v", err, failErr)
		}
		return err
	}

	if err := uc.docs.UpdateStatus(ctx, documentID, domain.StatusReady, ""); err != nil {
		return fmt.Errorf("set status=ready: %w", err)
	}
	return nil
}

func (uc *ProcessDocumentUseCase) processPipeline(ctx context.Context, documentID int64) error {
	doc, err := uc.docs.GetByID(ctx, documentID)
	if err != nil {
		return fmt.Errorf("fetch document by id: %w", err)
	}

	text, err := uc.extractor.Extract(ctx, doc)
	if err != nil {
		return fmt.Errorf("extract text: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return domain.WrapError(domain.ErrInvalidInput, "extract text", errors.New("empty extracted text"))
	}

	chunks := uc.chunker.Split(text)
	if len(chunks) == 0 {
		return domain.WrapError(domain.ErrInvalidInput, "chunk document", errors.New("chunking produced zero chunks"))
	}

	// The document-level representation narrows the corpus in the first
	// search tier: the title plus the leading chunk stand in for the whole
	// document.
	docRepr := strings.TrimSpace(doc.Title + "\n" + chunks[0])

	vectors, err := uc.embedder.Embed(ctx, append([]string{docRepr}, chunks...))
	if err != nil {
		return fmt.Errorf("embed document: %w", err)
	}
	if len(vectors) != len(chunks)+1 {
		return domain.WrapError(
			domain.ErrInvalidInput,
			"embed document",
			fmt.Errorf("vectors/chunks mismatch: %d/%d", len(vectors), len(chunks)+1),
		)
	}

	if err := uc.docs.SaveProcessed(ctx, doc.ID, text, vectors[0]); err != nil {
		return fmt.Errorf("save processed document: %w", err)
	}
	if err := uc.chunkRepo.ReplaceForDocument(ctx, doc.ID, chunks, vectors[1:]); err != nil {
		return fmt.Errorf("replace chunks: %w", err)
	}
	return nil
}
