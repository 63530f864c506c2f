package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/avasilkov/knowledge-retrieval/internal/core/domain"
)

type countingEmbedder struct {
	gotTexts []string
	err      error
}

func (f *countingEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.gotTexts = texts
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{float32(i)}
	}
	return out, nil
}

func (f *countingEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	return []float32{0}, nil
}
func (f *countingEmbedder) MaxInputLength() int { return 0 }

type fakeChunkRepo struct {
	gotDocID   int64
	gotChunks  []string
	gotVectors [][]float32
	err        error
}

func (f *fakeChunkRepo) ReplaceForDocument(_ context.Context, documentID int64, chunks []string, vectors [][]float32) error {
	f.gotDocID = documentID
	f.gotChunks = chunks
	f.gotVectors = vectors
	return f.err
}

type fakeExtractor struct {
	text string
	err  error
}

func (f *fakeExtractor) Extract(context.Context, *domain.Document) (string, error) {
	return f.text, f.err
}

type fakeChunker struct {
	chunks []string
}

func (f *fakeChunker) Split(string) []string { return f.chunks }

func processFixtureDoc() *domain.Document {
	return &domain.Document{
		ID:            42,
		SearchSpaceID: 3,
		Title:         "Refund policy",
		Status:        domain.StatusUploaded,
	}
}

func TestProcessByIDHappyPath(t *testing.T) {
	repo := &fakeDocumentRepo{doc: processFixtureDoc()}
	chunkRepo := &fakeChunkRepo{}
	embedder := &countingEmbedder{}
	uc := NewProcessDocumentUseCase(repo, chunkRepo,
		&fakeExtractor{text: "refunds take 5 days"},
		&fakeChunker{chunks: []string{"refunds take 5 days"}},
		embedder,
	)

	if err := uc.ProcessByID(context.Background(), 42); err != nil {
		t.Fatalf("ProcessByID() error = %v", err)
	}

	if len(repo.statuses) != 2 || repo.statuses[0] != domain.StatusProcessing || repo.statuses[1] != domain.StatusReady {
		t.Fatalf("expected processing then ready, got %v", repo.statuses)
	}
	if !repo.saved {
		t.Fatalf("expected document-level embedding saved")
	}
	if chunkRepo.gotDocID != 42 || len(chunkRepo.gotChunks) != 1 {
		t.Fatalf("expected chunk replacement for doc 42, got %d/%d", chunkRepo.gotDocID, len(chunkRepo.gotChunks))
	}

	// The first embedded text is the document representation (title + leading
	// chunk), the rest are the chunks themselves.
	if len(embedder.gotTexts) != 2 {
		t.Fatalf("expected doc representation plus 1 chunk, got %d texts", len(embedder.gotTexts))
	}
	if embedder.gotTexts[0] != "Refund policy\nrefunds take 5 days" {
		t.Fatalf("unexpected document representation: %q", embedder.gotTexts[0])
	}
	if len(chunkRepo.gotVectors) != 1 {
		t.Fatalf("expected chunk vectors without the document vector, got %d", len(chunkRepo.gotVectors))
	}
}

func TestProcessByIDMarksFailedOnEmptyText(t *testing.T) {
	repo := &fakeDocumentRepo{doc: processFixtureDoc()}
	uc := NewProcessDocumentUseCase(repo, &fakeChunkRepo{},
		&fakeExtractor{text: "   "},
		&fakeChunker{},
		&countingEmbedder{},
	)

	err := uc.ProcessByID(context.Background(), 42)
	if err == nil {
		t.Fatalf("expected error for empty extracted text")
	}
	if len(repo.statuses) != 2 || repo.statuses[1] != domain.StatusFailed {
		t.Fatalf("expected failed status recorded, got %v", repo.statuses)
	}
	if repo.errMessage == "" {
		t.Fatalf("expected failure message persisted")
	}
}

func TestProcessByIDMarksFailedOnEmbedError(t *testing.T) {
	repo := &fakeDocumentRepo{doc: processFixtureDoc()}
	uc := NewProcessDocumentUseCase(repo, &fakeChunkRepo{},
		&fakeExtractor{text: "some text"},
		&fakeChunker{chunks: []string{"some text"}},
		&countingEmbedder{err: errors.New("provider down")},
	)

	err := uc.ProcessByID(context.Background(), 42)
	if err == nil {
		t.Fatalf("expected error when embedding fails")
	}
	if repo.statuses[len(repo.statuses)-1] != domain.StatusFailed {
		t.Fatalf("expected failed status, got %v", repo.statuses)
	}
}
