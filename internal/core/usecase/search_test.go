package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/avasilkov/knowledge-retrieval/internal/core/domain"
)

type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) Embed(context.Context, []string) ([][]float32, error) { return nil, nil }
func (f *fakeEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}
func (f *fakeEmbedder) MaxInputLength() int { return 0 }

type fakeLexicalIndex struct {
	docHits   []domain.DocumentHit
	chunkHits []domain.ChunkHit
	docErr    error
	chunkErr  error

	docCalls       int
	chunkCalls     int
	gotChunkFilter domain.IndexFilter
	gotDocLimit    int
	gotChunkLimit  int
}

func (f *fakeLexicalIndex) SearchDocuments(_ context.Context, _ domain.Scope, _ string, _ domain.IndexFilter, limit int) ([]domain.DocumentHit, error) {
	f.docCalls++
	f.gotDocLimit = limit
	return f.docHits, f.docErr
}

func (f *fakeLexicalIndex) SearchChunks(_ context.Context, _ domain.Scope, _ string, filter domain.IndexFilter, limit int) ([]domain.ChunkHit, error) {
	f.chunkCalls++
	f.gotChunkFilter = filter
	f.gotChunkLimit = limit
	return f.chunkHits, f.chunkErr
}

type fakeVectorIndex struct {
	docHits   []domain.DocumentHit
	chunkHits []domain.ChunkHit
	docErr    error
	chunkErr  error

	docCalls       int
	chunkCalls     int
	gotChunkFilter domain.IndexFilter
}

func (f *fakeVectorIndex) SearchDocuments(_ context.Context, _ domain.Scope, _ []float32, _ domain.IndexFilter, _ int) ([]domain.DocumentHit, error) {
	f.docCalls++
	return f.docHits, f.docErr
}

func (f *fakeVectorIndex) SearchChunks(_ context.Context, _ domain.Scope, _ []float32, filter domain.IndexFilter, _ int) ([]domain.ChunkHit, error) {
	f.chunkCalls++
	f.gotChunkFilter = filter
	return f.chunkHits, f.chunkErr
}

func docHit(id int64) domain.DocumentHit {
	return domain.DocumentHit{DocumentID: id, Title: "doc", Connector: domain.ConnectorFile}
}

func chunkHit(id, docID int64, content string) domain.ChunkHit {
	return domain.ChunkHit{
		ChunkID:    id,
		DocumentID: docID,
		Content:    content,
		Title:      "doc",
		Connector:  domain.ConnectorFile,
	}
}

func newSearchFixture(lexical *fakeLexicalIndex, vector *fakeVectorIndex) *SearchUseCase {
	return NewSearchUseCase(&fakeEmbedder{}, lexical, vector, nil, SearchOptions{
		CandidateMultiplier: 5,
		DocTierTopN:         3,
		SubQueryTimeout:     time.Second,
	})
}

func TestSearchRejectsInvalidRequests(t *testing.T) {
	uc := newSearchFixture(&fakeLexicalIndex{}, &fakeVectorIndex{})

	cases := []struct {
		name string
		req  domain.QueryRequest
	}{
		{"missing search space", domain.QueryRequest{Query: "q", TopK: 5}},
		{"empty query", domain.QueryRequest{SearchSpaceID: 1, Query: "  ", TopK: 5}},
		{"non-positive top_k", domain.QueryRequest{SearchSpaceID: 1, Query: "q"}},
		{"unknown mode", domain.QueryRequest{SearchSpaceID: 1, Query: "q", TopK: 5, Mode: "fuzzy"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := uc.Search(context.Background(), tc.req)
			if !domain.IsKind(err, domain.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestSearchHierarchicalNarrowsChunkTier(t *testing.T) {
	lexical := &fakeLexicalIndex{
		docHits:   []domain.DocumentHit{docHit(10), docHit(20)},
		chunkHits: []domain.ChunkHit{chunkHit(1, 10, "alpha"), chunkHit(2, 20, "beta")},
	}
	vector := &fakeVectorIndex{
		docHits:   []domain.DocumentHit{docHit(20), docHit(30)},
		chunkHits: []domain.ChunkHit{chunkHit(2, 20, "beta")},
	}
	uc := newSearchFixture(lexical, vector)

	resp, err := uc.Search(context.Background(), domain.QueryRequest{
		SearchSpaceID: 1,
		Query:         "refund policy",
		TopK:          5,
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	// The chunk tier must be restricted to the document tier's fused output.
	allowed := map[int64]bool{}
	for _, id := range lexical.gotChunkFilter.DocumentIDs {
		allowed[id] = true
	}
	if !allowed[10] || !allowed[20] || !allowed[30] {
		t.Fatalf("expected doc allowlist {10,20,30}, got %v", lexical.gotChunkFilter.DocumentIDs)
	}
	for _, result := range resp.Results {
		if !allowed[result.DocumentID] {
			t.Fatalf("result from document %d outside first-tier output", result.DocumentID)
		}
	}

	// Chunk 2 is in both lists and must rank first.
	if resp.Results[0].ID != 2 {
		t.Fatalf("expected chunk 2 first, got %d", resp.Results[0].ID)
	}
	for i, result := range resp.Results {
		if result.Rank != i+1 {
			t.Fatalf("expected dense ranks, got rank %d at position %d", result.Rank, i)
		}
	}
	if resp.Degraded {
		t.Fatalf("unexpected degraded flag: %s", resp.DegradedReason)
	}
}

func TestSearchFlatModeSkipsDocumentTier(t *testing.T) {
	lexical := &fakeLexicalIndex{chunkHits: []domain.ChunkHit{chunkHit(1, 10, "alpha")}}
	vector := &fakeVectorIndex{chunkHits: []domain.ChunkHit{chunkHit(1, 10, "alpha")}}
	uc := newSearchFixture(lexical, vector)

	_, err := uc.Search(context.Background(), domain.QueryRequest{
		SearchSpaceID:  1,
		Query:          "q",
		TopK:           5,
		Mode:           domain.ModeFlat,
		DocumentFilter: []int64{10, 11},
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if lexical.docCalls != 0 || vector.docCalls != 0 {
		t.Fatalf("flat mode must not touch the document tier")
	}
	if len(lexical.gotChunkFilter.DocumentIDs) != 2 {
		t.Fatalf("caller allowlist must pass through unchanged, got %v", lexical.gotChunkFilter.DocumentIDs)
	}
}

func TestSearchEmptyDocumentTierShortCircuits(t *testing.T) {
	lexical := &fakeLexicalIndex{}
	vector := &fakeVectorIndex{}
	uc := newSearchFixture(lexical, vector)

	resp, err := uc.Search(context.Background(), domain.QueryRequest{
		SearchSpaceID: 1,
		Query:         "nothing matches",
		TopK:          5,
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(resp.Results) != 0 {
		t.Fatalf("expected empty results, got %d", len(resp.Results))
	}
	if lexical.chunkCalls != 0 || vector.chunkCalls != 0 {
		t.Fatalf("chunk tier must not run when the document tier is empty")
	}
}

func TestSearchVectorTimeoutDegradesToLexical(t *testing.T) {
	lexical := &fakeLexicalIndex{
		docHits:   []domain.DocumentHit{docHit(10)},
		chunkHits: []domain.ChunkHit{chunkHit(1, 10, "alpha")},
	}
	vector := &fakeVectorIndex{
		docErr:   context.DeadlineExceeded,
		chunkErr: context.DeadlineExceeded,
	}
	uc := newSearchFixture(lexical, vector)

	resp, err := uc.Search(context.Background(), domain.QueryRequest{
		SearchSpaceID: 1,
		Query:         "q",
		TopK:          5,
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if !resp.Degraded {
		t.Fatalf("expected degraded response")
	}
	if resp.DegradedReason == "" {
		t.Fatalf("expected a degraded reason")
	}
	if len(resp.Results) != 1 || resp.Results[0].ID != 1 {
		t.Fatalf("expected the surviving lexical result, got %+v", resp.Results)
	}
}

func TestSearchBothLegsTimedOutIsTemporary(t *testing.T) {
	lexical := &fakeLexicalIndex{docErr: context.DeadlineExceeded}
	vector := &fakeVectorIndex{docErr: context.DeadlineExceeded}
	uc := newSearchFixture(lexical, vector)

	_, err := uc.Search(context.Background(), domain.QueryRequest{SearchSpaceID: 1, Query: "q", TopK: 5})
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected ErrTemporary, got %v", err)
	}
}

func TestSearchNonTimeoutIndexErrorIsFatal(t *testing.T) {
	indexErr := errors.New("connection refused")
	lexical := &fakeLexicalIndex{docHits: []domain.DocumentHit{docHit(10)}}
	vector := &fakeVectorIndex{docErr: indexErr}
	uc := newSearchFixture(lexical, vector)

	_, err := uc.Search(context.Background(), domain.QueryRequest{SearchSpaceID: 1, Query: "q", TopK: 5})
	if !errors.Is(err, indexErr) {
		t.Fatalf("expected fatal index error, got %v", err)
	}
}

func TestSearchEmbedFailureIsFatalUnlessLexicalOnly(t *testing.T) {
	lexical := &fakeLexicalIndex{
		docHits:   []domain.DocumentHit{docHit(10)},
		chunkHits: []domain.ChunkHit{chunkHit(1, 10, "alpha")},
	}
	vector := &fakeVectorIndex{}
	embedder := &fakeEmbedder{err: errors.New("provider down")}
	uc := NewSearchUseCase(embedder, lexical, vector, nil, SearchOptions{SubQueryTimeout: time.Second})

	_, err := uc.Search(context.Background(), domain.QueryRequest{SearchSpaceID: 1, Query: "q", TopK: 5})
	if !domain.IsKind(err, domain.ErrEmbeddingUnavailable) {
		t.Fatalf("expected ErrEmbeddingUnavailable, got %v", err)
	}

	resp, err := uc.Search(context.Background(), domain.QueryRequest{
		SearchSpaceID: 1,
		Query:         "q",
		TopK:          5,
		LexicalOnly:   true,
	})
	if err != nil {
		t.Fatalf("lexical-only Search() error = %v", err)
	}
	if vector.docCalls != 0 || vector.chunkCalls != 0 {
		t.Fatalf("lexical-only mode must not query the vector index, doc=%d chunk=%d", vector.docCalls, vector.chunkCalls)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(resp.Results))
	}
}

func TestSearchTruncatesToTopK(t *testing.T) {
	lexical := &fakeLexicalIndex{
		docHits: []domain.DocumentHit{docHit(10)},
		chunkHits: []domain.ChunkHit{
			chunkHit(1, 10, "a"), chunkHit(2, 10, "b"), chunkHit(3, 10, "c"), chunkHit(4, 10, "d"),
		},
	}
	vector := &fakeVectorIndex{docHits: []domain.DocumentHit{docHit(10)}}
	uc := newSearchFixture(lexical, vector)

	resp, err := uc.Search(context.Background(), domain.QueryRequest{SearchSpaceID: 1, Query: "q", TopK: 2})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("expected top_k=2 results, got %d", len(resp.Results))
	}
	if lexical.gotChunkLimit != 10 {
		t.Fatalf("expected candidate limit top_k*multiplier=10, got %d", lexical.gotChunkLimit)
	}
}
