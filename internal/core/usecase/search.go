package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/avasilkov/knowledge-retrieval/internal/core/domain"
	"github.com/avasilkov/knowledge-retrieval/internal/core/ports"
)

const maxExcerptRunes = 600

// SearchOptions is the tuning surface of the retrieval engine. Values are
// configuration, not constants; zero values fall back to defaults.
type SearchOptions struct {
	// RRFK is the damping constant of reciprocal rank fusion.
	RRFK int
	// CandidateMultiplier scales the pre-fusion candidate limit of each
	// sub-query relative to the requested result count (floor: the count
	// itself). More candidates give fusion more signal.
	CandidateMultiplier int
	// DocTierTopN is how many documents the first tier hands to the second.
	DocTierTopN int
	// SubQueryTimeout bounds each lexical/vector sub-query individually.
	SubQueryTimeout time.Duration
	// RerankEnabled is the tenant default; a request may override it.
	RerankEnabled bool
}

func (o SearchOptions) normalize() SearchOptions {
	if o.RRFK <= 0 {
		o.RRFK = defaultRRFK
	}
	if o.CandidateMultiplier <= 1 {
		o.CandidateMultiplier = 5
	}
	if o.DocTierTopN <= 0 {
		o.DocTierTopN = 15
	}
	if o.SubQueryTimeout <= 0 {
		o.SubQueryTimeout = 3 * time.Second
	}
	return o
}

// SearchUseCase drives the two-tier hybrid retrieval flow: scope filter,
// document tier, chunk tier, fusion and the optional rerank stage. It is
// stateless per call; concurrent requests share the underlying indexes
// read-only.
type SearchUseCase struct {
	embedder ports.Embedder
	lexical  ports.LexicalIndex
	vector   ports.VectorIndex
	reranker ports.Reranker
	opts     SearchOptions
}

// NewSearchUseCase wires the retrieval engine. reranker may be nil, in which
// case the rerank stage is never applied.
func NewSearchUseCase(
	embedder ports.Embedder,
	lexical ports.LexicalIndex,
	vector ports.VectorIndex,
	reranker ports.Reranker,
	opts SearchOptions,
) *SearchUseCase {
	return &SearchUseCase{
		embedder: embedder,
		lexical:  lexical,
		vector:   vector,
		reranker: reranker,
		opts:     opts.normalize(),
	}
}

func (uc *SearchUseCase) Search(ctx context.Context, req domain.QueryRequest) (*domain.SearchResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	scope, err := domain.NewScope(req.SearchSpaceID)
	if err != nil {
		return nil, err
	}

	var queryVector []float32
	if !req.LexicalOnly {
		queryVector, err = uc.embedder.EmbedQuery(ctx, req.Query)
		if err != nil {
			return nil, domain.WrapError(domain.ErrEmbeddingUnavailable, "embed query", err)
		}
	}

	filter := domain.IndexFilter{
		DocumentIDs: req.DocumentFilter,
		Connectors:  req.Connectors,
	}
	var degradedReasons []string

	if req.EffectiveMode() == domain.ModeHierarchical {
		docIDs, reasons, err := uc.searchDocumentTier(ctx, scope, req.Query, queryVector, filter, req.LexicalOnly)
		if err != nil {
			return nil, err
		}
		degradedReasons = append(degradedReasons, reasons...)
		if len(docIDs) == 0 {
			return buildResponse(nil, degradedReasons), nil
		}
		// Chunk tier is restricted to the first tier's output from here on.
		filter.DocumentIDs = docIDs
	}

	hits, reasons, err := uc.searchChunkTier(ctx, scope, req.Query, queryVector, filter, req.TopK, req.LexicalOnly)
	if err != nil {
		return nil, err
	}
	degradedReasons = append(degradedReasons, reasons...)

	if uc.rerankRequested(req) {
		hits = uc.applyRerank(ctx, req.Query, hits)
	}
	if len(hits) > req.TopK {
		hits = hits[:req.TopK]
	}

	return buildResponse(hits, degradedReasons), nil
}

func (uc *SearchUseCase) rerankRequested(req domain.QueryRequest) bool {
	if uc.reranker == nil {
		return false
	}
	if req.Rerank != nil {
		return *req.Rerank
	}
	return uc.opts.RerankEnabled
}

func (uc *SearchUseCase) candidateLimit(n int) int {
	limit := n * uc.opts.CandidateMultiplier
	if limit < n {
		limit = n
	}
	return limit
}

func buildResponse(hits []domain.ChunkHit, degradedReasons []string) *domain.SearchResponse {
	results := make([]domain.RankedResult, 0, len(hits))
	for i, h := range hits {
		results = append(results, domain.RankedResult{
			ID:         h.ChunkID,
			Score:      h.Score,
			Rank:       i + 1,
			DocumentID: h.DocumentID,
			Connector:  h.Connector,
			Title:      h.Title,
			URL:        h.URL,
			Excerpt:    excerpt(h.Content),
		})
	}
	return &domain.SearchResponse{
		Results:        results,
		Degraded:       len(degradedReasons) > 0,
		DegradedReason: strings.Join(degradedReasons, "; "),
	}
}

func excerpt(content string) string {
	runes := []rune(strings.TrimSpace(content))
	if len(runes) <= maxExcerptRunes {
		return string(runes)
	}
	return string(runes[:maxExcerptRunes])
}
