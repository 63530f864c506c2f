package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/avasilkov/knowledge-retrieval/internal/core/domain"
)

// searchDocumentTier narrows the corpus to the top-N candidate documents by
// fusing a lexical and a vector ranking over document-level representations.
func (uc *SearchUseCase) searchDocumentTier(
	ctx context.Context,
	scope domain.Scope,
	query string,
	queryVector []float32,
	filter domain.IndexFilter,
	lexicalOnly bool,
) ([]int64, []string, error) {
	limit := uc.candidateLimit(uc.opts.DocTierTopN)

	var lexHits, vecHits []domain.DocumentHit
	lexErr, vecErr := uc.runSubQueryPair(ctx,
		func(subCtx context.Context) error {
			hits, err := uc.lexical.SearchDocuments(subCtx, scope, query, filter, limit)
			lexHits = hits
			return err
		},
		func(subCtx context.Context) error {
			hits, err := uc.vector.SearchDocuments(subCtx, scope, queryVector, filter, limit)
			vecHits = hits
			return err
		},
		lexicalOnly,
	)

	reasons, err := classifySubQueryErrors(ctx, "document tier", lexErr, vecErr, lexicalOnly)
	if err != nil {
		return nil, nil, err
	}
	if len(reasons) > 0 {
		if lexErr != nil {
			lexHits = nil
		}
		if vecErr != nil {
			vecHits = nil
		}
	}

	lexIDs := make([]int64, 0, len(lexHits))
	for _, h := range lexHits {
		lexIDs = append(lexIDs, h.DocumentID)
	}
	vecIDs := make([]int64, 0, len(vecHits))
	for _, h := range vecHits {
		vecIDs = append(vecIDs, h.DocumentID)
	}

	fused := truncateFused(fuseRanksRRF(lexIDs, vecIDs, uc.opts.RRFK), uc.opts.DocTierTopN)
	ids := make([]int64, 0, len(fused))
	for _, f := range fused {
		ids = append(ids, f.ID)
	}
	return ids, reasons, nil
}

// searchChunkTier ranks chunks within the given filter (the document tier's
// output in hierarchical mode, the caller's allowlist or the whole scope in
// flat mode) and returns fused hits with provenance, truncated to topK.
func (uc *SearchUseCase) searchChunkTier(
	ctx context.Context,
	scope domain.Scope,
	query string,
	queryVector []float32,
	filter domain.IndexFilter,
	topK int,
	lexicalOnly bool,
) ([]domain.ChunkHit, []string, error) {
	limit := uc.candidateLimit(topK)

	var lexHits, vecHits []domain.ChunkHit
	lexErr, vecErr := uc.runSubQueryPair(ctx,
		func(subCtx context.Context) error {
			hits, err := uc.lexical.SearchChunks(subCtx, scope, query, filter, limit)
			lexHits = hits
			return err
		},
		func(subCtx context.Context) error {
			hits, err := uc.vector.SearchChunks(subCtx, scope, queryVector, filter, limit)
			vecHits = hits
			return err
		},
		lexicalOnly,
	)

	reasons, err := classifySubQueryErrors(ctx, "chunk tier", lexErr, vecErr, lexicalOnly)
	if err != nil {
		return nil, nil, err
	}
	if len(reasons) > 0 {
		if lexErr != nil {
			lexHits = nil
		}
		if vecErr != nil {
			vecHits = nil
		}
	}

	byID := make(map[int64]domain.ChunkHit, len(lexHits)+len(vecHits))
	lexIDs := make([]int64, 0, len(lexHits))
	for _, h := range lexHits {
		lexIDs = append(lexIDs, h.ChunkID)
		byID[h.ChunkID] = h
	}
	vecIDs := make([]int64, 0, len(vecHits))
	for _, h := range vecHits {
		vecIDs = append(vecIDs, h.ChunkID)
		byID[h.ChunkID] = h
	}

	fused := truncateFused(fuseRanksRRF(lexIDs, vecIDs, uc.opts.RRFK), topK)
	out := make([]domain.ChunkHit, 0, len(fused))
	for _, f := range fused {
		hit := byID[f.ID]
		hit.Score = f.Score
		out = append(out, hit)
	}
	return out, reasons, nil
}

// runSubQueryPair executes the lexical and vector sub-queries concurrently,
// each under its own timeout derived from the request context. Both legs
// observe cancellation of the parent context. In lexical-only mode the vector
// leg is not started at all.
func (uc *SearchUseCase) runSubQueryPair(
	ctx context.Context,
	lexical func(context.Context) error,
	vector func(context.Context) error,
	lexicalOnly bool,
) (lexErr, vecErr error) {
	run := func(fn func(context.Context) error) error {
		subCtx, cancel := context.WithTimeout(ctx, uc.opts.SubQueryTimeout)
		defer cancel()
		return fn(subCtx)
	}

	if lexicalOnly {
		return run(lexical), nil
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		lexErr = run(lexical)
	}()
	go func() {
		defer wg.Done()
		vecErr = run(vector)
	}()
	wg.Wait()
	return lexErr, vecErr
}

// classifySubQueryErrors decides how the pair outcome surfaces. A timed-out
// leg is recoverable and becomes a degraded-result reason; any other failure
// is fatal. Fusion never proceeds silently on a partial list, and it never
// proceeds at all when no list survives.
func classifySubQueryErrors(ctx context.Context, tier string, lexErr, vecErr error, lexicalOnly bool) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var reasons []string
	for _, leg := range []struct {
		name string
		err  error
	}{
		{"lexical", lexErr},
		{"vector", vecErr},
	} {
		if leg.err == nil {
			continue
		}
		if errors.Is(leg.err, context.DeadlineExceeded) {
			reasons = append(reasons, fmt.Sprintf("%s: %s sub-query timed out", tier, leg.name))
			continue
		}
		return nil, fmt.Errorf("%s: %s sub-query: %w", tier, leg.name, leg.err)
	}

	if lexErr != nil && (lexicalOnly || vecErr != nil) {
		return nil, domain.WrapError(domain.ErrTemporary, tier, errors.New("no retrieval sub-query survived"))
	}
	return reasons, nil
}
