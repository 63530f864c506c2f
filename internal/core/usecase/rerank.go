package usecase

import (
	"context"
	"log/slog"

	"github.com/avasilkov/knowledge-retrieval/internal/core/domain"
)

// applyRerank runs the cross-encoder stage over the fused candidates. The
// stage is a quality enhancement, never a hard dependency: on any error the
// RRF order is returned unchanged and the result is not marked degraded.
func (uc *SearchUseCase) applyRerank(ctx context.Context, query string, fused []domain.ChunkHit) []domain.ChunkHit {
	if len(fused) == 0 {
		return fused
	}

	reranked, err := uc.reranker.Rerank(ctx, query, fused)
	if err != nil {
		slog.Warn("rerank_skipped", "candidates", len(fused), "error", err)
		return fused
	}
	return restrictToCandidates(fused, reranked)
}

// restrictToCandidates guarantees the rerank stage only reorders: candidates
// not present in the fused set are dropped, and fused candidates the reranker
// lost are appended in their original order.
func restrictToCandidates(fused, reranked []domain.ChunkHit) []domain.ChunkHit {
	allowed := make(map[int64]struct{}, len(fused))
	for _, h := range fused {
		allowed[h.ChunkID] = struct{}{}
	}

	out := make([]domain.ChunkHit, 0, len(fused))
	seen := make(map[int64]struct{}, len(fused))
	for _, h := range reranked {
		if _, ok := allowed[h.ChunkID]; !ok {
			continue
		}
		if _, dup := seen[h.ChunkID]; dup {
			continue
		}
		seen[h.ChunkID] = struct{}{}
		out = append(out, h)
	}
	for _, h := range fused {
		if _, ok := seen[h.ChunkID]; !ok {
			out = append(out, h)
		}
	}
	return out
}
