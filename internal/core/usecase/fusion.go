package usecase

import "sort"

const defaultRRFK = 60

// fusedRank is one id scored by reciprocal rank fusion.
type fusedRank struct {
	ID    int64
	Score float64
}

// fuseRanksRRF merges two ranked id lists (best first) with reciprocal rank
// fusion: score(id) = sum over lists containing id of 1/(k+rank), rank
// 1-based. Ids present in only one list still score; ids in neither are
// excluded by construction. Ordering is fully deterministic: score
// descending, then the better (smaller) per-list rank, then id ascending.
// The tie-break keeps fused output reproducible bit-for-bit.
func fuseRanksRRF(lexical, vector []int64, k int) []fusedRank {
	if k <= 0 {
		k = defaultRRFK
	}

	type candidate struct {
		score    float64
		bestRank int
	}
	acc := make(map[int64]candidate, len(lexical)+len(vector))
	addList := func(ids []int64) {
		for i, id := range ids {
			rank := i + 1
			c, seen := acc[id]
			if !seen || rank < c.bestRank {
				c.bestRank = rank
			}
			c.score += 1.0 / float64(k+rank)
			acc[id] = c
		}
	}
	addList(lexical)
	addList(vector)

	out := make([]fusedRank, 0, len(acc))
	ranks := make(map[int64]int, len(acc))
	for id, c := range acc {
		out = append(out, fusedRank{ID: id, Score: c.score})
		ranks[id] = c.bestRank
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		if ranks[out[i].ID] != ranks[out[j].ID] {
			return ranks[out[i].ID] < ranks[out[j].ID]
		}
		return out[i].ID < out[j].ID
	})

	return out
}

func truncateFused(ranks []fusedRank, limit int) []fusedRank {
	if limit <= 0 || len(ranks) <= limit {
		return ranks
	}
	return ranks[:limit]
}
