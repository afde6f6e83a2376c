package search

import (
	"sort"

	"github.com/kailas-cloud/vecshard/internal/domain"
)

// mergeTopK folds per-shard top-k lists into a global top-k.
// descending selects the ranking direction: similarity metrics (IP, cosine)
// rank high scores first, L2 distance ranks low scores first. Ties break by
// id so repeated queries return identical orderings.
func mergeTopK(perShard [][]domain.SearchResult, topK int, descending bool) []domain.SearchResult {
	total := 0
	for _, rs := range perShard {
		total += len(rs)
	}
	if total == 0 {
		return []domain.SearchResult{}
	}

	merged := make([]domain.SearchResult, 0, total)
	for _, rs := range perShard {
		merged = append(merged, rs...)
	}

	sort.Slice(merged, func(i, j int) bool {
		a, b := merged[i], merged[j]
		if a.Score != b.Score {
			if descending {
				return a.Score > b.Score
			}
			return a.Score < b.Score
		}
		return a.ID < b.ID
	})

	if len(merged) > topK {
		merged = merged[:topK]
	}
	return merged
}
