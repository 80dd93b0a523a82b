// Package rank holds the ordering and deduplication helpers shared by the
// vector index and the context assembler.
package rank

import (
	"sort"

	"github.com/retailmate/core/assistant/contract"
)

// BySimilarity sorts candidates by descending similarity, breaking ties by
// ascending id so repeated identical queries rank identically.
func BySimilarity(items []contract.CandidateItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Similarity != items[j].Similarity {
			return items[i].Similarity > items[j].Similarity
		}
		return items[i].ID < items[j].ID
	})
}

// DedupByID removes duplicate item ids, keeping the first occurrence. The
// relative order of survivors is preserved, so earlier sources take priority
// over later ones.
func DedupByID(items []contract.CandidateItem) []contract.CandidateItem {
	seen := make(map[string]struct{}, len(items))
	out := items[:0]
	for _, it := range items {
		if _, ok := seen[it.ID]; ok {
			continue
		}
		seen[it.ID] = struct{}{}
		out = append(out, it)
	}
	return out
}

// Cap truncates items to at most n entries. n < 0 leaves items untouched.
func Cap(items []contract.CandidateItem, n int) []contract.CandidateItem {
	if n < 0 || len(items) <= n {
		return items
	}
	return items[:n]
}
