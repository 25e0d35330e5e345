package retrieval

import (
	"context"
	"fmt"
	"sort"

	"github.com/ragline/ragline/observability"
)

// MergePolicy decides which score a fragment keeps when the dense and sparse
// searches both return it.
type MergePolicy int

const (
	// PreferHigherScore keeps whichever duplicate has the higher score.
	PreferHigherScore MergePolicy = iota
	// PreferDense keeps the dense result for duplicates.
	PreferDense
	// PreferSparse keeps the sparse result for duplicates.
	PreferSparse
)

// HybridSearcher runs a query against a dense and a sparse index, merges the
// two result sets with duplicates removed, and optionally reranks the merged
// candidates down to a smaller final list.
type HybridSearcher struct {
	denseIndex  Index
	sparseIndex Index
	reranker    Reranker
	mergePolicy MergePolicy
	searchTopK  int
	rerankTopN  int
}

const (
	defaultSearchTopK = 40
	defaultRerankTopN = 10
)

// NewHybridSearcher creates a searcher over the given dense and sparse
// indexes with default candidate counts (40 per index, reranked down to 10).
func NewHybridSearcher(denseIndex, sparseIndex Index) *HybridSearcher {
	return &HybridSearcher{
		denseIndex:  denseIndex,
		sparseIndex: sparseIndex,
		mergePolicy: PreferHigherScore,
		searchTopK:  defaultSearchTopK,
		rerankTopN:  defaultRerankTopN,
	}
}

// WithReranker sets the reranker applied to the merged candidate list.
// Without a reranker the merged list is returned truncated to the rerank
// budget, ordered by first-stage score.
func (searcher *HybridSearcher) WithReranker(reranker Reranker) *HybridSearcher {
	searcher.reranker = reranker
	return searcher
}

// WithMergePolicy sets how duplicate fragments are resolved.
func (searcher *HybridSearcher) WithMergePolicy(policy MergePolicy) *HybridSearcher {
	searcher.mergePolicy = policy
	return searcher
}

// WithSearchTopK sets how many candidates each index contributes.
func (searcher *HybridSearcher) WithSearchTopK(topK int) *HybridSearcher {
	if topK > 0 {
		searcher.searchTopK = topK
	}
	return searcher
}

// WithRerankTopN sets how many fragments the final result contains.
func (searcher *HybridSearcher) WithRerankTopN(topN int) *HybridSearcher {
	if topN > 0 {
		searcher.rerankTopN = topN
	}
	return searcher
}

// Search runs the full hybrid pipeline: query both indexes, merge and
// deduplicate, sort by score descending, then rerank to the final list.
// If both indexes return nothing the result is empty without an error.
func (searcher *HybridSearcher) Search(ctx context.Context, query string) ([]Fragment, error) {
	span := observability.SpanFromContext(ctx)

	denseResults, err := searcher.denseIndex.Search(ctx, query, searcher.searchTopK)
	if err != nil {
		return nil, fmt.Errorf("dense search failed: %w", err)
	}

	sparseResults, err := searcher.sparseIndex.Search(ctx, query, searcher.searchTopK)
	if err != nil {
		return nil, fmt.Errorf("sparse search failed: %w", err)
	}

	merged := searcher.merge(denseResults, sparseResults)
	if span != nil {
		span.AddEvent("retrieval.merged",
			observability.Int("retrieval.dense_count", len(denseResults)),
			observability.Int("retrieval.sparse_count", len(sparseResults)),
			observability.Int("retrieval.merged_count", len(merged)),
		)
	}

	if len(merged) == 0 {
		return nil, nil
	}

	if searcher.reranker == nil {
		if len(merged) > searcher.rerankTopN {
			merged = merged[:searcher.rerankTopN]
		}
		return merged, nil
	}

	reranked, err := searcher.reranker.Rerank(ctx, query, merged, searcher.rerankTopN)
	if err != nil {
		return nil, fmt.Errorf("rerank failed: %w", err)
	}
	return reranked, nil
}

// merge deduplicates the two result sets by fragment ID according to the
// merge policy and returns the union sorted by score descending. The sort is
// stable so fragments with equal scores keep their dense-before-sparse
// arrival order.
func (searcher *HybridSearcher) merge(denseResults, sparseResults []Fragment) []Fragment {
	merged := make([]Fragment, 0, len(denseResults)+len(sparseResults))
	position := make(map[string]int, len(denseResults))

	for _, fragment := range denseResults {
		position[fragment.ID] = len(merged)
		merged = append(merged, fragment)
	}

	for _, fragment := range sparseResults {
		existingIndex, seen := position[fragment.ID]
		if !seen {
			position[fragment.ID] = len(merged)
			merged = append(merged, fragment)
			continue
		}

		switch searcher.mergePolicy {
		case PreferSparse:
			merged[existingIndex] = fragment
		case PreferHigherScore:
			if fragment.Score > merged[existingIndex].Score {
				merged[existingIndex] = fragment
			}
		case PreferDense:
			// Keep the dense result.
		}
	}

	sort.SliceStable(merged, func(left, right int) bool {
		return merged[left].Score > merged[right].Score
	})

	return merged
}
