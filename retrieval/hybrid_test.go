package retrieval

import (
	"context"
	"errors"
	"testing"
)

// stubIndex returns canned fragments for Search and records Upsert calls.
type stubIndex struct {
	fragments []Fragment
	searchErr error
	lastTopK  int
}

func (index *stubIndex) Upsert(_ context.Context, _ []Record) error { return nil }

func (index *stubIndex) Search(_ context.Context, _ string, topK int) ([]Fragment, error) {
	index.lastTopK = topK
	return index.fragments, index.searchErr
}

// stubReranker reverses the candidates and truncates to topN, recording the
// candidate list it received.
type stubReranker struct {
	receivedCandidates []Fragment
}

func (reranker *stubReranker) Rerank(_ context.Context, _ string, candidates []Fragment, topN int) ([]Fragment, error) {
	reranker.receivedCandidates = candidates
	reversed := make([]Fragment, 0, len(candidates))
	for candidateIndex := len(candidates) - 1; candidateIndex >= 0; candidateIndex-- {
		reversed = append(reversed, candidates[candidateIndex])
	}
	if len(reversed) > topN {
		reversed = reversed[:topN]
	}
	return reversed, nil
}

func TestSearch_MergesAndSortsByScoreDescending(testCase *testing.T) {
	dense := &stubIndex{fragments: []Fragment{
		{ID: "a", Text: "alpha", Score: 0.9},
		{ID: "b", Text: "beta", Score: 0.2},
	}}
	sparse := &stubIndex{fragments: []Fragment{
		{ID: "c", Text: "gamma", Score: 0.5},
	}}

	results, err := NewHybridSearcher(dense, sparse).Search(context.Background(), "query")
	if err != nil {
		testCase.Fatalf("Search failed: %v", err)
	}

	wantOrder := []string{"a", "c", "b"}
	if len(results) != len(wantOrder) {
		testCase.Fatalf("expected %d results, got %d", len(wantOrder), len(results))
	}
	for resultIndex, wantID := range wantOrder {
		if results[resultIndex].ID != wantID {
			testCase.Errorf("result %d: expected ID %q, got %q", resultIndex, wantID, results[resultIndex].ID)
		}
	}
}

func TestSearch_DeduplicatesKeepingHigherScore(testCase *testing.T) {
	dense := &stubIndex{fragments: []Fragment{
		{ID: "shared", Text: "from dense", Score: 0.4},
	}}
	sparse := &stubIndex{fragments: []Fragment{
		{ID: "shared", Text: "from sparse", Score: 0.8},
	}}

	results, err := NewHybridSearcher(dense, sparse).Search(context.Background(), "query")
	if err != nil {
		testCase.Fatalf("Search failed: %v", err)
	}
	if len(results) != 1 {
		testCase.Fatalf("expected 1 deduplicated result, got %d", len(results))
	}
	if results[0].Score != 0.8 || results[0].Text != "from sparse" {
		testCase.Errorf("expected the higher-scored duplicate to win, got %+v", results[0])
	}
}

func TestSearch_MergePolicies(testCase *testing.T) {
	denseFragment := Fragment{ID: "shared", Text: "from dense", Score: 0.9}
	sparseFragment := Fragment{ID: "shared", Text: "from sparse", Score: 0.1}

	testCases := []struct {
		name     string
		policy   MergePolicy
		wantText string
	}{
		{name: "prefer dense", policy: PreferDense, wantText: "from dense"},
		{name: "prefer sparse", policy: PreferSparse, wantText: "from sparse"},
		{name: "prefer higher score", policy: PreferHigherScore, wantText: "from dense"},
	}

	for _, currentCase := range testCases {
		testCase.Run(currentCase.name, func(subTest *testing.T) {
			dense := &stubIndex{fragments: []Fragment{denseFragment}}
			sparse := &stubIndex{fragments: []Fragment{sparseFragment}}

			results, err := NewHybridSearcher(dense, sparse).
				WithMergePolicy(currentCase.policy).
				Search(context.Background(), "query")
			if err != nil {
				subTest.Fatalf("Search failed: %v", err)
			}
			if len(results) != 1 || results[0].Text != currentCase.wantText {
				subTest.Errorf("expected %q, got %+v", currentCase.wantText, results)
			}
		})
	}
}

func TestSearch_EqualScoreTieKeepsDenseArrivalOrder(testCase *testing.T) {
	dense := &stubIndex{fragments: []Fragment{
		{ID: "d1", Text: "dense first", Score: 0.5},
	}}
	sparse := &stubIndex{fragments: []Fragment{
		{ID: "s1", Text: "sparse second", Score: 0.5},
	}}

	results, err := NewHybridSearcher(dense, sparse).Search(context.Background(), "query")
	if err != nil {
		testCase.Fatalf("Search failed: %v", err)
	}
	if len(results) != 2 || results[0].ID != "d1" || results[1].ID != "s1" {
		testCase.Errorf("expected stable dense-first ordering on ties, got %+v", results)
	}
}

func TestSearch_EmptyIndexesReturnEmptyWithoutRerank(testCase *testing.T) {
	reranker := &stubReranker{receivedCandidates: []Fragment{{ID: "sentinel"}}}

	results, err := NewHybridSearcher(&stubIndex{}, &stubIndex{}).
		WithReranker(reranker).
		Search(context.Background(), "query")
	if err != nil {
		testCase.Fatalf("Search failed: %v", err)
	}
	if len(results) != 0 {
		testCase.Errorf("expected empty results, got %+v", results)
	}
	if len(reranker.receivedCandidates) != 1 || reranker.receivedCandidates[0].ID != "sentinel" {
		testCase.Error("reranker must not be called when there are no candidates")
	}
}

func TestSearch_RerankerReceivesMergedCandidates(testCase *testing.T) {
	dense := &stubIndex{fragments: []Fragment{
		{ID: "a", Score: 0.9},
		{ID: "b", Score: 0.7},
	}}
	sparse := &stubIndex{fragments: []Fragment{
		{ID: "c", Score: 0.8},
	}}
	reranker := &stubReranker{}

	results, err := NewHybridSearcher(dense, sparse).
		WithReranker(reranker).
		WithRerankTopN(2).
		Search(context.Background(), "query")
	if err != nil {
		testCase.Fatalf("Search failed: %v", err)
	}

	if len(reranker.receivedCandidates) != 3 {
		testCase.Fatalf("expected reranker to receive 3 merged candidates, got %d", len(reranker.receivedCandidates))
	}
	if len(results) != 2 {
		testCase.Errorf("expected rerank to truncate to 2, got %d", len(results))
	}
}

func TestSearch_WithoutRerankerTruncatesToTopN(testCase *testing.T) {
	var manyFragments []Fragment
	for fragmentIndex := 0; fragmentIndex < 15; fragmentIndex++ {
		manyFragments = append(manyFragments, Fragment{
			ID:    string(rune('a' + fragmentIndex)),
			Score: float64(15-fragmentIndex) / 15,
		})
	}
	dense := &stubIndex{fragments: manyFragments}

	results, err := NewHybridSearcher(dense, &stubIndex{}).Search(context.Background(), "query")
	if err != nil {
		testCase.Fatalf("Search failed: %v", err)
	}
	if len(results) != defaultRerankTopN {
		testCase.Errorf("expected %d results, got %d", defaultRerankTopN, len(results))
	}
}

func TestSearch_PropagatesIndexErrors(testCase *testing.T) {
	searchFailure := errors.New("index unavailable")

	testCases := []struct {
		name   string
		dense  *stubIndex
		sparse *stubIndex
	}{
		{name: "dense fails", dense: &stubIndex{searchErr: searchFailure}, sparse: &stubIndex{}},
		{name: "sparse fails", dense: &stubIndex{}, sparse: &stubIndex{searchErr: searchFailure}},
	}

	for _, currentCase := range testCases {
		testCase.Run(currentCase.name, func(subTest *testing.T) {
			_, err := NewHybridSearcher(currentCase.dense, currentCase.sparse).
				Search(context.Background(), "query")
			if !errors.Is(err, searchFailure) {
				subTest.Errorf("expected wrapped index error, got %v", err)
			}
		})
	}
}

func TestSearch_PassesTopKToBothIndexes(testCase *testing.T) {
	dense := &stubIndex{}
	sparse := &stubIndex{}

	_, err := NewHybridSearcher(dense, sparse).
		WithSearchTopK(7).
		Search(context.Background(), "query")
	if err != nil {
		testCase.Fatalf("Search failed: %v", err)
	}
	if dense.lastTopK != 7 || sparse.lastTopK != 7 {
		testCase.Errorf("expected topK 7 on both indexes, got dense=%d sparse=%d", dense.lastTopK, sparse.lastTopK)
	}
}
