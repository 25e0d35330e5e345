// Package retrieval defines the document retrieval abstractions used by the
// conversation workflow: searchable indexes, rerankers, and the hybrid
// searcher that combines dense and sparse results into a single ranked list.
package retrieval

import "context"

// Fragment is a scored piece of retrieved text. ID is stable across indexes
// so that the same source chunk found by multiple searches can be
// deduplicated.
type Fragment struct {
	ID    string
	Text  string
	Score float64
}

// Record is a chunk of source text to be stored in an index.
type Record struct {
	ID   string
	Text string
}

// Index is a searchable document store. Implementations cover both dense
// (vector similarity) and sparse (lexical) search backends.
type Index interface {
	// Upsert stores the given records, replacing any existing records with
	// the same ID.
	Upsert(ctx context.Context, records []Record) error

	// Search returns up to topK fragments ranked by relevance to the query,
	// highest score first.
	Search(ctx context.Context, query string, topK int) ([]Fragment, error)
}

// Reranker reorders candidate fragments by relevance to the query and
// returns the topN best. Implementations typically call a cross-encoder
// model, which scores each query/fragment pair jointly and is more accurate
// than the first-stage retrieval scores.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []Fragment, topN int) ([]Fragment, error)
}
