package pgstore

import (
	"context"
	"fmt"

	"github.com/pgvector/pgvector-go"

	"github.com/ragline/ragline/llm"
	"github.com/ragline/ragline/retrieval"
)

// DenseStore implements retrieval.Index with pgvector cosine similarity.
// Embeddings are computed client-side via the injected llm.Embedder, both at
// upsert time and for queries.
type DenseStore struct {
	db       Querier
	embedder llm.Embedder
	config   storeConfig
}

var _ retrieval.Index = (*DenseStore)(nil)

// NewDenseStore creates a vector similarity store over the given executor
// (typically *pgxpool.Pool).
func NewDenseStore(db Querier, embedder llm.Embedder, opts ...Option) *DenseStore {
	return &DenseStore{
		db:       db,
		embedder: embedder,
		config:   newStoreConfig(opts),
	}
}

// Upsert embeds the record texts and writes one row per record, replacing
// the embedding and text of any existing row with the same ID.
func (store *DenseStore) Upsert(ctx context.Context, records []retrieval.Record) error {
	if len(records) == 0 {
		return nil
	}

	texts := make([]string, len(records))
	for recordIndex, record := range records {
		texts[recordIndex] = record.Text
	}

	embeddings, err := store.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("pgstore: embed records: %w", err)
	}
	if len(embeddings) != len(records) {
		return fmt.Errorf("pgstore: embedder returned %d vectors for %d records", len(embeddings), len(records))
	}

	query := fmt.Sprintf(`INSERT INTO %s (id, chunk_text, embedding)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET chunk_text = EXCLUDED.chunk_text, embedding = EXCLUDED.embedding`,
		store.config.tableName)

	for recordIndex, record := range records {
		vector := pgvector.NewVector(embeddings[recordIndex])
		if _, err := store.db.Exec(ctx, query, record.ID, record.Text, vector); err != nil {
			return fmt.Errorf("pgstore: upsert record %q: %w", record.ID, err)
		}
	}
	return nil
}

// Search embeds the query and returns the topK nearest chunks by cosine
// distance. The score is 1 - distance so that higher means more similar,
// consistent with the other index backends.
func (store *DenseStore) Search(ctx context.Context, query string, topK int) ([]retrieval.Fragment, error) {
	embeddings, err := store.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("pgstore: embed query: %w", err)
	}
	if len(embeddings) != 1 {
		return nil, fmt.Errorf("pgstore: embedder returned %d vectors for the query", len(embeddings))
	}

	sql := fmt.Sprintf(`SELECT id, chunk_text, 1 - (embedding <=> $1) AS score
		FROM %s
		WHERE embedding IS NOT NULL
		ORDER BY embedding <=> $1
		LIMIT $2`, store.config.tableName)

	rows, err := store.db.Query(ctx, sql, pgvector.NewVector(embeddings[0]), topK)
	if err != nil {
		return nil, fmt.Errorf("pgstore: dense search: %w", err)
	}
	defer rows.Close()

	return scanFragments(rows)
}
