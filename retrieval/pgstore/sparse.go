package pgstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ragline/ragline/retrieval"
)

// SparseStore implements retrieval.Index with PostgreSQL full-text search
// over the generated tsvector column. It shares the chunk table with
// DenseStore; its Upsert writes text only and leaves the embedding column
// untouched for rows DenseStore already populated.
type SparseStore struct {
	db     Querier
	config storeConfig
}

var _ retrieval.Index = (*SparseStore)(nil)

// NewSparseStore creates a lexical search store over the given executor
// (typically *pgxpool.Pool).
func NewSparseStore(db Querier, opts ...Option) *SparseStore {
	return &SparseStore{
		db:     db,
		config: newStoreConfig(opts),
	}
}

// Upsert writes one row per record. The tsvector column is generated from
// chunk_text by the database, so no query-side text processing is needed.
func (store *SparseStore) Upsert(ctx context.Context, records []retrieval.Record) error {
	if len(records) == 0 {
		return nil
	}

	query := fmt.Sprintf(`INSERT INTO %s (id, chunk_text)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET chunk_text = EXCLUDED.chunk_text`,
		store.config.tableName)

	for _, record := range records {
		if _, err := store.db.Exec(ctx, query, record.ID, record.Text); err != nil {
			return fmt.Errorf("pgstore: upsert record %q: %w", record.ID, err)
		}
	}
	return nil
}

// Search matches the query against the tsvector column and returns the topK
// chunks ranked by ts_rank. websearch_to_tsquery tolerates free-form user
// phrasing that plainto_tsquery would reject.
func (store *SparseStore) Search(ctx context.Context, query string, topK int) ([]retrieval.Fragment, error) {
	sql := fmt.Sprintf(`SELECT id, chunk_text, ts_rank(text_search, websearch_to_tsquery('%s', $1))::float8 AS score
		FROM %s
		WHERE text_search @@ websearch_to_tsquery('%s', $1)
		ORDER BY score DESC
		LIMIT $2`, store.config.textSearchConfig, store.config.tableName, store.config.textSearchConfig)

	rows, err := store.db.Query(ctx, sql, query, topK)
	if err != nil {
		return nil, fmt.Errorf("pgstore: sparse search: %w", err)
	}
	defer rows.Close()

	return scanFragments(rows)
}

// scanFragments collects (id, chunk_text, score) rows into fragments.
func scanFragments(rows pgx.Rows) ([]retrieval.Fragment, error) {
	var fragments []retrieval.Fragment
	for rows.Next() {
		var fragment retrieval.Fragment
		if err := rows.Scan(&fragment.ID, &fragment.Text, &fragment.Score); err != nil {
			return nil, fmt.Errorf("pgstore: scan row: %w", err)
		}
		fragments = append(fragments, fragment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgstore: read rows: %w", err)
	}
	return fragments, nil
}
