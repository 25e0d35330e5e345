package pgstore

import (
	"context"
	"fmt"
)

// createExtensionSQL enables pgvector. Requires a role with CREATE privilege
// on the database.
const createExtensionSQL = `CREATE EXTENSION IF NOT EXISTS vector`

// createTableSQL is the DDL statement that creates the chunk table. The
// embedding column dimension must match the embedding model in use; the
// text_search column is generated from the chunk text so lexical search
// needs no separate write path.
const createTableSQL = `CREATE TABLE IF NOT EXISTS %s (
    id          TEXT PRIMARY KEY,
    chunk_text  TEXT NOT NULL,
    embedding   vector(%d),
    text_search TSVECTOR GENERATED ALWAYS AS (to_tsvector('%s', chunk_text)) STORED,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// createEmbeddingIndexSQL creates an HNSW index for approximate cosine
// similarity search.
const createEmbeddingIndexSQL = `CREATE INDEX IF NOT EXISTS idx_%s_embedding
    ON %s USING hnsw (embedding vector_cosine_ops)`

// createTextSearchIndexSQL creates a GIN index over the generated tsvector
// column for lexical search.
const createTextSearchIndexSQL = `CREATE INDEX IF NOT EXISTS idx_%s_text_search
    ON %s USING gin (text_search)`

// EnsureSchema creates the extension, chunk table, and indexes if they do
// not already exist. This is a convenience helper for development and
// prototyping; production deployments should use proper migration tooling
// (goose, golang-migrate, etc.) to manage schema changes.
func EnsureSchema(ctx context.Context, db Querier, embeddingDimensions int, opts ...Option) error {
	config := newStoreConfig(opts)

	if _, err := db.Exec(ctx, createExtensionSQL); err != nil {
		return fmt.Errorf("pgstore: create extension: %w", err)
	}

	tableSQL := fmt.Sprintf(createTableSQL, config.tableName, embeddingDimensions, config.textSearchConfig)
	if _, err := db.Exec(ctx, tableSQL); err != nil {
		return fmt.Errorf("pgstore: create table: %w", err)
	}

	embeddingIdxSQL := fmt.Sprintf(createEmbeddingIndexSQL, config.tableName, config.tableName)
	if _, err := db.Exec(ctx, embeddingIdxSQL); err != nil {
		return fmt.Errorf("pgstore: create embedding index: %w", err)
	}

	textIdxSQL := fmt.Sprintf(createTextSearchIndexSQL, config.tableName, config.tableName)
	if _, err := db.Exec(ctx, textIdxSQL); err != nil {
		return fmt.Errorf("pgstore: create text_search index: %w", err)
	}

	return nil
}
