// Package pgstore implements the retrieval interfaces on PostgreSQL, as a
// self-hosted alternative to the managed vector backend. DenseStore uses the
// pgvector extension for cosine similarity search over client-side
// embeddings; SparseStore uses PostgreSQL full-text search (tsvector) for
// lexical matching. Both write to the same table so a chunk keeps one row
// regardless of how it is searched.
package pgstore

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// defaultTableName is the PostgreSQL table used when no custom name is provided.
const defaultTableName = "ragline_chunks"

// defaultTextSearchConfig is the text search configuration used for the
// tsvector column and query parsing.
const defaultTextSearchConfig = "english"

// Querier abstracts the pgx query methods needed by the stores. Both
// *pgxpool.Pool and pgx.Tx satisfy this interface, allowing callers to
// inject either a connection pool or a single transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Option configures optional store behavior. Options apply to both
// DenseStore and SparseStore since they share the table layout.
type Option func(*storeConfig)

type storeConfig struct {
	tableName        string
	textSearchConfig string
}

// WithTableName overrides the default table name ("ragline_chunks").
// The name is sanitized via pgx.Identifier to prevent SQL injection,
// since it is interpolated into queries via fmt.Sprintf.
func WithTableName(name string) Option {
	return func(config *storeConfig) {
		config.tableName = pgx.Identifier{name}.Sanitize()
	}
}

// WithTextSearchConfig overrides the text search configuration used for
// lexical search (default "english").
func WithTextSearchConfig(name string) Option {
	return func(config *storeConfig) {
		config.textSearchConfig = name
	}
}

func newStoreConfig(opts []Option) storeConfig {
	config := storeConfig{
		tableName:        defaultTableName,
		textSearchConfig: defaultTextSearchConfig,
	}
	for _, opt := range opts {
		opt(&config)
	}
	return config
}
