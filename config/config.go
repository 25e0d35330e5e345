// Package config loads service settings from the environment. A .env file in
// the working directory is honored when present (via godotenv autoload in the
// entry point, or an explicit Load in tests).
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Retrieval backend names accepted by RAGLINE_RETRIEVAL_BACKEND.
const (
	BackendPinecone = "pinecone"
	BackendPostgres = "postgres"
)

// Settings holds every tunable the service reads at startup. Fields are
// populated from environment variables; zero values fall back to the
// defaults documented per field.
type Settings struct {
	// ListenAddr is the HTTP listen address (RAGLINE_LISTEN_ADDR,
	// default ":8080").
	ListenAddr string

	// OpenAIAPIKey authenticates LLM requests (OPENAI_API_KEY, required).
	OpenAIAPIKey string
	// OpenAIBaseURL overrides the API endpoint (OPENAI_API_BASE_URL).
	OpenAIBaseURL string
	// ChatModel answers grounded questions (RAGLINE_CHAT_MODEL,
	// default "gpt-4o-mini").
	ChatModel string
	// VerdictModel runs the context sufficiency check
	// (RAGLINE_VERDICT_MODEL, defaults to ChatModel).
	VerdictModel string
	// EmbeddingModel embeds chunks and queries for the postgres backend
	// (RAGLINE_EMBEDDING_MODEL, default "text-embedding-3-small").
	EmbeddingModel string
	// EmbeddingDimensions sizes the pgvector column
	// (RAGLINE_EMBEDDING_DIMENSIONS, default 1536).
	EmbeddingDimensions int

	// RetrievalBackend selects "pinecone" or "postgres"
	// (RAGLINE_RETRIEVAL_BACKEND, default "pinecone").
	RetrievalBackend string

	// PineconeAPIKey authenticates Pinecone requests (PINECONE_API_KEY).
	PineconeAPIKey string
	// PineconeDenseHost is the dense index data plane host
	// (PINECONE_DENSE_INDEX_HOST).
	PineconeDenseHost string
	// PineconeSparseHost is the sparse index data plane host
	// (PINECONE_SPARSE_INDEX_HOST).
	PineconeSparseHost string
	// PineconeNamespace scopes records (PINECONE_NAMESPACE,
	// default "rag-namespace").
	PineconeNamespace string

	// PostgresDSN is the connection string for the postgres backend
	// (RAGLINE_POSTGRES_DSN).
	PostgresDSN string

	// SearchTopK is the per-index candidate count (RAGLINE_SEARCH_TOP_K,
	// default 40).
	SearchTopK int
	// RerankTopN is the final fragment count (RAGLINE_RERANK_TOP_N,
	// default 10).
	RerankTopN int

	// MaxPipelineSteps guards conversation runs against runaway graphs
	// (RAGLINE_MAX_PIPELINE_STEPS, 0 disables the guard).
	MaxPipelineSteps int
}

// LoadWithDotEnv loads the given .env files into the environment before
// reading settings. Variables already set in the environment win over file
// values. A missing file is not an error, matching development setups where
// everything comes from the real environment.
func LoadWithDotEnv(paths ...string) (*Settings, error) {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := godotenv.Load(path); err != nil {
			return nil, fmt.Errorf("error loading %s: %w", path, err)
		}
	}
	return Load()
}

// Load reads settings from the environment and validates the combination.
func Load() (*Settings, error) {
	settings := &Settings{
		ListenAddr:          envOrDefault("RAGLINE_LISTEN_ADDR", ":8080"),
		OpenAIAPIKey:        os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:       os.Getenv("OPENAI_API_BASE_URL"),
		ChatModel:           envOrDefault("RAGLINE_CHAT_MODEL", "gpt-4o-mini"),
		VerdictModel:        os.Getenv("RAGLINE_VERDICT_MODEL"),
		EmbeddingModel:      envOrDefault("RAGLINE_EMBEDDING_MODEL", "text-embedding-3-small"),
		EmbeddingDimensions: envIntOrDefault("RAGLINE_EMBEDDING_DIMENSIONS", 1536),
		RetrievalBackend:    envOrDefault("RAGLINE_RETRIEVAL_BACKEND", BackendPinecone),
		PineconeAPIKey:      os.Getenv("PINECONE_API_KEY"),
		PineconeDenseHost:   os.Getenv("PINECONE_DENSE_INDEX_HOST"),
		PineconeSparseHost:  os.Getenv("PINECONE_SPARSE_INDEX_HOST"),
		PineconeNamespace:   envOrDefault("PINECONE_NAMESPACE", "rag-namespace"),
		PostgresDSN:         os.Getenv("RAGLINE_POSTGRES_DSN"),
		SearchTopK:          envIntOrDefault("RAGLINE_SEARCH_TOP_K", 40),
		RerankTopN:          envIntOrDefault("RAGLINE_RERANK_TOP_N", 10),
		MaxPipelineSteps:    envIntOrDefault("RAGLINE_MAX_PIPELINE_STEPS", 0),
	}

	if settings.VerdictModel == "" {
		settings.VerdictModel = settings.ChatModel
	}

	if err := settings.validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

func (settings *Settings) validate() error {
	if settings.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}

	switch settings.RetrievalBackend {
	case BackendPinecone:
		if settings.PineconeAPIKey == "" {
			return fmt.Errorf("PINECONE_API_KEY is required for the pinecone backend")
		}
		if settings.PineconeDenseHost == "" || settings.PineconeSparseHost == "" {
			return fmt.Errorf("PINECONE_DENSE_INDEX_HOST and PINECONE_SPARSE_INDEX_HOST are required for the pinecone backend")
		}
	case BackendPostgres:
		if settings.PostgresDSN == "" {
			return fmt.Errorf("RAGLINE_POSTGRES_DSN is required for the postgres backend")
		}
	default:
		return fmt.Errorf("unknown retrieval backend %q (expected %q or %q)",
			settings.RetrievalBackend, BackendPinecone, BackendPostgres)
	}

	return nil
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envIntOrDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
