// Command raglined runs the retrieval-augmented conversation service: an
// HTTP server answering questions over a knowledge base with hybrid search,
// reranking, and streamed generation.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ragline/ragline/config"
	"github.com/ragline/ragline/ingest"
	"github.com/ragline/ragline/llm/openai"
	"github.com/ragline/ragline/observability"
	"github.com/ragline/ragline/retrieval"
	"github.com/ragline/ragline/retrieval/pgstore"
	"github.com/ragline/ragline/retrieval/pinecone"
	"github.com/ragline/ragline/server"
	"github.com/ragline/ragline/workflow"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if err := run(); err != nil {
		slog.Error("service failed", "error", err.Error())
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	settings, err := config.Load()
	if err != nil {
		return err
	}

	observer := observability.NewSlogProvider(slog.Default())

	llmClient := openai.New().
		WithAPIKey(settings.OpenAIAPIKey).
		WithEmbeddingModel(settings.EmbeddingModel)
	if settings.OpenAIBaseURL != "" {
		llmClient = llmClient.WithBaseURL(settings.OpenAIBaseURL)
	}

	searcher, err := buildSearcher(ctx, settings, llmClient)
	if err != nil {
		return err
	}

	conversation, err := workflow.NewConversation(
		workflow.NewLLMContextChecker(llmClient, settings.VerdictModel),
		workflow.NewSearcherRetriever(searcher.hybrid),
		workflow.NewStreamGenerator(llmClient, settings.ChatModel),
		workflow.WithObserver(observer),
	)
	if err != nil {
		return err
	}

	ingestService := ingest.NewService(searcher.denseIndex, searcher.sparseIndex).
		WithObserver(observer)

	httpServer := &http.Server{
		Addr: settings.ListenAddr,
		Handler: server.New(conversation, ingestService,
			server.WithObserver(observer),
			server.WithMaxRunSteps(settings.MaxPipelineSteps),
		).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErrors := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", settings.ListenAddr, "backend", settings.RetrievalBackend)
		serveErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serveErrors:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

// searchStack bundles the two indexes with the hybrid searcher over them.
type searchStack struct {
	denseIndex  retrieval.Index
	sparseIndex retrieval.Index
	hybrid      *retrieval.HybridSearcher
}

// buildSearcher wires the retrieval backend selected by configuration.
func buildSearcher(ctx context.Context, settings *config.Settings, embedder *openai.Client) (*searchStack, error) {
	var stack searchStack

	switch settings.RetrievalBackend {
	case config.BackendPinecone:
		stack.denseIndex = pinecone.NewIndex(settings.PineconeDenseHost).
			WithAPIKey(settings.PineconeAPIKey).
			WithNamespace(settings.PineconeNamespace)
		stack.sparseIndex = pinecone.NewIndex(settings.PineconeSparseHost).
			WithAPIKey(settings.PineconeAPIKey).
			WithNamespace(settings.PineconeNamespace)
		stack.hybrid = retrieval.NewHybridSearcher(stack.denseIndex, stack.sparseIndex).
			WithReranker(pinecone.NewReranker().WithAPIKey(settings.PineconeAPIKey))

	case config.BackendPostgres:
		pool, err := pgxpool.New(ctx, settings.PostgresDSN)
		if err != nil {
			return nil, err
		}
		if err := pgstore.EnsureSchema(ctx, pool, settings.EmbeddingDimensions); err != nil {
			return nil, err
		}
		stack.denseIndex = pgstore.NewDenseStore(pool, embedder)
		stack.sparseIndex = pgstore.NewSparseStore(pool)
		// No hosted reranker on this backend; the merged first-stage
		// ranking is used as-is.
		stack.hybrid = retrieval.NewHybridSearcher(stack.denseIndex, stack.sparseIndex)
	}

	stack.hybrid = stack.hybrid.
		WithSearchTopK(settings.SearchTopK).
		WithRerankTopN(settings.RerankTopN)

	return &stack, nil
}
