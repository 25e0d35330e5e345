// Package server exposes the conversation and knowledge base flows over
// HTTP: a streaming SSE endpoint for questions, a multipart upload endpoint
// for documents, plus health and Prometheus metrics endpoints.
package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ragline/ragline/observability"
	"github.com/ragline/ragline/pipeline"
)

// Asker starts a conversation run for a user message and returns its
// increment stream. *workflow.Conversation satisfies this interface.
type Asker interface {
	Ask(ctx context.Context, prompt string, opts ...pipeline.RunOption) *pipeline.RunStream
}

// Ingester writes an uploaded document into the knowledge base.
// *ingest.Service satisfies this interface.
type Ingester interface {
	IngestDocument(ctx context.Context, filename string, content []byte) (int, error)
}

// Server routes HTTP traffic to the conversation and ingestion flows.
type Server struct {
	conversation Asker
	ingester     Ingester
	observer     observability.Provider
	metrics      *metrics
	maxRunSteps  int
	router       *mux.Router
}

// Option configures optional server behavior.
type Option func(*Server)

// WithObserver sets the observability provider for request spans.
func WithObserver(observer observability.Provider) Option {
	return func(server *Server) {
		server.observer = observer
	}
}

// WithMaxRunSteps applies a step budget to every conversation run.
// Zero leaves runs unbounded.
func WithMaxRunSteps(maxSteps int) Option {
	return func(server *Server) {
		server.maxRunSteps = maxSteps
	}
}

// New creates a server over the given conversation and ingestion services.
func New(conversation Asker, ingester Ingester, opts ...Option) *Server {
	server := &Server{
		conversation: conversation,
		ingester:     ingester,
		metrics:      newMetrics(),
	}
	for _, opt := range opts {
		opt(server)
	}

	router := mux.NewRouter()
	router.HandleFunc("/conversation", server.instrument("conversation", server.handleConversation)).Methods("POST")
	router.HandleFunc("/knowledgebase/upload", server.instrument("upload", server.handleUpload)).Methods("POST")
	router.HandleFunc("/healthz", server.handleHealth).Methods("GET")
	router.Handle("/metrics", promhttp.HandlerFor(server.metrics.registry, promhttp.HandlerOpts{})).Methods("GET")
	server.router = router

	return server
}

// Handler returns the root HTTP handler.
func (server *Server) Handler() http.Handler {
	return server.router
}

// statusRecorder captures the status code written by a handler. For SSE
// responses the code is recorded at header flush time.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (recorder *statusRecorder) WriteHeader(status int) {
	recorder.status = status
	recorder.ResponseWriter.WriteHeader(status)
}

// Flush forwards to the underlying writer when it supports streaming.
func (recorder *statusRecorder) Flush() {
	if flusher, ok := recorder.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// instrument wraps a handler with request metrics and an observability span.
func (server *Server) instrument(route string, handler http.HandlerFunc) http.HandlerFunc {
	return func(writer http.ResponseWriter, request *http.Request) {
		ctx := request.Context()
		if server.observer != nil {
			var span observability.Span
			ctx, span = server.observer.StartSpan(ctx, "http."+route,
				observability.String("http.method", request.Method),
				observability.String("http.path", request.URL.Path),
			)
			defer span.End()
		}

		recorder := &statusRecorder{ResponseWriter: writer, status: http.StatusOK}
		requestStart := time.Now()

		handler(recorder, request.WithContext(ctx))

		server.metrics.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		server.metrics.requestDuration.WithLabelValues(route).Observe(time.Since(requestStart).Seconds())
	}
}

func (server *Server) handleHealth(writer http.ResponseWriter, _ *http.Request) {
	writer.Header().Set("Content-Type", "application/json")
	writer.Write([]byte(`{"status":"ok"}`))
}
