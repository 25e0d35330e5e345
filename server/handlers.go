package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ragline/ragline/ingest"
	"github.com/ragline/ragline/pipeline"
	"github.com/ragline/ragline/workflow"
)

// maxUploadSize bounds document uploads (32 MB).
const maxUploadSize int64 = 32 * 1024 * 1024

// conversationRequest is the POST /conversation body.
type conversationRequest struct {
	Message string `json:"message"`
}

// incrementPayload is the JSON data of one SSE increment event.
type incrementPayload struct {
	Answer string `json:"answer"`
}

// errorPayload is the JSON data of the SSE error terminator.
type errorPayload struct {
	Error string `json:"error"`
}

// handleConversation streams a conversation run as server-sent events. Each
// answer fragment arrives as an "increment" event; the stream terminates
// with a "done" event, or an "error" event when the run fails mid-stream so
// clients can tell truncation from completion.
func (server *Server) handleConversation(writer http.ResponseWriter, request *http.Request) {
	var body conversationRequest
	if err := json.NewDecoder(request.Body).Decode(&body); err != nil {
		writeJSONError(writer, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(body.Message) == "" {
		writeJSONError(writer, http.StatusBadRequest, "message is required")
		return
	}

	flusher, ok := writer.(http.Flusher)
	if !ok {
		writeJSONError(writer, http.StatusInternalServerError, "streaming not supported")
		return
	}

	writer.Header().Set("Content-Type", "text/event-stream")
	writer.Header().Set("Cache-Control", "no-cache")
	writer.Header().Set("Connection", "keep-alive")
	writer.WriteHeader(http.StatusOK)
	flusher.Flush()

	var runOpts []pipeline.RunOption
	if server.maxRunSteps > 0 {
		runOpts = append(runOpts, pipeline.WithMaxSteps(server.maxRunSteps))
	}

	// The request context cancels the run when the client disconnects.
	stream := server.conversation.Ask(request.Context(), body.Message, runOpts...)

	for increment, err := range stream.Iter() {
		if err != nil {
			server.metrics.conversationErrors.Inc()
			slog.Error("conversation run failed", "error", err.Error())
			writeSSEEvent(writer, flusher, "error", errorPayload{Error: "conversation failed"})
			return
		}

		answer := increment.Delta.String(workflow.KeyAnswer)
		if answer == "" {
			continue
		}

		if increment.Step == workflow.StepFallback {
			server.metrics.fallbackAnswers.Inc()
		} else {
			server.metrics.answerFragments.Inc()
		}
		writeSSEEvent(writer, flusher, "increment", incrementPayload{Answer: answer})
	}

	writeSSEEvent(writer, flusher, "done", nil)
}

// writeSSEEvent writes one SSE frame and flushes it immediately so clients
// observe fragments as they are produced.
func writeSSEEvent(writer http.ResponseWriter, flusher http.Flusher, event string, payload any) {
	data := "{}"
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			slog.Error("failed to encode SSE payload", "error", err.Error())
			return
		}
		data = string(encoded)
	}
	fmt.Fprintf(writer, "event: %s\ndata: %s\n\n", event, data)
	flusher.Flush()
}

// handleUpload ingests a multipart document upload into the knowledge base.
// Unsupported formats are rejected with 400 before any index is touched.
func (server *Server) handleUpload(writer http.ResponseWriter, request *http.Request) {
	if err := request.ParseMultipartForm(maxUploadSize); err != nil {
		writeJSONError(writer, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := request.FormFile("file")
	if err != nil {
		writeJSONError(writer, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	content, err := io.ReadAll(io.LimitReader(file, maxUploadSize))
	if err != nil {
		writeJSONError(writer, http.StatusInternalServerError, "failed to read upload")
		return
	}

	chunkCount, err := server.ingester.IngestDocument(request.Context(), header.Filename, content)
	if err != nil {
		var unsupported *ingest.UnsupportedFormatError
		if errors.As(err, &unsupported) {
			writeJSONError(writer, http.StatusBadRequest, unsupported.Error())
			return
		}
		slog.Error("document ingestion failed", "filename", header.Filename, "error", err.Error())
		writeJSONError(writer, http.StatusInternalServerError, "ingestion failed")
		return
	}

	server.metrics.ingestedChunks.Add(float64(chunkCount))

	writer.Header().Set("Content-Type", "application/json")
	writer.Write([]byte(`{}`))
}

func writeJSONError(writer http.ResponseWriter, status int, message string) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	json.NewEncoder(writer).Encode(errorPayload{Error: message})
}
