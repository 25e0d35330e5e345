// Package pinecone implements the retrieval interfaces against Pinecone
// serverless indexes with integrated embedding: records are upserted as raw
// text and Pinecone embeds them server-side, so the same client works for
// both the dense and the sparse index (they differ only by index host).
package pinecone

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/ragline/ragline/internal/httpx"
	"github.com/ragline/ragline/observability"
	"github.com/ragline/ragline/retrieval"
)

const (
	defaultNamespace = "__default__"
	defaultTextField = "chunk_text"
	apiVersion       = "2025-01"
)

// Index is a Pinecone index with integrated embedding, addressed by its data
// plane host. It implements retrieval.Index.
type Index struct {
	apiKey     string
	host       string
	namespace  string
	textField  string
	httpClient *http.Client
}

var _ retrieval.Index = (*Index)(nil)

// NewIndex creates an index client for the given data plane host
// (e.g. "https://my-index-abc123.svc.aped-4627-b74a.pinecone.io").
// The API key defaults to the PINECONE_API_KEY environment variable.
func NewIndex(host string) *Index {
	return &Index{
		apiKey:     os.Getenv("PINECONE_API_KEY"),
		host:       strings.TrimSuffix(host, "/"),
		namespace:  defaultNamespace,
		textField:  defaultTextField,
		httpClient: &http.Client{},
	}
}

// WithAPIKey sets the API key used for authenticating requests.
func (index *Index) WithAPIKey(apiKey string) *Index {
	index.apiKey = apiKey
	return index
}

// WithNamespace sets the namespace records are stored in and searched from.
func (index *Index) WithNamespace(namespace string) *Index {
	index.namespace = namespace
	return index
}

// WithTextField sets the record field that holds the chunk text.
func (index *Index) WithTextField(fieldName string) *Index {
	index.textField = fieldName
	return index
}

// WithHttpClient sets a custom HTTP client.
func (index *Index) WithHttpClient(httpClient *http.Client) *Index {
	index.httpClient = httpClient
	return index
}

// Upsert stores the given records in the index namespace. Pinecone embeds the
// text server-side using the model the index was created with. The records
// endpoint expects NDJSON (one record object per line) rather than a JSON
// array, so the body is built by hand instead of going through the shared
// JSON POST helper.
func (index *Index) Upsert(ctx context.Context, records []retrieval.Record) error {
	if len(records) == 0 {
		return nil
	}
	if index.apiKey == "" {
		return fmt.Errorf("API key is not set")
	}

	var body bytes.Buffer
	encoder := json.NewEncoder(&body)
	for _, record := range records {
		line := map[string]string{
			"_id":           record.ID,
			index.textField: record.Text,
		}
		if err := encoder.Encode(line); err != nil {
			return fmt.Errorf("error encoding record %q: %w", record.ID, err)
		}
	}

	url := fmt.Sprintf("%s/records/namespaces/%s/upsert", index.host, index.namespace)
	request, err := http.NewRequestWithContext(ctx, "POST", url, &body)
	if err != nil {
		return fmt.Errorf("error creating upsert request: %w", err)
	}
	request.Header.Set("Content-Type", "application/x-ndjson")
	request.Header.Set("Api-Key", index.apiKey)
	request.Header.Set("X-Pinecone-API-Version", apiVersion)

	if span := observability.SpanFromContext(ctx); span != nil {
		span.AddEvent("pinecone.upsert",
			observability.String("pinecone.namespace", index.namespace),
			observability.Int("pinecone.record_count", len(records)),
		)
	}

	response, err := index.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("error sending upsert request: %w", err)
	}
	defer httpx.CloseWithLog(response.Body)

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		errorBody, _ := io.ReadAll(io.LimitReader(response.Body, 4096))
		return fmt.Errorf("upsert failed with status %d: %s", response.StatusCode, string(errorBody))
	}
	return nil
}

// Search queries the index namespace by text and returns up to topK hits,
// highest score first (Pinecone returns hits already ranked).
func (index *Index) Search(ctx context.Context, query string, topK int) ([]retrieval.Fragment, error) {
	if index.apiKey == "" {
		return nil, fmt.Errorf("API key is not set")
	}

	request := searchRequest{
		Query: searchQuery{
			Inputs: searchInputs{Text: query},
			TopK:   topK,
		},
		Fields: []string{index.textField},
	}

	url := fmt.Sprintf("%s/records/namespaces/%s/search", index.host, index.namespace)
	_, response, err := httpx.DoPostSync[searchResponse](ctx, index.httpClient, url, "", request,
		httpx.HeaderOption{Key: "Api-Key", Value: index.apiKey},
		httpx.HeaderOption{Key: "X-Pinecone-API-Version", Value: apiVersion},
	)
	if err != nil {
		return nil, err
	}

	fragments := make([]retrieval.Fragment, 0, len(response.Result.Hits))
	for _, hit := range response.Result.Hits {
		fragments = append(fragments, retrieval.Fragment{
			ID:    hit.Id,
			Text:  hit.Fields[index.textField],
			Score: hit.Score,
		})
	}
	return fragments, nil
}
