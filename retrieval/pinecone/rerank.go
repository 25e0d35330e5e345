package pinecone

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/ragline/ragline/internal/httpx"
	"github.com/ragline/ragline/retrieval"
)

const (
	defaultControlPlaneURL = "https://api.pinecone.io"
	defaultRerankModel     = "bge-reranker-v2-m3"
)

// Reranker calls Pinecone's hosted rerank endpoint to reorder candidate
// fragments with a cross-encoder model. It implements retrieval.Reranker.
type Reranker struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

var _ retrieval.Reranker = (*Reranker)(nil)

// NewReranker creates a reranker using the bge-reranker-v2-m3 model. The API
// key defaults to the PINECONE_API_KEY environment variable.
func NewReranker() *Reranker {
	return &Reranker{
		apiKey:     os.Getenv("PINECONE_API_KEY"),
		baseURL:    defaultControlPlaneURL,
		model:      defaultRerankModel,
		httpClient: &http.Client{},
	}
}

// WithAPIKey sets the API key used for authenticating requests.
func (reranker *Reranker) WithAPIKey(apiKey string) *Reranker {
	reranker.apiKey = apiKey
	return reranker
}

// WithBaseURL overrides the control plane URL for API requests.
func (reranker *Reranker) WithBaseURL(baseURL string) *Reranker {
	reranker.baseURL = baseURL
	return reranker
}

// WithModel sets the rerank model.
func (reranker *Reranker) WithModel(model string) *Reranker {
	reranker.model = model
	return reranker
}

// WithHttpClient sets a custom HTTP client.
func (reranker *Reranker) WithHttpClient(httpClient *http.Client) *Reranker {
	reranker.httpClient = httpClient
	return reranker
}

// Rerank scores each candidate against the query and returns the topN best,
// highest score first. The returned fragments carry the rerank scores, which
// replace the first-stage retrieval scores.
func (reranker *Reranker) Rerank(ctx context.Context, query string, candidates []retrieval.Fragment, topN int) ([]retrieval.Fragment, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	if reranker.apiKey == "" {
		return nil, fmt.Errorf("API key is not set")
	}

	documents := make([]rerankDocument, 0, len(candidates))
	for _, candidate := range candidates {
		documents = append(documents, rerankDocument{Id: candidate.ID, Text: candidate.Text})
	}

	request := rerankRequest{
		Model:           reranker.model,
		Query:           query,
		Documents:       documents,
		TopN:            topN,
		ReturnDocuments: true,
	}

	_, response, err := httpx.DoPostSync[rerankResponse](ctx, reranker.httpClient, reranker.baseURL+"/rerank", "", request,
		httpx.HeaderOption{Key: "Api-Key", Value: reranker.apiKey},
		httpx.HeaderOption{Key: "X-Pinecone-API-Version", Value: apiVersion},
	)
	if err != nil {
		return nil, err
	}

	reranked := make([]retrieval.Fragment, 0, len(response.Data))
	for _, row := range response.Data {
		if row.Index < 0 || row.Index >= len(candidates) {
			return nil, fmt.Errorf("rerank result index %d out of range", row.Index)
		}
		reranked = append(reranked, retrieval.Fragment{
			ID:    candidates[row.Index].ID,
			Text:  candidates[row.Index].Text,
			Score: row.Score,
		})
	}
	return reranked, nil
}
