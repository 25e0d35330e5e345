package pinecone

// Wire types for the records search and rerank endpoints.

type searchInputs struct {
	Text string `json:"text"`
}

type searchQuery struct {
	Inputs searchInputs `json:"inputs"`
	TopK   int          `json:"top_k"`
}

type searchRequest struct {
	Query  searchQuery `json:"query"`
	Fields []string    `json:"fields,omitempty"`
}

type searchHit struct {
	Id     string            `json:"_id"`
	Score  float64           `json:"_score"`
	Fields map[string]string `json:"fields"`
}

type searchResult struct {
	Hits []searchHit `json:"hits"`
}

type searchResponse struct {
	Result searchResult `json:"result"`
}

type rerankDocument struct {
	Id   string `json:"id"`
	Text string `json:"text"`
}

type rerankRequest struct {
	Model           string           `json:"model"`
	Query           string           `json:"query"`
	Documents       []rerankDocument `json:"documents"`
	TopN            int              `json:"top_n"`
	ReturnDocuments bool             `json:"return_documents"`
	RankFields      []string         `json:"rank_fields,omitempty"`
}

type rerankResultRow struct {
	Index    int            `json:"index"`
	Score    float64        `json:"score"`
	Document rerankDocument `json:"document"`
}

type rerankResponse struct {
	Data []rerankResultRow `json:"data"`
}
