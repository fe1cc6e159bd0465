package models

// SearchResult is a single ranked hit. Index is the item's stable position in
// the vector index; Rank is 1-based and contiguous in response order.
type SearchResult struct {
	Rank       int     `json:"rank"`
	Index      int     `json:"index"`
	Filename   string  `json:"filename"`
	Filepath   string  `json:"filepath"`
	Similarity float64 `json:"similarity"`
	Distance   float64 `json:"distance"`
}

// SearchResponse is the envelope for a search request.
type SearchResponse struct {
	Success      bool            `json:"success"`
	Results      []*SearchResult `json:"results"`
	TotalResults int             `json:"total_results"`
	SearchTime   int64           `json:"search_time_ms"`
	QueryType    QueryType       `json:"query_type"`
	RequestID    string          `json:"request_id,omitempty"`
	Error        string          `json:"error,omitempty"`
}

// EmbedResponse carries a raw embedding and its pre-normalization L2 norm.
type EmbedResponse struct {
	Embedding     []float32 `json:"embedding"`
	EmbeddingNorm float64   `json:"embedding_norm"`
}

// LookupResult is a single filename-lookup match.
type LookupResult struct {
	Index    int    `json:"index"`
	Filename string `json:"filename"`
	Filepath string `json:"filepath"`
}

// IndexInfo describes the loaded index snapshot.
type IndexInfo struct {
	TotalVectors    int    `json:"total_vectors"`
	VectorDimension int    `json:"vector_dimension"`
	IndexType       string `json:"index_type"`
	CatalogEntries  int    `json:"catalog_entries"`
}

// ModelInfo describes the embedding provider.
type ModelInfo struct {
	Provider           string `json:"provider"`
	EmbeddingDimension int    `json:"embedding_dimension"`
}
