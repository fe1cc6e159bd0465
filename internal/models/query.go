package models

import "strings"

// QueryType identifies which variant of a search query is populated.
type QueryType string

const (
	// QueryTypeText searches with a natural-language description.
	QueryTypeText QueryType = "text"
	// QueryTypeImage searches with a base64-encoded image.
	QueryTypeImage QueryType = "image"
	// QueryTypeEmbedding searches with a precomputed embedding vector.
	QueryTypeEmbedding QueryType = "embedding"
)

// SearchQuery is a tagged search request: exactly one of Text, ImageData, or
// Embedding must be populated. ImageData is base64, with or without a data-URL
// prefix.
type SearchQuery struct {
	Text      string    `json:"text,omitempty"`
	ImageData string    `json:"image_data,omitempty"`
	Embedding []float32 `json:"embedding,omitempty"`
	Limit     int       `json:"limit,omitempty"`
}

// Type returns the query variant, or "" when no variant is populated.
func (q *SearchQuery) Type() QueryType {
	switch {
	case q.Text != "":
		return QueryTypeText
	case q.ImageData != "":
		return QueryTypeImage
	case len(q.Embedding) > 0:
		return QueryTypeEmbedding
	default:
		return ""
	}
}

// Validate ensures exactly one variant is populated and normalizes the limit.
// Variant-specific checks (text length, image decodability, embedding
// dimension) happen downstream where the configured limits are known.
func (q *SearchQuery) Validate(defaultLimit, maxLimit int) error {
	populated := 0
	if q.Text != "" {
		if strings.TrimSpace(q.Text) == "" {
			return NewValidationError("text query cannot be blank")
		}
		populated++
	}
	if q.ImageData != "" {
		populated++
	}
	if len(q.Embedding) > 0 {
		populated++
	}
	if populated == 0 {
		return NewValidationError("one of text, image_data, or embedding is required")
	}
	if populated > 1 {
		return NewValidationError("exactly one of text, image_data, or embedding must be set")
	}
	if q.Limit <= 0 {
		q.Limit = defaultLimit
	}
	if maxLimit > 0 && q.Limit > maxLimit {
		q.Limit = maxLimit
	}
	return nil
}
