// Package vector provides vector index implementations and a factory for creating them.
package vector

import (
	"context"
	"fmt"
)

// IndexType represents the type of vector index to use.
type IndexType string

const (
	// IndexTypeFlat uses exact in-process brute-force search. Good for small
	// catalogs (hundreds to low thousands of images).
	IndexTypeFlat IndexType = "flat"
	// IndexTypeFAISS uses FAISS for large catalogs.
	// Requires the FAISS library and build tag -tags=faiss.
	IndexTypeFAISS IndexType = "faiss"
	// IndexTypeQdrant uses a remote Qdrant collection.
	IndexTypeQdrant IndexType = "qdrant"
)

// NewIndex creates a vector index of the specified type.
// Supported types: "flat" (default), "faiss", "qdrant".
func NewIndex(ctx context.Context, indexType string, dimensions int, qdrantCfg QdrantConfig) (Index, error) {
	switch IndexType(indexType) {
	case IndexTypeFlat, "":
		return NewFlatIndex(dimensions)
	case IndexTypeFAISS:
		return NewFAISSIndex(dimensions)
	case IndexTypeQdrant:
		qdrantCfg.Dimensions = dimensions
		return NewQdrantIndex(ctx, qdrantCfg)
	default:
		return nil, fmt.Errorf("unknown index type: %s (supported: flat, faiss, qdrant)", indexType)
	}
}

// IsFAISSAvailable returns true if FAISS support is compiled in.
func IsFAISSAvailable() bool {
	idx, err := NewFAISSIndex(1)
	if err != nil {
		return false
	}
	_ = idx.Close()
	return true
}
