// Package vector provides vector index backends and similarity search.
package vector

import "context"

// Index defines vector storage and nearest-neighbor search. IDs are the
// stable positions at which vectors were added, starting at 0.
type Index interface {
	Add(ctx context.Context, vectors [][]float32) error
	Search(ctx context.Context, query []float32, k int) ([]*Hit, error)
	Size() int
	Dimensions() int
	Type() string
	Save(path string) error
	Load(path string) error
	Close() error
}

// Hit is a single nearest-neighbor match. For unit-normalized vectors
// Similarity is the inner product and Distance = 1 - Similarity.
type Hit struct {
	ID         int
	Similarity float64
	Distance   float64
}
