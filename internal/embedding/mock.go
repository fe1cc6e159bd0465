package embedding

import (
	"context"
	"hash/fnv"
	"math"

	"github.com/charpstar/visearch/internal/imaging"
	"github.com/charpstar/visearch/internal/models"
)

// MockEmbedder is a deterministic embedder for tests and local development.
// The same input always maps to the same unit vector. Image inputs are still
// decoded, so malformed bytes fail the way a real model pipeline would.
type MockEmbedder struct {
	dimensions    int
	maxImageBytes int64
}

// NewMockEmbedder returns an embedder producing deterministic embeddings of
// the given dimension.
func NewMockEmbedder(dimensions int, maxImageBytes int64) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 512
	}
	return &MockEmbedder{dimensions: dimensions, maxImageBytes: maxImageBytes}
}

// EmbedText returns a deterministic embedding derived from the text hash.
func (e *MockEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return e.fromSeed(HashString(text))
}

// EmbedImage decodes the image, then returns a deterministic embedding
// derived from the byte hash.
func (e *MockEmbedder) EmbedImage(ctx context.Context, data []byte) ([]float32, error) {
	if _, err := imaging.Decode(data, e.maxImageBytes); err != nil {
		return nil, err
	}
	h := fnv.New64a()
	_, _ = h.Write(data)
	return e.fromSeed(int(h.Sum64() % (1 << 31)))
}

func (e *MockEmbedder) fromSeed(seed int) ([]float32, error) {
	emb := make([]float32, e.dimensions)
	for i := 0; i < e.dimensions; i++ {
		emb[i] = float32(math.Sin(float64(seed*(i+1)))*0.1 + 0.01)
	}
	var sum float64
	for _, v := range emb {
		sum += float64(v * v)
	}
	if sum == 0 {
		return nil, models.NewError(models.KindDegenerateVector, "vector has zero norm")
	}
	norm := 1.0 / math.Sqrt(sum)
	for i := range emb {
		emb[i] *= float32(norm)
	}
	return emb, nil
}

// Dimensions returns the embedding dimension.
func (e *MockEmbedder) Dimensions() int {
	return e.dimensions
}

// Name returns the provider identifier.
func (e *MockEmbedder) Name() string {
	return "mock"
}

// Close is a no-op for MockEmbedder.
func (e *MockEmbedder) Close() error {
	return nil
}

// HashString returns a deterministic hash for text inputs.
func HashString(s string) int {
	h := 0
	for _, c := range s {
		h = 31*h + int(c)
	}
	if h < 0 {
		h = -h
	}
	return h
}
