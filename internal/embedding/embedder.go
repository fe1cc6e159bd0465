// Package embedding produces unit-normalized vectors for text and images.
package embedding

import (
	"context"
	"strings"

	"github.com/charpstar/visearch/internal/models"
)

// Embedder produces vector embeddings for text and images. Implementations
// return unit-normalized vectors and must be safe for concurrent use.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
	EmbedImage(ctx context.Context, data []byte) ([]float32, error)
	Dimensions() int
	Name() string
	Close() error
}

// ValidateText rejects empty text and text beyond maxLen characters.
// This runs before any model call.
func ValidateText(text string, maxLen int) error {
	if strings.TrimSpace(text) == "" {
		return models.NewValidationError("text cannot be empty")
	}
	if maxLen > 0 && len([]rune(text)) > maxLen {
		return models.NewValidationError("text exceeds maximum length of %d characters", maxLen)
	}
	return nil
}
