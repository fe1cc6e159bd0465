//go:build !cgo
// +build !cgo

package embedding

import (
	"context"
	"errors"
)

// ClipConfig holds paths and sizes for the CLIP ONNX sessions.
type ClipConfig struct {
	TextModelPath   string
	VisualModelPath string
	Dimensions      int
	MaxTokens       int
	MaxImageBytes   int64
}

// ClipEmbedder stub type when built without CGO (see clip.go for the real
// implementation).
type ClipEmbedder struct{}

// NewClipEmbedder returns an error when built without CGO.
func NewClipEmbedder(_ ClipConfig) (*ClipEmbedder, error) {
	return nil, errors.New("CLIP embedder requires CGO; build with CGO_ENABLED=1 and onnxruntime")
}

// EmbedText is not available without CGO.
func (e *ClipEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.New("CLIP embedder not available")
}

// EmbedImage is not available without CGO.
func (e *ClipEmbedder) EmbedImage(ctx context.Context, data []byte) ([]float32, error) {
	return nil, errors.New("CLIP embedder not available")
}

// Dimensions returns 0 without CGO.
func (e *ClipEmbedder) Dimensions() int {
	return 0
}

// Name returns the provider identifier.
func (e *ClipEmbedder) Name() string {
	return "clip-onnx"
}

// Close is a no-op without CGO.
func (e *ClipEmbedder) Close() error {
	return nil
}
