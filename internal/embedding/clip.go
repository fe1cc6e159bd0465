//go:build cgo
// +build cgo

// Package embedding provides CLIP embedding via ONNX Runtime (requires CGO
// and the onnxruntime shared library).
package embedding

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/charpstar/visearch/internal/imaging"
	"github.com/charpstar/visearch/internal/models"
	"github.com/charpstar/visearch/internal/vector"
)

// clipImageSize is the input resolution of the CLIP visual encoder.
const clipImageSize = 224

// ClipConfig holds paths and sizes for the CLIP ONNX sessions.
type ClipConfig struct {
	TextModelPath   string
	VisualModelPath string
	Dimensions      int
	MaxTokens       int
	MaxImageBytes   int64
}

// ClipEmbedder runs CLIP text and visual encoders through ONNX Runtime.
// Tensors are pre-allocated per session; a mutex serializes each Run.
type ClipEmbedder struct {
	dimensions    int
	maxTokens     int
	maxImageBytes int64
	tokenizer     Tokenizer

	textSession         *ort.AdvancedSession
	inputIDsTensor      *ort.Tensor[int64]
	attentionMaskTensor *ort.Tensor[int64]
	textOutputTensor    *ort.Tensor[float32]
	textMu              sync.Mutex

	visualSession      *ort.AdvancedSession
	pixelValuesTensor  *ort.Tensor[float32]
	visualOutputTensor *ort.Tensor[float32]
	visualMu           sync.Mutex
}

// NewClipEmbedder creates the text and visual ONNX sessions.
// InitializeEnvironment is called if not already done.
func NewClipEmbedder(cfg ClipConfig) (*ClipEmbedder, error) {
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("failed to initialize ONNX runtime: %w", err)
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = clipContextLen
	}

	e := &ClipEmbedder{
		dimensions:    cfg.Dimensions,
		maxTokens:     cfg.MaxTokens,
		maxImageBytes: cfg.MaxImageBytes,
		tokenizer:     &SimpleTokenizer{},
	}
	if err := e.initTextSession(cfg.TextModelPath); err != nil {
		return nil, err
	}
	if err := e.initVisualSession(cfg.VisualModelPath); err != nil {
		_ = e.Close()
		return nil, err
	}
	return e, nil
}

func (e *ClipEmbedder) initTextSession(modelPath string) error {
	inputIDs, attentionMask := e.tokenizer.Tokenize("", e.maxTokens)

	var err error
	e.inputIDsTensor, err = ort.NewTensor(ort.NewShape(1, int64(e.maxTokens)), inputIDs)
	if err != nil {
		return fmt.Errorf("failed to create input_ids tensor: %w", err)
	}
	e.attentionMaskTensor, err = ort.NewTensor(ort.NewShape(1, int64(e.maxTokens)), attentionMask)
	if err != nil {
		return fmt.Errorf("failed to create attention_mask tensor: %w", err)
	}
	e.textOutputTensor, err = ort.NewTensor(ort.NewShape(1, int64(e.dimensions)), make([]float32, e.dimensions))
	if err != nil {
		return fmt.Errorf("failed to create text output tensor: %w", err)
	}

	e.textSession, err = ort.NewAdvancedSession(
		modelPath,
		[]string{"input_ids", "attention_mask"},
		[]string{"text_embeds"},
		[]ort.ArbitraryTensor{e.inputIDsTensor, e.attentionMaskTensor},
		[]ort.ArbitraryTensor{e.textOutputTensor},
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to create text session: %w", err)
	}
	return nil
}

func (e *ClipEmbedder) initVisualSession(modelPath string) error {
	var err error
	pixels := make([]float32, 3*clipImageSize*clipImageSize)
	e.pixelValuesTensor, err = ort.NewTensor(ort.NewShape(1, 3, clipImageSize, clipImageSize), pixels)
	if err != nil {
		return fmt.Errorf("failed to create pixel_values tensor: %w", err)
	}
	e.visualOutputTensor, err = ort.NewTensor(ort.NewShape(1, int64(e.dimensions)), make([]float32, e.dimensions))
	if err != nil {
		return fmt.Errorf("failed to create visual output tensor: %w", err)
	}

	e.visualSession, err = ort.NewAdvancedSession(
		modelPath,
		[]string{"pixel_values"},
		[]string{"image_embeds"},
		[]ort.ArbitraryTensor{e.pixelValuesTensor},
		[]ort.ArbitraryTensor{e.visualOutputTensor},
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to create visual session: %w", err)
	}
	return nil
}

// EmbedText runs the text encoder and returns a unit-normalized embedding.
func (e *ClipEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	inputIDs, attentionMask := e.tokenizer.Tokenize(text, e.maxTokens)

	e.textMu.Lock()
	defer e.textMu.Unlock()

	copy(e.inputIDsTensor.GetData(), inputIDs)
	copy(e.attentionMaskTensor.GetData(), attentionMask)
	if err := e.textSession.Run(); err != nil {
		return nil, models.WrapError(models.KindEmbeddingFailed, err, "text inference failed")
	}
	return e.copyNormalized(e.textOutputTensor.GetData())
}

// EmbedImage decodes and preprocesses the image, runs the visual encoder,
// and returns a unit-normalized embedding.
func (e *ClipEmbedder) EmbedImage(ctx context.Context, data []byte) ([]float32, error) {
	img, err := imaging.Decode(data, e.maxImageBytes)
	if err != nil {
		return nil, err
	}
	tensor := imaging.ToTensor(img, clipImageSize)

	e.visualMu.Lock()
	defer e.visualMu.Unlock()

	copy(e.pixelValuesTensor.GetData(), tensor)
	if err := e.visualSession.Run(); err != nil {
		return nil, models.WrapError(models.KindEmbeddingFailed, err, "image inference failed")
	}
	return e.copyNormalized(e.visualOutputTensor.GetData())
}

func (e *ClipEmbedder) copyNormalized(out []float32) ([]float32, error) {
	emb := make([]float32, e.dimensions)
	copy(emb, out[:e.dimensions])
	if _, err := vector.Normalize(emb); err != nil {
		return nil, err
	}
	return emb, nil
}

// Dimensions returns the embedding dimension.
func (e *ClipEmbedder) Dimensions() int {
	return e.dimensions
}

// Name returns the provider identifier.
func (e *ClipEmbedder) Name() string {
	return "clip-onnx"
}

// Close destroys the sessions and tensors.
func (e *ClipEmbedder) Close() error {
	var err error
	if e.textSession != nil {
		err = e.textSession.Destroy()
		e.textSession = nil
	}
	if e.visualSession != nil {
		if derr := e.visualSession.Destroy(); err == nil {
			err = derr
		}
		e.visualSession = nil
	}
	for _, t := range []*ort.Tensor[int64]{e.inputIDsTensor, e.attentionMaskTensor} {
		if t != nil {
			_ = t.Destroy()
		}
	}
	e.inputIDsTensor, e.attentionMaskTensor = nil, nil
	for _, t := range []*ort.Tensor[float32]{e.textOutputTensor, e.pixelValuesTensor, e.visualOutputTensor} {
		if t != nil {
			_ = t.Destroy()
		}
	}
	e.textOutputTensor, e.pixelValuesTensor, e.visualOutputTensor = nil, nil, nil
	return err
}
