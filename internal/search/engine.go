// Package search orchestrates query resolution, embedding, and index search.
package search

import (
	"context"
	"encoding/base64"
	"errors"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/charpstar/visearch/internal/config"
	"github.com/charpstar/visearch/internal/embedding"
	"github.com/charpstar/visearch/internal/models"
	"github.com/charpstar/visearch/internal/snapshot"
	"github.com/charpstar/visearch/internal/vector"
)

// Engine resolves a search query to a vector, runs it against the current
// snapshot, and assembles ranked results. It is safe for concurrent use.
type Engine struct {
	handle   *snapshot.Handle
	embedder embedding.Embedder
	cfg      *config.SearchConfig
	embCfg   *config.EmbeddingConfig
	logger   *zap.Logger
}

// NewEngine creates a search engine over the given snapshot handle and embedder.
func NewEngine(handle *snapshot.Handle, embedder embedding.Embedder, cfg *config.SearchConfig, embCfg *config.EmbeddingConfig, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		handle:   handle,
		embedder: embedder,
		cfg:      cfg,
		embCfg:   embCfg,
		logger:   logger,
	}
}

// Search executes a query end to end under the configured timeout. On timeout
// the in-flight work is abandoned and a timeout error is returned; the request
// is never retried.
func (e *Engine) Search(ctx context.Context, q *models.SearchQuery) (*models.SearchResponse, error) {
	if err := q.Validate(e.cfg.DefaultLimit, e.cfg.MaxLimit); err != nil {
		return nil, err
	}
	queryType := q.Type()
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout())
	defer cancel()

	type outcome struct {
		results []*models.SearchResult
		err     error
	}
	done := make(chan outcome, 1)
	go func() {
		results, err := e.run(ctx, q)
		done <- outcome{results, err}
	}()

	select {
	case out := <-done:
		if out.err != nil {
			return nil, out.err
		}
		elapsed := time.Since(start)
		e.logger.Debug("search completed",
			zap.String("query_type", string(queryType)),
			zap.Int("results", len(out.results)),
			zap.Duration("elapsed", elapsed))
		return &models.SearchResponse{
			Success:      true,
			Results:      out.results,
			TotalResults: len(out.results),
			SearchTime:   elapsed.Milliseconds(),
			QueryType:    queryType,
		}, nil
	case <-ctx.Done():
		// A canceled parent (client disconnect) is not a missed deadline.
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, models.WrapError(models.KindInternal, ctx.Err(), "search canceled")
		}
		e.logger.Warn("search timed out",
			zap.String("query_type", string(queryType)),
			zap.Duration("timeout", e.cfg.Timeout()))
		return nil, models.WrapError(models.KindTimeout, ctx.Err(),
			"search did not complete within %s", e.cfg.Timeout())
	}
}

func (e *Engine) run(ctx context.Context, q *models.SearchQuery) ([]*models.SearchResult, error) {
	snap := e.handle.Current()
	if snap == nil {
		return nil, models.NewError(models.KindEmptyIndex, "no index loaded")
	}

	vec, err := e.resolveVector(ctx, q, snap.Index.Dimensions())
	if err != nil {
		return nil, err
	}

	hits, err := snap.Index.Search(ctx, vec, q.Limit)
	if err != nil {
		return nil, err
	}

	results := make([]*models.SearchResult, 0, len(hits))
	for i, hit := range hits {
		item, ok := snap.Catalog.Get(hit.ID)
		if !ok {
			return nil, models.NewError(models.KindIndexCorrupt,
				"index returned id %d outside catalog of %d entries", hit.ID, snap.Catalog.Len())
		}
		results = append(results, &models.SearchResult{
			Rank:       i + 1,
			Index:      hit.ID,
			Filename:   item.Filename,
			Filepath:   item.Filepath,
			Similarity: hit.Similarity,
			Distance:   hit.Distance,
		})
	}
	return results, nil
}

// resolveVector turns whichever query variant is populated into a
// unit-normalized vector of the index dimension.
func (e *Engine) resolveVector(ctx context.Context, q *models.SearchQuery, dims int) ([]float32, error) {
	switch q.Type() {
	case models.QueryTypeText:
		if err := embedding.ValidateText(q.Text, e.embCfg.MaxTextLength); err != nil {
			return nil, err
		}
		vec, err := e.embedder.EmbedText(ctx, q.Text)
		if err != nil {
			return nil, wrapEmbedError(err, "text embedding failed")
		}
		return vec, nil

	case models.QueryTypeImage:
		data, err := DecodeBase64Image(q.ImageData)
		if err != nil {
			return nil, err
		}
		vec, err := e.embedder.EmbedImage(ctx, data)
		if err != nil {
			return nil, wrapEmbedError(err, "image embedding failed")
		}
		return vec, nil

	case models.QueryTypeEmbedding:
		if len(q.Embedding) != dims {
			return nil, models.NewError(models.KindDimensionMismatch,
				"embedding has %d dimensions, index expects %d", len(q.Embedding), dims)
		}
		vec := make([]float32, len(q.Embedding))
		for i, v := range q.Embedding {
			f := float64(v)
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return nil, models.NewValidationError("embedding contains non-finite values")
			}
			vec[i] = v
		}
		if _, err := vector.Normalize(vec); err != nil {
			return nil, err
		}
		return vec, nil

	default:
		return nil, models.NewValidationError("one of text, image_data, or embedding is required")
	}
}

// wrapEmbedError tags provider failures as embedding errors while letting
// already-tagged input errors pass through unchanged.
func wrapEmbedError(err error, msg string) error {
	switch models.KindOf(err) {
	case models.KindValidation, models.KindDegenerateVector:
		return err
	default:
		return models.WrapError(models.KindEmbeddingFailed, err, "%s", msg)
	}
}

// DecodeBase64Image decodes a base64 payload, tolerating an optional
// data-URL prefix such as "data:image/png;base64,".
func DecodeBase64Image(s string) ([]byte, error) {
	if idx := strings.Index(s, ","); idx >= 0 && strings.HasPrefix(s, "data:") {
		s = s[idx+1:]
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, models.NewValidationError("image_data is not valid base64: %v", err)
	}
	return data, nil
}

// EmbedText embeds a text string and reports its pre-normalization norm.
func (e *Engine) EmbedText(ctx context.Context, text string) (*models.EmbedResponse, error) {
	if err := embedding.ValidateText(text, e.embCfg.MaxTextLength); err != nil {
		return nil, err
	}
	vec, err := e.embedder.EmbedText(ctx, text)
	if err != nil {
		return nil, wrapEmbedError(err, "text embedding failed")
	}
	return &models.EmbedResponse{Embedding: vec, EmbeddingNorm: vector.L2Norm(vec)}, nil
}

// EmbedImage embeds a base64-encoded image and reports its norm.
func (e *Engine) EmbedImage(ctx context.Context, imageData string) (*models.EmbedResponse, error) {
	data, err := DecodeBase64Image(imageData)
	if err != nil {
		return nil, err
	}
	vec, err := e.embedder.EmbedImage(ctx, data)
	if err != nil {
		return nil, wrapEmbedError(err, "image embedding failed")
	}
	return &models.EmbedResponse{Embedding: vec, EmbeddingNorm: vector.L2Norm(vec)}, nil
}

// Lookup finds catalog entries whose filename matches the query text.
func (e *Engine) Lookup(ctx context.Context, query string, limit int) ([]*models.LookupResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, models.NewValidationError("lookup query cannot be blank")
	}
	if limit <= 0 {
		limit = e.cfg.DefaultLimit
	}
	if limit > e.cfg.MaxLimit {
		limit = e.cfg.MaxLimit
	}

	snap := e.handle.Current()
	if snap == nil || snap.Filenames == nil {
		return nil, models.NewError(models.KindEmptyIndex, "no index loaded")
	}
	ids, err := snap.Filenames.Lookup(ctx, query, limit)
	if err != nil {
		return nil, models.WrapError(models.KindInternal, err, "filename lookup failed")
	}

	results := make([]*models.LookupResult, 0, len(ids))
	for _, id := range ids {
		item, ok := snap.Catalog.Get(id)
		if !ok {
			continue
		}
		results = append(results, &models.LookupResult{
			Index:    item.ID,
			Filename: item.Filename,
			Filepath: item.Filepath,
		})
	}
	return results, nil
}

// IndexInfo describes the current snapshot.
func (e *Engine) IndexInfo() *models.IndexInfo {
	snap := e.handle.Current()
	if snap == nil {
		return &models.IndexInfo{}
	}
	return &models.IndexInfo{
		TotalVectors:    snap.Index.Size(),
		VectorDimension: snap.Index.Dimensions(),
		IndexType:       snap.Index.Type(),
		CatalogEntries:  snap.Catalog.Len(),
	}
}

// ModelInfo describes the embedding provider.
func (e *Engine) ModelInfo() *models.ModelInfo {
	return &models.ModelInfo{
		Provider:           e.embedder.Name(),
		EmbeddingDimension: e.embedder.Dimensions(),
	}
}
