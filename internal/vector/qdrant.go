// Package vector provides a Qdrant-backed index for remote deployments.
package vector

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/qdrant/go-client/qdrant"

	"github.com/charpstar/visearch/internal/models"
)

// QdrantConfig holds Qdrant connection settings.
type QdrantConfig struct {
	// URL is the Qdrant server address (e.g. "https://example.qdrant.io:6334").
	URL string
	// Collection is the collection holding image vectors.
	Collection string
	// APIKey is an optional API key.
	APIKey string
	// Dimensions is the expected vector dimension.
	Dimensions int
}

// QdrantIndex implements Index against a remote Qdrant collection. Point IDs
// are the catalog positions, so results map straight onto catalog entries.
type QdrantIndex struct {
	client     *qdrant.Client
	collection string
	dimensions int
	size       atomic.Int64
}

// NewQdrantIndex connects to Qdrant and counts the existing points.
func NewQdrantIndex(ctx context.Context, cfg QdrantConfig) (*QdrantIndex, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("qdrant url is required")
	}
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}

	raw := cfg.URL
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse qdrant url: %w", err)
	}
	port := 6334
	if u.Port() != "" {
		p, err := strconv.Atoi(u.Port())
		if err != nil {
			return nil, fmt.Errorf("invalid port: %w", err)
		}
		port = p
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   u.Hostname(),
		Port:   port,
		APIKey: cfg.APIKey,
		UseTLS: u.Scheme == "https",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	idx := &QdrantIndex{
		client:     client,
		collection: cfg.Collection,
		dimensions: cfg.Dimensions,
	}
	count, err := client.Count(ctx, &qdrant.CountPoints{CollectionName: cfg.Collection})
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to count qdrant points: %w", err)
	}
	idx.size.Store(int64(count))
	return idx, nil
}

// Type returns the index type identifier.
func (q *QdrantIndex) Type() string {
	return string(IndexTypeQdrant)
}

// Add upserts vectors with sequential numeric IDs continuing from the
// current size.
func (q *QdrantIndex) Add(ctx context.Context, vectors [][]float32) error {
	if len(vectors) == 0 {
		return nil
	}
	next := q.size.Load()
	points := make([]*qdrant.PointStruct, 0, len(vectors))
	for i, vec := range vectors {
		if len(vec) != q.dimensions {
			return models.NewError(models.KindDimensionMismatch,
				"vector dimension mismatch: got %d, expected %d", len(vec), q.dimensions)
		}
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDNum(uint64(next) + uint64(i)),
			Vectors: qdrant.NewVectors(vec...),
		})
	}
	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collection,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert failed: %w", err)
	}
	q.size.Add(int64(len(vectors)))
	return nil
}

// Search queries the collection and maps point scores to hits.
func (q *QdrantIndex) Search(ctx context.Context, query []float32, k int) ([]*Hit, error) {
	if len(query) != q.dimensions {
		return nil, models.NewError(models.KindDimensionMismatch,
			"query dimension mismatch: got %d, expected %d", len(query), q.dimensions)
	}
	size := int(q.size.Load())
	if size == 0 {
		return nil, models.NewError(models.KindEmptyIndex, "index holds no vectors")
	}
	if k < 1 {
		k = 1
	}
	if k > size {
		k = size
	}
	limit := uint64(k)
	points, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQuery(query...),
		Limit:          &limit,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant search failed: %w", err)
	}
	hits := make([]*Hit, 0, len(points))
	for _, point := range points {
		if point.Id == nil {
			continue
		}
		sim := float64(point.Score)
		hits = append(hits, &Hit{
			ID:         int(point.Id.GetNum()),
			Similarity: sim,
			Distance:   1 - sim,
		})
	}
	return hits, nil
}

// Save is a no-op; Qdrant persists remotely.
func (q *QdrantIndex) Save(path string) error {
	return nil
}

// Load refreshes the cached point count from the collection.
func (q *QdrantIndex) Load(path string) error {
	count, err := q.client.Count(context.Background(), &qdrant.CountPoints{CollectionName: q.collection})
	if err != nil {
		return fmt.Errorf("failed to count qdrant points: %w", err)
	}
	q.size.Store(int64(count))
	return nil
}

// Size returns the cached number of points in the collection.
func (q *QdrantIndex) Size() int {
	return int(q.size.Load())
}

// Dimensions returns the configured vector dimension.
func (q *QdrantIndex) Dimensions() int {
	return q.dimensions
}

// Close closes the underlying gRPC connection.
func (q *QdrantIndex) Close() error {
	return q.client.Close()
}
