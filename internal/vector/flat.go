// Package vector provides an exact brute-force index for in-process search.
package vector

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/charpstar/visearch/internal/models"
)

// FlatIndex is an exact nearest-neighbor index using brute-force inner
// product over every stored vector. Vector IDs are append positions. Reads
// take a shared lock, so concurrent searches never block each other.
type FlatIndex struct {
	dimensions int
	vectors    [][]float32
	mu         sync.RWMutex
}

// NewFlatIndex creates a flat index with the given dimension.
func NewFlatIndex(dimensions int) (*FlatIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &FlatIndex{
		dimensions: dimensions,
		vectors:    make([][]float32, 0),
	}, nil
}

// Type returns the index type identifier.
func (f *FlatIndex) Type() string {
	return string(IndexTypeFlat)
}

// Add appends vectors; each gets the next position as its ID.
func (f *FlatIndex) Add(ctx context.Context, vectors [][]float32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, vec := range vectors {
		if len(vec) != f.dimensions {
			return models.NewError(models.KindDimensionMismatch,
				"vector dimension mismatch: got %d, expected %d", len(vec), f.dimensions)
		}
		cp := make([]float32, f.dimensions)
		copy(cp, vec)
		f.vectors = append(f.vectors, cp)
	}
	return nil
}

// Search returns the top-k vectors by descending inner product. Exactly equal
// similarities break ties by ascending ID. k is clamped to [1, size].
func (f *FlatIndex) Search(ctx context.Context, query []float32, k int) ([]*Hit, error) {
	if len(query) != f.dimensions {
		return nil, models.NewError(models.KindDimensionMismatch,
			"query dimension mismatch: got %d, expected %d", len(query), f.dimensions)
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	n := len(f.vectors)
	if n == 0 {
		return nil, models.NewError(models.KindEmptyIndex, "index holds no vectors")
	}
	if k < 1 {
		k = 1
	}
	if k > n {
		k = n
	}
	hits := make([]*Hit, n)
	for i, vec := range f.vectors {
		var dot float64
		for j := 0; j < f.dimensions; j++ {
			dot += float64(query[j] * vec[j])
		}
		hits[i] = &Hit{ID: i, Similarity: dot, Distance: 1 - dot}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].ID < hits[j].ID
	})
	return hits[:k], nil
}

// VectorAt returns a copy of the vector stored at id.
func (f *FlatIndex) VectorAt(id int) ([]float32, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if id < 0 || id >= len(f.vectors) {
		return nil, false
	}
	cp := make([]float32, f.dimensions)
	copy(cp, f.vectors[id])
	return cp, true
}

// Save persists the index to path. Directory is created if needed.
// Format: dimensions (uint32), count (uint32), then count*dimensions float32 LE.
func (f *FlatIndex) Save(path string) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	defer file.Close()
	return f.write(file)
}

func (f *FlatIndex) write(w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, uint32(f.dimensions)); err != nil {
		return fmt.Errorf("write dimensions: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(f.vectors))); err != nil {
		return fmt.Errorf("write count: %w", err)
	}
	for _, vec := range f.vectors {
		if _, err := w.Write(float32SliceToBytes(vec)); err != nil {
			return fmt.Errorf("write vector: %w", err)
		}
	}
	return nil
}

// Load reads the index from path and replaces the in-memory contents.
// Dimensions must match. A missing file leaves the index unchanged.
func (f *FlatIndex) Load(path string) error {
	if path == "" {
		return nil
	}
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open index file: %w", err)
	}
	defer file.Close()
	return f.ReadFrom(file)
}

// ReadFrom replaces the index contents from r in the Save format.
func (f *FlatIndex) ReadFrom(r io.Reader) error {
	var dim, n uint32
	if err := binary.Read(r, binary.LittleEndian, &dim); err != nil {
		return models.WrapError(models.KindIndexCorrupt, err, "vector artifact is truncated")
	}
	if int(dim) != f.dimensions {
		return models.NewError(models.KindDimensionMismatch,
			"dimension mismatch: file has %d, index expects %d", dim, f.dimensions)
	}
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return models.WrapError(models.KindIndexCorrupt, err, "vector artifact is truncated")
	}
	vectors := make([][]float32, 0, n)
	buf := make([]byte, f.dimensions*4)
	for i := uint32(0); i < n; i++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			return models.WrapError(models.KindIndexCorrupt, err,
				"vector artifact is truncated at vector %d", i)
		}
		vectors = append(vectors, bytesToFloat32Slice(buf))
	}
	f.mu.Lock()
	f.vectors = vectors
	f.mu.Unlock()
	return nil
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}

// Size returns the number of vectors in the index.
func (f *FlatIndex) Size() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.vectors)
}

// Dimensions returns the configured vector dimension.
func (f *FlatIndex) Dimensions() int {
	return f.dimensions
}

// Close is a no-op for FlatIndex.
func (f *FlatIndex) Close() error {
	return nil
}
