//go:build faiss && cgo
// +build faiss,cgo

// Package vector provides a FAISS-backed index for production scale.
package vector

/*
#cgo CFLAGS: -I/opt/homebrew/include -I/usr/local/include
#cgo LDFLAGS: -L/opt/homebrew/lib -L/usr/local/lib -lfaiss_c

#include <stdlib.h>
#include <faiss/c_api/Index_c.h>
#include <faiss/c_api/IndexFlat_c.h>
#include <faiss/c_api/index_io_c.h>
#include <faiss/c_api/error_c.h>
*/
import "C"

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"unsafe"

	"github.com/charpstar/visearch/internal/models"
)

// FAISSIndex wraps a FAISS IndexFlatIP (inner product), which for normalized
// vectors is equivalent to cosine similarity. Vector IDs are the positions
// FAISS assigns on add, which match the catalog order.
type FAISSIndex struct {
	index      *C.FaissIndexFlatIP
	dimensions int
	mu         sync.RWMutex
}

// NewFAISSIndex creates a FAISS inner-product index with the given dimension.
func NewFAISSIndex(dimensions int) (*FAISSIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	var index *C.FaissIndexFlatIP
	ret := C.faiss_IndexFlatIP_new_with(&index, C.idx_t(dimensions))
	if ret != 0 {
		return nil, fmt.Errorf("failed to create FAISS index: %s", faissLastError())
	}
	return &FAISSIndex{index: index, dimensions: dimensions}, nil
}

// faissLastError returns the last FAISS error message.
func faissLastError() string {
	cErr := C.faiss_get_last_error()
	if cErr == nil {
		return "unknown error"
	}
	return C.GoString(cErr)
}

// Type returns the index type identifier.
func (f *FAISSIndex) Type() string {
	return string(IndexTypeFAISS)
}

// Add appends vectors; FAISS assigns sequential positions as IDs.
func (f *FAISSIndex) Add(ctx context.Context, vectors [][]float32) error {
	if len(vectors) == 0 {
		return nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	n := len(vectors)
	flat := make([]float32, n*f.dimensions)
	for i, vec := range vectors {
		if len(vec) != f.dimensions {
			return models.NewError(models.KindDimensionMismatch,
				"vector dimension mismatch: got %d, expected %d", len(vec), f.dimensions)
		}
		copy(flat[i*f.dimensions:(i+1)*f.dimensions], vec)
	}
	ret := C.faiss_Index_add(
		f.index,
		C.idx_t(n),
		(*C.float)(unsafe.Pointer(&flat[0])),
	)
	if ret != 0 {
		return fmt.Errorf("failed to add vectors to FAISS index: %s", faissLastError())
	}
	return nil
}

// Search returns the top-k hits by inner product. k is clamped to [1, size].
func (f *FAISSIndex) Search(ctx context.Context, query []float32, k int) ([]*Hit, error) {
	if len(query) != f.dimensions {
		return nil, models.NewError(models.KindDimensionMismatch,
			"query dimension mismatch: got %d, expected %d", len(query), f.dimensions)
	}
	f.mu.RLock()
	defer f.mu.RUnlock()

	ntotal := int(C.faiss_Index_ntotal(f.index))
	if ntotal == 0 {
		return nil, models.NewError(models.KindEmptyIndex, "index holds no vectors")
	}
	if k < 1 {
		k = 1
	}
	if k > ntotal {
		k = ntotal
	}

	similarities := make([]float32, k)
	labels := make([]int64, k)
	ret := C.faiss_Index_search(
		f.index,
		1,
		(*C.float)(unsafe.Pointer(&query[0])),
		C.idx_t(k),
		(*C.float)(unsafe.Pointer(&similarities[0])),
		(*C.idx_t)(unsafe.Pointer(&labels[0])),
	)
	if ret != 0 {
		return nil, fmt.Errorf("FAISS search failed: %s", faissLastError())
	}

	hits := make([]*Hit, 0, k)
	for i := 0; i < k; i++ {
		if labels[i] < 0 {
			continue
		}
		sim := float64(similarities[i])
		hits = append(hits, &Hit{ID: int(labels[i]), Similarity: sim, Distance: 1 - sim})
	}
	// FAISS returns sorted results already; re-sort to guarantee the stable
	// ascending-ID tie-break.
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		return hits[i].ID < hits[j].ID
	})
	return hits, nil
}

// Save persists the index to path.
func (f *FAISSIndex) Save(path string) error {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))
	ret := C.faiss_write_index_fname(f.index, cPath)
	if ret != 0 {
		return fmt.Errorf("failed to save FAISS index: %s", faissLastError())
	}
	return nil
}

// Load reads the index from path, replacing the current contents.
// A missing file leaves the index unchanged.
func (f *FAISSIndex) Load(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))
	var newIndex *C.FaissIndex
	ret := C.faiss_read_index_fname(cPath, 0, &newIndex)
	if ret != 0 {
		return models.NewError(models.KindIndexCorrupt, "failed to load FAISS index")
	}
	if d := int(C.faiss_Index_d(newIndex)); d != f.dimensions {
		C.faiss_Index_free(newIndex)
		return models.NewError(models.KindDimensionMismatch,
			"dimension mismatch: file has %d, index expects %d", d, f.dimensions)
	}
	if f.index != nil {
		C.faiss_Index_free(f.index)
	}
	f.index = (*C.FaissIndexFlatIP)(newIndex)
	return nil
}

// Size returns the number of vectors in the index.
func (f *FAISSIndex) Size() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return int(C.faiss_Index_ntotal(f.index))
}

// Dimensions returns the configured vector dimension.
func (f *FAISSIndex) Dimensions() int {
	return f.dimensions
}

// Close frees the underlying FAISS index.
func (f *FAISSIndex) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.index != nil {
		C.faiss_Index_free(f.index)
		f.index = nil
	}
	return nil
}
