package vector

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/charpstar/visearch/internal/models"
)

func TestFlatIndex_AddSearch(t *testing.T) {
	idx, err := NewFlatIndex(3)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()
	ctx := context.Background()

	vecs := [][]float32{
		{1, 0, 0},
		{0.9, 0.1, 0},
		{0, 1, 0},
	}
	if err := idx.Add(ctx, vecs); err != nil {
		t.Fatal(err)
	}
	if idx.Size() != 3 {
		t.Errorf("Size=%d", idx.Size())
	}

	hits, err := idx.Search(ctx, []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if hits[0].ID != 0 {
		t.Errorf("top hit should be 0, got %d", hits[0].ID)
	}
	if hits[0].Similarity < hits[1].Similarity {
		t.Error("hits not sorted by descending similarity")
	}
	if got := hits[0].Distance; math.Abs(got-(1-hits[0].Similarity)) > 1e-9 {
		t.Errorf("distance should be 1-similarity, got %f", got)
	}
}

func TestFlatIndex_SelfQueryIsRankOne(t *testing.T) {
	idx, _ := NewFlatIndex(4)
	ctx := context.Background()
	vecs := [][]float32{
		{0.5, 0.5, 0.5, 0.5},
		{1, 0, 0, 0},
		{0, 0, 1, 0},
	}
	if err := idx.Add(ctx, vecs); err != nil {
		t.Fatal(err)
	}
	hits, err := idx.Search(ctx, vecs[1], 3)
	if err != nil {
		t.Fatal(err)
	}
	if hits[0].ID != 1 {
		t.Errorf("self query should win: got id %d", hits[0].ID)
	}
	if math.Abs(hits[0].Similarity-1.0) > 1e-5 {
		t.Errorf("self similarity should be ~1.0, got %f", hits[0].Similarity)
	}
}

func TestFlatIndex_TieBreakByAscendingID(t *testing.T) {
	idx, _ := NewFlatIndex(2)
	ctx := context.Background()
	// Identical vectors produce exactly equal similarities.
	vecs := [][]float32{
		{0, 1},
		{1, 0},
		{0, 1},
		{0, 1},
	}
	if err := idx.Add(ctx, vecs); err != nil {
		t.Fatal(err)
	}
	hits, err := idx.Search(ctx, []float32{0, 1}, 4)
	if err != nil {
		t.Fatal(err)
	}
	want := []int{0, 2, 3, 1}
	for i, hit := range hits {
		if hit.ID != want[i] {
			t.Errorf("position %d: got id %d, want %d", i, hit.ID, want[i])
		}
	}
}

func TestFlatIndex_KClamp(t *testing.T) {
	idx, _ := NewFlatIndex(2)
	ctx := context.Background()
	_ = idx.Add(ctx, [][]float32{{1, 0}, {0, 1}})

	hits, err := idx.Search(ctx, []float32{1, 0}, 50)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 {
		t.Errorf("k larger than size should clamp: got %d hits", len(hits))
	}

	hits, err = idx.Search(ctx, []float32{1, 0}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 {
		t.Errorf("k below 1 should clamp to 1: got %d hits", len(hits))
	}
}

func TestFlatIndex_EmptyIndex(t *testing.T) {
	idx, _ := NewFlatIndex(2)
	_, err := idx.Search(context.Background(), []float32{1, 0}, 5)
	if err == nil {
		t.Fatal("expected error on empty index")
	}
	if models.KindOf(err) != models.KindEmptyIndex {
		t.Errorf("kind: got %s, want empty_index", models.KindOf(err))
	}
}

func TestFlatIndex_DimensionMismatch(t *testing.T) {
	idx, _ := NewFlatIndex(3)
	ctx := context.Background()
	_ = idx.Add(ctx, [][]float32{{1, 0, 0}})
	_, err := idx.Search(ctx, []float32{1, 0}, 1)
	if err == nil {
		t.Fatal("expected error")
	}
	if models.KindOf(err) != models.KindDimensionMismatch {
		t.Errorf("kind: got %s, want dimension_mismatch", models.KindOf(err))
	}
	if err := idx.Add(ctx, [][]float32{{1, 0}}); models.KindOf(err) != models.KindDimensionMismatch {
		t.Errorf("add kind: got %s, want dimension_mismatch", models.KindOf(err))
	}
}

func TestFlatIndex_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.bin")
	ctx := context.Background()

	idx, _ := NewFlatIndex(2)
	vecs := [][]float32{{1, 0}, {0.6, 0.8}}
	if err := idx.Add(ctx, vecs); err != nil {
		t.Fatal(err)
	}
	if err := idx.Save(path); err != nil {
		t.Fatal(err)
	}

	loaded, _ := NewFlatIndex(2)
	if err := loaded.Load(path); err != nil {
		t.Fatal(err)
	}
	if loaded.Size() != 2 {
		t.Fatalf("loaded size: got %d", loaded.Size())
	}
	hits, err := loaded.Search(ctx, []float32{0.6, 0.8}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if hits[0].ID != 1 || math.Abs(hits[0].Similarity-1.0) > 1e-5 {
		t.Errorf("round trip hit: id=%d sim=%f", hits[0].ID, hits[0].Similarity)
	}

	// Wrong dimension on load.
	wrong, _ := NewFlatIndex(3)
	if err := wrong.Load(path); models.KindOf(err) != models.KindDimensionMismatch {
		t.Errorf("load wrong dim: got %v", err)
	}

	// Missing file leaves the index unchanged.
	fresh, _ := NewFlatIndex(2)
	if err := fresh.Load(filepath.Join(t.TempDir(), "missing.bin")); err != nil {
		t.Errorf("missing file should not error: %v", err)
	}
}

func TestFlatIndex_Idempotence(t *testing.T) {
	idx, _ := NewFlatIndex(3)
	ctx := context.Background()
	_ = idx.Add(ctx, [][]float32{{1, 0, 0}, {0, 1, 0}, {0.7, 0.7, 0}})

	first, err := idx.Search(ctx, []float32{0.7, 0.7, 0.14}, 3)
	if err != nil {
		t.Fatal(err)
	}
	second, err := idx.Search(ctx, []float32{0.7, 0.7, 0.14}, 3)
	if err != nil {
		t.Fatal(err)
	}
	for i := range first {
		if first[i].ID != second[i].ID || first[i].Similarity != second[i].Similarity {
			t.Errorf("position %d differs between identical queries", i)
		}
	}
}
