package search

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/charpstar/visearch/internal/catalog"
	"github.com/charpstar/visearch/internal/config"
	"github.com/charpstar/visearch/internal/embedding"
	"github.com/charpstar/visearch/internal/models"
	"github.com/charpstar/visearch/internal/snapshot"
	"github.com/charpstar/visearch/internal/vector"
)

const testDims = 4

// fakeEmbedder returns canned vectors and records how often it was called.
type fakeEmbedder struct {
	textVec  []float32
	imageVec []float32
	err      error
	delay    time.Duration
	calls    int
}

func (f *fakeEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.textVec, nil
}

func (f *fakeEmbedder) EmbedImage(ctx context.Context, data []byte) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.imageVec, nil
}

func (f *fakeEmbedder) Dimensions() int { return testDims }
func (f *fakeEmbedder) Name() string    { return "fake" }
func (f *fakeEmbedder) Close() error    { return nil }

func unit(vals ...float32) []float32 {
	v := make([]float32, len(vals))
	copy(v, vals)
	if _, err := vector.Normalize(v); err != nil {
		panic(err)
	}
	return v
}

func testSnapshot(t *testing.T, vectors [][]float32) *snapshot.Handle {
	t.Helper()
	idx, err := vector.NewFlatIndex(testDims)
	if err != nil {
		t.Fatalf("new index: %v", err)
	}
	if len(vectors) > 0 {
		if err := idx.Add(context.Background(), vectors); err != nil {
			t.Fatalf("add vectors: %v", err)
		}
	}
	items := make([]catalog.Item, len(vectors))
	for i := range vectors {
		items[i] = catalog.Item{
			Filename: fmt.Sprintf("img_%03d.jpg", i),
			Filepath: fmt.Sprintf("images/img_%03d.jpg", i),
		}
	}
	cat := catalog.New(items)
	fn, err := catalog.NewFilenameIndex(cat)
	if err != nil {
		t.Fatalf("filename index: %v", err)
	}
	snap := &snapshot.Snapshot{Index: idx, Catalog: cat, Filenames: fn, LoadedAt: time.Now()}
	t.Cleanup(func() { snap.Close() })
	return snapshot.NewHandle(snap)
}

func testConfigs() (*config.SearchConfig, *config.EmbeddingConfig) {
	return &config.SearchConfig{DefaultLimit: 5, MaxLimit: 20, TimeoutSeconds: 30},
		&config.EmbeddingConfig{MaxTextLength: 100, MaxImageBytes: 1 << 20}
}

func newTestEngine(t *testing.T, vectors [][]float32, emb embedding.Embedder) *Engine {
	t.Helper()
	sc, ec := testConfigs()
	return NewEngine(testSnapshot(t, vectors), emb, sc, ec, nil)
}

func TestSearch_TextQuery(t *testing.T) {
	vectors := [][]float32{
		unit(1, 0, 0, 0),
		unit(0, 1, 0, 0),
		unit(1, 1, 0, 0),
	}
	emb := &fakeEmbedder{textVec: unit(1, 0.1, 0, 0)}
	eng := newTestEngine(t, vectors, emb)

	resp, err := eng.Search(context.Background(), &models.SearchQuery{Text: "red shoe"})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if !resp.Success || resp.QueryType != models.QueryTypeText {
		t.Errorf("unexpected envelope: %+v", resp)
	}
	if resp.TotalResults != 3 || len(resp.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(resp.Results))
	}
	for i, r := range resp.Results {
		if r.Rank != i+1 {
			t.Errorf("result %d: expected rank %d, got %d", i, i+1, r.Rank)
		}
		if i > 0 && r.Similarity > resp.Results[i-1].Similarity {
			t.Errorf("results not in descending similarity order at %d", i)
		}
		if got := 1 - r.Similarity; math.Abs(r.Distance-got) > 1e-9 {
			t.Errorf("result %d: distance %f does not match 1-similarity", i, r.Distance)
		}
	}
	if resp.Results[0].Index != 0 {
		t.Errorf("expected vector 0 closest, got %d", resp.Results[0].Index)
	}
	if resp.Results[0].Filename != "img_000.jpg" {
		t.Errorf("unexpected filename %q", resp.Results[0].Filename)
	}
}

func TestSearch_Idempotent(t *testing.T) {
	vectors := [][]float32{unit(1, 0, 0, 0), unit(0, 1, 0, 0)}
	emb := &fakeEmbedder{textVec: unit(1, 2, 3, 4)}
	eng := newTestEngine(t, vectors, emb)

	q := func() *models.SearchQuery { return &models.SearchQuery{Text: "query"} }
	first, err := eng.Search(context.Background(), q())
	if err != nil {
		t.Fatalf("first search: %v", err)
	}
	second, err := eng.Search(context.Background(), q())
	if err != nil {
		t.Fatalf("second search: %v", err)
	}
	for i := range first.Results {
		if first.Results[i].Index != second.Results[i].Index ||
			first.Results[i].Similarity != second.Results[i].Similarity {
			t.Errorf("result %d differs between identical searches", i)
		}
	}
}

func TestSearch_BlankTextRejectedBeforeEmbedding(t *testing.T) {
	emb := &fakeEmbedder{}
	eng := newTestEngine(t, [][]float32{unit(1, 0, 0, 0)}, emb)

	_, err := eng.Search(context.Background(), &models.SearchQuery{Text: "   "})
	if models.KindOf(err) != models.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if emb.calls != 0 {
		t.Errorf("embedder called %d times for invalid query", emb.calls)
	}
}

func TestSearch_NoVariant(t *testing.T) {
	eng := newTestEngine(t, [][]float32{unit(1, 0, 0, 0)}, &fakeEmbedder{})
	_, err := eng.Search(context.Background(), &models.SearchQuery{})
	if models.KindOf(err) != models.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSearch_TwoVariants(t *testing.T) {
	eng := newTestEngine(t, [][]float32{unit(1, 0, 0, 0)}, &fakeEmbedder{})
	q := &models.SearchQuery{Text: "cat", Embedding: unit(1, 0, 0, 0)}
	if _, err := eng.Search(context.Background(), q); models.KindOf(err) != models.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSearch_EmbedderFailure(t *testing.T) {
	emb := &fakeEmbedder{err: errors.New("model exploded")}
	eng := newTestEngine(t, [][]float32{unit(1, 0, 0, 0)}, emb)

	_, err := eng.Search(context.Background(), &models.SearchQuery{Text: "cat"})
	if models.KindOf(err) != models.KindEmbeddingFailed {
		t.Fatalf("expected embedding_failed, got %v", err)
	}
}

func TestSearch_EmbeddingVariant(t *testing.T) {
	target := unit(0, 1, 0, 0)
	vectors := [][]float32{unit(1, 0, 0, 0), target, unit(1, 1, 1, 1)}
	eng := newTestEngine(t, vectors, &fakeEmbedder{})

	q := &models.SearchQuery{Embedding: append([]float32(nil), target...), Limit: 1}
	resp, err := eng.Search(context.Background(), q)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].Index != 1 {
		t.Fatalf("expected vector 1 as sole result, got %+v", resp.Results)
	}
	if math.Abs(resp.Results[0].Similarity-1.0) > 1e-6 {
		t.Errorf("self-similarity %f, expected ~1.0", resp.Results[0].Similarity)
	}
}

func TestSearch_EmbeddingDimensionMismatch(t *testing.T) {
	eng := newTestEngine(t, [][]float32{unit(1, 0, 0, 0)}, &fakeEmbedder{})
	q := &models.SearchQuery{Embedding: []float32{1, 0}}
	if _, err := eng.Search(context.Background(), q); models.KindOf(err) != models.KindDimensionMismatch {
		t.Fatalf("expected dimension_mismatch, got err")
	}
}

func TestSearch_ZeroEmbedding(t *testing.T) {
	eng := newTestEngine(t, [][]float32{unit(1, 0, 0, 0)}, &fakeEmbedder{})
	q := &models.SearchQuery{Embedding: []float32{0, 0, 0, 0}}
	if _, err := eng.Search(context.Background(), q); models.KindOf(err) != models.KindDegenerateVector {
		t.Fatalf("expected degenerate_vector error")
	}
}

func TestSearch_NonFiniteEmbedding(t *testing.T) {
	eng := newTestEngine(t, [][]float32{unit(1, 0, 0, 0)}, &fakeEmbedder{})
	q := &models.SearchQuery{Embedding: []float32{float32(math.NaN()), 0, 0, 1}}
	if _, err := eng.Search(context.Background(), q); models.KindOf(err) != models.KindValidation {
		t.Fatalf("expected validation error for NaN embedding")
	}
}

func TestSearch_LimitClampedToIndexSize(t *testing.T) {
	vectors := [][]float32{unit(1, 0, 0, 0), unit(0, 1, 0, 0)}
	emb := &fakeEmbedder{textVec: unit(1, 1, 0, 0)}
	eng := newTestEngine(t, vectors, emb)

	resp, err := eng.Search(context.Background(), &models.SearchQuery{Text: "cat", Limit: 15})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Errorf("expected all 2 vectors, got %d results", len(resp.Results))
	}
}

func TestSearch_EmptyIndex(t *testing.T) {
	emb := &fakeEmbedder{textVec: unit(1, 0, 0, 0)}
	eng := newTestEngine(t, nil, emb)

	_, err := eng.Search(context.Background(), &models.SearchQuery{Text: "cat"})
	if models.KindOf(err) != models.KindEmptyIndex {
		t.Fatalf("expected empty_index, got %v", err)
	}
}

func TestSearch_Timeout(t *testing.T) {
	emb := &fakeEmbedder{textVec: unit(1, 0, 0, 0), delay: time.Second}
	sc := &config.SearchConfig{DefaultLimit: 5, MaxLimit: 20, TimeoutSeconds: 1}
	_, ec := testConfigs()
	eng := NewEngine(testSnapshot(t, [][]float32{unit(1, 0, 0, 0)}), emb, sc, ec, nil)

	// Shrink the timeout below the embedder delay via a short parent deadline
	// so the test stays fast.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := eng.Search(ctx, &models.SearchQuery{Text: "slow"})
	if models.KindOf(err) != models.KindTimeout {
		t.Fatalf("expected timeout error, got %v", err)
	}
}

func TestSearch_CanceledContextNotTimeout(t *testing.T) {
	emb := &fakeEmbedder{textVec: unit(1, 0, 0, 0), delay: time.Second}
	sc := &config.SearchConfig{DefaultLimit: 5, MaxLimit: 20, TimeoutSeconds: 30}
	_, ec := testConfigs()
	eng := NewEngine(testSnapshot(t, [][]float32{unit(1, 0, 0, 0)}), emb, sc, ec, nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := eng.Search(ctx, &models.SearchQuery{Text: "slow"})
	if err == nil {
		t.Fatal("expected an error for canceled request")
	}
	if kind := models.KindOf(err); kind == models.KindTimeout {
		t.Fatalf("client cancellation misreported as timeout: %v", err)
	} else if kind != models.KindInternal {
		t.Fatalf("expected internal kind for cancellation, got %q", kind)
	}
}

func TestSearch_ImageQuery(t *testing.T) {
	vectors := [][]float32{unit(1, 0, 0, 0), unit(0, 0, 1, 0)}
	emb := &fakeEmbedder{imageVec: unit(0, 0, 1, 0)}
	eng := newTestEngine(t, vectors, emb)

	payload := base64.StdEncoding.EncodeToString([]byte("raw image bytes"))
	resp, err := eng.Search(context.Background(), &models.SearchQuery{ImageData: payload, Limit: 1})
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if resp.QueryType != models.QueryTypeImage || resp.Results[0].Index != 1 {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestSearch_BadBase64(t *testing.T) {
	emb := &fakeEmbedder{}
	eng := newTestEngine(t, [][]float32{unit(1, 0, 0, 0)}, emb)

	_, err := eng.Search(context.Background(), &models.SearchQuery{ImageData: "!!not base64!!"})
	if models.KindOf(err) != models.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if emb.calls != 0 {
		t.Errorf("embedder called for undecodable payload")
	}
}

func TestDecodeBase64Image_DataURL(t *testing.T) {
	raw := []byte{0x01, 0x02, 0x03}
	encoded := "data:image/png;base64," + base64.StdEncoding.EncodeToString(raw)
	got, err := DecodeBase64Image(encoded)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(got) != 3 || got[0] != 0x01 {
		t.Errorf("unexpected decoded bytes: %v", got)
	}
}

func TestEmbedText(t *testing.T) {
	emb := &fakeEmbedder{textVec: unit(3, 4, 0, 0)}
	eng := newTestEngine(t, [][]float32{unit(1, 0, 0, 0)}, emb)

	resp, err := eng.EmbedText(context.Background(), "a cat")
	if err != nil {
		t.Fatalf("EmbedText failed: %v", err)
	}
	if len(resp.Embedding) != testDims {
		t.Errorf("expected %d dims, got %d", testDims, len(resp.Embedding))
	}
	if math.Abs(resp.EmbeddingNorm-1.0) > 1e-6 {
		t.Errorf("expected unit norm, got %f", resp.EmbeddingNorm)
	}

	if _, err := eng.EmbedText(context.Background(), ""); models.KindOf(err) != models.KindValidation {
		t.Errorf("expected validation error for empty text")
	}
}

func TestEmbedImage(t *testing.T) {
	emb := &fakeEmbedder{imageVec: unit(0, 1, 0, 0)}
	eng := newTestEngine(t, [][]float32{unit(1, 0, 0, 0)}, emb)

	payload := base64.StdEncoding.EncodeToString([]byte("bytes"))
	resp, err := eng.EmbedImage(context.Background(), payload)
	if err != nil {
		t.Fatalf("EmbedImage failed: %v", err)
	}
	if len(resp.Embedding) != testDims {
		t.Errorf("expected %d dims, got %d", testDims, len(resp.Embedding))
	}
}

func TestLookup(t *testing.T) {
	vectors := [][]float32{unit(1, 0, 0, 0), unit(0, 1, 0, 0)}
	eng := newTestEngine(t, vectors, &fakeEmbedder{})

	results, err := eng.Lookup(context.Background(), "img_001", 10)
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if len(results) != 1 || results[0].Index != 1 {
		t.Fatalf("expected item 1, got %+v", results)
	}
	if results[0].Filename != "img_001.jpg" {
		t.Errorf("unexpected filename %q", results[0].Filename)
	}

	if _, err := eng.Lookup(context.Background(), "  ", 10); models.KindOf(err) != models.KindValidation {
		t.Errorf("expected validation error for blank lookup")
	}
}

func TestIndexInfoAndModelInfo(t *testing.T) {
	vectors := [][]float32{unit(1, 0, 0, 0), unit(0, 1, 0, 0)}
	eng := newTestEngine(t, vectors, &fakeEmbedder{})

	info := eng.IndexInfo()
	if info.TotalVectors != 2 || info.VectorDimension != testDims || info.CatalogEntries != 2 {
		t.Errorf("unexpected index info: %+v", info)
	}
	if info.IndexType == "" {
		t.Error("expected non-empty index type")
	}

	mi := eng.ModelInfo()
	if mi.Provider != "fake" || mi.EmbeddingDimension != testDims {
		t.Errorf("unexpected model info: %+v", mi)
	}
}
