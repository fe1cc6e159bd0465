package snapshot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/charpstar/visearch/internal/catalog"
	"github.com/charpstar/visearch/internal/models"
	"github.com/charpstar/visearch/internal/vector"
)

// Loader builds snapshots from the two on-disk artifacts: a vector array
// file and a position-aligned catalog.
type Loader struct {
	// NewIndex creates a fresh index per load so the previous snapshot stays
	// untouched while a reload is in progress.
	NewIndex    func() (vector.Index, error)
	Store       catalog.Store
	VectorsPath string
	Logger      *zap.Logger
}

// Load reads both artifacts and verifies their position alignment. A length
// mismatch means the artifacts were written inconsistently and is reported
// as index corruption.
func (l *Loader) Load(ctx context.Context) (*Snapshot, error) {
	idx, err := l.NewIndex()
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}
	if err := idx.Load(l.VectorsPath); err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("load vectors: %w", err)
	}
	cat, err := l.Store.Load(ctx)
	if err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	if idx.Size() != cat.Len() {
		_ = idx.Close()
		return nil, models.NewError(models.KindIndexCorrupt,
			"artifact mismatch: %d vectors but %d catalog entries", idx.Size(), cat.Len())
	}
	filenames, err := catalog.NewFilenameIndex(cat)
	if err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("build filename index: %w", err)
	}
	if l.Logger != nil {
		l.Logger.Info("snapshot loaded",
			zap.Int("vectors", idx.Size()),
			zap.String("index_type", idx.Type()),
		)
	}
	return &Snapshot{
		Index:     idx,
		Catalog:   cat,
		Filenames: filenames,
		LoadedAt:  time.Now(),
	}, nil
}

// FetchArtifacts downloads the vector and metadata artifacts from baseURL
// into cacheDir and returns their local paths. Used when the artifacts are
// hosted on a CDN rather than baked into the deployment.
func FetchArtifacts(ctx context.Context, baseURL, cacheDir string, timeout time.Duration) (vectorsPath, metadataPath string, err error) {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return "", "", fmt.Errorf("create cache dir: %w", err)
	}
	client := &http.Client{Timeout: timeout}

	vectorsPath = filepath.Join(cacheDir, "index.bin")
	if err := download(ctx, client, baseURL+"/index.bin", vectorsPath); err != nil {
		return "", "", fmt.Errorf("fetch vector artifact: %w", err)
	}
	metadataPath = filepath.Join(cacheDir, "metadata.json")
	if err := download(ctx, client, baseURL+"/metadata.json", metadataPath); err != nil {
		return "", "", fmt.Errorf("fetch metadata artifact: %w", err)
	}
	return vectorsPath, metadataPath, nil
}

func download(ctx context.Context, client *http.Client, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}

	tmp := dest + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dest)
}
