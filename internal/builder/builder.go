// Package builder constructs the index artifacts from a directory of images.
package builder

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/charpstar/visearch/internal/catalog"
	"github.com/charpstar/visearch/internal/embedding"
	"github.com/charpstar/visearch/internal/vector"
)

// imageExtensions are the file types the builder will embed.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// Stats summarizes a build run.
type Stats struct {
	Scanned  int
	Embedded int
	Skipped  int
	Elapsed  time.Duration
}

// Builder embeds every image under a directory and writes the vector
// artifact and catalog in matching order.
type Builder struct {
	embedder    embedding.Embedder
	store       catalog.Store
	newIndex    func() (vector.Index, error)
	vectorsPath string
	logger      *zap.Logger
}

// New creates a builder that writes vectors to vectorsPath and metadata
// through store. newIndex supplies the configured index backend so build
// and serve agree on the artifact format; nil defaults to flat.
func New(embedder embedding.Embedder, store catalog.Store, newIndex func() (vector.Index, error), vectorsPath string, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if newIndex == nil {
		dims := embedder.Dimensions()
		newIndex = func() (vector.Index, error) { return vector.NewFlatIndex(dims) }
	}
	return &Builder{
		embedder:    embedder,
		store:       store,
		newIndex:    newIndex,
		vectorsPath: vectorsPath,
		logger:      logger,
	}
}

// Build scans imageDir, embeds each image, and writes both artifacts.
// Images that fail to read or embed are skipped with a warning; the vector
// at position i always corresponds to catalog entry i.
func (b *Builder) Build(ctx context.Context, imageDir string) (*Stats, error) {
	start := time.Now()
	files, err := listImages(imageDir)
	if err != nil {
		return nil, err
	}
	b.logger.Info("building index",
		zap.String("dir", imageDir),
		zap.Int("images", len(files)))

	stats := &Stats{Scanned: len(files)}
	vectors := make([][]float32, 0, len(files))
	items := make([]catalog.Item, 0, len(files))
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			b.logger.Warn("skipping unreadable image", zap.String("path", path), zap.Error(err))
			stats.Skipped++
			continue
		}
		vec, err := b.embedder.EmbedImage(ctx, data)
		if err != nil {
			b.logger.Warn("skipping unembeddable image", zap.String("path", path), zap.Error(err))
			stats.Skipped++
			continue
		}
		vectors = append(vectors, vec)
		items = append(items, catalog.Item{
			Filename: filepath.Base(path),
			Filepath: path,
		})
	}
	stats.Embedded = len(vectors)

	idx, err := b.newIndex()
	if err != nil {
		return nil, err
	}
	defer idx.Close()
	if len(vectors) > 0 {
		if err := idx.Add(ctx, vectors); err != nil {
			return nil, err
		}
	}
	if err := idx.Save(b.vectorsPath); err != nil {
		return nil, err
	}
	if err := b.store.Save(ctx, catalog.New(items)); err != nil {
		return nil, err
	}

	stats.Elapsed = time.Since(start)
	b.logger.Info("index built",
		zap.Int("embedded", stats.Embedded),
		zap.Int("skipped", stats.Skipped),
		zap.Duration("elapsed", stats.Elapsed))
	return stats, nil
}

// listImages returns image files under dir in stable lexical order.
func listImages(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if imageExtensions[strings.ToLower(filepath.Ext(path))] {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
