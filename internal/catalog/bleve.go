package catalog

import (
	"context"
	"fmt"
	"strconv"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
)

// FilenameIndex is an in-memory Bleve index over catalog filenames, serving
// exact-word filename lookups alongside vector search.
type FilenameIndex struct {
	index bleve.Index
}

type filenameDoc struct {
	Filename string `json:"filename"`
}

// NewFilenameIndex builds an in-memory index from the catalog.
func NewFilenameIndex(c *Catalog) (*FilenameIndex, error) {
	im := bleve.NewIndexMapping()
	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) so "cat" matches
	// "cat.jpg" exactly.
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("filename", textFieldMapping)
	im.DefaultMapping = docMapping

	index, err := bleve.NewMemOnly(im)
	if err != nil {
		return nil, fmt.Errorf("failed to create filename index: %w", err)
	}
	batch := index.NewBatch()
	for _, item := range c.Items() {
		if err := batch.Index(strconv.Itoa(item.ID), filenameDoc{Filename: item.Filename}); err != nil {
			_ = index.Close()
			return nil, fmt.Errorf("failed to index filename %q: %w", item.Filename, err)
		}
	}
	if err := index.Batch(batch); err != nil {
		_ = index.Close()
		return nil, fmt.Errorf("failed to commit filename batch: %w", err)
	}
	return &FilenameIndex{index: index}, nil
}

// Lookup returns the catalog IDs of filenames matching query, best first.
func (f *FilenameIndex) Lookup(ctx context.Context, query string, limit int) ([]int, error) {
	if limit <= 0 {
		limit = 10
	}
	q := bleve.NewMatchQuery(query)
	q.SetField("filename")
	req := bleve.NewSearchRequest(q)
	req.Size = limit
	results, err := f.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("filename lookup failed: %w", err)
	}
	ids := make([]int, 0, len(results.Hits))
	for _, hit := range results.Hits {
		id, err := strconv.Atoi(hit.ID)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// Close releases the index.
func (f *FilenameIndex) Close() error {
	return f.index.Close()
}
