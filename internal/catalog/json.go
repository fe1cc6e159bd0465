package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// JSONStore persists the catalog as a JSON array, one entry per index
// position. Bare string entries are tolerated and treated as filenames.
type JSONStore struct {
	path string
}

// NewJSONStore creates a store reading and writing path.
func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

// Load reads and parses the metadata file.
func (s *JSONStore) Load(ctx context.Context) (*Catalog, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}
	return ParseJSON(data)
}

// ParseJSON parses a metadata JSON array into a catalog.
func ParseJSON(data []byte) (*Catalog, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse metadata: %w", err)
	}
	items := make([]Item, len(raw))
	for i, entry := range raw {
		var item Item
		if err := json.Unmarshal(entry, &item); err != nil {
			// Older metadata files store bare filename strings.
			var name string
			if serr := json.Unmarshal(entry, &name); serr != nil {
				return nil, fmt.Errorf("parse metadata entry %d: %w", i, err)
			}
			item = Item{Filename: name}
		}
		items[i] = item
	}
	return New(items), nil
}

// Save writes the catalog as a JSON array, creating parent directories.
func (s *JSONStore) Save(ctx context.Context, c *Catalog) error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create metadata dir: %w", err)
		}
	}
	data, err := json.MarshalIndent(c.Items(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}

// Close is a no-op for JSONStore.
func (s *JSONStore) Close() error {
	return nil
}
