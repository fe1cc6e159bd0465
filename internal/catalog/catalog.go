// Package catalog holds the position-aligned metadata for indexed images.
package catalog

import "context"

// Item is the metadata for one indexed image. ID is the item's position in
// the vector index; the two artifacts share iteration order.
type Item struct {
	ID       int    `json:"-"`
	Filename string `json:"filename"`
	Filepath string `json:"filepath"`
}

// Catalog is an immutable, position-ordered list of items.
type Catalog struct {
	items []Item
}

// New builds a catalog from items in order, assigning positional IDs.
func New(items []Item) *Catalog {
	out := make([]Item, len(items))
	copy(out, items)
	for i := range out {
		out[i].ID = i
	}
	return &Catalog{items: out}
}

// Get returns the item at id.
func (c *Catalog) Get(id int) (Item, bool) {
	if id < 0 || id >= len(c.items) {
		return Item{}, false
	}
	return c.items[id], true
}

// Len returns the number of items.
func (c *Catalog) Len() int {
	return len(c.items)
}

// Items returns the items in position order.
func (c *Catalog) Items() []Item {
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

// Store persists a catalog. Implementations must preserve position order.
type Store interface {
	Load(ctx context.Context) (*Catalog, error)
	Save(ctx context.Context, c *Catalog) error
	Close() error
}
