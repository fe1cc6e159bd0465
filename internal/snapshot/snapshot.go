// Package snapshot loads the index artifacts and serves them as immutable
// snapshots behind an atomically swappable handle.
package snapshot

import (
	"sync/atomic"
	"time"

	"github.com/charpstar/visearch/internal/catalog"
	"github.com/charpstar/visearch/internal/vector"
)

// Snapshot is one immutable pairing of a vector index and its catalog.
// In-flight queries keep using the snapshot they started with; a rebuild
// swaps in a new one without synchronization.
type Snapshot struct {
	Index     vector.Index
	Catalog   *catalog.Catalog
	Filenames *catalog.FilenameIndex
	LoadedAt  time.Time
}

// Handle is an atomic pointer to the current snapshot.
type Handle struct {
	ptr atomic.Pointer[Snapshot]
}

// NewHandle creates a handle holding s.
func NewHandle(s *Snapshot) *Handle {
	h := &Handle{}
	h.ptr.Store(s)
	return h
}

// Current returns the current snapshot.
func (h *Handle) Current() *Snapshot {
	return h.ptr.Load()
}

// Swap installs s and returns the previous snapshot so the caller can close
// its resources once it is no longer referenced.
func (h *Handle) Swap(s *Snapshot) *Snapshot {
	return h.ptr.Swap(s)
}

// Close releases the snapshot's index and filename lookup resources.
func (s *Snapshot) Close() error {
	var err error
	if s.Filenames != nil {
		err = s.Filenames.Close()
	}
	if s.Index != nil {
		if cerr := s.Index.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
