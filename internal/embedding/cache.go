package embedding

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// Cache stores embeddings keyed by content hash.
type Cache interface {
	Get(ctx context.Context, key string) ([]float32, bool)
	Set(ctx context.Context, key string, value []float32)
}

// MemoryCache is an in-process LRU cache for embeddings.
type MemoryCache struct {
	capacity int
	cache    map[string]*list.Element
	lru      *list.List
	mu       sync.Mutex
}

type cacheEntry struct {
	key   string
	value []float32
}

// NewMemoryCache creates a cache with the given capacity.
func NewMemoryCache(capacity int) *MemoryCache {
	if capacity <= 0 {
		capacity = 10000
	}
	return &MemoryCache{
		capacity: capacity,
		cache:    make(map[string]*list.Element),
		lru:      list.New(),
	}
}

// Get returns the cached embedding for key if present.
func (c *MemoryCache) Get(_ context.Context, key string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.cache[key]; ok {
		c.lru.MoveToFront(elem)
		return elem.Value.(*cacheEntry).value, true
	}
	return nil, false
}

// Set stores the embedding for key, evicting the oldest entry at capacity.
func (c *MemoryCache) Set(_ context.Context, key string, value []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.cache[key]; ok {
		c.lru.MoveToFront(elem)
		elem.Value.(*cacheEntry).value = value
		return
	}

	entry := &cacheEntry{key: key, value: value}
	elem := c.lru.PushFront(entry)
	c.cache[key] = elem

	if c.lru.Len() > c.capacity {
		oldest := c.lru.Back()
		if oldest != nil {
			c.lru.Remove(oldest)
			delete(c.cache, oldest.Value.(*cacheEntry).key)
		}
	}
}

// CachedEmbedder wraps an Embedder with a Cache keyed by content hash.
type CachedEmbedder struct {
	inner Embedder
	cache Cache
}

// NewCachedEmbedder wraps inner with cache.
func NewCachedEmbedder(inner Embedder, cache Cache) *CachedEmbedder {
	return &CachedEmbedder{inner: inner, cache: cache}
}

// EmbedText returns the cached embedding for text, computing it on a miss.
func (e *CachedEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	key := "t:" + contentKey([]byte(text))
	if cached, ok := e.cache.Get(ctx, key); ok {
		return cached, nil
	}
	emb, err := e.inner.EmbedText(ctx, text)
	if err != nil {
		return nil, err
	}
	e.cache.Set(ctx, key, emb)
	return emb, nil
}

// EmbedImage returns the cached embedding for the image bytes, computing it
// on a miss.
func (e *CachedEmbedder) EmbedImage(ctx context.Context, data []byte) ([]float32, error) {
	key := "i:" + contentKey(data)
	if cached, ok := e.cache.Get(ctx, key); ok {
		return cached, nil
	}
	emb, err := e.inner.EmbedImage(ctx, data)
	if err != nil {
		return nil, err
	}
	e.cache.Set(ctx, key, emb)
	return emb, nil
}

// Dimensions returns the wrapped embedder's dimension.
func (e *CachedEmbedder) Dimensions() int {
	return e.inner.Dimensions()
}

// Name returns the wrapped embedder's provider identifier.
func (e *CachedEmbedder) Name() string {
	return e.inner.Name()
}

// Close closes the wrapped embedder.
func (e *CachedEmbedder) Close() error {
	return e.inner.Close()
}

func contentKey(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
