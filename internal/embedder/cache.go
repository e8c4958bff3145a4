package embedder

import (
	"container/list"
	"context"
	"sync"
)

// lruCache is a thread-safe LRU cache for embeddings.
type lruCache struct {
	capacity int
	items    map[string]*list.Element
	order    *list.List
	mu       sync.Mutex
}

type cacheEntry struct {
	key       string
	embedding []float32
}

func newLRUCache(capacity int) *lruCache {
	return &lruCache{
		capacity: capacity,
		items:    make(map[string]*list.Element),
		order:    list.New(),
	}
}

// Get retrieves an embedding and marks it most recently used. Returns nil if not found.
func (c *lruCache) Get(key string) []float32 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.order.MoveToFront(elem)
		return elem.Value.(*cacheEntry).embedding
	}
	return nil
}

// Put adds or updates an entry, evicting the least recently used entry at capacity.
func (c *lruCache) Put(key string, embedding []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.order.MoveToFront(elem)
		elem.Value.(*cacheEntry).embedding = embedding
		return
	}

	if c.order.Len() >= c.capacity {
		if oldest := c.order.Back(); oldest != nil {
			c.order.Remove(oldest)
			delete(c.items, oldest.Value.(*cacheEntry).key)
		}
	}

	c.items[key] = c.order.PushFront(&cacheEntry{key: key, embedding: embedding})
}

// Size returns the current number of entries in the cache.
func (c *lruCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// CacheObserver receives one call per looked-up text.
type CacheObserver interface {
	ObserveCache(layer string, hit bool)
}

// CachedEmbedder wraps an Embedder with an LRU cache keyed by input text.
type CachedEmbedder struct {
	embedder Embedder
	cache    *lruCache
	observer CacheObserver
	metrics  CacheMetrics
	mu       sync.RWMutex
}

// CacheMetrics provides statistics about cache performance.
type CacheMetrics struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Size   int   `json:"size"`
}

// Compile-time check that CachedEmbedder implements Embedder
var _ Embedder = (*CachedEmbedder)(nil)

// NewCachedEmbedder creates a new CachedEmbedder wrapping the provided embedder
// with a cache of the specified capacity. observer may be nil.
func NewCachedEmbedder(embedder Embedder, capacity int, observer CacheObserver) *CachedEmbedder {
	return &CachedEmbedder{
		embedder: embedder,
		cache:    newLRUCache(capacity),
		observer: observer,
	}
}

// Embed generates embeddings for multiple texts, using the cache where available.
func (c *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	results := make([][]float32, len(texts))
	var uncachedTexts []string
	var uncachedIndices []int

	for i, text := range texts {
		embedding := c.cache.Get(text)
		c.record(embedding != nil)
		if embedding != nil {
			results[i] = embedding
			continue
		}
		uncachedTexts = append(uncachedTexts, text)
		uncachedIndices = append(uncachedIndices, i)
	}

	if len(uncachedTexts) == 0 {
		return results, nil
	}

	embeddings, err := c.embedder.Embed(ctx, uncachedTexts)
	if err != nil {
		return nil, err
	}

	for i, embedding := range embeddings {
		if i >= len(uncachedIndices) {
			break
		}
		results[uncachedIndices[i]] = embedding
		if len(embedding) > 0 {
			c.cache.Put(uncachedTexts[i], embedding)
		}
	}

	return results, nil
}

func (c *CachedEmbedder) record(hit bool) {
	c.mu.Lock()
	if hit {
		c.metrics.Hits++
	} else {
		c.metrics.Misses++
	}
	c.mu.Unlock()
	if c.observer != nil {
		c.observer.ObserveCache("memory", hit)
	}
}

// ModelName delegates to the underlying embedder.
func (c *CachedEmbedder) ModelName() string {
	return c.embedder.ModelName()
}

// Dimensions delegates to the underlying embedder.
func (c *CachedEmbedder) Dimensions() int {
	return c.embedder.Dimensions()
}

// Metrics returns cache hit/miss statistics.
func (c *CachedEmbedder) Metrics() CacheMetrics {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return CacheMetrics{
		Hits:   c.metrics.Hits,
		Misses: c.metrics.Misses,
		Size:   c.cache.Size(),
	}
}
