package baseline

import (
	"context"
	"sync"

	"github.com/couchcryptid/nuisance-watch/internal/domain"
	"github.com/couchcryptid/nuisance-watch/internal/observability"
)

// CachedProvider wraps a BaselineProvider with a per-cluster-ID LRU
// cache, so repeated windows over a stable city only hit the history
// API for clusters it has not seen recently.
type CachedProvider struct {
	inner   domain.BaselineProvider
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedProvider creates a cache decorator around a provider.
func NewCachedProvider(inner domain.BaselineProvider, maxEntries int, metrics *observability.Metrics) *CachedProvider {
	return &CachedProvider{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

// FetchBaselines serves what it can from cache and fetches only the
// missing IDs. Zero and missing counts are not cached so a cluster
// whose history lands later can still be picked up.
func (c *CachedProvider) FetchBaselines(ctx context.Context, clusterIDs []string) (map[string]int, error) {
	result := make(map[string]int, len(clusterIDs))
	misses := make([]string, 0, len(clusterIDs))

	for _, id := range clusterIDs {
		if count, ok := c.cache.get(id); ok {
			c.metrics.BaselineCache.WithLabelValues("hit").Inc()
			result[id] = count
			continue
		}
		c.metrics.BaselineCache.WithLabelValues("miss").Inc()
		misses = append(misses, id)
	}

	if len(misses) == 0 {
		return result, nil
	}

	fetched, err := c.inner.FetchBaselines(ctx, misses)
	if err != nil {
		return nil, err
	}
	for id, count := range fetched {
		result[id] = count
		if count > 0 {
			c.cache.put(id, count)
		}
	}
	return result, nil
}

// lruCache is a simple thread-safe LRU cache for baseline counts.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value int
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return 0, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
