package engine

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/pkg/utils"
)

const (
	defaultCacheSize = 1000
	defaultCacheTTL  = 5 * time.Minute
)

// CacheKey returns the cache key for a query: the SHA-256 digest of its
// normalized text. The digest is stable across processes and restarts,
// unlike runtime hash functions.
func CacheKey(query string) string {
	sum := sha256.Sum256([]byte(utils.NormalizeQuery(query)))
	return hex.EncodeToString(sum[:])
}

// QueryCache holds assembled responses with TTL expiry and LRU capacity
// eviction. Expired entries are dropped lazily on access.
type QueryCache struct {
	ttl     time.Duration
	maxSize int
	cache   map[string]*list.Element
	lru     *list.List
	mu      sync.Mutex
	now     func() time.Time
}

type cacheEntry struct {
	key       string
	response  *models.QueryResponse
	expiresAt time.Time
}

// NewQueryCache creates a response cache. Non-positive size or TTL select
// the defaults (1000 entries, 5 minutes).
func NewQueryCache(maxSize int, ttl time.Duration) *QueryCache {
	if maxSize <= 0 {
		maxSize = defaultCacheSize
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &QueryCache{
		ttl:     ttl,
		maxSize: maxSize,
		cache:   make(map[string]*list.Element),
		lru:     list.New(),
		now:     time.Now,
	}
}

// Get returns a copy of the cached response for key, if present and fresh.
func (c *QueryCache) Get(key string) (*models.QueryResponse, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.cache[key]
	if !ok {
		return nil, false
	}
	entry := elem.Value.(*cacheEntry)
	if c.now().After(entry.expiresAt) {
		c.lru.Remove(elem)
		delete(c.cache, key)
		return nil, false
	}
	c.lru.MoveToFront(elem)
	return entry.response.Clone(), true
}

// Set stores a copy of the response under key, evicting the least recently
// used entry when over capacity.
func (c *QueryCache) Set(key string, resp *models.QueryResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()

	expiresAt := c.now().Add(c.ttl)
	if elem, ok := c.cache[key]; ok {
		c.lru.MoveToFront(elem)
		entry := elem.Value.(*cacheEntry)
		entry.response = resp.Clone()
		entry.expiresAt = expiresAt
		return
	}

	elem := c.lru.PushFront(&cacheEntry{
		key:       key,
		response:  resp.Clone(),
		expiresAt: expiresAt,
	})
	c.cache[key] = elem

	if c.lru.Len() > c.maxSize {
		if oldest := c.lru.Back(); oldest != nil {
			c.lru.Remove(oldest)
			delete(c.cache, oldest.Value.(*cacheEntry).key)
		}
	}
}

// Len returns the number of entries, counting expired ones not yet swept.
func (c *QueryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}
