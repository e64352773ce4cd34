package host

import (
	"sync"
	"time"

	"filedrop/internal/upload"
)

// DefaultCacheTTL is how long a directory's computed metadata stays valid.
const DefaultCacheTTL = 30 * time.Second

type cacheEntry struct {
	entry    upload.FileEntry
	modTime  time.Time
	storedAt time.Time
}

// MetadataCache remembers directory metadata so repeated drops of the same
// tree do not walk it again. An entry is stale once its TTL passes or the
// directory's modification time changes.
type MetadataCache struct {
	entries map[string]cacheEntry
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	done    chan struct{}
	once    sync.Once
}

// NewMetadataCache starts a cache whose background sweep runs every ttl.
func NewMetadataCache(ttl time.Duration) *MetadataCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	c := &MetadataCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
		done:    make(chan struct{}),
	}
	go c.cleanupLoop()
	return c
}

// Get returns the cached entry for path if it is fresh and was computed for
// the given modification time.
func (c *MetadataCache) Get(path string, modTime time.Time) (upload.FileEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ce, ok := c.entries[path]
	if !ok || !ce.modTime.Equal(modTime) || c.now().Sub(ce.storedAt) > c.ttl {
		return upload.FileEntry{}, false
	}
	return ce.entry, true
}

// Set stores entry for path.
func (c *MetadataCache) Set(path string, modTime time.Time, entry upload.FileEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[path] = cacheEntry{entry: entry, modTime: modTime, storedAt: c.now()}
}

// Invalidate drops path from the cache.
func (c *MetadataCache) Invalidate(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, path)
}

// Size returns the number of cached entries, including stale ones not yet swept.
func (c *MetadataCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close stops the sweep. Safe to call more than once.
func (c *MetadataCache) Close() {
	c.once.Do(func() { close(c.done) })
}

func (c *MetadataCache) cleanupLoop() {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.sweep()
		case <-c.done:
			return
		}
	}
}

func (c *MetadataCache) sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for path, ce := range c.entries {
		if now.Sub(ce.storedAt) > c.ttl {
			delete(c.entries, path)
		}
	}
}
