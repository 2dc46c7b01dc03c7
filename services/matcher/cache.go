package matcher

import (
	"container/list"
	"regexp"
	"sync"
)

// PatternCache is an in-memory LRU cache of compiled rule patterns.
// Patterns are validated at write time; caching the compiled form here
// avoids recompilation on every submission. Thread-safe.
type PatternCache struct {
	mu      sync.Mutex
	entries map[string]*cacheEntry // Key: pattern text
	lruList *list.List             // Doubly linked list for LRU tracking
	maxSize int
	hits    uint64
	misses  uint64
}

// cacheEntry holds one compiled pattern
type cacheEntry struct {
	pattern  string
	compiled *regexp.Regexp
	element  *list.Element
}

// NewPatternCache creates a new PatternCache with the given max size
func NewPatternCache(maxSize int) *PatternCache {
	if maxSize <= 0 {
		maxSize = 256
	}
	return &PatternCache{
		entries: make(map[string]*cacheEntry),
		lruList: list.New(),
		maxSize: maxSize,
	}
}

// Get returns the compiled form of pattern, compiling and caching it on
// first use. A pattern that does not compile returns the error from
// regexp.Compile; nothing is cached for it.
func (c *PatternCache) Get(pattern string) (*regexp.Regexp, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[pattern]; ok {
		c.lruList.MoveToFront(entry.element)
		c.hits++
		return entry.compiled, nil
	}

	c.misses++
	compiled, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}

	if c.lruList.Len() >= c.maxSize {
		c.evictLRU()
	}

	entry := &cacheEntry{pattern: pattern, compiled: compiled}
	entry.element = c.lruList.PushFront(pattern)
	c.entries[pattern] = entry

	return compiled, nil
}

// Len returns the number of cached patterns
func (c *PatternCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lruList.Len()
}

// Stats returns hit/miss counters
func (c *PatternCache) Stats() (hits, misses uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// evictLRU removes the least recently used entry. Caller holds the lock.
func (c *PatternCache) evictLRU() {
	back := c.lruList.Back()
	if back == nil {
		return
	}
	pattern := back.Value.(string)
	c.lruList.Remove(back)
	delete(c.entries, pattern)
}
