package currency

import (
	"sync"
	"time"
)

// cacheTTL keeps a fetched day table for 24 hours. Rates are published once
// per day, so a longer lifetime only risks serving yesterday's numbers.
const cacheTTL = 24 * time.Hour

type cacheEntry struct {
	table   *Table
	expires time.Time
}

// tableCache stores fetched rate tables keyed by (date, source). Writes are
// rare (once per date/source per day) and a duplicate fetch-and-set race is
// harmless, so a plain RWMutex map is enough.
type tableCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	now     func() time.Time
}

func newTableCache() *tableCache {
	return &tableCache{
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

func cacheKey(date time.Time, source Source) string {
	return date.Format("2006-01-02") + "/" + string(source)
}

func (c *tableCache) get(date time.Time, source Source) *Table {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[cacheKey(date, source)]
	if !ok || c.now().After(entry.expires) {
		return nil
	}
	return entry.table
}

func (c *tableCache) set(date time.Time, source Source, table *Table) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[cacheKey(date, source)] = cacheEntry{
		table:   table,
		expires: c.now().Add(cacheTTL),
	}
}
