package query

import (
	"sync"
	"time"

	"github.com/fredbi/chartviz/internal/pkg/model"
)

type cacheKey struct {
	connection string
	query      string
	from       string
	to         string
}

type cacheEntry struct {
	records       model.Records
	executionTime float64
	at            time.Time
}

// cache keeps query results for a fixed time. A nil cache never hits.
type cache struct {
	mx      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[cacheKey]cacheEntry
}

func newCache(ttl time.Duration, now func() time.Time) *cache {
	return &cache{
		ttl:     ttl,
		now:     now,
		entries: make(map[cacheKey]cacheEntry),
	}
}

func (c *cache) get(key cacheKey) (cacheEntry, bool) {
	if c == nil {
		return cacheEntry{}, false
	}

	c.mx.Lock()
	defer c.mx.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return entry, false
	}

	if c.now().Sub(entry.at) >= c.ttl {
		delete(c.entries, key)

		return cacheEntry{}, false
	}

	return entry, true
}

func (c *cache) put(key cacheKey, records model.Records, executionTime float64) {
	if c == nil {
		return
	}

	c.mx.Lock()
	defer c.mx.Unlock()

	c.entries[key] = cacheEntry{
		records:       records,
		executionTime: executionTime,
		at:            c.now(),
	}
}
