// Package metacache implements a TTL-bounded cache of per-format
// metagame snapshots with a 24h fresh band and a 7d stale-but-usable
// band. Eviction is time-based rather than size-based since meta
// snapshots are keyed by the small, fixed set of supported formats.
package metacache

import (
	"sync"
	"time"

	"github.com/ProfessorFess/Stack-Sage/internal/domain"
)

// DefaultFreshTTL and DefaultStaleTTL are the freshness bands: fresh
// for 24h, usable-but-stale to 7d.
const (
	DefaultFreshTTL = 24 * time.Hour
	DefaultStaleTTL = 7 * 24 * time.Hour
)

type entry struct {
	meta      domain.Meta
	fetchedAt time.Time
}

// Cache is the Meta Cache: format name -> metagame snapshot, with
// time-based freshness rather than a size bound.
type Cache struct {
	mu       sync.Mutex
	entries  map[string]entry
	freshTTL time.Duration
	staleTTL time.Duration
	now      func() time.Time
}

// New constructs a Cache with the given fresh/stale TTLs.
func New(freshTTL, staleTTL time.Duration) *Cache {
	if freshTTL <= 0 {
		freshTTL = DefaultFreshTTL
	}
	if staleTTL <= 0 {
		staleTTL = DefaultStaleTTL
	}
	return &Cache{
		entries:  make(map[string]entry),
		freshTTL: freshTTL,
		staleTTL: staleTTL,
		now:      time.Now,
	}
}

// Get returns the cached snapshot for format. Within freshTTL, Meta.Stale
// is false. Between freshTTL and staleTTL, Meta.Stale is true (callers may
// still use it, but should prefer a refresh). Past staleTTL, the entry is
// evicted and Get reports a miss.
func (c *Cache) Get(format string) (domain.Meta, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[format]
	if !ok {
		return domain.Meta{}, false
	}
	age := c.now().Sub(e.fetchedAt)
	if age > c.staleTTL {
		delete(c.entries, format)
		return domain.Meta{}, false
	}
	m := e.meta
	m.Stale = age > c.freshTTL
	return m, true
}

// Put stores a freshly fetched snapshot for format, stamped with the
// current time.
func (c *Cache) Put(format string, meta domain.Meta) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[format] = entry{meta: meta, fetchedAt: c.now()}
}

// Len reports how many formats currently have an entry (fresh or stale).
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
