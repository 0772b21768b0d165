// Package cache implements the process-wide page-data cache. Screen data is
// cached under page-scoped namespaces with per-entry TTLs, a per-namespace
// entry bound with oldest-first eviction, and hit/miss/invalidation counters.
//
// Design goals:
//   - A caching fault must never be the reason a feature fails: no operation
//     panics, and any internal inconsistency degrades to a cache miss.
//   - The cache is an explicit service instance with injected configuration,
//     constructed once per process and passed by reference to consumers,
//     never hidden package-global state.
//   - Counters exist for observability only; correctness never depends on
//     them. They are mirrored to Prometheus with the page as the only label
//     (pages are a small fixed set, so cardinality stays bounded).
//
// Concurrency: entries are guarded by a single mutex. Concurrent loads for
// the same (page, key) are not de-duplicated; the last Set wins, which is
// acceptable because page data is idempotently re-fetchable.
package cache

import (
	"sync"
	"time"
)

// DefaultMaxEntriesPerPage bounds each page namespace unless overridden.
const DefaultMaxEntriesPerPage = 10

// DefaultTTL applies when neither the caller nor the page configures one.
const DefaultTTL = 5 * time.Minute

// Options configures a PageCache instance.
type Options struct {
	// MaxEntriesPerPage bounds each namespace. Values <= 0 default to
	// DefaultMaxEntriesPerPage.
	MaxEntriesPerPage int
	// DefaultTTL applies to Set calls without an explicit TTL on pages with
	// no page-specific default. Values <= 0 default to DefaultTTL.
	DefaultTTL time.Duration
	// PageTTLs overrides the default TTL per page namespace.
	PageTTLs map[string]time.Duration
}

// entry is one cached value. Entries are replaced wholesale on Set, never
// mutated in place.
type entry struct {
	data      any
	timestamp time.Time
	ttl       time.Duration
}

func (e entry) expired(now time.Time) bool {
	return now.Sub(e.timestamp) > e.ttl
}

// Stats is a point-in-time snapshot of the cache counters.
type Stats struct {
	Hits          uint64 `json:"hits"`
	Misses        uint64 `json:"misses"`
	Invalidations uint64 `json:"invalidations"`
	Evictions     uint64 `json:"evictions"`
	Entries       int    `json:"entries"`
}

// PageCache is a TTL-keyed in-memory cache namespaced by page identifier.
// It is safe for concurrent use.
type PageCache struct {
	mu    sync.Mutex
	pages map[string]map[string]entry
	opts  Options
	stats Stats

	// now is a seam for tests; defaults to time.Now.
	now func() time.Time
}

// New constructs a PageCache with the given options, applying defaults for
// zero values.
func New(opts Options) *PageCache {
	if opts.MaxEntriesPerPage <= 0 {
		opts.MaxEntriesPerPage = DefaultMaxEntriesPerPage
	}
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = DefaultTTL
	}
	return &PageCache{
		pages: make(map[string]map[string]entry),
		opts:  opts,
		now:   time.Now,
	}
}

// Get returns the cached value for (page, key). The second return value is
// false when no entry exists or the entry's TTL has elapsed; an expired entry
// is purged as a side effect, so the next Get is a plain miss.
func (c *PageCache) Get(page, key string) (data any, ok bool) {
	defer func() {
		// A cache fault degrades to a miss, never a crash.
		if r := recover(); r != nil {
			data, ok = nil, false
		}
	}()

	c.mu.Lock()
	defer c.mu.Unlock()

	ns, found := c.pages[page]
	if !found {
		c.miss(page)
		return nil, false
	}
	e, found := ns[key]
	if !found {
		c.miss(page)
		return nil, false
	}
	if e.expired(c.now()) {
		delete(ns, key)
		if len(ns) == 0 {
			delete(c.pages, page)
		}
		c.miss(page)
		return nil, false
	}
	c.stats.Hits++
	cacheHits.WithLabelValues(page).Inc()
	return e.data, true
}

// Set stores data under (page, key). A ttl <= 0 resolves to the page-specific
// default, then the global default. When the namespace is already at its
// bound and key is not yet present, the entry with the oldest timestamp is
// evicted first.
func (c *PageCache) Set(page, key string, data any, ttl time.Duration) {
	defer func() { _ = recover() }()

	if ttl <= 0 {
		ttl = c.resolveTTL(page)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	ns, found := c.pages[page]
	if !found {
		ns = make(map[string]entry)
		c.pages[page] = ns
	}
	if _, replacing := ns[key]; !replacing && len(ns) >= c.opts.MaxEntriesPerPage {
		c.evictOldest(page, ns)
	}
	ns[key] = entry{data: data, timestamp: c.now(), ttl: ttl}
	cacheEntries.WithLabelValues(page).Set(float64(len(ns)))
}

// Invalidate removes one key from a page namespace, or, when key is empty,
// the entire namespace.
func (c *PageCache) Invalidate(page, key string) {
	defer func() { _ = recover() }()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidateLocked(page, key)
}

// InvalidateMany invalidates several page namespaces at once. Used when a
// single user action (e.g., completing a workout) affects multiple pages.
func (c *PageCache) InvalidateMany(pages []string) {
	defer func() { _ = recover() }()

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range pages {
		c.invalidateLocked(p, "")
	}
}

// Clear drops all namespaces and resets counters. Reserved for logout and
// account switches.
func (c *PageCache) Clear() {
	defer func() { _ = recover() }()

	c.mu.Lock()
	defer c.mu.Unlock()
	for page := range c.pages {
		cacheEntries.WithLabelValues(page).Set(0)
	}
	c.pages = make(map[string]map[string]entry)
	c.stats = Stats{}
}

// Stats returns a snapshot of the counters and the current entry count.
func (c *PageCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	for _, ns := range c.pages {
		s.Entries += len(ns)
	}
	return s
}

// peek returns the raw entry for (page, key) without purging. The third
// return reports whether the entry is still within its TTL. It exists for the
// serve-stale-on-error path in Resource, which must be able to recover the
// expired value after its loader fails; Get would have purged it on the miss.
// Hit and miss counters advance exactly as they would for Get, so read-through
// reads meter the same as direct ones.
func (c *PageCache) peek(page, key string) (e entry, found, fresh bool) {
	defer func() {
		if r := recover(); r != nil {
			e, found, fresh = entry{}, false, false
		}
	}()

	c.mu.Lock()
	defer c.mu.Unlock()

	ns, ok := c.pages[page]
	if !ok {
		c.miss(page)
		return entry{}, false, false
	}
	e, found = ns[key]
	if !found {
		c.miss(page)
		return entry{}, false, false
	}
	if e.expired(c.now()) {
		c.miss(page)
		return e, true, false
	}
	c.stats.Hits++
	cacheHits.WithLabelValues(page).Inc()
	return e, true, true
}

// resolveTTL applies the TTL precedence: page-specific default, then global.
func (c *PageCache) resolveTTL(page string) time.Duration {
	if ttl, ok := c.opts.PageTTLs[page]; ok && ttl > 0 {
		return ttl
	}
	return c.opts.DefaultTTL
}

// miss records a cache miss. Callers must hold c.mu.
func (c *PageCache) miss(page string) {
	c.stats.Misses++
	cacheMisses.WithLabelValues(page).Inc()
}

// evictOldest removes the entry with the smallest timestamp from ns.
// Callers must hold c.mu.
func (c *PageCache) evictOldest(page string, ns map[string]entry) {
	var (
		oldestKey string
		oldestAt  time.Time
		first     = true
	)
	for k, e := range ns {
		if first || e.timestamp.Before(oldestAt) {
			oldestKey, oldestAt, first = k, e.timestamp, false
		}
	}
	if !first {
		delete(ns, oldestKey)
		c.stats.Evictions++
		cacheEvictions.WithLabelValues(page).Inc()
	}
}

// invalidateLocked implements Invalidate. Callers must hold c.mu.
func (c *PageCache) invalidateLocked(page, key string) {
	ns, found := c.pages[page]
	if !found {
		return
	}
	if key == "" {
		c.stats.Invalidations += uint64(len(ns))
		cacheInvalidations.WithLabelValues(page).Add(float64(len(ns)))
		delete(c.pages, page)
		cacheEntries.WithLabelValues(page).Set(0)
		return
	}
	if _, found := ns[key]; found {
		delete(ns, key)
		c.stats.Invalidations++
		cacheInvalidations.WithLabelValues(page).Inc()
		if len(ns) == 0 {
			delete(c.pages, page)
		}
		cacheEntries.WithLabelValues(page).Set(float64(len(ns)))
	}
}
