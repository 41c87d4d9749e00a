package cache

import (
    "container/list"
    "sync"
    "time"

    "github.com/rs/zerolog/log"
)

// DefaultTTL is how long a stored value stays visible.
const DefaultTTL = 5 * time.Minute

// entry stores one value with the time it was written.
type entry[V any] struct {
    key      string
    value    V
    storedAt time.Time
}

// Cache is a key -> value store with per-entry expiry. Expired entries are
// treated as absent and removed on the next Get. With MaxItems > 0 the least
// recently used entry is evicted once the bound is exceeded; with MaxItems == 0
// the store grows without bound for the life of the process.
type Cache[V any] struct {
    TTL      time.Duration
    MaxItems int
    // Now is the clock; nil means time.Now.
    Now func() time.Time

    mu     sync.Mutex
    items  map[string]*list.Element
    order  *list.List // front = most recently used
    hits   int64
    misses int64
}

// New returns a cache with the given TTL (DefaultTTL when <= 0) and bound.
func New[V any](ttl time.Duration, maxItems int) *Cache[V] {
    if ttl <= 0 { ttl = DefaultTTL }
    return &Cache[V]{TTL: ttl, MaxItems: maxItems}
}

func (c *Cache[V]) now() time.Time {
    if c.Now != nil { return c.Now() }
    return time.Now()
}

func (c *Cache[V]) ttl() time.Duration {
    if c.TTL <= 0 { return DefaultTTL }
    return c.TTL
}

func (c *Cache[V]) init() {
    if c.items == nil {
        c.items = make(map[string]*list.Element)
        c.order = list.New()
    }
}

// Set stores value under key, replacing any previous entry wholesale.
func (c *Cache[V]) Set(key string, value V) {
    c.mu.Lock()
    defer c.mu.Unlock()
    c.init()

    if el, ok := c.items[key]; ok {
        c.order.Remove(el)
    }
    c.items[key] = c.order.PushFront(&entry[V]{key: key, value: value, storedAt: c.now()})

    for c.MaxItems > 0 && c.order.Len() > c.MaxItems {
        oldest := c.order.Back()
        e := oldest.Value.(*entry[V])
        c.order.Remove(oldest)
        delete(c.items, e.key)
        log.Debug().Str("key", e.key).Int("max_items", c.MaxItems).Msg("cache evicted least recently used entry")
    }
}

// Get returns the value for key while now - storedAt <= TTL. A stale entry is
// evicted and reported as absent.
func (c *Cache[V]) Get(key string) (V, bool) {
    var zero V
    c.mu.Lock()
    defer c.mu.Unlock()
    c.init()

    el, ok := c.items[key]
    if !ok {
        c.misses++
        return zero, false
    }
    e := el.Value.(*entry[V])
    if c.now().Sub(e.storedAt) > c.ttl() {
        c.order.Remove(el)
        delete(c.items, key)
        c.misses++
        return zero, false
    }
    c.order.MoveToFront(el)
    c.hits++
    return e.value, true
}

// Clear removes all entries and resets the counters.
func (c *Cache[V]) Clear() {
    c.mu.Lock()
    defer c.mu.Unlock()
    c.items = make(map[string]*list.Element)
    c.order = list.New()
    c.hits, c.misses = 0, 0
}

// Len counts stored entries, including stale ones not yet evicted.
func (c *Cache[V]) Len() int {
    c.mu.Lock()
    defer c.mu.Unlock()
    if c.order == nil { return 0 }
    return c.order.Len()
}

// Stats holds cache statistics.
type Stats struct {
    Size    int     `json:"size"`
    Hits    int64   `json:"hits"`
    Misses  int64   `json:"misses"`
    HitRate float64 `json:"hit_rate"` // percentage
}

func (c *Cache[V]) Stats() Stats {
    c.mu.Lock()
    defer c.mu.Unlock()
    s := Stats{Hits: c.hits, Misses: c.misses}
    if c.order != nil { s.Size = c.order.Len() }
    if total := c.hits + c.misses; total > 0 {
        s.HitRate = float64(c.hits) / float64(total) * 100
    }
    return s
}
