package cache

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/forecastgrid/forecast-guard/internal/models"
)

// DefaultOptionsTTL bounds how long a fetched option set stays usable.
const DefaultOptionsTTL = 300 * time.Second

type periodKey struct {
	year  int
	month int
}

func (k periodKey) String() string {
	return fmt.Sprintf("%04d-%02d", k.year, k.month)
}

type optionsEntry struct {
	options   models.FilterOptions
	createdAt time.Time
}

// OptionsCache is a time-bounded in-memory store of valid filter values keyed
// by reporting period. Entries are replaced wholesale, never mutated; expiry
// is checked lazily on read, there is no background sweeper.
type OptionsCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[periodKey]optionsEntry
	now     func() time.Time
}

// OptionsCacheStats is the introspection snapshot returned by Stats.
type OptionsCacheStats struct {
	EntryCount int      `json:"entryCount"`
	TTLSeconds float64  `json:"ttlSeconds"`
	Keys       []string `json:"keys"`
}

// NewOptionsCache creates a cache with the given TTL; non-positive TTLs fall
// back to DefaultOptionsTTL.
func NewOptionsCache(ttl time.Duration) *OptionsCache {
	if ttl <= 0 {
		ttl = DefaultOptionsTTL
	}
	return &OptionsCache{
		ttl:     ttl,
		entries: make(map[periodKey]optionsEntry),
		now:     time.Now,
	}
}

// Get returns the cached option set for the period if present and not
// expired. An expired entry is treated as a miss; it is evicted on the next
// Set or Invalidate for the key.
func (c *OptionsCache) Get(month, year int) (models.FilterOptions, bool) {
	key := periodKey{year: year, month: month}

	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok {
		return models.FilterOptions{}, false
	}
	if c.now().Sub(entry.createdAt) >= c.ttl {
		return models.FilterOptions{}, false
	}
	return entry.options, true
}

// Set stores or replaces the entry for the period with a fresh timestamp.
func (c *OptionsCache) Set(month, year int, options models.FilterOptions) {
	key := periodKey{year: year, month: month}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = optionsEntry{options: options, createdAt: c.now()}
}

// Invalidate removes a single period entry; absent keys are not an error.
func (c *OptionsCache) Invalidate(month, year int) {
	key := periodKey{year: year, month: month}

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// ClearAll empties the store. Called after any external event that may change
// which filter values are valid, e.g. a forecast data upload for any period.
func (c *OptionsCache) ClearAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[periodKey]optionsEntry)
}

// Stats reports entry count, TTL, and the cached period keys. Introspection
// only; expired-but-unevicted entries are excluded from the snapshot.
func (c *OptionsCache) Stats() OptionsCacheStats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := c.now()
	keys := make([]string, 0, len(c.entries))
	for key, entry := range c.entries {
		if now.Sub(entry.createdAt) >= c.ttl {
			continue
		}
		keys = append(keys, key.String())
	}
	sort.Strings(keys)

	return OptionsCacheStats{
		EntryCount: len(keys),
		TTLSeconds: c.ttl.Seconds(),
		Keys:       keys,
	}
}
