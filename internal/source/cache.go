package source

import (
	"sync"
	"time"

	"github.com/windlab/runwatch/internal/domain/run"
)

const DefaultCacheTTL = 5 * time.Minute

type cacheEntry struct {
	runAt     time.Time
	fetchedAt time.Time
}

// RunCache is a TTL store of the last known latest run per model. It
// exists purely to keep sweep-frequency load off the provider APIs and
// is never consulted for availability confirmation.
type RunCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	clock   run.Clock
	entries map[string]cacheEntry
}

func NewRunCache(ttl time.Duration, clock run.Clock) *RunCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &RunCache{
		ttl:     ttl,
		clock:   clock,
		entries: make(map[string]cacheEntry),
	}
}

// Get returns the cached run timestamp for a model while the entry is
// still within the TTL.
func (c *RunCache) Get(model string) (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[model]
	if !ok {
		return time.Time{}, false
	}
	if c.clock.Now().Sub(e.fetchedAt) > c.ttl {
		return time.Time{}, false
	}
	return e.runAt, true
}

// Put stores or overwrites the latest run for a model.
func (c *RunCache) Put(model string, runAt time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[model] = cacheEntry{runAt: runAt, fetchedAt: c.clock.Now()}
}
