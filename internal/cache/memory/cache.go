// Package memory implements the result cache as an in-process map.
// Staleness is the only eviction signal; live entries are never dropped.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/sitescope/sitescope/internal/analysis"
)

const (
	defaultTTL              = 30 * time.Minute
	defaultCleanupThreshold = 100
)

// Config tunes the cache. Zero fields fall back to the defaults.
type Config struct {
	TTL              time.Duration
	CleanupThreshold int
}

type entry struct {
	result    analysis.Result
	createdAt time.Time
}

// Cache is a TTL-keyed result store guarded by a RWMutex.
type Cache struct {
	mu               sync.RWMutex
	entries          map[string]entry
	ttl              time.Duration
	cleanupThreshold int
	clock            analysis.Clock
}

// New builds a Cache.
func New(cfg Config, clock analysis.Clock) *Cache {
	if cfg.TTL <= 0 {
		cfg.TTL = defaultTTL
	}
	if cfg.CleanupThreshold <= 0 {
		cfg.CleanupThreshold = defaultCleanupThreshold
	}
	return &Cache{
		entries:          make(map[string]entry),
		ttl:              cfg.TTL,
		cleanupThreshold: cfg.CleanupThreshold,
		clock:            clock,
	}
}

// Get returns the cached result for a domain. An expired entry is
// treated as absent and evicted on the way out.
func (c *Cache) Get(_ context.Context, domain string) (analysis.Result, bool, error) {
	c.mu.RLock()
	e, ok := c.entries[domain]
	c.mu.RUnlock()
	if !ok {
		return analysis.Result{}, false, nil
	}
	if !c.expired(e, c.clock.Now()) {
		return e.result, true, nil
	}

	c.mu.Lock()
	// A fresh Set may have replaced the entry between the locks.
	if cur, ok := c.entries[domain]; ok && cur.createdAt.Equal(e.createdAt) {
		delete(c.entries, domain)
	}
	c.mu.Unlock()
	return analysis.Result{}, false, nil
}

// Set stores a result under the domain. When the store has grown past
// the cleanup threshold, every expired entry is removed in one pass.
func (c *Cache) Set(_ context.Context, domain string, result analysis.Result) error {
	now := c.clock.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[domain] = entry{result: result, createdAt: now}
	if len(c.entries) > c.cleanupThreshold {
		for key, e := range c.entries {
			if c.expired(e, now) {
				delete(c.entries, key)
			}
		}
	}
	return nil
}

// Len reports the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) expired(e entry, now time.Time) bool {
	return now.Sub(e.createdAt) > c.ttl
}
