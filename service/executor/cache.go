package executor

import (
	"context"
	"sync"
	"time"

	"github.com/arkadia-labs/approvia/internal/clock"
)

// DefaultCapabilityTTL bounds how long a cached capability list is served
// before it is lazily refreshed from the provider.
const DefaultCapabilityTTL = 5 * time.Minute

// CapabilityCache memoises per-provider capability lists with a time-boxed
// expiry.  TTL and clock are constructor-injected so that expiry is testable
// without wall-clock sleeps.  The cache is safe for concurrent use across
// sessions.
type CapabilityCache struct {
	ttl     time.Duration
	now     clock.Clock
	mu      sync.RWMutex
	entries map[string]capabilityEntry
}

type capabilityEntry struct {
	capabilities []Capability
	fetchedAt    time.Time
}

// NewCapabilityCache creates a cache with the supplied TTL and clock.  Zero
// values fall back to the package defaults.
func NewCapabilityCache(ttl time.Duration, now clock.Clock) *CapabilityCache {
	if ttl <= 0 {
		ttl = DefaultCapabilityTTL
	}
	if now == nil {
		now = clock.System()
	}
	return &CapabilityCache{
		ttl:     ttl,
		now:     now,
		entries: make(map[string]capabilityEntry),
	}
}

// Capabilities returns the cached capability list for the provider,
// refreshing it lazily when absent or expired.
func (c *CapabilityCache) Capabilities(ctx context.Context, provider Service) ([]Capability, error) {
	name := provider.Name()
	c.mu.RLock()
	entry, ok := c.entries[name]
	c.mu.RUnlock()
	if ok && c.now().Sub(entry.fetchedAt) < c.ttl {
		return entry.capabilities, nil
	}

	capabilities, err := provider.Capabilities(ctx)
	if err != nil {
		// Serve a stale entry rather than failing the caller outright.
		if ok {
			return entry.capabilities, nil
		}
		return nil, err
	}
	c.mu.Lock()
	c.entries[name] = capabilityEntry{capabilities: capabilities, fetchedAt: c.now()}
	c.mu.Unlock()
	return capabilities, nil
}

// Invalidate drops the cached entry for the provider.
func (c *CapabilityCache) Invalidate(provider string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, provider)
}
