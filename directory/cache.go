// Package directory resolves the named services an entity method reaches
// for with Ctx.Invoke to a dial target, with a cache in front of the
// resolution source (a remote directory, or a static table).
package directory

import (
	"context"
	"sync"
	"time"
)

// Cache stores resolved service endpoints.
type Cache interface {
	// Get retrieves a cached endpoint for service. Returns "", false, nil
	// when the key is absent or expired.
	Get(ctx context.Context, service string) (endpoint string, ok bool, err error)
	// Set stores an endpoint with the given TTL.
	Set(ctx context.Context, service, endpoint string, ttl time.Duration) error
	// Delete removes a cached entry.
	Delete(ctx context.Context, service string) error
}

// RefreshFunc resolves a service name to its current endpoint. It is
// called when a cache entry needs background refreshing.
type RefreshFunc func(ctx context.Context, service string) (endpoint string, err error)

// MemoryCache is an in-process Cache with TTL support and optional
// background refresh triggered as entries approach expiry.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry

	refreshFunc     RefreshFunc
	refreshCooldown time.Duration
	refreshCtx      context.Context
	refreshCancel   context.CancelFunc
	refreshWg       sync.WaitGroup
	refreshCh       chan string
}

type cacheEntry struct {
	endpoint  string
	expiresAt time.Time
	ttl       time.Duration
}

// MemoryCacheOption configures a MemoryCache.
type MemoryCacheOption func(*MemoryCache)

// WithRefreshFunc sets the function used to refresh expiring entries in
// the background.
func WithRefreshFunc(fn RefreshFunc) MemoryCacheOption {
	return func(c *MemoryCache) { c.refreshFunc = fn }
}

// WithRefreshCooldown sets the minimum interval between refresh attempts
// for the same service. Defaults to 10 seconds.
func WithRefreshCooldown(d time.Duration) MemoryCacheOption {
	return func(c *MemoryCache) { c.refreshCooldown = d }
}

// NewMemoryCache creates a new in-memory cache.
func NewMemoryCache(opts ...MemoryCacheOption) *MemoryCache {
	c := &MemoryCache{
		entries:         make(map[string]*cacheEntry),
		refreshCh:       make(chan string, 100),
		refreshCooldown: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get retrieves a cached endpoint. An entry within 20% of its TTL of
// expiring triggers a background refresh when a RefreshFunc is set.
func (c *MemoryCache) Get(_ context.Context, service string) (string, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[service]
	c.mu.RUnlock()
	if !ok {
		return "", false, nil
	}

	now := time.Now()
	if now.After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, service)
		c.mu.Unlock()
		return "", false, nil
	}

	if c.refreshFunc != nil && entry.ttl > 0 {
		if now.After(entry.expiresAt.Add(-entry.ttl / 5)) {
			c.triggerRefresh(service)
		}
	}
	return entry.endpoint, true, nil
}

func (c *MemoryCache) triggerRefresh(service string) {
	if c.refreshCtx == nil {
		return
	}
	select {
	case c.refreshCh <- service:
	case <-c.refreshCtx.Done():
	default:
	}
}

// Set stores an endpoint with the given TTL.
func (c *MemoryCache) Set(_ context.Context, service, endpoint string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[service] = &cacheEntry{endpoint: endpoint, expiresAt: time.Now().Add(ttl), ttl: ttl}
	return nil
}

// Delete removes a cached entry.
func (c *MemoryCache) Delete(_ context.Context, service string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, service)
	return nil
}

// Len returns the number of entries currently cached.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// StartRefresh starts the background refresh loop. No-op if no RefreshFunc
// was configured.
func (c *MemoryCache) StartRefresh(ctx context.Context) {
	if c.refreshFunc == nil {
		return
	}
	c.refreshCtx, c.refreshCancel = context.WithCancel(ctx)
	c.refreshWg.Add(1)
	go c.refreshLoop()
}

// StopRefresh stops the background refresh loop and waits for it to exit.
func (c *MemoryCache) StopRefresh() {
	if c.refreshCancel != nil {
		c.refreshCancel()
		c.refreshWg.Wait()
		c.refreshCancel = nil
	}
}

func (c *MemoryCache) refreshLoop() {
	defer c.refreshWg.Done()
	refreshed := make(map[string]time.Time)

	for {
		select {
		case <-c.refreshCtx.Done():
			return
		case service := <-c.refreshCh:
			if last, ok := refreshed[service]; ok && time.Since(last) < c.refreshCooldown {
				continue
			}
			c.mu.RLock()
			entry, exists := c.entries[service]
			c.mu.RUnlock()
			if !exists {
				continue
			}
			endpoint, err := c.refreshFunc(c.refreshCtx, service)
			if err != nil {
				continue
			}
			c.mu.Lock()
			c.entries[service] = &cacheEntry{endpoint: endpoint, expiresAt: time.Now().Add(entry.ttl), ttl: entry.ttl}
			c.mu.Unlock()
			refreshed[service] = time.Now()
			if len(refreshed) > 1000 {
				now := time.Now()
				for k, t := range refreshed {
					if now.Sub(t) > time.Minute {
						delete(refreshed, k)
					}
				}
			}
		}
	}
}
