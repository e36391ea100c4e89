// Package apicache provides a process-local TTL cache with in-flight request
// coalescing, used to collapse bursts of identical upstream calls into one.
package apicache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Producer yields the value for a key on a cache miss. It may block on I/O;
// the cache imposes no timeout of its own.
type Producer func(ctx context.Context) (any, error)

type entry struct {
	value   any
	expires time.Time
}

// Cache is a TTL key/value store with lazy eviction on read and singleflight
// deduplication of concurrent producers. Construct one per process and share
// it by reference.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	// gens counts explicit writes per key and epoch counts Clears, so a
	// production that started before a write can tell its result is stale.
	gens  map[string]uint64
	epoch uint64
	group singleflight.Group
	now   func() time.Time
}

// New constructs an empty Cache.
func New() *Cache {
	return &Cache{
		entries: make(map[string]entry),
		gens:    make(map[string]uint64),
		now:     time.Now,
	}
}

// Get returns the fresh value for key, or ok=false when absent or expired.
// Expired entries are evicted on read.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !c.now().Before(e.expires) {
		c.mu.Lock()
		if cur, still := c.entries[key]; still && cur.expires.Equal(e.expires) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return e.value, true
}

// Set stores value with the given ttl, replacing any existing entry and
// discarding any in-flight production for the key.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	c.gens[key]++
	c.entries[key] = entry{value: value, expires: c.now().Add(ttl)}
	c.mu.Unlock()
	c.group.Forget(key)
}

// Has reports whether a fresh value exists for key, with the same lazy
// eviction as Get.
func (c *Cache) Has(key string) bool {
	_, ok := c.Get(key)
	return ok
}

// Delete removes one entry and forgets any in-flight production for it.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	c.gens[key]++
	delete(c.entries, key)
	c.mu.Unlock()
	c.group.Forget(key)
}

// Clear removes every entry. In-flight productions complete for their
// current awaiters but their results are discarded, not stored.
func (c *Cache) Clear() {
	c.mu.Lock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	c.entries = make(map[string]entry)
	c.epoch++
	c.mu.Unlock()
	for _, k := range keys {
		c.group.Forget(k)
	}
}

// gen snapshots the write generation of a key. Any Set, Delete or Clear
// after the snapshot yields a different value.
func (c *Cache) gen(key string) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.epoch + c.gens[key]
}

// setIfUnchanged stores value only when no explicit write touched the key
// since gen was snapshotted.
func (c *Cache) setIfUnchanged(key string, value any, ttl time.Duration, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch+c.gens[key] != gen {
		return
	}
	c.entries[key] = entry{value: value, expires: c.now().Add(ttl)}
}

// Dedupe returns the fresh cached value for key when one exists; otherwise
// it ensures at most one producer runs for the key, caches a successful
// result with ttl, and hands the same outcome to every concurrent caller.
// A failed production is not cached, so the next call retries.
//
// Cancelling ctx releases this caller only: the producer keeps running and
// its result still serves the remaining awaiters.
func (c *Cache) Dedupe(ctx context.Context, key string, ttl time.Duration, produce Producer) (any, error) {
	if v, ok := c.Get(key); ok {
		recordHit(key)
		return v, nil
	}
	recordMiss(key)

	gen := c.gen(key)
	ch := c.group.DoChan(key, func() (any, error) {
		// A concurrent Set may have landed between the miss and this call.
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		// Detach from the first caller's context so one caller bailing out
		// cannot abort a production other callers are waiting on.
		v, err := produce(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		// An explicit write during the production wins over its result.
		c.setIfUnchanged(key, v, ttl, gen)
		return v, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.Val, res.Err
	}
}
