package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// BatchFetchFunc loads values for a set of keys in a single round trip to the
// source of truth. Implementations must return exactly one value per key, in
// key order; returning a different number of values is treated as a bug in
// the fetcher and surfaced as ErrFetchCount.
type BatchFetchFunc[K comparable, V any] func(ctx context.Context, keys []K) ([]V, error)

var (
	// ErrKeyValueMismatch reports an Add call whose key and value sequences
	// differ in length.
	ErrKeyValueMismatch = errors.New("cache: keys and values differ in length")

	// ErrFetchCount reports a batch fetch that resolved with the wrong number
	// of values for the keys it was given.
	ErrFetchCount = errors.New("cache: fetch returned wrong number of values")
)

// A sweep becomes due once more than sweepFactor*TTL has elapsed since the
// previous one.
const sweepFactor = 2

// entry pairs a cached value with the time it was last written.
type entry[V any] struct {
	value     V
	updatedAt time.Time
}

// flight tracks one in-progress fetch for a single key. Concurrent callers
// that need the same key wait on done instead of issuing their own fetch.
type flight[V any] struct {
	done chan struct{}
	val  V
	err  error
}

// Stats exposes counters accumulated since the cache was created.
type Stats struct {
	// Hits counts keys served from a live entry.
	Hits uint64
	// Misses counts keys that required a fetch.
	Misses uint64
	// Coalesced counts keys that piggybacked on another caller's fetch.
	Coalesced uint64
	// Swept counts entries removed by sweeps.
	Swept uint64
}

// Cache is an in-memory key/value cache with batched, coalesced fetching and
// time-based expiry. It never spawns timers: expired entries are dropped by
// sweeps that piggyback on Add and Get traffic, and stale reads remain
// available through Peek until a sweep removes them.
//
// An entry is live while now-updatedAt <= TTL. A Get with revalidate=true
// additionally treats entries older than RevalidateAfter as stale, which
// gives callers an opt-in freshness window well inside the hard expiry.
type Cache[K comparable, V any] struct {
	fetch  BatchFetchFunc[K, V]
	ttl    time.Duration
	reval  time.Duration
	logger *zap.Logger
	now    func() time.Time

	mu        sync.Mutex
	entries   map[K]entry[V]
	inflight  map[K]*flight[V]
	lastSweep time.Time
	stats     Stats
}

// New constructs a Cache that loads missing values through fetch. A nil
// logger disables logging.
func New[K comparable, V any](fetch BatchFetchFunc[K, V], cfg Config, logger *zap.Logger) (*Cache[K, V], error) {
	if fetch == nil {
		return nil, &ConfigError{Field: "fetch", Message: "batch fetch function is required"}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	c := &Cache[K, V]{
		fetch:    fetch,
		ttl:      cfg.TTL,
		reval:    cfg.RevalidateAfter,
		logger:   logger,
		now:      now,
		entries:  make(map[K]entry[V]),
		inflight: make(map[K]*flight[V]),
	}
	c.lastSweep = c.now()
	return c, nil
}

// Add stores values under the given parallel keys, overwriting existing
// entries and resetting their timestamps. The sequences must have equal
// length; a mismatch returns ErrKeyValueMismatch and stores nothing.
func (c *Cache[K, V]) Add(keys []K, values []V) error {
	if len(keys) != len(values) {
		return fmt.Errorf("%w: %d keys, %d values", ErrKeyValueMismatch, len(keys), len(values))
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for i, k := range keys {
		c.entries[k] = entry[V]{value: values[i], updatedAt: now}
	}
	c.sweepLocked(now)
	return nil
}

// AddOne stores a single key/value pair, overwriting any existing entry and
// resetting its timestamp.
func (c *Cache[K, V]) AddOne(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	c.entries[key] = entry[V]{value: value, updatedAt: now}
	c.sweepLocked(now)
}

// GetOne fetches a single key. See Get.
func (c *Cache[K, V]) GetOne(ctx context.Context, key K, revalidate bool) (V, error) {
	values, err := c.Get(ctx, []K{key}, revalidate)
	if err != nil {
		var zero V
		return zero, err
	}
	return values[0], nil
}

// Get returns one value per key, in key order. Live entries are served from
// memory. Keys that another caller is already fetching are joined to that
// fetch. All remaining keys are loaded through a single batch fetch call,
// and the results are written back positionally with fresh timestamps.
//
// With revalidate=true, entries older than the configured RevalidateAfter
// window are refetched even though they have not reached the hard TTL.
//
// A fetch error fails the whole call: no partial results are returned, no
// retry is attempted, and the error reaches every caller that was waiting on
// the same fetch.
func (c *Cache[K, V]) Get(ctx context.Context, keys []K, revalidate bool) ([]V, error) {
	results := make([]V, len(keys))

	var (
		fetchKeys  []K
		owned      []*flight[V]
		fetchSlots = make(map[K][]int)
		waits      map[int]*flight[V]
	)

	c.mu.Lock()
	now := c.now()
	for i, k := range keys {
		if e, ok := c.entries[k]; ok && c.liveLocked(e, now, revalidate) {
			results[i] = e.value
			c.stats.Hits++
			continue
		}
		if slots, ok := fetchSlots[k]; ok {
			fetchSlots[k] = append(slots, i)
			continue
		}
		if f, ok := c.inflight[k]; ok {
			if waits == nil {
				waits = make(map[int]*flight[V])
			}
			waits[i] = f
			c.stats.Coalesced++
			continue
		}
		f := &flight[V]{done: make(chan struct{})}
		c.inflight[k] = f
		owned = append(owned, f)
		fetchKeys = append(fetchKeys, k)
		fetchSlots[k] = []int{i}
		c.stats.Misses++
	}
	c.sweepLocked(now)
	c.mu.Unlock()

	if len(fetchKeys) > 0 {
		if err := c.runFetch(ctx, fetchKeys, owned); err != nil {
			return nil, err
		}
		for i, k := range fetchKeys {
			for _, slot := range fetchSlots[k] {
				results[slot] = owned[i].val
			}
		}
	}

	for i, f := range waits {
		select {
		case <-f.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		if f.err != nil {
			return nil, f.err
		}
		results[i] = f.val
	}

	return results, nil
}

// runFetch executes one batch fetch outside the lock and resolves the flights
// this caller registered, writing successful values back into the entry map.
// The write-back is last-writer-wins: a fetch that was in flight across a
// concurrent Add overwrites the added value and its timestamp.
func (c *Cache[K, V]) runFetch(ctx context.Context, keys []K, flights []*flight[V]) error {
	c.logger.Debug("dispatching batch fetch", zap.Int("keys", len(keys)))

	values, err := c.fetch(ctx, keys)
	if err == nil && len(values) != len(keys) {
		err = fmt.Errorf("%w: requested %d, got %d", ErrFetchCount, len(keys), len(values))
	}

	c.mu.Lock()
	now := c.now()
	for i, k := range keys {
		f := flights[i]
		if err != nil {
			f.err = err
		} else {
			f.val = values[i]
			c.entries[k] = entry[V]{value: values[i], updatedAt: now}
		}
		delete(c.inflight, k)
		close(f.done)
	}
	if err == nil {
		c.sweepLocked(now)
	}
	c.mu.Unlock()

	return err
}

// Invalidate forces the entry's timestamp back to the epoch so the next Get
// refetches it. The value itself is kept: Peek continues to serve it until a
// sweep removes the entry. Unknown keys are ignored.
func (c *Cache[K, V]) Invalidate(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return
	}
	e.updatedAt = time.Time{}
	c.entries[key] = e
}

// Peek returns the current value for key regardless of its age, without
// triggering a fetch. The second return reports whether the key is resident.
func (c *Cache[K, V]) Peek(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Values snapshots every resident value, including stale ones. Order is
// unspecified.
func (c *Cache[K, V]) Values() []V {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]V, 0, len(c.entries))
	for _, e := range c.entries {
		out = append(out, e.value)
	}
	return out
}

// Len reports the number of resident entries, live or stale.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Stats returns a snapshot of the cache counters.
func (c *Cache[K, V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// liveLocked reports whether an entry may be served without fetching.
func (c *Cache[K, V]) liveLocked(e entry[V], now time.Time, revalidate bool) bool {
	age := now.Sub(e.updatedAt)
	if age > c.ttl {
		return false
	}
	if revalidate && age > c.reval {
		return false
	}
	return true
}

// sweepLocked drops every entry past its TTL once more than sweepFactor*TTL
// has elapsed since the previous sweep. Invalidated entries carry an epoch
// timestamp and are always past TTL, so they are collected here too.
func (c *Cache[K, V]) sweepLocked(now time.Time) {
	if now.Sub(c.lastSweep) <= sweepFactor*c.ttl {
		return
	}

	removed := 0
	for k, e := range c.entries {
		if now.Sub(e.updatedAt) > c.ttl {
			delete(c.entries, k)
			removed++
		}
	}
	c.lastSweep = now
	c.stats.Swept += uint64(removed)

	if removed > 0 {
		c.logger.Debug("swept expired entries",
			zap.Int("removed", removed),
			zap.Int("remaining", len(c.entries)))
	}
}
