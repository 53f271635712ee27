// Package cache holds computed results in named buckets. Each bucket has its
// own freshness interval; writes declare which buckets they make stale and the
// Coordinator clears exactly those.
package cache

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/candlelife/candle/internal/bus"
	"github.com/jonboulle/clockwork"
)

type clearer interface {
	Clear()
	Len() int
}

// Coordinator owns the set of named buckets.
type Coordinator struct {
	clock clockwork.Clock
	bus   *bus.Bus

	mu      sync.Mutex
	buckets map[string]clearer
}

// NewCoordinator creates an empty coordinator. bus may be nil.
func NewCoordinator(clock clockwork.Clock, b *bus.Bus) *Coordinator {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Coordinator{clock: clock, bus: b, buckets: make(map[string]clearer)}
}

// Invalidate clears the named buckets. Unknown names are ignored.
func (c *Coordinator) Invalidate(names ...string) {
	c.mu.Lock()
	var cleared []string
	for _, n := range names {
		if b, ok := c.buckets[n]; ok {
			b.Clear()
			cleared = append(cleared, n)
		}
	}
	c.mu.Unlock()

	if c.bus != nil && len(cleared) > 0 {
		c.bus.Publish(bus.Event{Kind: bus.KindCacheInvalidate, Payload: cleared})
	}
}

// InvalidateAll clears every bucket, e.g. on sign-out.
func (c *Coordinator) InvalidateAll() {
	c.Invalidate(c.Names()...)
}

// Names lists the registered buckets in sorted order.
func (c *Coordinator) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.buckets))
	for n := range c.buckets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Mutate runs fn and, only if it succeeds, invalidates the stale buckets.
func Mutate(ctx context.Context, c *Coordinator, stale []string, fn func(ctx context.Context) error) error {
	if err := fn(ctx); err != nil {
		return err
	}
	c.Invalidate(stale...)
	return nil
}

type entry[T any] struct {
	value    T
	storedAt time.Time
}

// Bucket is a keyed set of results that expire after ttl.
type Bucket[T any] struct {
	name  string
	ttl   time.Duration
	clock clockwork.Clock

	mu      sync.Mutex
	entries map[string]entry[T]
	// epoch counts Clear calls; a load that straddles one is not stored.
	epoch uint64
}

// NewBucket registers a bucket on c. Registering a name twice replaces the
// earlier bucket in the coordinator.
func NewBucket[T any](c *Coordinator, name string, ttl time.Duration) *Bucket[T] {
	b := &Bucket[T]{
		name:    name,
		ttl:     ttl,
		clock:   c.clock,
		entries: make(map[string]entry[T]),
	}
	c.mu.Lock()
	c.buckets[name] = b
	c.mu.Unlock()
	return b
}

// Name returns the bucket name.
func (b *Bucket[T]) Name() string { return b.name }

// Get returns the value stored under key if it is younger than the bucket's ttl.
func (b *Bucket[T]) Get(key string) (T, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.entries[key]
	if !ok {
		var zero T
		return zero, false
	}
	if b.clock.Since(e.storedAt) >= b.ttl {
		delete(b.entries, key)
		var zero T
		return zero, false
	}
	return e.value, true
}

// Set stores value under key, stamped with the current time.
func (b *Bucket[T]) Set(key string, value T) {
	b.mu.Lock()
	b.entries[key] = entry[T]{value: value, storedAt: b.clock.Now()}
	b.mu.Unlock()
}

// Clear drops every entry and discards the results of loads still in flight.
func (b *Bucket[T]) Clear() {
	b.mu.Lock()
	clear(b.entries)
	b.epoch++
	b.mu.Unlock()
}

// Len reports the number of stored entries, fresh or not.
func (b *Bucket[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// GetOrLoad returns the fresh cached value or calls load and caches its result.
// Errors from load are returned and never cached. A result is returned but not
// cached when the bucket was cleared while load ran, since it may predate the
// write that cleared it.
func (b *Bucket[T]) GetOrLoad(ctx context.Context, key string, load func(ctx context.Context) (T, error)) (T, bool, error) {
	if v, ok := b.Get(key); ok {
		return v, true, nil
	}
	b.mu.Lock()
	epoch := b.epoch
	b.mu.Unlock()

	v, err := load(ctx)
	if err != nil {
		var zero T
		return zero, false, err
	}

	b.mu.Lock()
	if b.epoch == epoch {
		b.entries[key] = entry[T]{value: v, storedAt: b.clock.Now()}
	}
	b.mu.Unlock()
	return v, false, nil
}
