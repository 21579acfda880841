// Package cache provides the in-process caches used by the refresh pipeline.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"
)

// FetchFunc loads a fresh value for a TTLCache.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// TTLCache holds one value that is refreshed on demand once older than the
// caller's TTL. A failed refresh leaves the previous value in place and returns it
// together with the error, so callers can keep serving stale data.
//
// Concurrent callers that find the value expired share a single fetch.
type TTLCache[T any] struct {
	fetch FetchFunc[T]
	clock clockwork.Clock
	group singleflight.Group

	mu        sync.Mutex
	value     T
	fetchedAt time.Time
	loaded    bool
	stale     bool
}

type entry[T any] struct {
	value T
	at    time.Time
}

// NewTTLCache builds a cache around fetch. A nil clock uses the real clock.
func NewTTLCache[T any](fetch FetchFunc[T], clock clockwork.Clock) *TTLCache[T] {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &TTLCache[T]{fetch: fetch, clock: clock}
}

// GetOrRefresh returns the cached value, refreshing it first when it is
// missing or older than ttl. fetchedAt is the time the returned value was loaded.
//
// When a refresh fails and an older value exists, that value is returned with
// the error. When nothing was ever loaded, the zero value is returned.
func (c *TTLCache[T]) GetOrRefresh(ctx context.Context, ttl time.Duration) (value T, fetchedAt time.Time, err error) {
	c.mu.Lock()
	if c.loaded && !c.stale && c.clock.Since(c.fetchedAt) < ttl {
		value, fetchedAt = c.value, c.fetchedAt
		c.mu.Unlock()
		return value, fetchedAt, nil
	}
	c.mu.Unlock()

	// The fetch runs with the context of the caller that started it.
	ch := c.group.DoChan("refresh", func() (any, error) {
		fresh, ferr := c.fetch(ctx)

		c.mu.Lock()
		defer c.mu.Unlock()
		if ferr == nil {
			c.value = fresh
			c.fetchedAt = c.clock.Now()
			c.loaded = true
			c.stale = false
		}
		return entry[T]{value: c.value, at: c.fetchedAt}, ferr
	})

	select {
	case res := <-ch:
		e := res.Val.(entry[T])
		return e.value, e.at, res.Err
	case <-ctx.Done():
		value, fetchedAt, _ = c.Peek()
		return value, fetchedAt, ctx.Err()
	}
}

// Peek returns the current value without refreshing. ok is false when nothing
// has been loaded yet.
func (c *TTLCache[T]) Peek() (value T, fetchedAt time.Time, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value, c.fetchedAt, c.loaded
}

// Invalidate forces the next GetOrRefresh to refresh.
func (c *TTLCache[T]) Invalidate() {
	c.mu.Lock()
	c.stale = true
	c.mu.Unlock()
}
