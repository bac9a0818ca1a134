package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Receives cache events. Used for metrics.
type Observer interface {
	CacheHit(key string)
	CacheMiss(key string)
	CacheLoad(key string, took time.Duration, err error)
}

// Produces a fresh value for a key. The context passed is detached
// from the caller that triggered the load, and bounded by the cache's
// LoadTimeout.
type Loader[V any] func(ctx context.Context) (V, error)

type entry[V any] struct {
	value      V
	expiration time.Time
}

// A keyed cache with TTL expiry and single-flight refill.
//
// Hits never block on a load in progress. On a miss, at most one
// Loader runs per key; every caller waiting on that key receives the
// outcome of the same load. Failed loads are not cached.
type Cache[V any] struct {
	// Bounds each Loader execution. Zero means unbounded.
	LoadTimeout time.Duration

	TimeNow  func() time.Time
	Observer Observer

	entries sync.Map
	group   singleflight.Group
}

func New[V any](loadTimeout time.Duration) *Cache[V] {
	return &Cache[V]{
		LoadTimeout: loadTimeout,
		TimeNow:     time.Now,
	}
}

// Returns the value for key if present and unexpired. Otherwise
// loads it via load, stores it with expiry now+ttl, and returns it.
//
// If ctx is cancelled while waiting, ctx.Err() is returned, but the
// load itself carries on and populates the cache for later callers.
func (c *Cache[V]) GetOrLoad(ctx context.Context, key string, ttl time.Duration, load Loader[V]) (V, error) {
	if v, ok := c.Get(key); ok {
		c.hit(key)
		return v, nil
	}
	c.miss(key)

	ch := c.group.DoChan(key, func() (interface{}, error) {
		// A flight that finished between our miss and now
		// may already have filled the entry.
		if v, ok := c.Get(key); ok {
			return v, nil
		}

		loadCtx := context.WithoutCancel(ctx)
		if c.LoadTimeout > 0 {
			var cancel context.CancelFunc
			loadCtx, cancel = context.WithTimeout(loadCtx, c.LoadTimeout)
			defer cancel()
		}

		start := c.now()
		v, err := load(loadCtx)
		c.loaded(key, c.now().Sub(start), err)
		if err != nil {
			return nil, err
		}

		c.entries.Store(key, &entry[V]{
			value:      v,
			expiration: c.now().Add(ttl),
		})

		return v, nil
	})

	var zero V
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(V), nil
	}
}

// Returns the value for key if present and unexpired. Expired entries
// are treated as absent.
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V
	raw, ok := c.entries.Load(key)
	if !ok {
		return zero, false
	}
	e := raw.(*entry[V])
	if !c.now().Before(e.expiration) {
		return zero, false
	}
	return e.value, true
}

// Drops the entry for key. A load in progress is not affected.
func (c *Cache[V]) Invalidate(key string) {
	c.entries.Delete(key)
}

func (c *Cache[V]) now() time.Time {
	if c.TimeNow == nil {
		return time.Now()
	}
	return c.TimeNow()
}

func (c *Cache[V]) hit(key string) {
	if c.Observer != nil {
		c.Observer.CacheHit(key)
	}
}

func (c *Cache[V]) miss(key string) {
	if c.Observer != nil {
		c.Observer.CacheMiss(key)
	}
}

func (c *Cache[V]) loaded(key string, took time.Duration, err error) {
	if c.Observer != nil {
		c.Observer.CacheLoad(key, took, err)
	}
}
