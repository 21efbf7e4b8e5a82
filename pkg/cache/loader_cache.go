// Package cache provides a generic read-through cache: bounded LRU storage with an
// optional TTL, plus singleflight so concurrent misses for one key share a single load.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
)

// ErrInvalidSize is returned by NewLoaderCache when maxEntries is not positive.
var ErrInvalidSize = errors.New("cache: max entries must be positive")

// DefaultLoadTimeout bounds a shared load when no WithLoadTimeout option is given.
const DefaultLoadTimeout = 30 * time.Second

type options struct {
	loadTimeout time.Duration
}

// Option configures a LoaderCache.
type Option func(*options)

// WithLoadTimeout bounds each shared load. Non-positive values keep the default.
func WithLoadTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.loadTimeout = d
		}
	}
}

// LoaderFunc loads the value for key on a cache miss.
type LoaderFunc[K comparable, V any] func(ctx context.Context, key K) (V, error)

// LoaderCache caches values produced by a LoaderFunc. Failed loads are never stored.
type LoaderCache[K comparable, V any] struct {
	lru         *expirable.LRU[string, V]
	group       singleflight.Group
	keyToString func(K) string
	loadTimeout time.Duration
}

// NewLoaderCache creates a cache holding at most maxEntries values. A ttl of zero keeps
// entries until they are evicted by size.
func NewLoaderCache[K comparable, V any](
	maxEntries int, ttl time.Duration, keyToString func(K) string, opts ...Option,
) (*LoaderCache[K, V], error) {
	if maxEntries <= 0 {
		return nil, ErrInvalidSize
	}

	o := options{loadTimeout: DefaultLoadTimeout}
	for _, opt := range opts {
		opt(&o)
	}

	return &LoaderCache[K, V]{
		lru:         expirable.NewLRU[string, V](maxEntries, nil, ttl),
		keyToString: keyToString,
		loadTimeout: o.loadTimeout,
	}, nil
}

// Get returns the cached value for key or loads it.
func (c *LoaderCache[K, V]) Get(ctx context.Context, key K, load LoaderFunc[K, V]) (V, error) {
	v, _, err := c.GetWithStats(ctx, key, load)

	return v, err
}

// GetWithStats is Get that also reports whether the value was served from the cache.
// Callers record hit/miss metrics from the flag.
//
// The shared load is detached from the caller that started it and bounded by the load timeout,
// so one canceled caller does not fail the others waiting on the same key. Each caller still
// returns as soon as its own ctx is done.
func (c *LoaderCache[K, V]) GetWithStats(ctx context.Context, key K, load LoaderFunc[K, V]) (V, bool, error) {
	var zero V

	k := c.keyToString(key)
	if v, ok := c.lru.Get(k); ok {
		return v, true, nil
	}

	ch := c.group.DoChan(k, func() (any, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.loadTimeout)
		defer cancel()

		loaded, loadErr := load(loadCtx, key)
		if loadErr != nil {
			return zero, loadErr
		}

		c.lru.Add(k, loaded)

		return loaded, nil
	})

	select {
	case <-ctx.Done():
		return zero, false, ctx.Err() //nolint:wrapcheck // caller's own cancellation
	case res := <-ch:
		if res.Err != nil {
			return zero, false, res.Err //nolint:wrapcheck // loader errors pass through
		}

		v, _ := res.Val.(V)

		return v, false, nil
	}
}

// Invalidate drops the entry for key.
func (c *LoaderCache[K, V]) Invalidate(key K) {
	c.lru.Remove(c.keyToString(key))
}

// InvalidateAll drops every entry.
func (c *LoaderCache[K, V]) InvalidateAll() {
	c.lru.Purge()
}

// Len returns the number of live entries.
func (c *LoaderCache[K, V]) Len() int {
	return c.lru.Len()
}
