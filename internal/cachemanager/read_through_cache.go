package cachemanager

import (
	"context"
	"time"
)

// LoadFunc produces the value for input on a cache miss.
type LoadFunc[V any, I any] func(ctx context.Context, input I) (V, error)

// ReadThroughCache consults the cache before calling the loader and stores
// successful loads. Failed loads are never cached.
type ReadThroughCache[K comparable, V any, I any] struct {
	cache   CacheManager[K, V]
	key     func(I) K
	load    LoadFunc[V, I]
	ttl     time.Duration
	refresh bool
	bypass  bool
}

// ReadThroughOption customizes a ReadThroughCache.
type ReadThroughOption func(*readThroughOptions)

type readThroughOptions struct {
	refresh bool
	bypass  bool
}

// WithRefresh restarts an entry's ttl each time it is read.
func WithRefresh() ReadThroughOption {
	return func(o *readThroughOptions) { o.refresh = true }
}

// WithBypass skips the cache entirely when bypass is true.
func WithBypass(bypass bool) ReadThroughOption {
	return func(o *readThroughOptions) { o.bypass = bypass }
}

// NewReadThroughCache wires cache and load together. key derives the cache
// key from the loader input.
func NewReadThroughCache[K comparable, V any, I any](
	cache CacheManager[K, V],
	key func(I) K,
	load LoadFunc[V, I],
	ttl time.Duration,
	opts ...ReadThroughOption,
) *ReadThroughCache[K, V, I] {
	var o readThroughOptions
	for _, opt := range opts {
		opt(&o)
	}
	return &ReadThroughCache[K, V, I]{
		cache:   cache,
		key:     key,
		load:    load,
		ttl:     ttl,
		refresh: o.refresh,
		bypass:  o.bypass,
	}
}

// Get returns the cached value for input, loading it on a miss. The bool
// reports whether the value came from the cache.
func (r *ReadThroughCache[K, V, I]) Get(ctx context.Context, input I) (V, bool, error) {
	if r.bypass {
		v, err := r.load(ctx, input)
		return v, false, err
	}

	k := r.key(input)
	var (
		value V
		ok    bool
	)
	if r.refresh {
		value, ok = r.cache.GetWithRefresh(ctx, k, r.ttl)
	} else {
		value, ok = r.cache.Get(ctx, k)
	}
	if ok {
		return value, true, nil
	}

	value, err := r.load(ctx, input)
	if err != nil {
		return value, false, err
	}

	r.cache.Set(ctx, k, value, r.ttl)
	return value, false, nil
}
